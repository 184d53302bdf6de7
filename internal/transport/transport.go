// Package transport wraps the outbound calls to the rules backend and
// normalises their outcomes into values or taxonomy errors.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"workflow-console/pkg/models"
)

var (
	// ErrNetworkFailure covers transport-level failures and non-2xx responses.
	ErrNetworkFailure = errors.New("network failure")
	// ErrInvalidShape is returned when a response arrived but is not of the expected type.
	ErrInvalidShape = errors.New("invalid response shape")
	// ErrExportFailure is returned when the export call failed or produced no filename.
	ErrExportFailure = errors.New("export failure")
)

// Transport is the contract the controller depends on. No operation retries.
type Transport interface {
	// ListWorkflows returns the full workflow list.
	ListWorkflows(ctx context.Context) ([]models.Workflow, error)
	// GetWorkflowLogs returns the logs payload unmodified.
	GetWorkflowLogs(ctx context.Context, workflowID string) (json.RawMessage, error)
	// GenerateRules submits a query and returns the raw response object.
	GenerateRules(ctx context.Context, workflowID, queryText string) (json.RawMessage, error)
	// ExportExcel exports rules and returns the generated filename.
	ExportExcel(ctx context.Context, workflowID string, rules json.RawMessage) (string, error)
	// DownloadURL is the address a browser navigates to for an exported file.
	DownloadURL(filename string) string
	// LogsDownloadURL is the CSV export address for a workflow's logs.
	LogsDownloadURL(workflowID string) string
}

// StatusError represents a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is(err, ErrNetworkFailure) match status errors.
func (e *StatusError) Unwrap() error {
	return ErrNetworkFailure
}

// Detail extracts a short human-readable reason from err for display next
// to a fixed failure message.
func Detail(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
