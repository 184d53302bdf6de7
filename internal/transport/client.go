package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"workflow-console/pkg/models"
)

const maxErrorBody = 512

// Client is an HTTP implementation of the Transport interface.
type Client struct {
	baseURL     string
	token       string
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithToken sends a static bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTokenSource obtains bearer tokens from ts, e.g. an oauth2 client credentials flow.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokenSource = ts
	}
}

// WithHTTPClient replaces the underlying client. Tracing and token
// injection are still layered on top of its transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		clone := *hc
		c.httpClient = &clone
	}
}

// NewClient creates a Client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	var rt http.RoundTripper = otelhttp.NewTransport(base)
	if c.tokenSource != nil {
		rt = &oauth2.Transport{Source: c.tokenSource, Base: rt}
	}
	c.httpClient.Transport = rt
	return c
}

// ListWorkflows returns the workflow list. A body that is not a JSON array
// is ErrInvalidShape.
func (c *Client) ListWorkflows(ctx context.Context) ([]models.Workflow, error) {
	body, err := c.do(ctx, http.MethodGet, "/workflows", nil)
	if err != nil {
		return nil, err
	}
	return DecodeWorkflows(body)
}

// GetWorkflowLogs returns the logs payload unmodified; it may be a bare array
// or an object wrapping one.
func (c *Client) GetWorkflowLogs(ctx context.Context, workflowID string) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodGet, "/workflows/"+url.PathEscape(workflowID)+"/logs", nil)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: logs response is not JSON", ErrInvalidShape)
	}
	return body, nil
}

type queryRequest struct {
	WorkflowID string `json:"workflow_id"`
	QueryText  string `json:"query_text"`
}

// GenerateRules submits the query and returns the raw response object.
func (c *Client) GenerateRules(ctx context.Context, workflowID, queryText string) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodPost, "/query", queryRequest{
		WorkflowID: workflowID,
		QueryText:  queryText,
	})
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, fmt.Errorf("%w: query response is not a JSON object", ErrInvalidShape)
	}
	return body, nil
}

type exportRequest struct {
	WorkflowID          string          `json:"workflow_id"`
	TransformationRules json.RawMessage `json:"transformation_rules"`
}

// ExportExcel asks the backend to build a workbook from rules. Every failure
// wraps ErrExportFailure.
func (c *Client) ExportExcel(ctx context.Context, workflowID string, rules json.RawMessage) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/export-excel", exportRequest{
		WorkflowID:          workflowID,
		TransformationRules: rules,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExportFailure, err)
	}
	filename := gjson.GetBytes(body, "filename").String()
	if filename == "" {
		return "", fmt.Errorf("%w: response carried no filename", ErrExportFailure)
	}
	return filename, nil
}

// Health calls the backend health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil)
	return err
}

// DownloadURL is the address a browser navigates to for an exported file.
func (c *Client) DownloadURL(filename string) string {
	return c.baseURL + "/download/" + url.PathEscape(filename)
}

// LogsDownloadURL is the CSV export address for a workflow's logs.
func (c *Client) LogsDownloadURL(workflowID string) string {
	return c.baseURL + "/workflows/" + url.PathEscape(workflowID) + "/logs/download"
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" && c.tokenSource == nil {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrNetworkFailure, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s %s: %v", ErrNetworkFailure, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s := string(body)
		if len(s) > maxErrorBody {
			s = s[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: s}
	}
	return body, nil
}
