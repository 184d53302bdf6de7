// Package models defines the domain models shared by the console packages
package models

import (
	"strings"
)

// Workflow is a named unit of backend processing the operator can select.
type Workflow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Schedule string `json:"schedule,omitempty"`
}

// Severity is derived client-side from a log message; the backend never sends it.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityNeutral Severity = "neutral"
)

// severityRules is checked in order, first match wins.
var severityRules = []struct {
	needle   string
	severity Severity
}{
	{"error", SeverityError},
	{"warning", SeverityWarning},
	{"info", SeverityInfo},
}

// ClassifySeverity maps a message to a Severity by case-insensitive substring match.
func ClassifySeverity(message string) Severity {
	lower := strings.ToLower(message)
	for _, r := range severityRules {
		if strings.Contains(lower, r.needle) {
			return r.severity
		}
	}
	return SeverityNeutral
}

// LogEntry is one backend-emitted message for a workflow.
type LogEntry struct {
	ID        string `json:"id,omitempty"`
	Message   string `json:"message"`
	ErrorType string `json:"error_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	// Raw holds the original element when it could not be decoded into a message.
	Raw string `json:"raw,omitempty"`
}

// Text is the string shown for the entry: the message, or the raw element for malformed entries.
func (l LogEntry) Text() string {
	if l.Message != "" {
		return l.Message
	}
	return l.Raw
}

// Severity classifies the displayed text of the entry.
func (l LogEntry) Severity() Severity {
	return ClassifySeverity(l.Text())
}
