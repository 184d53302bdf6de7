package models

import (
	"encoding/json"
)

// TransformationRule describes how source fields map onto a target field.
// A nil slice means the field was absent or not a sequence in the payload;
// a present but empty sequence is a non-nil empty slice.
type TransformationRule struct {
	TargetField     string   `json:"target_field,omitempty"`
	SourceFields    []string `json:"source_fields,omitempty"`
	Transformations []string `json:"transformations,omitempty"`
	ErrorHandling   []string `json:"error_handling,omitempty"`
	Validation      []string `json:"validation,omitempty"`
	// Description carries free-text rules that arrived as bare strings in a rules array.
	Description string `json:"description,omitempty"`
}

// RuleSetKind discriminates the two mutually exclusive rule set forms.
type RuleSetKind int

const (
	RuleSetText RuleSetKind = iota
	RuleSetRecords
)

func (k RuleSetKind) String() string {
	if k == RuleSetRecords {
		return "records"
	}
	return "text"
}

// RuleSet is the output of a query: either one pre-formatted string or an
// ordered sequence of rule records.
type RuleSet struct {
	Kind    RuleSetKind
	Text    string
	Records []TransformationRule
	// Raw is the transformation_rules value exactly as the backend returned it.
	Raw json.RawMessage
}

// TextRuleSet builds the string form.
func TextRuleSet(text string, raw json.RawMessage) *RuleSet {
	return &RuleSet{Kind: RuleSetText, Text: text, Raw: raw}
}

// RecordRuleSet builds the record-sequence form.
func RecordRuleSet(records []TransformationRule, raw json.RawMessage) *RuleSet {
	return &RuleSet{Kind: RuleSetRecords, Records: records, Raw: raw}
}

// ExportPayload returns the value sent back to the backend on export.
func (rs *RuleSet) ExportPayload() json.RawMessage {
	if len(rs.Raw) > 0 {
		return rs.Raw
	}
	var (
		b   []byte
		err error
	)
	if rs.Kind == RuleSetRecords {
		b, err = json.Marshal(rs.Records)
	} else {
		b, err = json.Marshal(rs.Text)
	}
	if err != nil {
		return json.RawMessage(`null`)
	}
	return b
}

// ErrorContextKind discriminates the three error context forms.
type ErrorContextKind int

const (
	ErrorContextNone ErrorContextKind = iota
	ErrorContextReasoning
	ErrorContextAnalysis
)

// ErrorContext is the supplementary explanation that accompanies a rule set.
type ErrorContext struct {
	Kind      ErrorContextKind
	Reasoning string
	Analysis  json.RawMessage
}

// SuggestedFix is one remediation proposed alongside the rules.
type SuggestedFix struct {
	Fix      string `json:"fix"`
	Priority string `json:"priority"`
	Impact   string `json:"impact"`
}

// QueryResult is a rule generation response after disambiguation.
type QueryResult struct {
	Rules        *RuleSet
	ErrorContext ErrorContext
	Fixes        []SuggestedFix
	// ErrorInfo is set when the backend flagged has_error on the response.
	ErrorInfo string
}
