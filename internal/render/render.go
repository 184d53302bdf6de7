// Package render turns domain data into HTML fragments. Every function is
// pure: no network, no state. Fragments are produced with html/template, so
// server-supplied strings are always escaped and never interpreted as markup.
package render

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"workflow-console/pkg/models"
)

// Fixed panel messages.
const (
	MsgNoWorkflows        = "No workflows found."
	MsgInvalidWorkflows   = "Invalid workflow data format."
	MsgWorkflowsFailed    = "Failed to load workflows."
	MsgNoLogs             = "No logs available."
	MsgLogsFailed         = "Failed to load logs."
	MsgNoAnalysis         = "No error analysis available."
	MsgRulesFailed        = "Failed to generate transformation rules."
	MsgErrorContextFailed = "An error occurred while processing your query."
	NotAvailable          = "N/A"
	DefaultRuleTitle      = "Rule"
)

// Card describes one selectable workflow card.
type Card struct {
	ID          string
	Name        string
	Status      string
	StatusClass string
	Selected    bool
}

// WorkflowCards returns one card per workflow, in order.
func WorkflowCards(workflows []models.Workflow, selectedID string) []Card {
	cards := make([]Card, 0, len(workflows))
	for _, w := range workflows {
		cards = append(cards, Card{
			ID:          w.ID,
			Name:        cardName(w),
			Status:      w.Status,
			StatusClass: cssToken(w.Status),
			Selected:    selectedID != "" && w.ID == selectedID,
		})
	}
	return cards
}

// WorkflowList renders the workflow cards; an empty list renders a single placeholder.
func WorkflowList(workflows []models.Workflow, selectedID string) template.HTML {
	if len(workflows) == 0 {
		return Message("empty", MsgNoWorkflows)
	}
	return execute("workflows", WorkflowCards(workflows, selectedID))
}

// Message renders a fixed message paragraph.
func Message(class, text string) template.HTML {
	return execute("message", struct{ Class, Text string }{class, text})
}

// LogItem is one rendered log line.
type LogItem struct {
	Text      string
	Severity  models.Severity
	Timestamp string
	ErrorType string
}

// LogItems classifies each entry; malformed entries show their raw form.
func LogItems(logs []models.LogEntry) []LogItem {
	items := make([]LogItem, 0, len(logs))
	for _, l := range logs {
		items = append(items, LogItem{
			Text:      l.Text(),
			Severity:  l.Severity(),
			Timestamp: l.Timestamp,
			ErrorType: l.ErrorType,
		})
	}
	return items
}

// Logs renders an ordered log list. downloadURL, when set, adds a CSV link.
func Logs(logs []models.LogEntry, downloadURL string) template.HTML {
	if len(logs) == 0 {
		return Message("empty", MsgNoLogs)
	}
	return execute("logs", struct {
		Items       []LogItem
		DownloadURL string
	}{LogItems(logs), downloadURL})
}

// RuleCard is the display form of a TransformationRule.
type RuleCard struct {
	Title           string
	Description     string
	SourceFields    string
	Transformations string
	ErrorHandling   string
	Validation      string
}

// RuleCards substitutes placeholders for absent fields.
func RuleCards(rules []models.TransformationRule) []RuleCard {
	cards := make([]RuleCard, 0, len(rules))
	for _, r := range rules {
		title := r.TargetField
		if title == "" {
			title = DefaultRuleTitle
		}
		cards = append(cards, RuleCard{
			Title:           title,
			Description:     r.Description,
			SourceFields:    joinOrNA(r.SourceFields),
			Transformations: joinOrNA(r.Transformations),
			ErrorHandling:   joinOrNA(r.ErrorHandling),
			Validation:      joinOrNA(r.Validation),
		})
	}
	return cards
}

// RuleSet renders the text form as one preformatted block and the record
// form as one card per rule.
func RuleSet(rs *models.RuleSet) template.HTML {
	if rs == nil {
		return Message("empty", "No transformation rules generated.")
	}
	if rs.Kind == models.RuleSetRecords {
		if len(rs.Records) == 0 {
			return Message("empty", "No transformation rules generated.")
		}
		return execute("rules-records", RuleCards(rs.Records))
	}
	return execute("rules-text", rs.Text)
}

// ErrorContext renders reasoning, else the pretty-printed analysis, else a placeholder.
func ErrorContext(ec models.ErrorContext) template.HTML {
	switch ec.Kind {
	case models.ErrorContextReasoning:
		return execute("error-reasoning", ec.Reasoning)
	case models.ErrorContextAnalysis:
		return execute("error-analysis", PrettyAnalysis(ec.Analysis))
	default:
		return Message("empty", MsgNoAnalysis)
	}
}

// PrettyAnalysis formats a raw analysis value for display. JSON strings are
// shown without quotes; everything else is indented JSON.
func PrettyAnalysis(raw []byte) string {
	res := gjson.ParseBytes(raw)
	if res.Type == gjson.String {
		return res.Str
	}
	if !gjson.ValidBytes(raw) {
		return string(raw)
	}
	return strings.TrimSpace(string(pretty.PrettyOptions(raw, &pretty.Options{Width: 80, Indent: "  "})))
}

type fixView struct {
	models.SuggestedFix
	PriorityClass string
}

// SuggestedFixes renders the remediation list, or nothing when empty.
func SuggestedFixes(fixes []models.SuggestedFix) template.HTML {
	if len(fixes) == 0 {
		return ""
	}
	views := make([]fixView, 0, len(fixes))
	for _, f := range fixes {
		views = append(views, fixView{SuggestedFix: f, PriorityClass: cssToken(f.Priority)})
	}
	return execute("fixes", views)
}

// Failure renders a fixed failure message with an optional escaped detail.
func Failure(text, detail string) template.HTML {
	return execute("failure", struct{ Text, Detail string }{text, detail})
}

func execute(name string, data any) template.HTML {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return template.HTML("<p class=\"render-error\">" + template.HTMLEscapeString(err.Error()) + "</p>")
	}
	return template.HTML(buf.String())
}

func joinOrNA(values []string) string {
	if values == nil {
		return NotAvailable
	}
	return strings.Join(values, ", ")
}

func cardName(w models.Workflow) string {
	switch {
	case w.Name != "":
		return w.Name
	case w.ID != "":
		return "Workflow " + w.ID
	default:
		return "Unnamed workflow"
	}
}

// cssToken reduces s to lowercase letters, digits and dashes so it is safe as a class name.
func cssToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '_', r == '-':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "none"
	}
	return b.String()
}
