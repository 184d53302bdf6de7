package console

import "html/template"

// View is the display surface the controller drives. Implementations only
// store what they are given; the controller never reads back from them.
type View interface {
	ShowWorkflows(fragment template.HTML)
	SetSelected(workflowID string)
	ShowLogs(fragment template.HTML)
	SetQueryEnabled(enabled bool)
	SetLoading(loading bool)
	SetResultsVisible(visible bool)
	ShowRules(fragment template.HTML)
	ShowErrorContext(fragment template.HTML)
	ShowFixes(fragment template.HTML)
	// Alert is a blocking prompt for the operator.
	Alert(message string)
	// Navigate sends the browser to url, e.g. to download an export.
	Navigate(url string)
}

// Snapshot is a copy of everything a Page currently shows.
type Snapshot struct {
	Workflows      template.HTML `json:"workflows"`
	SelectedID     string        `json:"selected_id,omitempty"`
	Logs           template.HTML `json:"logs"`
	QueryEnabled   bool          `json:"query_enabled"`
	Loading        bool          `json:"loading"`
	ResultsVisible bool          `json:"results_visible"`
	Rules          template.HTML `json:"rules"`
	ErrorContext   template.HTML `json:"error_context"`
	Fixes          template.HTML `json:"fixes"`
	Alerts         []string      `json:"alerts,omitempty"`
	NavigateTo     string        `json:"navigate_to,omitempty"`
}

// Page is an in-memory View. Like the rest of the console state it must
// only be touched from the loop.
type Page struct {
	snap Snapshot
}

// NewPage returns an empty page.
func NewPage() *Page {
	return &Page{}
}

func (p *Page) ShowWorkflows(fragment template.HTML)    { p.snap.Workflows = fragment }
func (p *Page) SetSelected(workflowID string)           { p.snap.SelectedID = workflowID }
func (p *Page) ShowLogs(fragment template.HTML)         { p.snap.Logs = fragment }
func (p *Page) SetQueryEnabled(enabled bool)            { p.snap.QueryEnabled = enabled }
func (p *Page) SetLoading(loading bool)                 { p.snap.Loading = loading }
func (p *Page) SetResultsVisible(visible bool)          { p.snap.ResultsVisible = visible }
func (p *Page) ShowRules(fragment template.HTML)        { p.snap.Rules = fragment }
func (p *Page) ShowErrorContext(fragment template.HTML) { p.snap.ErrorContext = fragment }
func (p *Page) ShowFixes(fragment template.HTML)        { p.snap.Fixes = fragment }
func (p *Page) Alert(message string)                    { p.snap.Alerts = append(p.snap.Alerts, message) }
func (p *Page) Navigate(url string)                     { p.snap.NavigateTo = url }

// TakeNavigation returns the pending navigation target, if any, and clears it.
func (p *Page) TakeNavigation() string {
	url := p.snap.NavigateTo
	p.snap.NavigateTo = ""
	return url
}

// Snapshot copies the page. With drain set, pending alerts and navigation
// are handed over once and cleared.
func (p *Page) Snapshot(drain bool) Snapshot {
	s := p.snap
	s.Alerts = append([]string(nil), p.snap.Alerts...)
	if drain {
		p.snap.Alerts = nil
		p.snap.NavigateTo = ""
	}
	return s
}
