package api

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"

	"workflow-console/internal/console"
)

// refreshSeconds is the auto-refresh interval while a backend call is pending.
const refreshSeconds = 2

type pageData struct {
	Status  console.Status
	Page    console.Snapshot
	Refresh int
	Version string
}

// HandlePage renders the console. Pending prompts are shown once.
// (GET /)
func (s *Server) HandlePage(c echo.Context) error {
	state, err := s.read(c.Request().Context(), true)
	if err != nil {
		return err
	}
	data := pageData{Status: state.Status, Page: state.Page, Version: s.Version}
	if state.Status.Pending {
		data.Refresh = refreshSeconds
	}

	var buf bytes.Buffer
	if err := pageTemplate.ExecuteTemplate(&buf, "page", data); err != nil {
		s.Logger.Error("template error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render page")
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

var pageTemplate = template.Must(template.New("page").Parse(`
{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
{{- if .Refresh}}
<meta http-equiv="refresh" content="{{.Refresh}}">
{{- end}}
<title>Workflow Console</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:'JetBrains Mono',monospace,sans-serif;background:#0d1117;color:#c9d1d9;font-size:13px;line-height:1.5}
a{color:#58a6ff;text-decoration:none}
nav{background:#161b22;border-bottom:1px solid #30363d;padding:8px 16px;display:flex;gap:16px;align-items:center}
nav .brand{color:#f0f6fc;font-weight:700;font-size:15px}
nav .phase{margin-left:auto;font-size:11px;color:#8b949e}
main{padding:16px;display:grid;grid-template-columns:320px 1fr;gap:16px}
.section{background:#161b22;border:1px solid #30363d;border-radius:6px;margin-bottom:16px;overflow:hidden}
.section-hdr{padding:8px 12px;border-bottom:1px solid #30363d;font-size:11px;font-weight:600;color:#8b949e;text-transform:uppercase;letter-spacing:.05em;background:#0d1117;display:flex;justify-content:space-between}
.section-body{padding:8px 12px}
.alert{grid-column:1/-1;background:#f8717122;border:1px solid #f87171;color:#f87171;padding:8px 12px;border-radius:6px}
.download{grid-column:1/-1;background:#56d36422;border:1px solid #56d364;padding:8px 12px;border-radius:6px}
.workflow-card button{width:100%;text-align:left;background:#0d1117;border:1px solid #30363d;border-radius:6px;color:#c9d1d9;padding:8px;margin:4px 0;cursor:pointer;display:flex;justify-content:space-between;font-family:inherit}
.workflow-card.selected button{border-color:#1f6feb;background:#1f6feb22}
.status-active{color:#56d364}.status-paused{color:#f59e0b}.status-failed,.status-error{color:#f87171}
.log-list{list-style:none;max-height:320px;overflow-y:auto}
.log-entry{padding:2px 0;border-bottom:1px solid #21262d}
.log-error{color:#f87171}.log-warning{color:#f59e0b}.log-info{color:#58a6ff}.log-neutral{color:#c9d1d9}
.log-time,.log-type{color:#8b949e;margin-right:8px}
textarea{width:100%;min-height:80px;background:#0d1117;border:1px solid #30363d;color:#c9d1d9;border-radius:4px;padding:6px;font-family:inherit}
button.primary{background:#1f6feb;border:none;color:#fff;padding:4px 12px;border-radius:4px;cursor:pointer;margin-top:8px}
button:disabled{opacity:.5;cursor:not-allowed}
.loading{color:#f59e0b;padding:8px 0}
pre{white-space:pre-wrap;word-break:break-word;font-family:monospace;font-size:12px}
.rule-card{border:1px solid #30363d;border-radius:6px;padding:8px;margin:6px 0}
.rule-card dt{color:#8b949e;font-size:11px}
.failure,.error{color:#f87171}
.empty{color:#8b949e}
.priority-high{color:#f87171}.priority-medium{color:#f59e0b}.priority-low{color:#56d364}
</style>
</head>
<body>
<nav><span class="brand">Workflow Console</span><span class="phase">{{.Status.Phase}} · {{.Version}}</span></nav>
<main>
{{- range .Page.Alerts}}
<div class="alert" role="alert">{{.}}</div>
{{- end}}
{{- if .Page.NavigateTo}}
<div class="download"><a href="{{.Page.NavigateTo}}">Download exported rules</a></div>
{{- end}}
<div>
<div class="section" id="workflows">
<div class="section-hdr">Workflows
<form method="post" action="/reload"><button type="submit">Reload</button></form></div>
<div class="section-body">{{.Page.Workflows}}</div>
</div>
</div>
<div>
<div class="section" id="logs">
<div class="section-hdr">Logs{{if .Page.SelectedID}} · {{.Page.SelectedID}}{{end}}</div>
<div class="section-body">{{if .Page.Logs}}{{.Page.Logs}}{{else}}<p class="empty">Select a workflow to see its logs.</p>{{end}}</div>
</div>
<div class="section" id="query">
<div class="section-hdr">Query</div>
<div class="section-body">
<form method="post" action="/query">
<textarea name="query_text" placeholder="Describe the transformation you need"{{if not .Page.QueryEnabled}} disabled{{end}}></textarea>
<button class="primary" type="submit"{{if not .Page.QueryEnabled}} disabled{{end}}>Generate rules</button>
</form>
{{- if .Page.Loading}}
<p class="loading" id="loading">Generating transformation rules...</p>
{{- end}}
</div>
</div>
{{- if .Page.ResultsVisible}}
<div class="section" id="results">
<div class="section-hdr">Transformation rules
<form method="post" action="/export"><button type="submit"{{if .Status.Exporting}} disabled{{end}}>Export to Excel</button></form></div>
<div class="section-body" id="rules">{{.Page.Rules}}</div>
</div>
<div class="section">
<div class="section-hdr">Error analysis</div>
<div class="section-body" id="error-context">{{.Page.ErrorContext}}</div>
</div>
{{- if .Page.Fixes}}
<div class="section">
<div class="section-hdr">Suggested fixes</div>
<div class="section-body" id="fixes">{{.Page.Fixes}}</div>
</div>
{{- end}}
{{- end}}
</div>
</main>
</body>
</html>
{{end}}`))
