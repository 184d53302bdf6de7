package render

import "html/template"

var fragments = template.Must(template.New("fragments").Parse(`
{{define "workflows"}}<div class="workflow-cards">
{{- range .}}
<form class="workflow-card{{if .Selected}} selected{{end}}" method="post" action="/workflows/{{.ID}}/select" data-workflow-id="{{.ID}}">
<button type="submit" class="card-body">
<span class="workflow-name">{{.Name}}</span>
<span class="workflow-status status-{{.StatusClass}}">{{.Status}}</span>
</button>
</form>
{{- end}}
</div>{{end}}

{{define "message"}}<p class="{{.Class}}">{{.Text}}</p>{{end}}

{{define "logs"}}<ol class="log-list">
{{- range .Items}}
<li class="log-entry log-{{.Severity}}">
{{- if .Timestamp}}<span class="log-time">{{.Timestamp}}</span> {{end}}
{{- if .ErrorType}}<span class="log-type">{{.ErrorType}}</span> {{end -}}
<span class="log-message">{{.Text}}</span></li>
{{- end}}
</ol>
{{- if .DownloadURL}}
<a class="log-download" href="{{.DownloadURL}}">Download logs (CSV)</a>
{{- end}}{{end}}

{{define "rules-text"}}<pre class="rules-text">{{.}}</pre>{{end}}

{{define "rules-records"}}<div class="rule-cards">
{{- range $i, $r := .}}
<div class="rule-card" data-rule-index="{{$i}}">
<h4>{{$r.Title}}</h4>
{{- if $r.Description}}
<p class="rule-description">{{$r.Description}}</p>
{{- end}}
<dl>
<dt>Source Fields</dt><dd>{{$r.SourceFields}}</dd>
<dt>Transformations</dt><dd>{{$r.Transformations}}</dd>
<dt>Error Handling</dt><dd>{{$r.ErrorHandling}}</dd>
<dt>Validation</dt><dd>{{$r.Validation}}</dd>
</dl>
</div>
{{- end}}
</div>{{end}}

{{define "error-reasoning"}}<div class="error-reasoning">{{.}}</div>{{end}}

{{define "error-analysis"}}<pre class="error-analysis">{{.}}</pre>{{end}}

{{define "fixes"}}<ul class="suggested-fixes">
{{- range .}}
<li class="fix priority-{{.PriorityClass}}"><span class="fix-text">{{.Fix}}</span>
{{- if .Priority}} <span class="fix-priority">{{.Priority}}</span>{{end}}
{{- if .Impact}} <span class="fix-impact">{{.Impact}}</span>{{end}}</li>
{{- end}}
</ul>{{end}}

{{define "failure"}}<div class="failure"><p>{{.Text}}</p>
{{- if .Detail}}<pre class="failure-detail">{{.Detail}}</pre>{{end}}</div>{{end}}
`))
