// Package console implements the operator console: a single-threaded event
// loop that turns user actions into backend calls, keeps the selection state,
// and pushes rendered fragments to a View.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"workflow-console/internal/logging"
	"workflow-console/internal/render"
	"workflow-console/internal/state"
	"workflow-console/internal/transport"
	"workflow-console/pkg/models"
)

// Operator prompts for rejected actions.
const (
	MsgSelectWorkflowFirst = "Please select a workflow first."
	MsgEnterQuery          = "Please enter a query."
	MsgQueryInProgress     = "A query is already in progress."
	MsgNoRulesToExport     = "No transformation rules to export."
	MsgExportInProgress    = "An export is already in progress."
	MsgExportFailed        = "Failed to export rules to Excel."
	MsgWorkflowsNotLoaded  = "Workflows are not loaded yet."
	MsgWorkflowsLoading    = "Workflows are already loading."
	MsgUnknownWorkflow     = "Unknown workflow."
)

// Phase is the controller's position in the console state machine.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseWorkflowsLoading Phase = "workflows_loading"
	PhaseWorkflowsLoaded  Phase = "workflows_loaded"
	PhaseLoadFailed       Phase = "load_failed"
	PhaseLogsLoading      Phase = "logs_loading"
	PhaseQueryReady       Phase = "query_ready"
	PhaseQuerySubmitting  Phase = "query_submitting"
	PhaseResultsReady     Phase = "results_ready"
	PhaseResultsFailed    Phase = "results_failed"
	PhaseExportSubmitting Phase = "export_submitting"
	PhaseExportReady      Phase = "export_ready"
	PhaseExportFailed     Phase = "export_failed"
)

// UserInputError is a synchronous rejection: the operator is prompted and no
// call is made.
type UserInputError struct {
	Message string
}

func (e *UserInputError) Error() string {
	return e.Message
}

// Status is a read-only summary of the controller state.
type Status struct {
	Phase      Phase             `json:"phase"`
	SelectedID string            `json:"selected_id,omitempty"`
	HasRules   bool              `json:"has_rules"`
	Querying   bool              `json:"querying"`
	Exporting  bool              `json:"exporting"`
	Pending    bool              `json:"pending"`
	Workflows  []models.Workflow `json:"workflows"`
	Rules      *models.RuleSet   `json:"-"`
}

// Controller wires user actions to Transport calls, updates the selection
// and drives the View. Fields from ctx down are owned by the loop goroutine.
type Controller struct {
	loop      *Loop
	transport transport.Transport
	view      View
	logger    *logging.Logger
	metrics   *metrics

	ctx       context.Context
	inflight  int
	idle      []chan struct{}
	sel       *state.Selection
	phase     Phase
	workflows []models.Workflow
	loaded    bool
	querying  bool
	exporting bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithMeterProvider sets the meter provider used for console metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Controller) {
		c.metrics = newMetrics(mp)
	}
}

// WithSelection injects the selection state, mainly for tests.
func WithSelection(s *state.Selection) Option {
	return func(c *Controller) {
		c.sel = s
	}
}

// New creates a Controller. Run must be called before any action.
func New(t transport.Transport, view View, opts ...Option) *Controller {
	c := &Controller{
		loop:      NewLoop(64),
		transport: t,
		view:      view,
		logger:    logging.NewNop(),
		sel:       state.New(),
		phase:     PhaseIdle,
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = newMetrics(otel.GetMeterProvider())
	}
	return c
}

// Run processes tasks until ctx is cancelled. Backend calls started by the
// controller use ctx, so cancelling it also abandons them.
func (c *Controller) Run(ctx context.Context) error {
	if !c.loop.Post(func() { c.ctx = ctx }) {
		return ErrLoopStopped
	}
	return c.loop.Run(ctx)
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.loop.Done()
}

// Load fetches the workflow list. It is the console's entry transition and
// also the manual recovery after a failed load.
func (c *Controller) Load(ctx context.Context) error {
	return c.act(ctx, c.load)
}

// SelectWorkflow makes workflowID the current selection and fetches its logs.
func (c *Controller) SelectWorkflow(ctx context.Context, workflowID string) error {
	return c.act(ctx, func() error { return c.selectWorkflow(workflowID) })
}

// SubmitQuery sends queryText for the selected workflow.
func (c *Controller) SubmitQuery(ctx context.Context, queryText string) error {
	return c.act(ctx, func() error { return c.submitQuery(queryText) })
}

// Export exports the last generated rules for the selected workflow.
func (c *Controller) Export(ctx context.Context) error {
	return c.act(ctx, c.export)
}

// Status returns a summary of the controller state.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	var s Status
	err := c.loop.Do(ctx, func() {
		id, _ := c.sel.SelectedWorkflowID()
		rules, _ := c.sel.GeneratedRules()
		s = Status{
			Phase:      c.phase,
			SelectedID: id,
			HasRules:   rules != nil,
			Querying:   c.querying,
			Exporting:  c.exporting,
			Pending:    c.inflight > 0,
			Workflows:  append([]models.Workflow(nil), c.workflows...),
			Rules:      rules,
		}
	})
	return s, err
}

// Read runs fn on the loop, for callers that need a consistent view of
// state the loop owns, such as a Page snapshot.
func (c *Controller) Read(ctx context.Context, fn func()) error {
	return c.loop.Do(ctx, fn)
}

// Settle waits until every outstanding backend call has completed and its
// result has been applied.
func (c *Controller) Settle(ctx context.Context) error {
	var idle chan struct{}
	if err := c.loop.Do(ctx, func() {
		if c.inflight > 0 {
			idle = make(chan struct{})
			c.idle = append(c.idle, idle)
		}
	}); err != nil {
		return err
	}
	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.loop.Done():
		return ErrLoopStopped
	}
}

func (c *Controller) act(ctx context.Context, fn func() error) error {
	var err error
	if lerr := c.loop.Do(ctx, func() { err = fn() }); lerr != nil {
		return lerr
	}
	return err
}

// await runs call off the loop and applies done on the loop once it returns.
// It must be called from the loop.
func await[T any](c *Controller, op string, call func(context.Context) (T, error), done func(T, error)) {
	c.inflight++
	ctx := c.ctx
	go func() {
		start := time.Now()
		v, err := call(ctx)
		c.metrics.call(op, time.Since(start), err)
		c.loop.Post(func() {
			done(v, err)
			c.completed()
		})
	}()
}

func (c *Controller) completed() {
	c.inflight--
	if c.inflight > 0 {
		return
	}
	for _, ch := range c.idle {
		close(ch)
	}
	c.idle = nil
}

func (c *Controller) reject(action, message string) error {
	c.metrics.reject(action)
	c.logger.Debug("action rejected", "action", action, "reason", message)
	c.view.Alert(message)
	return &UserInputError{Message: message}
}

// setPhase moves to p unless a query or export is still outstanding; those
// phases are only left by their own completions.
func (c *Controller) setPhase(p Phase) {
	if c.querying || c.exporting {
		return
	}
	c.phase = p
}

func (c *Controller) load() error {
	if c.phase == PhaseWorkflowsLoading {
		return c.reject("load", MsgWorkflowsLoading)
	}
	c.metrics.action("load")
	c.phase = PhaseWorkflowsLoading
	c.view.ShowWorkflows(render.Message("loading", "Loading workflows..."))
	await(c, "list_workflows", c.transport.ListWorkflows, c.workflowsLoaded)
	return nil
}

func (c *Controller) workflowsLoaded(workflows []models.Workflow, err error) {
	if err != nil {
		msg := render.MsgWorkflowsFailed
		if errors.Is(err, transport.ErrInvalidShape) {
			msg = render.MsgInvalidWorkflows
		}
		c.logger.Error("failed to load workflows", "error", err)
		c.phase = PhaseLoadFailed
		c.loaded = false
		c.workflows = nil
		c.view.ShowWorkflows(render.Message("error", msg))
		return
	}

	c.workflows = workflows
	c.loaded = true
	c.phase = PhaseWorkflowsLoaded
	selected, _ := c.sel.SelectedWorkflowID()
	c.view.ShowWorkflows(render.WorkflowList(workflows, selected))
	c.logger.Info("workflows loaded", "count", len(workflows))
}

func (c *Controller) selectWorkflow(workflowID string) error {
	if !c.loaded {
		return c.reject("select", MsgWorkflowsNotLoaded)
	}
	if !c.knownWorkflow(workflowID) {
		return c.reject("select", MsgUnknownWorkflow)
	}
	c.metrics.action("select")

	c.sel.Select(workflowID)
	c.view.SetSelected(workflowID)
	c.view.ShowWorkflows(render.WorkflowList(c.workflows, workflowID))
	if !c.querying {
		c.view.SetQueryEnabled(true)
	}
	c.view.ShowLogs(render.Message("loading", "Loading logs..."))
	c.setPhase(PhaseLogsLoading)

	await(c, "get_workflow_logs",
		func(ctx context.Context) (json.RawMessage, error) {
			return c.transport.GetWorkflowLogs(ctx, workflowID)
		},
		func(raw json.RawMessage, err error) {
			c.logsLoaded(workflowID, raw, err)
		})
	return nil
}

func (c *Controller) logsLoaded(workflowID string, raw json.RawMessage, err error) {
	if !c.sel.IsSelected(workflowID) {
		c.metrics.staleLogs()
		c.logger.Debug("discarding stale logs response", "workflow_id", workflowID)
		return
	}
	c.setPhase(PhaseQueryReady)
	if err != nil {
		c.logger.Warn("failed to load logs", "workflow_id", workflowID, "error", err)
		c.view.ShowLogs(render.Message("error", render.MsgLogsFailed))
		return
	}
	logs := NormalizeLogs(raw)
	c.view.ShowLogs(render.Logs(logs, c.transport.LogsDownloadURL(workflowID)))
}

func (c *Controller) submitQuery(queryText string) error {
	workflowID, ok := c.sel.SelectedWorkflowID()
	if !ok {
		return c.reject("query", MsgSelectWorkflowFirst)
	}
	query := strings.TrimSpace(queryText)
	if query == "" {
		return c.reject("query", MsgEnterQuery)
	}
	if c.querying {
		return c.reject("query", MsgQueryInProgress)
	}
	c.metrics.action("query")

	c.setPhase(PhaseQuerySubmitting)
	c.querying = true
	c.view.SetLoading(true)
	c.view.SetResultsVisible(false)
	c.view.SetQueryEnabled(false)

	await(c, "generate_rules",
		func(ctx context.Context) (json.RawMessage, error) {
			return c.transport.GenerateRules(ctx, workflowID, query)
		},
		func(raw json.RawMessage, err error) {
			c.rulesGenerated(workflowID, raw, err)
		})
	return nil
}

func (c *Controller) rulesGenerated(workflowID string, raw json.RawMessage, err error) {
	c.querying = false
	c.view.SetLoading(false)
	_, selected := c.sel.SelectedWorkflowID()
	c.view.SetQueryEnabled(selected)

	if err != nil {
		c.logger.Error("failed to generate rules", "workflow_id", workflowID, "error", err)
		c.setPhase(PhaseResultsFailed)
		c.view.ShowRules(render.Failure(render.MsgRulesFailed, transport.Detail(err)))
		c.view.ShowErrorContext(render.Failure(render.MsgErrorContextFailed, ""))
		c.view.ShowFixes("")
		c.view.SetResultsVisible(true)
		return
	}

	if !c.sel.IsSelected(workflowID) {
		c.logger.Warn("rules arrived after the selection changed", "workflow_id", workflowID)
	}
	result := NormalizeQueryResult(raw)
	c.sel.SetGeneratedRules(result.Rules)
	c.setPhase(PhaseResultsReady)

	c.view.ShowRules(render.RuleSet(result.Rules))
	errorContext := render.ErrorContext(result.ErrorContext)
	if result.ErrorInfo != "" {
		errorContext += render.Message("error-info", result.ErrorInfo)
	}
	c.view.ShowErrorContext(errorContext)
	c.view.ShowFixes(render.SuggestedFixes(result.Fixes))
	c.view.SetResultsVisible(true)
	c.logger.Info("rules generated", "workflow_id", workflowID, "form", result.Rules.Kind.String())
}

func (c *Controller) export() error {
	rules, ok := c.sel.GeneratedRules()
	if !ok {
		return c.reject("export", MsgNoRulesToExport)
	}
	workflowID, ok := c.sel.SelectedWorkflowID()
	if !ok {
		return c.reject("export", MsgSelectWorkflowFirst)
	}
	if c.exporting {
		return c.reject("export", MsgExportInProgress)
	}
	c.metrics.action("export")

	c.setPhase(PhaseExportSubmitting)
	c.exporting = true
	payload := rules.ExportPayload()
	await(c, "export_excel",
		func(ctx context.Context) (string, error) {
			return c.transport.ExportExcel(ctx, workflowID, payload)
		},
		func(filename string, err error) {
			c.exported(workflowID, filename, err)
		})
	return nil
}

func (c *Controller) exported(workflowID, filename string, err error) {
	c.exporting = false
	if err != nil || filename == "" {
		c.logger.Error("failed to export rules", "workflow_id", workflowID, "error", err)
		c.setPhase(PhaseExportFailed)
		c.view.Alert(MsgExportFailed)
		return
	}
	c.setPhase(PhaseExportReady)
	c.view.Navigate(c.transport.DownloadURL(filename))
	c.logger.Info("rules exported", "workflow_id", workflowID, "filename", filename)
}

func (c *Controller) knownWorkflow(workflowID string) bool {
	for _, w := range c.workflows {
		if w.ID == workflowID {
			return true
		}
	}
	return false
}
