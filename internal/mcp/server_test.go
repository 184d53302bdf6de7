package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workflow-console/internal/backendtest"
	"workflow-console/internal/console"
	"workflow-console/internal/transport"
)

func newTestServer(t *testing.T) (*Server, *backendtest.Backend) {
	t.Helper()
	b := backendtest.New()
	t.Cleanup(b.Close)
	b.Set("GET", "/workflows", backendtest.Response{Body: `[{"id":"w1","name":"Orders","status":"active"}]`})
	b.Set("GET", "/workflows/w1/logs", backendtest.Response{Body: `[{"message":"info: started"}]`})

	page := console.NewPage()
	ctrl := console.New(transport.NewClient(b.URL()), page)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = ctrl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-ctrl.Done()
	})
	return NewServer(ctrl, page, "test"), b
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestListWorkflowsLoadsOnFirstCall(t *testing.T) {
	s, b := newTestServer(t)
	ctx := testContext(t)

	res, err := s.handleListWorkflows(ctx, call(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out struct {
		Phase     string `json:"phase"`
		Workflows []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"workflows"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, string(console.PhaseWorkflowsLoaded), out.Phase)
	require.Len(t, out.Workflows, 1)
	assert.Equal(t, "Orders", out.Workflows[0].Name)

	_, err = s.handleListWorkflows(ctx, call(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, b.Count("GET", "/workflows"))
}

func TestSelectWorkflowReturnsLogs(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := testContext(t)
	_, err := s.handleListWorkflows(ctx, call(nil))
	require.NoError(t, err)

	res, err := s.handleSelectWorkflow(ctx, call(map[string]any{"workflow_id": "w1"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "info: started")
	assert.Contains(t, text, `"selected_id":"w1"`)

	res, err = s.handleSelectWorkflow(ctx, call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSubmitQueryAndExport(t *testing.T) {
	s, b := newTestServer(t)
	ctx := testContext(t)
	b.Set("POST", "/query", backendtest.Response{Body: `{"transformation_rules":[{"target_field":"total"}]}`})
	b.Set("POST", "/api/export-excel", backendtest.Response{Body: `{"filename":"rules.xlsx"}`})

	_, err := s.handleListWorkflows(ctx, call(nil))
	require.NoError(t, err)

	res, err := s.handleSubmitQuery(ctx, call(map[string]any{"query_text": "sum it"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, console.MsgSelectWorkflowFirst, resultText(t, res))

	_, err = s.handleSelectWorkflow(ctx, call(map[string]any{"workflow_id": "w1"}))
	require.NoError(t, err)

	res, err = s.handleSubmitQuery(ctx, call(map[string]any{"query_text": "sum it"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	var out struct {
		Form  string          `json:"form"`
		Rules json.RawMessage `json:"transformation_rules"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "records", out.Form)
	assert.JSONEq(t, `[{"target_field":"total"}]`, string(out.Rules))

	res, err = s.handleExportRules(ctx, call(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, b.URL()+"/download/rules.xlsx", resultText(t, res))
}

func TestExportRulesFailure(t *testing.T) {
	s, b := newTestServer(t)
	ctx := testContext(t)
	b.Set("POST", "/query", backendtest.Response{Body: `{"transformation_rules":"r"}`})

	res, err := s.handleExportRules(ctx, call(nil))
	require.NoError(t, err)
	assert.Equal(t, console.MsgNoRulesToExport, resultText(t, res))

	_, err = s.handleListWorkflows(ctx, call(nil))
	require.NoError(t, err)
	_, err = s.handleSelectWorkflow(ctx, call(map[string]any{"workflow_id": "w1"}))
	require.NoError(t, err)
	_, err = s.handleSubmitQuery(ctx, call(map[string]any{"query_text": "q"}))
	require.NoError(t, err)

	res, err = s.handleExportRules(ctx, call(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, console.MsgExportFailed, resultText(t, res))
}
