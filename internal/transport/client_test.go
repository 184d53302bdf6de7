package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"workflow-console/internal/backendtest"
)

func TestListWorkflows_Success(t *testing.T) {
	b := backendtest.New()
	defer b.Close()
	b.Set("GET", "/workflows", backendtest.Response{Body: `[{"id":"w1","name":"Orders","status":"active"}]`})

	c := NewClient(b.URL())
	ws, err := c.ListWorkflows(context.Background())
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "w1", ws[0].ID)
	assert.Equal(t, "Orders", ws[0].Name)
	assert.Equal(t, "active", ws[0].Status)
}

func TestListWorkflows_InvalidShape(t *testing.T) {
	b := backendtest.New()
	defer b.Close()
	b.Set("GET", "/workflows", backendtest.Response{Body: `{"workflows":[]}`})

	_, err := NewClient(b.URL()).ListWorkflows(context.Background())
	assert.ErrorIs(t, err, ErrInvalidShape)
	assert.False(t, errors.Is(err, ErrNetworkFailure))
}

func TestListWorkflows_NetworkFailure(t *testing.T) {
	b := backendtest.New()
	defer b.Close()
	b.Set("GET", "/workflows", backendtest.Response{Status: http.StatusServiceUnavailable, Body: `{"detail":"Database not configured"}`})

	_, err := NewClient(b.URL()).ListWorkflows(context.Background())
	assert.ErrorIs(t, err, ErrNetworkFailure)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Contains(t, Detail(err), "Database not configured")
}

func TestListWorkflows_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).ListWorkflows(context.Background())
	assert.ErrorIs(t, err, ErrNetworkFailure)
}

func TestGetWorkflowLogs_Passthrough(t *testing.T) {
	b := backendtest.New()
	defer b.Close()
	b.Set("GET", "/workflows/w1/logs", backendtest.Response{Body: `{"logs":[{"message":"x"}]}`})

	raw, err := NewClient(b.URL()).GetWorkflowLogs(context.Background(), "w1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"logs":[{"message":"x"}]}`, string(raw))
}

func TestGenerateRules_RequestBody(t *testing.T) {
	b := backendtest.New()
	defer b.Close()
	b.Set("POST", "/query", backendtest.Response{Body: `{"transformation_rules":"do X then Y"}`})

	raw, err := NewClient(b.URL()).GenerateRules(context.Background(), "w1", "map dates")
	require.NoError(t, err)
	assert.JSONEq(t, `{"transformation_rules":"do X then Y"}`, string(raw))

	reqs := b.Requests()
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"workflow_id":"w1","query_text":"map dates"}`, reqs[0].Body)
}

func TestGenerateRules_NotAnObject(t *testing.T) {
	b := backendtest.New()
	defer b.Close()
	b.Set("POST", "/query", backendtest.Response{Body: `["a"]`})

	_, err := NewClient(b.URL()).GenerateRules(context.Background(), "w1", "q")
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestExportExcel(t *testing.T) {
	b := backendtest.New()
	defer b.Close()
	b.Set("POST", "/api/export-excel", backendtest.Response{Body: `{"filename":"out.xlsx"}`})

	c := NewClient(b.URL())
	name, err := c.ExportExcel(context.Background(), "w1", json.RawMessage(`[{"target_field":"a"}]`))
	require.NoError(t, err)
	assert.Equal(t, "out.xlsx", name)
	assert.JSONEq(t, `{"workflow_id":"w1","transformation_rules":[{"target_field":"a"}]}`, b.Requests()[0].Body)
	assert.Equal(t, b.URL()+"/download/out.xlsx", c.DownloadURL(name))
}

func TestExportExcel_Failures(t *testing.T) {
	b := backendtest.New()
	defer b.Close()
	c := NewClient(b.URL())

	b.Set("POST", "/api/export-excel", backendtest.Response{Body: `{}`})
	_, err := c.ExportExcel(context.Background(), "w1", json.RawMessage(`"r"`))
	assert.ErrorIs(t, err, ErrExportFailure)

	b.Set("POST", "/api/export-excel", backendtest.Response{Status: http.StatusNotFound, Body: `{"detail":"Workflow not found"}`})
	_, err = c.ExportExcel(context.Background(), "gone", json.RawMessage(`"r"`))
	assert.ErrorIs(t, err, ErrExportFailure)
	assert.ErrorIs(t, err, ErrNetworkFailure)
}

func TestClient_Headers(t *testing.T) {
	var auth, reqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		reqID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL, WithToken("secret")).Health(context.Background()))
	assert.Equal(t, "Bearer secret", auth)
	assert.Len(t, reqID, 36)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "from-idp", TokenType: "Bearer"})
	require.NoError(t, NewClient(srv.URL, WithTokenSource(ts)).Health(context.Background()))
	assert.Equal(t, "Bearer from-idp", auth)
}

func TestURLs(t *testing.T) {
	c := NewClient("http://backend:8000")
	assert.Equal(t, "http://backend:8000/download/rules%20v2.xlsx", c.DownloadURL("rules v2.xlsx"))
	assert.Equal(t, "http://backend:8000/workflows/w%2F1/logs/download", c.LogsDownloadURL("w/1"))
}
