// Package mcp exposes the console's user actions as MCP tools, so an agent
// can drive the same controller session a browser does.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"workflow-console/internal/console"
)

type Server struct {
	mcpServer *server.MCPServer
	console   *console.Controller
	page      *console.Page
}

func NewServer(ctrl *console.Controller, page *console.Page, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Workflow Console",
			version,
			server.WithToolCapabilities(true),
		),
		console: ctrl,
		page:    page,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List the workflows known to the console and the current selection"),
		),
		s.handleListWorkflows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"select_workflow",
			mcp.WithDescription("Select a workflow and load its logs"),
			mcp.WithString("workflow_id", mcp.Required(), mcp.Description("The ID of the workflow")),
		),
		s.handleSelectWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"submit_query",
			mcp.WithDescription("Generate transformation rules for the selected workflow"),
			mcp.WithString("query_text", mcp.Required(), mcp.Description("Natural-language description of the rules needed")),
		),
		s.handleSubmitQuery,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"export_rules",
			mcp.WithDescription("Export the last generated rules to Excel and return the download URL"),
		),
		s.handleExportRules,
	)
}

type workflowsResult struct {
	Phase      console.Phase `json:"phase"`
	SelectedID string        `json:"selected_id,omitempty"`
	Workflows  any           `json:"workflows"`
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.settled(ctx)
	if err != nil {
		return nil, err
	}
	if status.Phase == console.PhaseIdle || status.Phase == console.PhaseLoadFailed {
		if err := s.console.Load(ctx); err != nil {
			return actionError("Failed to load workflows", err)
		}
		if status, err = s.settled(ctx); err != nil {
			return nil, err
		}
	}
	if status.Phase == console.PhaseLoadFailed {
		return mcp.NewToolResultError("Failed to load workflows"), nil
	}
	return jsonResult(workflowsResult{Phase: status.Phase, SelectedID: status.SelectedID, Workflows: status.Workflows})
}

type selectResult struct {
	Status console.Status `json:"status"`
	Logs   string         `json:"logs_html"`
}

func (s *Server) handleSelectWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("workflow_id")
	if err != nil || id == "" {
		return mcp.NewToolResultError("Missing required parameter: workflow_id"), nil
	}

	if err := s.console.SelectWorkflow(ctx, id); err != nil {
		return actionError("Failed to select workflow", err)
	}
	status, err := s.settled(ctx)
	if err != nil {
		return nil, err
	}
	var snap console.Snapshot
	if err := s.console.Read(ctx, func() { snap = s.page.Snapshot(false) }); err != nil {
		return nil, err
	}
	return jsonResult(selectResult{Status: status, Logs: string(snap.Logs)})
}

type queryResult struct {
	Phase console.Phase   `json:"phase"`
	Form  string          `json:"form,omitempty"`
	Rules json.RawMessage `json:"transformation_rules,omitempty"`
}

func (s *Server) handleSubmitQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query_text")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: query_text"), nil
	}

	if err := s.console.SubmitQuery(ctx, query); err != nil {
		return actionError("Failed to submit query", err)
	}
	status, err := s.settled(ctx)
	if err != nil {
		return nil, err
	}
	if status.Phase == console.PhaseResultsFailed || status.Rules == nil {
		return mcp.NewToolResultError("Failed to generate transformation rules."), nil
	}
	return jsonResult(queryResult{
		Phase: status.Phase,
		Form:  status.Rules.Kind.String(),
		Rules: status.Rules.ExportPayload(),
	})
}

func (s *Server) handleExportRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.console.Export(ctx); err != nil {
		return actionError("Failed to export rules", err)
	}
	if _, err := s.settled(ctx); err != nil {
		return nil, err
	}
	var url string
	if err := s.console.Read(ctx, func() { url = s.page.TakeNavigation() }); err != nil {
		return nil, err
	}
	if url == "" {
		return mcp.NewToolResultError(console.MsgExportFailed), nil
	}
	return mcp.NewToolResultText(url), nil
}

func (s *Server) settled(ctx context.Context) (console.Status, error) {
	if err := s.console.Settle(ctx); err != nil {
		return console.Status{}, err
	}
	return s.console.Status(ctx)
}

// actionError turns a rejected action into a tool error the agent can read;
// anything else is a protocol-level failure.
func actionError(prefix string, err error) (*mcp.CallToolResult, error) {
	var uie *console.UserInputError
	if errors.As(err, &uie) {
		return mcp.NewToolResultError(uie.Message), nil
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// SSE transport under /mcp/sse with messages posted to /mcp/message.
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
