package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"

	"workflow-console/internal/console"
)

// QueryRequest is the body of a query submission, as a form or as JSON.
type QueryRequest struct {
	QueryText string `form:"query_text" json:"query_text"`
}

// HandleReload re-runs the workflow list fetch.
// (POST /reload)
func (s *Server) HandleReload(c echo.Context) error {
	return s.respond(c, s.Console.Load(c.Request().Context()))
}

// HandleSelectWorkflow selects a workflow and starts fetching its logs.
// (POST /workflows/{id}/select)
func (s *Server) HandleSelectWorkflow(c echo.Context) error {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter id: %s", err))
	}
	return s.respond(c, s.Console.SelectWorkflow(c.Request().Context(), id))
}

// HandleQuery submits a natural-language query for the selected workflow.
// (POST /query)
func (s *Server) HandleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	return s.respond(c, s.Console.SubmitQuery(c.Request().Context(), req.QueryText))
}

// HandleExport exports the generated rules. Browsers are redirected to the
// download once the backend has produced a file.
// (POST /export)
func (s *Server) HandleExport(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.Console.Export(ctx); err != nil {
		return s.respond(c, err)
	}
	s.settle(ctx)
	if wantsJSON(c) {
		return s.writeState(c)
	}

	var target string
	if err := s.Console.Read(ctx, func() { target = s.Page.TakeNavigation() }); err != nil {
		return err
	}
	if target == "" {
		target = "/"
	}
	return c.Redirect(http.StatusSeeOther, target)
}

// respond answers an action: JSON clients get the state or a problem
// document, browsers are sent back to the page, where any prompt shows.
func (s *Server) respond(c echo.Context, err error) error {
	var uie *console.UserInputError
	if err != nil && !errors.As(err, &uie) {
		return err
	}
	if wantsJSON(c) {
		if err != nil {
			return err
		}
		s.settle(c.Request().Context())
		return s.writeState(c)
	}
	if err == nil {
		s.settle(c.Request().Context())
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// settle gives the backend call started by an action a short window to
// finish so the next page shows its result. Slow calls keep running; the
// page refreshes until they land.
func (s *Server) settle(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.SettleTimeout)
	defer cancel()
	if err := s.Console.Settle(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		s.Logger.Warn("console did not settle", "error", err)
	}
}

func (s *Server) writeState(c echo.Context) error {
	state, err := s.read(c.Request().Context(), false)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, state)
}
