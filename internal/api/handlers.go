// Package api serves the operator console over HTTP: the page, its JSON
// state, and one POST endpoint per user action.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"workflow-console/internal/console"
	"workflow-console/internal/logging"
)

// ServiceName identifies the console in health responses and traces.
const ServiceName = "workflow-console"

// Pinger reports whether the rules backend is reachable.
type Pinger interface {
	Health(ctx context.Context) error
}

// Server holds the dependencies of the console HTTP handlers.
type Server struct {
	Console *console.Controller
	Page    *console.Page
	Backend Pinger
	Logger  *logging.Logger
	Version string
	// SettleTimeout bounds how long an action handler waits for its
	// backend call before answering.
	SettleTimeout time.Duration
}

// NewServer creates a Server for ctrl, which must be driving page.
func NewServer(ctrl *console.Controller, page *console.Page, backend Pinger, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		Console:       ctrl,
		Page:          page,
		Backend:       backend,
		Logger:        logger,
		Version:       "dev",
		SettleTimeout: 2 * time.Second,
	}
}

// EchoRouter is the subset of echo routing the console needs, so handlers
// can be mounted on an *echo.Echo or an *echo.Group.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers mounts every console route on router.
func RegisterHandlers(router EchoRouter, s *Server) {
	router.GET("/", s.HandlePage)
	router.GET("/state", s.HandleState)
	router.GET("/healthz", s.HandleHealth)
	router.POST("/reload", s.HandleReload)
	router.POST("/workflows/:id/select", s.HandleSelectWorkflow)
	router.POST("/query", s.HandleQuery)
	router.POST("/export", s.HandleExport)
}

// NewEcho builds the console's echo instance with middleware and routes.
func NewEcho(s *Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(ServiceName))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			kv := []interface{}{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				s.Logger.Warn("request failed", append(kv, "error", v.Error)...)
				return nil
			}
			s.Logger.Debug("request", kv...)
			return nil
		},
	}))

	RegisterHandlers(e, s)
	return e
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Backend   string    `json:"backend"`
}

// HandleHealth reports console health. It always answers 200; an
// unreachable backend is reported in the body.
// (GET /healthz)
func (s *Server) HandleHealth(c echo.Context) error {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   ServiceName,
		Version:   s.Version,
		Backend:   "ok",
	}
	if s.Backend != nil {
		if err := s.Backend.Health(c.Request().Context()); err != nil {
			status.Backend = err.Error()
		}
	}
	return writeJSON(c, http.StatusOK, status)
}

// StateResponse is the JSON form of the console.
type StateResponse struct {
	Status console.Status   `json:"status"`
	Page   console.Snapshot `json:"page"`
}

// HandleState returns the controller status and the current page without
// consuming pending alerts.
// (GET /state)
func (s *Server) HandleState(c echo.Context) error {
	state, err := s.read(c.Request().Context(), false)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, state)
}

func (s *Server) read(ctx context.Context, drain bool) (StateResponse, error) {
	var state StateResponse
	err := s.Console.Read(ctx, func() {
		state.Page = s.Page.Snapshot(drain)
	})
	if err != nil {
		return state, echo.NewHTTPError(http.StatusServiceUnavailable, "console is not running")
	}
	state.Status, err = s.Console.Status(ctx)
	if err != nil {
		return state, echo.NewHTTPError(http.StatusServiceUnavailable, "console is not running")
	}
	return state, nil
}

// writeJSON writes a JSON response with the given status code
func writeJSON(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, data)
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// writeError writes an RFC 7807 Problem Details JSON error response
func writeError(c echo.Context, status int, title, detail string) error {
	problem := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	}
	body, err := json.Marshal(problem)
	if err != nil {
		return err
	}
	return c.Blob(status, "application/problem+json", body)
}

// handleError turns any handler error into a problem document.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	detail := err.Error()

	var uie *console.UserInputError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &uie):
		status = http.StatusUnprocessableEntity
		detail = uie.Message
	case errors.As(err, &he):
		status = he.Code
		if msg, ok := he.Message.(string); ok {
			detail = msg
		}
	case errors.Is(err, console.ErrLoopStopped):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request error", "path", c.Request().URL.Path, "error", err)
	}
	if werr := writeError(c, status, http.StatusText(status), detail); werr != nil {
		s.Logger.Error("failed to write error response", "error", werr)
	}
}

// wantsJSON reports whether the client asked for a JSON answer instead of
// a redirect back to the page.
func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
