// Package backendtest provides an in-process fake of the rules backend that
// honours the endpoint contract the console consumes.
package backendtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/labstack/echo/v4"
)

// Request is one call recorded by the fake.
type Request struct {
	Method string
	Path   string
	Body   string
}

// Response is a canned reply. A zero Status means 200.
type Response struct {
	Status int
	Body   string
}

// Backend serves canned responses and records every request.
type Backend struct {
	mu       sync.Mutex
	routes   map[string]Response
	requests []Request
	server   *httptest.Server
}

// New starts a fake backend. Unconfigured routes answer 404.
func New() *Backend {
	b := &Backend{routes: make(map[string]Response)}

	e := echo.New()
	e.HideBanner = true
	e.GET("/workflows", b.serve)
	e.GET("/workflows/:id/logs", b.serve)
	e.POST("/query", b.serve)
	e.POST("/api/export-excel", b.serve)
	e.GET("/health", b.serve)

	b.server = httptest.NewServer(e)
	return b
}

// URL is the base address of the fake.
func (b *Backend) URL() string {
	return b.server.URL
}

// Close shuts the fake down.
func (b *Backend) Close() {
	b.server.Close()
}

// Set configures the reply for method and concrete path, e.g. "GET", "/workflows/w1/logs".
func (b *Backend) Set(method, path string, resp Response) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = resp
}

// SetJSON configures a 200 reply with v encoded as JSON.
func (b *Backend) SetJSON(method, path string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	b.Set(method, path, Response{Body: string(raw)})
}

// Requests returns a copy of the recorded calls.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Count returns how many times method and path were called.
func (b *Backend) Count(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) serve(c echo.Context) error {
	req := c.Request()
	body, _ := io.ReadAll(req.Body)

	b.mu.Lock()
	b.requests = append(b.requests, Request{Method: req.Method, Path: req.URL.Path, Body: string(body)})
	resp, ok := b.routes[req.Method+" "+req.URL.Path]
	b.mu.Unlock()

	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	return c.Blob(status, echo.MIMEApplicationJSON, []byte(resp.Body))
}
