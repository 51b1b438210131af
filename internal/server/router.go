// Package server implements the HTTP control plane described in
// spec §4.5: a gin router wrapping internal/supervisor.Supervisor
// behind bearer-key auth and a uniform response envelope.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/openlist-service/internal/metrics"
	"github.com/loykin/openlist-service/internal/supervisor"
)

// Server wires the Supervisor to gin handlers.
type Server struct {
	sup        *supervisor.Supervisor
	apiKey     string
	shutdownFn func()
}

// New constructs a Server. shutdownFn is invoked (in a new goroutine)
// after the /api/v1/shutdown response has been written, so the caller
// sees the reply before the process actually begins tearing down.
func New(sup *supervisor.Supervisor, apiKey string, shutdownFn func()) *Server {
	return &Server{sup: sup, apiKey: apiKey, shutdownFn: shutdownFn}
}

// Handler returns the fully wired gin engine.
func (s *Server) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery(), limitBody())

	g.GET("/health", s.handleHealth)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := g.Group("/api/v1")
	api.Use(authMiddleware(s.apiKey))
	{
		api.GET("/status", s.handleStatus)
		api.GET("/version", s.handleVersion)
		api.POST("/shutdown", s.handleShutdown)

		api.GET("/processes", s.handleList)
		api.POST("/processes", s.handleCreate)
		api.GET("/processes/:id", s.handleGet)
		api.PUT("/processes/:id", s.handleUpdate)
		api.DELETE("/processes/:id", s.handleDelete)
		api.POST("/processes/:id/start", s.handleStart)
		api.POST("/processes/:id/stop", s.handleStop)
		api.GET("/processes/:id/logs", s.handleLogs)
	}
	return g
}

// NewHTTPServer builds a *http.Server bound to addr, mirroring the
// teacher's timeouts for header/body/idle handling.
func NewHTTPServer(addr string, s *Server) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Shutdown gracefully drains in-flight requests on srv.
func Shutdown(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}
