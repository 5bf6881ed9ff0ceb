// Package httpserver wires the SSE subscription endpoint, the fragment
// webhook bridge, and the operational endpoints onto an Echo server.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"github.com/anujgoenka9/autocoder/internal/config"
	"github.com/anujgoenka9/autocoder/internal/sse"
)

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	broadcaster *sse.Broadcaster
	clock       clockwork.Clock

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, broadcaster *sse.Broadcaster, clock clockwork.Clock, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		broadcaster:  broadcaster,
		clock:        clock,
		healthChecks: healthChecks,
		startTime:    clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
