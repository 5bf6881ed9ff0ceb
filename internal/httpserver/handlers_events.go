package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/anujgoenka9/autocoder/internal/domain"
	"github.com/anujgoenka9/autocoder/internal/errors"
	"github.com/anujgoenka9/autocoder/internal/metrics"
	"github.com/anujgoenka9/autocoder/internal/sse"
)

// handleFragmentEvents serves the long-lived event stream for one project.
// The connection stays open until the client disconnects; the only frames
// ever written are the initial greeting and subsequent broadcasts.
func (s *Server) handleFragmentEvents(c echo.Context) error {
	projectID := strings.TrimSpace(c.Param("projectId"))
	if projectID == "" {
		return errors.ValidationError("project id is required")
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set(echo.HeaderAccessControlAllowOrigin, "*")
	header.Set(echo.HeaderAccessControlAllowHeaders, "Cache-Control")

	sink, err := sse.NewStreamWriter(c.Response())
	if err != nil {
		return errors.InternalError("streaming not supported", err)
	}

	connectionID, err := s.broadcaster.Subscribe(c.Request().Context(), projectID, sink)
	if err != nil {
		metrics.SSEConnectionsRejected.Inc()
		return errors.TooManyRequestsError(err.Error()).WithContext("project_id", projectID)
	}

	c.Response().WriteHeader(http.StatusOK)

	// Greeting frame confirms the subscription before any real update.
	greeting, err := sse.Encode(domain.ConnectedEvent(projectID))
	if err == nil {
		err = sink.Send(greeting)
	}
	if err != nil {
		slog.Warn("Failed to send connected event", "project_id", projectID, "connection_id", connectionID, "error", err)
		sink.Close()
		s.broadcaster.Unsubscribe(context.Background(), projectID, connectionID)
		return nil
	}

	// Block until the client goes away, then tear down both tables. The
	// request context is dead by then, so cleanup runs on a fresh one.
	<-c.Request().Context().Done()

	sink.Close()
	s.broadcaster.Unsubscribe(context.Background(), projectID, connectionID)
	slog.Debug("Event stream closed", "project_id", projectID, "connection_id", connectionID)
	return nil
}
