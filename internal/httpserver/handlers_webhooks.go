package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anujgoenka9/autocoder/internal/domain"
	"github.com/anujgoenka9/autocoder/internal/errors"
	"github.com/anujgoenka9/autocoder/internal/metrics"
)

const broadcastTimeout = 10 * time.Second

// handleFragmentWebhook receives row-change notifications from the database
// trigger and translates them into a broadcast on the affected project's
// channel. Once the payload validates, the response is always success: the
// row mutation already happened, so failing here would only provoke webhook
// retry storms with nothing to compensate.
func (s *Server) handleFragmentWebhook(c echo.Context) error {
	var payload domain.WebhookPayload
	if err := c.Bind(&payload); err != nil {
		metrics.WebhooksReceivedTotal.WithLabelValues("rejected").Inc()
		return errors.ValidationError("invalid webhook payload")
	}

	if payload.Type == "" || payload.Table != s.config.FragmentsTable {
		metrics.WebhooksReceivedTotal.WithLabelValues("rejected").Inc()
		return errors.ValidationError("invalid webhook payload").
			WithContext("table", payload.Table)
	}

	projectID := payload.Record.ProjectID
	fragmentID := payload.Record.ID
	if projectID == "" || fragmentID == "" {
		metrics.WebhooksReceivedTotal.WithLabelValues("rejected").Inc()
		return errors.ValidationError("missing project_id or id in record")
	}

	event := domain.FragmentEvent{
		Type:       domain.EventFragmentUpdated,
		ProjectID:  projectID,
		FragmentID: fragmentID,
		Timestamp:  s.clock.Now().UTC().Format(time.RFC3339),
		Operation:  strings.ToLower(payload.Type),
	}

	go s.delayedBroadcast(projectID, event)

	metrics.WebhooksReceivedTotal.WithLabelValues("accepted").Inc()
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Webhook received and broadcasted successfully",
	})
}

// delayedBroadcast waits briefly before fanning out, giving a client whose
// row just changed time to finish opening its subscription. Without the
// delay a fragment written immediately after page load can beat the
// browser's EventSource registration and the update is silently missed.
func (s *Server) delayedBroadcast(projectID string, event domain.FragmentEvent) {
	s.clock.Sleep(s.config.BroadcastDelay)

	ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
	defer cancel()
	s.broadcaster.Broadcast(ctx, projectID, event)
}

// handleFragmentWebhookStatus lets the webhook source verify the endpoint.
func (s *Server) handleFragmentWebhookStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Fragments webhook endpoint is active",
	})
}
