package sse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/anujgoenka9/autocoder/internal/domain"
	"github.com/anujgoenka9/autocoder/internal/metrics"
	"github.com/anujgoenka9/autocoder/internal/registry"
)

// Broadcaster owns the two subscription tables: the shared registry
// (metadata, all instances) and the local controller table (live sinks,
// this instance only). Delivery is best-effort with at-most-once semantics
// per connection per broadcast; clients re-fetch current state on connect
// instead of relying on replay.
type Broadcaster struct {
	registry      registry.Registry
	controllers   *ControllerTable
	clock         clockwork.Clock
	maxPerProject int
}

// NewBroadcaster creates a broadcaster over the given tables.
// maxPerProject caps local subscribers per project (resource exhaustion
// guard); zero or negative means unlimited.
func NewBroadcaster(reg registry.Registry, controllers *ControllerTable, clock clockwork.Clock, maxPerProject int) *Broadcaster {
	return &Broadcaster{
		registry:      reg,
		controllers:   controllers,
		clock:         clock,
		maxPerProject: maxPerProject,
	}
}

// Subscribe registers a new connection for a project and returns its
// connection id. The sink is stored locally first, so delivery works even
// when the shared registry write fails.
func (b *Broadcaster) Subscribe(ctx context.Context, projectID string, sink Sink) (string, error) {
	if b.maxPerProject > 0 && b.controllers.Count(projectID) >= b.maxPerProject {
		return "", fmt.Errorf("max connections per project (%d) reached", b.maxPerProject)
	}

	connectionID := uuid.NewString()
	b.controllers.Set(projectID, connectionID, sink)
	b.registry.AddConnection(ctx, projectID, connectionID)

	metrics.SSEConnectionsTotal.Inc()
	metrics.SSEActiveConnections.Inc()
	slog.Debug("Client subscribed", "project_id", projectID, "connection_id", connectionID)
	return connectionID, nil
}

// Unsubscribe removes a connection from both tables. The local removal is
// synchronous and cannot fail; the registry removal is best-effort.
func (b *Broadcaster) Unsubscribe(ctx context.Context, projectID, connectionID string) {
	b.controllers.Remove(projectID, connectionID)
	b.registry.RemoveConnection(ctx, projectID, connectionID)

	metrics.SSEActiveConnections.Dec()
	slog.Debug("Client unsubscribed", "project_id", projectID, "connection_id", connectionID)
}

// Broadcast pushes one event to every subscriber of a project that this
// instance can reach. Connection ids registered by other instances are
// skipped; their owners deliver to them. A failed write evicts that
// connection from both tables and never aborts delivery to the rest.
func (b *Broadcaster) Broadcast(ctx context.Context, projectID string, event domain.FragmentEvent) {
	start := b.clock.Now()
	defer func() {
		metrics.BroadcastDuration.Observe(b.clock.Since(start).Seconds())
	}()

	connectionIDs := b.registry.ConnectionIDs(ctx, projectID)
	if len(connectionIDs) == 0 {
		return
	}

	framed, err := Encode(event)
	if err != nil {
		slog.Error("Failed to encode broadcast event", "project_id", projectID, "error", err)
		return
	}

	delivered := 0
	for _, connectionID := range connectionIDs {
		sink, ok := b.controllers.Get(projectID, connectionID)
		if !ok {
			// Owned by another instance, or already cleaned up here.
			continue
		}

		if err := sink.Send(framed); err != nil {
			slog.Warn("Failed to deliver event, evicting connection",
				"project_id", projectID,
				"connection_id", connectionID,
				"error", err,
			)
			metrics.BroadcastDeliveryFailures.Inc()
			b.controllers.Remove(projectID, connectionID)
			b.registry.RemoveConnection(ctx, projectID, connectionID)
			continue
		}
		delivered++
		metrics.BroadcastEventsDelivered.Inc()
	}

	slog.Debug("Broadcast complete",
		"project_id", projectID,
		"event_type", event.Type,
		"subscribers", len(connectionIDs),
		"delivered", delivered,
	)
}

// LocalConnections reports how many live sinks this instance holds for a
// project.
func (b *Broadcaster) LocalConnections(projectID string) int {
	return b.controllers.Count(projectID)
}
