// Package registry tracks which SSE connection ids are subscribed to which
// project, across every instance of the service.
//
// Two backends implement the same contract: a Redis-backed registry for
// multi-instance deployments, and an in-memory registry used when Redis is
// not configured or unreachable. Callers obtain one through New and never
// depend on which backend is active. Backend failures degrade to no-ops with
// a logged warning; they are never surfaced to callers, because a broken
// shared registry must not take down local delivery.
//
// The registry stores metadata only. The live stream handles stay in the
// process that accepted the connection (see the sse package); a connection id
// found here is only deliverable by the instance that owns its sink.
package registry

import "context"

// Registry is the cross-process record of active SSE subscriptions.
type Registry interface {
	// AddConnection records a subscription with a server-assigned creation
	// timestamp. Idempotent.
	AddConnection(ctx context.Context, projectID, connectionID string)

	// RemoveConnection deletes a subscription. Removing an unknown
	// connection is not an error. The project key itself is removed when
	// its last connection goes.
	RemoveConnection(ctx context.Context, projectID, connectionID string)

	// ConnectionIDs returns the connection ids currently registered for a
	// project, across all instances. Empty for unknown projects.
	ConnectionIDs(ctx context.Context, projectID string) []string

	// ConnectionCount returns len(ConnectionIDs(projectID)).
	ConnectionCount(ctx context.Context, projectID string) int

	// CleanupExpired removes entries older than the registry TTL and
	// returns how many were removed. Safe to run concurrently with adds
	// and removes.
	CleanupExpired(ctx context.Context) int

	// Backend names the active backend ("redis" or "memory").
	Backend() string
}
