package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/anujgoenka9/autocoder/internal/metrics"
)

const (
	// keyPrefix namespaces the per-project connection hashes.
	keyPrefix = "sse:connections:"

	opTimeout    = 2 * time.Second
	sweepTimeout = 30 * time.Second

	breakerFailureThreshold = 5
	breakerOpenDuration     = 30 * time.Second
)

// connectionEntry is the serialized registry record for one connection.
// The live stream handle is deliberately absent; it cannot leave the
// process that owns it.
type connectionEntry struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// Redis is the shared registry backend. Each project maps to a hash keyed by
// connection id; the whole hash expires after the TTL so orphaned projects
// disappear even if no sweep ever runs.
type Redis struct {
	rdb     *goredis.Client
	ttl     time.Duration
	clock   clockwork.Clock
	breaker *gobreaker.CircuitBreaker
}

// NewRedis creates a Redis-backed registry on an already-connected client.
func NewRedis(rdb *goredis.Client, ttl time.Duration, clock clockwork.Clock) *Redis {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "registry",
		Timeout: breakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Registry circuit breaker state changed", "from", from.String(), "to", to.String())
			metrics.CircuitBreakerStateChanges.WithLabelValues(name, to.String()).Inc()
		},
	})

	return &Redis{
		rdb:     rdb,
		ttl:     ttl,
		clock:   clock,
		breaker: breaker,
	}
}

func connectionsKey(projectID string) string {
	return keyPrefix + projectID
}

func (r *Redis) AddConnection(ctx context.Context, projectID, connectionID string) {
	entry := connectionEntry{
		ID:        connectionID,
		Timestamp: r.clock.Now().UnixMilli(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		slog.Warn("Failed to marshal registry entry", "connection_id", connectionID, "error", err)
		return
	}

	_ = r.execute(ctx, "add_connection", opTimeout, func(ctx context.Context) error {
		key := connectionsKey(projectID)
		pipe := r.rdb.TxPipeline()
		pipe.HSet(ctx, key, connectionID, data)
		pipe.Expire(ctx, key, r.ttl)
		_, err := pipe.Exec(ctx)
		return err
	})
}

func (r *Redis) RemoveConnection(ctx context.Context, projectID, connectionID string) {
	_ = r.execute(ctx, "remove_connection", opTimeout, func(ctx context.Context) error {
		key := connectionsKey(projectID)
		if err := r.rdb.HDel(ctx, key, connectionID).Err(); err != nil {
			return err
		}

		// No empty hashes left behind.
		remaining, err := r.rdb.HLen(ctx, key).Result()
		if err != nil {
			return err
		}
		if remaining == 0 {
			return r.rdb.Del(ctx, key).Err()
		}
		return nil
	})
}

func (r *Redis) ConnectionIDs(ctx context.Context, projectID string) []string {
	var ids []string
	err := r.execute(ctx, "connection_ids", opTimeout, func(ctx context.Context) error {
		var err error
		ids, err = r.rdb.HKeys(ctx, connectionsKey(projectID)).Result()
		return err
	})
	if err != nil {
		// Degrade to "no remote subscribers" rather than failing the caller.
		return nil
	}
	return ids
}

func (r *Redis) ConnectionCount(ctx context.Context, projectID string) int {
	var count int64
	err := r.execute(ctx, "connection_count", opTimeout, func(ctx context.Context) error {
		var err error
		count, err = r.rdb.HLen(ctx, connectionsKey(projectID)).Result()
		return err
	})
	if err != nil {
		return 0
	}
	return int(count)
}

func (r *Redis) CleanupExpired(ctx context.Context) int {
	removed := 0
	_ = r.execute(ctx, "cleanup_expired", sweepTimeout, func(ctx context.Context) error {
		iter := r.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			n, err := r.sweepKey(ctx, iter.Val())
			if err != nil {
				return err
			}
			removed += n
		}
		return iter.Err()
	})
	return removed
}

// sweepKey removes stale and unreadable entries from one project hash.
func (r *Redis) sweepKey(ctx context.Context, key string) (int, error) {
	entries, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", key, err)
	}

	nowMs := r.clock.Now().UnixMilli()
	ttlMs := r.ttl.Milliseconds()

	var stale []string
	for connectionID, raw := range entries {
		var entry connectionEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			// Corrupt entries get swept too.
			stale = append(stale, connectionID)
			continue
		}
		if nowMs-entry.Timestamp > ttlMs {
			stale = append(stale, connectionID)
		}
	}

	if len(stale) > 0 {
		if err := r.rdb.HDel(ctx, key, stale...).Err(); err != nil {
			return 0, fmt.Errorf("failed to sweep %s: %w", key, err)
		}
	}

	remaining, err := r.rdb.HLen(ctx, key).Result()
	if err != nil {
		return len(stale), nil
	}
	if remaining == 0 {
		_ = r.rdb.Del(ctx, key).Err()
	}
	return len(stale), nil
}

func (r *Redis) Backend() string {
	return "redis"
}

// execute runs one registry operation behind the circuit breaker with a
// bounded timeout, recording metrics and logging failures. Callers treat a
// failed operation as a no-op.
func (r *Redis) execute(ctx context.Context, op string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := r.clock.Now()
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := r.breaker.Execute(func() (any, error) {
		return nil, fn(opCtx)
	})

	status := "success"
	if err != nil {
		status = "error"
		slog.Warn("Registry operation failed", "operation", op, "error", err)
	}
	metrics.RegistryOpsTotal.WithLabelValues(op, status).Inc()
	metrics.RegistryOpDuration.WithLabelValues(op).Observe(r.clock.Since(start).Seconds())

	return err
}
