package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/anujgoenka9/autocoder/internal/metrics"
)

const pingTimeout = 5 * time.Second

// New selects the registry backend. With an empty redisURL, an unparseable
// URL, or an unreachable server, it falls back to the in-memory backend so
// the service keeps working in single-instance mode.
//
// The returned client is non-nil only when the Redis backend is active;
// callers use it for health checks and leader election.
func New(ctx context.Context, redisURL string, ttl time.Duration, clock clockwork.Clock) (Registry, *goredis.Client) {
	if redisURL == "" {
		slog.Info("No Redis configured, using in-memory connection registry")
		metrics.RegistryFallbackActive.Set(1)
		return NewMemory(ttl, clock), nil
	}

	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("Invalid Redis URL, falling back to in-memory connection registry", "error", err)
		metrics.RegistryFallbackActive.Set(1)
		return NewMemory(ttl, clock), nil
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Warn("Redis unreachable, falling back to in-memory connection registry", "error", err)
		metrics.RedisConnectionErrors.Inc()
		metrics.RegistryFallbackActive.Set(1)
		_ = client.Close()
		return NewMemory(ttl, clock), nil
	}

	slog.Info("Connected to Redis connection registry", "addr", opts.Addr)
	metrics.RegistryFallbackActive.Set(0)
	return NewRedis(client, ttl, clock), client
}
