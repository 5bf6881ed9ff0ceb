// Package coordination provides single-leader election over Redis so that
// exactly one instance runs the registry expiry sweep at a time.
package coordination

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotLeader is returned when a lease operation finds another instance
// holding leadership.
var ErrNotLeader = errors.New("coordination: not the leader")

// Election implements leader election with a Redis SETNX lease. The leader
// holds a key with a TTL; if the leader crashes, the key expires and any
// other instance can take over.
type Election struct {
	rdb        *redis.Client
	instanceID string
	key        string
	ttl        time.Duration
}

// NewElection creates an election on the given lease key.
// instanceID must be unique per instance (e.g. hostname plus a random suffix).
func NewElection(rdb *redis.Client, instanceID, key string, ttl time.Duration) *Election {
	return &Election{
		rdb:        rdb,
		instanceID: instanceID,
		key:        key,
		ttl:        ttl,
	}
}

// TryAcquire attempts to take the lease. Returns true if this instance is
// now the leader. An instance that already holds the lease renews it.
func (e *Election) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := e.rdb.SetNX(ctx, e.key, e.instanceID, e.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	// Not acquired: renew if we are still the holder from a previous tick.
	err = e.Renew(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotLeader) {
		return false, nil
	}
	return false, err
}

// Renew extends the lease TTL, atomically checking that this instance still
// holds it.
func (e *Election) Renew(ctx context.Context) error {
	script := `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
	`

	result, err := e.rdb.Eval(ctx, script, []string{e.key}, e.instanceID, e.ttl.Milliseconds()).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		return ErrNotLeader
	}
	return nil
}

// Release gives up the lease if this instance holds it. Called during
// graceful shutdown so the next sweep does not wait for the TTL.
func (e *Election) Release(ctx context.Context) error {
	script := `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
	`

	return e.rdb.Eval(ctx, script, []string{e.key}, e.instanceID).Err()
}
