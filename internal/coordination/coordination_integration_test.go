package coordination

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	testRedisURL string
	redContainer testcontainers.Container
)

func TestMain(m *testing.M) {
	// Parse flags to check for -short
	flag.Parse()

	// Skip container setup if running in short mode
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error
	redContainer, err = rediscontainer.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	endpoint, err := redContainer.Endpoint(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		os.Exit(1)
	}
	testRedisURL = "redis://" + endpoint

	defer func() {
		if err := redContainer.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate redis container: %v\n", err)
		}
	}()
	os.Exit(m.Run())
}

func setupTestClient(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	opts, err := goredis.ParseURL(testRedisURL)
	require.NoError(t, err)
	client := goredis.NewClient(opts)

	require.NoError(t, client.FlushAll(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestElection_FirstInstanceWins(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	first := NewElection(client, "instance-1", "leader:test", time.Minute)
	second := NewElection(client, "instance-2", "leader:test", time.Minute)

	leader, err := first.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, leader)

	leader, err = second.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, leader)
}

func TestElection_HolderRenewsOnReacquire(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	election := NewElection(client, "instance-1", "leader:test", time.Minute)

	leader, err := election.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, leader)

	// The same instance keeps leadership on the next tick.
	leader, err = election.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, leader)
}

func TestElection_RenewFailsForNonHolder(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	holder := NewElection(client, "instance-1", "leader:test", time.Minute)
	other := NewElection(client, "instance-2", "leader:test", time.Minute)

	leader, err := holder.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, leader)

	err = other.Renew(ctx)
	assert.ErrorIs(t, err, ErrNotLeader)
}

func TestElection_ReleaseHandsOffLeadership(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	first := NewElection(client, "instance-1", "leader:test", time.Minute)
	second := NewElection(client, "instance-2", "leader:test", time.Minute)

	leader, err := first.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, leader)

	require.NoError(t, first.Release(ctx))

	leader, err = second.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, leader)
}

func TestElection_ReleaseByNonHolderKeepsLease(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	holder := NewElection(client, "instance-1", "leader:test", time.Minute)
	other := NewElection(client, "instance-2", "leader:test", time.Minute)

	leader, err := holder.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, leader)

	require.NoError(t, other.Release(ctx))

	// The original holder still renews successfully.
	assert.NoError(t, holder.Renew(ctx))
}
