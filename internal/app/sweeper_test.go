package app

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anujgoenka9/autocoder/internal/registry"
)

func TestSweeper_RemovesExpiredEntriesOnTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := registry.NewMemory(time.Minute, clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg.AddConnection(ctx, "proj-1", "stale")

	sweeper := NewSweeper(reg, nil, 5*time.Minute, clock)
	go sweeper.Run(ctx)

	// Wait for the ticker to exist before advancing time.
	clock.BlockUntil(1)
	clock.Advance(5 * time.Minute)

	require.Eventually(t, func() bool {
		return reg.ConnectionCount(context.Background(), "proj-1") == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSweeper_RetainsFreshEntries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := registry.NewMemory(time.Hour, clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg.AddConnection(ctx, "proj-1", "fresh")

	sweeper := NewSweeper(reg, nil, 5*time.Minute, clock)
	go sweeper.Run(ctx)

	clock.BlockUntil(1)
	clock.Advance(5 * time.Minute)

	// Give the sweep a chance to run, then confirm nothing was removed.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, reg.ConnectionCount(context.Background(), "proj-1"))
}

func TestSweeper_StopsOnContextCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := registry.NewMemory(time.Hour, clock)
	ctx, cancel := context.WithCancel(context.Background())

	sweeper := NewSweeper(reg, nil, 5*time.Minute, clock)
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	clock.BlockUntil(1)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
