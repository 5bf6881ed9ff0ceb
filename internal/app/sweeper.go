// Package app hosts the background jobs of the service. Currently that is
// the registry expiry sweep, which removes orphaned subscription entries
// whose owning instance never got to clean up (e.g. crashed).
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/anujgoenka9/autocoder/internal/coordination"
	"github.com/anujgoenka9/autocoder/internal/metrics"
	"github.com/anujgoenka9/autocoder/internal/registry"
)

// Sweeper periodically runs Registry.CleanupExpired. With a shared backend
// an Election ensures only one instance scans Redis per interval; with the
// in-memory backend election is nil and every instance sweeps its own state.
type Sweeper struct {
	registry registry.Registry
	election *coordination.Election
	interval time.Duration
	clock    clockwork.Clock
}

func NewSweeper(reg registry.Registry, election *coordination.Election, interval time.Duration, clock clockwork.Clock) *Sweeper {
	return &Sweeper{
		registry: reg,
		election: election,
		interval: interval,
		clock:    clock,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.release()
			return
		case <-ticker.Chan():
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if s.election != nil {
		leader, err := s.election.TryAcquire(ctx)
		if err != nil {
			slog.Warn("Sweep leader election failed, skipping sweep", "error", err)
			return
		}
		if !leader {
			return
		}
	}

	removed := s.registry.CleanupExpired(ctx)
	if removed > 0 {
		metrics.RegistrySweepRemovals.Add(float64(removed))
		slog.Info("Swept expired registry entries", "removed", removed)
	}
}

func (s *Sweeper) release() {
	if s.election == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.election.Release(ctx); err != nil {
		slog.Warn("Failed to release sweep leadership", "error", err)
	}
}
