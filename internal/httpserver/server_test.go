package httpserver

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/anujgoenka9/autocoder/internal/config"
	"github.com/anujgoenka9/autocoder/internal/registry"
	"github.com/anujgoenka9/autocoder/internal/sse"
)

// recordingSink captures frames delivered to a fake local subscriber.
type recordingSink struct {
	mu     sync.Mutex
	frames [][]byte
}

func (s *recordingSink) Send(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := make([]byte, len(p))
	copy(frame, p)
	s.frames = append(s.frames, frame)
	return nil
}

func (s *recordingSink) received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.frames...)
}

type testServerOption func(*config.Config)

func withBroadcastDelay(d time.Duration) testServerOption {
	return func(cfg *config.Config) { cfg.BroadcastDelay = d }
}

func withMaxConnectionsPerProject(n int) testServerOption {
	return func(cfg *config.Config) { cfg.MaxConnectionsPerProject = n }
}

// newTestServer builds a server over a fresh in-memory registry so every
// test starts from clean tables.
func newTestServer(t *testing.T, healthChecks []HealthCheck, opts ...testServerOption) (*Server, *registry.Memory, *sse.Broadcaster) {
	t.Helper()

	cfg := &config.Config{
		AppEnv:                   "test",
		Port:                     "0",
		ConnectionTTL:            time.Hour,
		SweepInterval:            5 * time.Minute,
		MaxConnectionsPerProject: 100,
		FragmentsTable:           "fragments",
		BroadcastDelay:           time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	clock := clockwork.NewRealClock()
	reg := registry.NewMemory(cfg.ConnectionTTL, clock)
	broadcaster := sse.NewBroadcaster(reg, sse.NewControllerTable(), clock, cfg.MaxConnectionsPerProject)

	return NewServer(cfg, broadcaster, clock, healthChecks), reg, broadcaster
}
