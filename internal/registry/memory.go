package registry

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Memory is the in-process registry backend. It satisfies the same contract
// as the Redis backend but is only visible to this instance, so cross-instance
// fan-out degrades to local-only delivery while it is active.
type Memory struct {
	mu       sync.RWMutex
	ttl      time.Duration
	clock    clockwork.Clock
	projects map[string]map[string]time.Time
}

// NewMemory creates an in-memory registry. Entries older than ttl are
// removed by CleanupExpired.
func NewMemory(ttl time.Duration, clock clockwork.Clock) *Memory {
	return &Memory{
		ttl:      ttl,
		clock:    clock,
		projects: make(map[string]map[string]time.Time),
	}
}

func (m *Memory) AddConnection(_ context.Context, projectID, connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, ok := m.projects[projectID]
	if !ok {
		conns = make(map[string]time.Time)
		m.projects[projectID] = conns
	}
	conns[connectionID] = m.clock.Now()
}

func (m *Memory) RemoveConnection(_ context.Context, projectID, connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, ok := m.projects[projectID]
	if !ok {
		return
	}
	delete(conns, connectionID)
	if len(conns) == 0 {
		delete(m.projects, projectID)
	}
}

func (m *Memory) ConnectionIDs(_ context.Context, projectID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conns := m.projects[projectID]
	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	return ids
}

func (m *Memory) ConnectionCount(_ context.Context, projectID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.projects[projectID])
}

func (m *Memory) CleanupExpired(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.clock.Now().Add(-m.ttl)
	removed := 0
	for projectID, conns := range m.projects {
		for id, createdAt := range conns {
			if createdAt.Before(cutoff) {
				delete(conns, id)
				removed++
			}
		}
		if len(conns) == 0 {
			delete(m.projects, projectID)
		}
	}
	return removed
}

func (m *Memory) Backend() string {
	return "memory"
}
