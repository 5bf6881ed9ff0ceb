package sse

import "sync"

// Sink pushes one framed event to a single open stream. Implementations must
// be safe for concurrent Send calls.
type Sink interface {
	Send(p []byte) error
}

// ControllerTable maps (projectID, connectionID) to the live sink for that
// connection. It is process-local by construction: sinks are not
// serializable and are owned exclusively by the instance that accepted the
// connection.
type ControllerTable struct {
	mu          sync.RWMutex
	controllers map[string]map[string]Sink
}

func NewControllerTable() *ControllerTable {
	return &ControllerTable{
		controllers: make(map[string]map[string]Sink),
	}
}

// Set stores the sink under the composite key, silently overwriting any
// previous sink for the same connection.
func (t *ControllerTable) Set(projectID, connectionID string, sink Sink) {
	t.mu.Lock()
	defer t.mu.Unlock()

	conns, ok := t.controllers[projectID]
	if !ok {
		conns = make(map[string]Sink)
		t.controllers[projectID] = conns
	}
	conns[connectionID] = sink
}

// Get returns the sink for a connection, if this instance owns it.
func (t *ControllerTable) Get(projectID, connectionID string) (Sink, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	sink, ok := t.controllers[projectID][connectionID]
	return sink, ok
}

// Remove deletes a sink, pruning the project's inner map when it empties so
// idle projects do not leak.
func (t *ControllerTable) Remove(projectID, connectionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	conns, ok := t.controllers[projectID]
	if !ok {
		return
	}
	delete(conns, connectionID)
	if len(conns) == 0 {
		delete(t.controllers, projectID)
	}
}

// Count returns how many sinks this instance holds for a project.
func (t *ControllerTable) Count(projectID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.controllers[projectID])
}
