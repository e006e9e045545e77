// ABOUTME: Tracks currently connected panels and their liveness.
// ABOUTME: Owns the live-connection set; panels are never shared across registries.

package agent

import (
	"log/slog"
	"sync"
)

// Registry tracks the set of connected panels. All mutation happens through
// Register and Unregister; the registry exclusively owns its connections.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Connection
	logger *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		agents: make(map[string]*Connection),
		logger: logger,
	}
}

// Register adds a newly accepted panel connection.
func (r *Registry) Register(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.agents[conn.ID] = conn
	r.logger.Info("panel connected",
		"agent_id", conn.ID,
		"remote_addr", conn.RemoteAddr().String(),
		"total_agents", len(r.agents),
	)
}

// Unregister removes a panel. Removing an already-absent panel is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[id]; exists {
		delete(r.agents, id)
		r.logger.Info("panel disconnected",
			"agent_id", id,
			"total_agents", len(r.agents),
		)
	}
}

// Count returns the number of registered panels. The gateway uses it to fail
// fast when no panel is connected.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// ForEachLive applies fn to every panel whose connection is currently open
// and returns the number of panels visited. Closed panels found during the
// pass are skipped, not unregistered. fn runs outside the registry lock so a
// slow send cannot block registration. No ordering is guaranteed.
func (r *Registry) ForEachLive(fn func(*Connection)) int {
	r.mu.RLock()
	snapshot := make([]*Connection, 0, len(r.agents))
	for _, conn := range r.agents {
		snapshot = append(snapshot, conn)
	}
	r.mu.RUnlock()

	attempted := 0
	for _, conn := range snapshot {
		if !conn.Alive() {
			continue
		}
		fn(conn)
		attempted++
	}
	return attempted
}
