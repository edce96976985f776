package mcp

import (
	"sort"
	"sync"
)

// SessionRegistry maps graph IDs to the MCP sessions watching them.
// Populated when a client calls edgraph.history with watch set.
type SessionRegistry struct {
	mu       sync.RWMutex
	watchers map[string]map[string]struct{} // graphID → sessionIDs
}

// NewSessionRegistry creates a new empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{watchers: make(map[string]map[string]struct{})}
}

// Watch subscribes sessionID to revisions of graphID. Watching twice is a no-op.
func (r *SessionRegistry) Watch(graphID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.watchers[graphID]
	if !ok {
		set = make(map[string]struct{})
		r.watchers[graphID] = set
	}
	set[sessionID] = struct{}{}
}

// Watchers returns the sessions watching graphID in sorted order.
func (r *SessionRegistry) Watchers(graphID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.watchers[graphID]
	out := make([]string, 0, len(set))
	for sid := range set {
		out = append(out, sid)
	}
	sort.Strings(out)
	return out
}

// Remove drops every subscription of sessionID.
// Called when a session disconnects.
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for gid, set := range r.watchers {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(r.watchers, gid)
		}
	}
}
