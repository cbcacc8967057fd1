package chat

import (
	"sync"
)

// Conn abstracts the live connection handle held for a user, so the registry
// and the negotiation service can be exercised without a real WebSocket.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Registry maps a logical user id to at most one active connection. A second
// connect for the same user overwrites the mapping, so only the newest
// connection receives live events. Entries are wiped on process restart;
// offline delivery relies on clients re-fetching history on reconnect.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Connect records conn as the active handle for userID, returning the
// previous handle if one was displaced.
func (r *Registry) Connect(userID string, conn Conn) (displaced Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	displaced = r.conns[userID]
	r.conns[userID] = conn
	return displaced
}

// Disconnect removes the mapping for userID, but only if conn is still the
// active handle. A stale disconnect from an overwritten connection must not
// evict the newer one.
func (r *Registry) Disconnect(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[userID] == conn {
		delete(r.conns, userID)
	}
}

// Get returns the active connection for userID, or nil if offline.
func (r *Registry) Get(userID string) Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[userID]
}

// Send delivers payload to userID's active connection if present. Delivery is
// best-effort: the return value reports whether a write was attempted and
// succeeded, and failures never propagate to the caller's state.
func (r *Registry) Send(userID string, payload interface{}) bool {
	conn := r.Get(userID)
	if conn == nil {
		return false
	}
	return conn.WriteJSON(payload) == nil
}

// Count returns the number of connected users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
