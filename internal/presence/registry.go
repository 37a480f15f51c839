// Package presence tracks which users currently hold live connections.
package presence

import "sync"

// Identity is the user behind one connection.
type Identity struct {
	UserID   string
	Username string
}

// Registry maps connections to users and users to their open connections.
// A user is present while at least one of their connections is registered.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]Identity
	byUser map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]Identity),
		byUser: make(map[string]map[string]struct{}),
	}
}

// Add registers connID for the given identity. Re-adding a connection moves it.
func (r *Registry) Add(connID string, id Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.conns[connID]; ok {
		r.removeLocked(connID, prev.UserID)
	}
	r.conns[connID] = id
	set, ok := r.byUser[id.UserID]
	if !ok {
		set = make(map[string]struct{})
		r.byUser[id.UserID] = set
	}
	set[connID] = struct{}{}
}

// Remove drops connID. It returns the identity it belonged to and whether
// that user has no connections left.
func (r *Registry) Remove(connID string) (id Identity, lastConn bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok = r.conns[connID]
	if !ok {
		return Identity{}, false, false
	}
	lastConn = r.removeLocked(connID, id.UserID)
	return id, lastConn, true
}

func (r *Registry) removeLocked(connID, userID string) bool {
	delete(r.conns, connID)
	set := r.byUser[userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.byUser, userID)
		return true
	}
	return false
}

func (r *Registry) IsPresent(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// Stats counts distinct present users and their open connections.
func (r *Registry) Stats() (users, conns int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser), len(r.conns)
}
