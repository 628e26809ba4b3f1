package realtime

import (
	"sort"
	"sync"
)

// sender is the part of a connection the registry needs.
type sender interface {
	// TrySend queues data without blocking and reports whether it was queued.
	TrySend(data []byte) bool
	UserID() string
}

// Registry tracks the live connections of this instance by user id.
// A user may hold several connections (tabs, devices).
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[sender]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[sender]struct{})}
}

// Add registers c and reports whether it is the user's first connection.
func (r *Registry) Add(c sender) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[c.UserID()]
	if !ok {
		set = make(map[sender]struct{})
		r.conns[c.UserID()] = set
	}
	set[c] = struct{}{}
	return len(set) == 1
}

// Remove unregisters c and reports whether the user has no connections left.
func (r *Registry) Remove(c sender) (last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[c.UserID()]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.conns, c.UserID())
		return true
	}
	return false
}

// Send queues data on every connection of userID. It returns the number of
// connections that accepted the data and the number that dropped it.
func (r *Registry) Send(userID string, data []byte) (delivered, dropped int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.conns[userID] {
		if c.TrySend(data) {
			delivered++
		} else {
			dropped++
		}
	}
	return delivered, dropped
}

// IsOnline reports whether userID has a connection on this instance.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// Users returns the ids of connected users, sorted.
func (r *Registry) Users() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, set := range r.conns {
		n += len(set)
	}
	return n
}
