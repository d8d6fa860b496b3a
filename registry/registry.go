// Package registry holds the ordered set of configured language servers and
// the capability gate features consult before dispatching to one.
package registry

import (
	"sync"

	"github.com/simon-lentz/lspbroker/position"
)

// ServerId identifies a configured language server within a session.
type ServerId string

// ServerSettings is a configured language server's read-only session state.
type ServerSettings struct {
	Name           string
	RootPath       string
	OffsetEncoding position.OffsetEncoding
	Capabilities   Capabilities
}

// Entry pairs a ServerId with its settings, the shape iterated by Servers
// and First.
type Entry struct {
	ID       ServerId
	Settings ServerSettings
}

// Registry is the ordered ServerId -> ServerSettings mapping. Insertion
// order is significant: the first-registered server is the "main" server
// used for presentation defaults. The zero value is not usable; construct
// with NewRegistry.
type Registry struct {
	mu    sync.RWMutex
	order []ServerId
	byID  map[ServerId]ServerSettings
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[ServerId]ServerSettings)}
}

// Register adds or replaces the settings for id. A new id is appended at
// the end of insertion order; re-registering an existing id updates its
// settings in place without moving it.
func (r *Registry) Register(id ServerId, settings ServerSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[id]; !exists {
		r.order = append(r.order, id)
	}
	r.byID[id] = settings
}

// Unregister removes id from the registry.
func (r *Registry) Unregister(id ServerId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[id]; !exists {
		return
	}
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the settings registered for id.
func (r *Registry) Get(id ServerId) (ServerSettings, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// First returns the main server: the first-registered entry, used for
// presentation defaults (root path, severity words) when a feature does not
// select a specific server.
func (r *Registry) First() (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return Entry{}, false
	}
	id := r.order[0]
	return Entry{ID: id, Settings: r.byID[id]}, true
}

// Servers yields the subset of ids present in the registry, in registry
// insertion order — the shape `servers(meta)` takes in the spec: only the
// servers listed in a request's meta, preserving presentation order.
func (r *Registry) Servers(ids []ServerId) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wanted := make(map[ServerId]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		if _, ok := wanted[id]; !ok {
			continue
		}
		out = append(out, Entry{ID: id, Settings: r.byID[id]})
	}
	return out
}

// All yields every registered server in insertion order.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, Entry{ID: id, Settings: r.byID[id]})
	}
	return out
}
