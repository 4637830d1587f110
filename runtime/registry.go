// Package runtime owns the connection registry and the routing engine.
// It carries no transport or presentation logic.
package runtime

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"chat-relay/contract"
)

// Registry is the authoritative display-name -> sink mapping, the single
// source of truth for who is online. At most one entry exists per name at
// any instant.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]contract.MessageSink
}

func NewRegistry() *Registry {
	return &Registry{peers: make(map[string]contract.MessageSink)}
}

// Register inserts (name, sink) iff name is free and reports whether the
// insertion happened. Two concurrent registrations of the same name
// cannot both succeed.
func (r *Registry) Register(name string, sink contract.MessageSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.peers[name]; taken {
		return false
	}
	r.peers[name] = sink
	return true
}

// Unregister removes and returns the entry for name. Unregistering twice
// is safe: the second call reports absent.
func (r *Registry) Unregister(name string) (contract.MessageSink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sink, ok := r.peers[name]
	if ok {
		delete(r.peers, name)
	}
	return sink, ok
}

func (r *Registry) Lookup(name string) (contract.MessageSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sink, ok := r.peers[name]
	return sink, ok
}

// Snapshot returns a point-in-time copy ordered by name. Callers must not
// assume it stays valid as the registry mutates.
func (r *Registry) Snapshot() []contract.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := lo.MapToSlice(r.peers, func(name string, sink contract.MessageSink) contract.Entry {
		return contract.Entry{Name: name, Sink: sink}
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Names returns the sorted display names of all registered peers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := lo.Keys(r.peers)
	sort.Strings(names)
	return names
}

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.peers)
}
