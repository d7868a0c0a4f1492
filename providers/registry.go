package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds providers keyed by ID and resolves ModelHandles.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider, replacing any existing provider with the same ID.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Get returns the provider with the given ID.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// Resolve looks up the provider backing a ModelHandle. Resolution happens
// once per run; callers hold the returned Provider for the run's lifetime.
func (r *Registry) Resolve(h ModelHandle) (Provider, error) {
	if h.Provider == "" {
		return nil, fmt.Errorf("model handle %q has no provider", h)
	}
	p, ok := r.Get(h.Provider)
	if !ok {
		return nil, fmt.Errorf("provider %q not registered", h.Provider)
	}
	return p, nil
}

// List returns registered provider IDs in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes every registered provider, returning the first error seen.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for id, p := range r.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing provider %s: %w", id, err)
		}
	}
	r.providers = make(map[string]Provider)
	return firstErr
}
