package ai

import (
	"fmt"
	"slices"
	"sync"
)

// Factory builds a [Client] from a provider configuration.
type Factory func(config ProviderConfig) (Client, error)

// Registry maps provider identifiers to client factories. The zero value is
// not usable; call [NewRegistry].
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds id to factory, replacing any previous binding.
func (r *Registry) Register(id string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = factory
}

// New builds a client for the given provider id. Unknown ids report
// [ErrUnsupportedProvider].
func (r *Registry) New(id string, config ProviderConfig) (Client, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrUnsupportedProvider)
	}
	return factory(config)
}

// Providers lists the registered provider ids in sorted order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
