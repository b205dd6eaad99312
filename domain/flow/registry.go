package flow

import (
	"slices"
	"sort"
	"sync"
)

// Registry manages flow definitions and provides lookup functionality.
type Registry struct {
	flows map[string]*Flow
	mu    sync.RWMutex
}

// NewRegistry creates a new empty flow registry.
func NewRegistry() *Registry {
	return &Registry{
		flows: make(map[string]*Flow),
	}
}

// Register adds a flow to the registry.
// If a flow with the same name exists, it will be replaced.
func (r *Registry) Register(f *Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[f.Name] = f
}

// Get retrieves a flow by name.
// Returns nil if not found.
func (r *Registry) Get(name string) *Flow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.flows[name]
}

// List returns all registered flow names, sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.flows))
	for name := range r.flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tagged returns the flows carrying tag, sorted by name.
func (r *Registry) Tagged(tag string) []*Flow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Flow
	for _, f := range r.flows {
		if slices.Contains(f.Tags, tag) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of registered flows.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.flows)
}

// Exists checks if a flow with the given name exists.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.flows[name]
	return ok
}
