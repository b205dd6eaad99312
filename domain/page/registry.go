package page

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages page catalogs and resolves element references.
type Registry struct {
	pages map[string]*Page
	mu    sync.RWMutex
}

// NewRegistry creates a new empty page registry.
func NewRegistry() *Registry {
	return &Registry{
		pages: make(map[string]*Page),
	}
}

// Register adds a page to the registry.
// If a page with the same name exists, it will be replaced.
func (r *Registry) Register(p *Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[p.Name] = p
}

// Get retrieves a page by name.
// Returns nil if not found.
func (r *Registry) Get(name string) *Page {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pages[name]
}

// List returns all registered page names, sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.pages))
	for name := range r.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered pages.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}

// Resolve returns the selector expression for a "page.element" reference.
func (r *Registry) Resolve(ref string) (string, error) {
	pageName, element, ok := SplitRef(ref)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a page.element reference", ErrUnknownElement, ref)
	}

	p := r.Get(pageName)
	if p == nil {
		return "", fmt.Errorf("%w: no page named %s", ErrUnknownElement, pageName)
	}
	return p.Selector(element)
}
