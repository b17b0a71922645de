// Package registry holds the installed language specs and keeps the
// on-disk catalog in step with the in-memory state.
package registry

import (
	"sort"
	"sync"

	"github.com/librarian-dev/librarian/internal/spec"
)

// Registry is the in-memory set of installed specs, keyed by name. One
// spec per name; a Put for an existing name replaces the entry
// wholesale.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*spec.LanguageSpec
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{specs: make(map[string]*spec.LanguageSpec)}
}

// Get returns the spec registered under name.
func (r *Registry) Get(name string) (*spec.LanguageSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[name]
	return s, ok
}

// List returns all registered specs sorted by name, so catalog output is
// stable across runs.
func (r *Registry) List() []*spec.LanguageSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*spec.LanguageSpec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Put registers s, replacing any entry with the same name, and returns
// the replaced entry or nil.
func (r *Registry) Put(s *spec.LanguageSpec) *spec.LanguageSpec {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.specs[s.Name]
	r.specs[s.Name] = s
	return prev
}

// Remove deletes the entry for name. It reports whether an entry was
// present; removing an absent name is a no-op.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.specs[name]
	delete(r.specs, name)
	return ok
}

// Len returns the number of registered specs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}
