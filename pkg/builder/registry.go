package builder

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory constructs a backend instance.
type Factory func(Options) Backend

// Registry maps requirement identifiers (as named by a tool's "requires")
// to backend factories. Identifiers are case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// NewDefaultRegistry returns a registry with the msbuild and dotnet backends.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister("msbuild", NewMSBuild)
	r.MustRegister("dotnet", NewDotNet)
	return r
}

// Register binds id to f, replacing any previous binding.
func (r *Registry) Register(id string, f Factory) error {
	key := NormalizeID(id)
	if key == "" {
		return fmt.Errorf("backend id cannot be empty")
	}
	if f == nil {
		return fmt.Errorf("backend %q: nil factory", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[key] = f
	return nil
}

// MustRegister is Register for static setup; it panics on error.
func (r *Registry) MustRegister(id string, f Factory) {
	if err := r.Register(id, f); err != nil {
		panic(err)
	}
}

// Lookup constructs the backend registered for id. Unknown and empty ids
// report false; callers fall back to invoking the command directly.
func (r *Registry) Lookup(id string, opts Options) (Backend, bool) {
	key := NormalizeID(id)
	if key == "" {
		return nil, false
	}
	r.mu.RLock()
	f, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return f(opts), true
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Availability reports, per registered id, whether its executable resolves.
func (r *Registry) Availability(opts Options) map[string]bool {
	out := make(map[string]bool)
	for _, id := range r.IDs() {
		b, _ := r.Lookup(id, opts)
		out[id] = b.IsAvailable()
	}
	return out
}

// NormalizeID returns the canonical form of a requirement identifier.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
