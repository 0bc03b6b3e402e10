package tool

import (
	"sort"
	"sync"
)

// Registry is the tool lookup shared by every session.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns a registry holding tools. A later tool with the same
// name replaces an earlier one.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds or replaces t.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// TryGet returns the tool named name, if registered.
func (r *Registry) TryGet(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Get is TryGet returning a *NotFoundError for unknown names.
func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.TryGet(name)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return t, nil
}

// GetAll returns every registered tool sorted by name.
func (r *Registry) GetAll() []Tool {
	r.mu.RLock()
	all := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		all = append(all, t)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].Name() < all[j].Name()
	})
	return all
}

// Declarations returns the declarations of all tools, sorted by name.
func (r *Registry) Declarations() []Declaration {
	all := r.GetAll()
	decls := make([]Declaration, 0, len(all))
	for _, t := range all {
		decls = append(decls, t.Declaration())
	}
	return decls
}

// Names returns the sorted tool names.
func (r *Registry) Names() []string {
	all := r.GetAll()
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name()
	}
	return names
}
