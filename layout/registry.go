package layout

import (
	"sort"
	"sync"
)

// Registry maps engine names to engines.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
	opts    Options
}

// NewRegistry returns a registry holding every built-in engine configured
// with the default options adjusted by opts.
func NewRegistry(opts ...Option) *Registry {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return NewRegistryWith(o)
}

// NewRegistryWith is NewRegistry for a fully specified Options value.
func NewRegistryWith(o Options) *Registry {
	r := &Registry{engines: make(map[string]Engine), opts: o}
	grid := NewContainmentGrid(o)
	r.Register(grid)
	r.Register(NewTree(o))
	r.Register(NewForce(o))
	r.Register(NewFlat(o))
	layered := NewLayered(o)
	r.Register(layered)
	r.Register(NewRouted(EngineOrthogonal, layered, o))
	r.Register(NewRouted(EngineContainmentOrthogonal, grid, o))
	return r
}

// Options returns the options the built-in engines were created with.
func (r *Registry) Options() Options { return r.opts }

// Register adds or replaces an engine.
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.Name()] = e
}

// Get returns the engine with the given name.
func (r *Registry) Get(name string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	return e, ok
}

// Names returns the registered engine names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
