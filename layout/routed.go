package layout

import (
	"hcanvas/routing"
)

// Routed decorates a base engine with orthogonal edge routing over the base
// engine's node bounds.
type Routed struct {
	name   string
	base   Engine
	router *routing.Router
}

// NewRouted wraps base under the given engine name.
func NewRouted(name string, base Engine, opts Options) *Routed {
	ropts := opts.Routing
	if ropts.Logger == nil {
		ropts.Logger = opts.Logger
	}
	return &Routed{name: name, base: base, router: routing.NewRouter(ropts)}
}

// Name implements Engine.
func (r *Routed) Name() string { return r.name }

// Traits implements Engine.
func (r *Routed) Traits() Traits {
	t := r.base.Traits()
	t.Routed = true
	return t
}

// Base returns the wrapped engine.
func (r *Routed) Base() Engine { return r.base }

// Router returns the router used for waypoints.
func (r *Routed) Router() *routing.Router { return r.router }

// Apply implements Engine.
func (r *Routed) Apply(entities []Entity, relationships []Relationship) Result {
	res := r.base.Apply(entities, relationships)
	if len(res.Nodes) > 0 {
		r.router.Route(res.Nodes, res.Edges)
	}
	return res
}
