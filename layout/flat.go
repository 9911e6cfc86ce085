package layout

import (
	"math"

	"hcanvas/diagram"
)

// Flat places every entity as a root on a circle, in input order. Containment
// is drawn as plain CONTAINS edges rather than by nesting.
type Flat struct {
	opts Options
}

// NewFlat creates the flat engine.
func NewFlat(opts Options) *Flat {
	return &Flat{opts: opts}
}

// Name implements Engine.
func (f *Flat) Name() string { return EngineFlat }

// Traits implements Engine.
func (f *Flat) Traits() Traits {
	return Traits{Deterministic: true}
}

// Apply implements Engine.
func (f *Flat) Apply(entities []Entity, relationships []Relationship) Result {
	g := Normalize(entities, relationships, f.opts.logger())
	if g.Len() == 0 {
		return Result{}
	}
	nodes := make([]*diagram.Node, 0, g.Len())
	for _, e := range g.Entities {
		nodes = append(nodes, f.opts.newNode(e))
	}
	circlePlace(nodes, f.opts.Gap)
	return Result{Nodes: nodes, Edges: g.edges(true), Camera: f.opts.fitCamera(nodes)}
}

// circlePlace spreads nodes evenly on a circle large enough that neighbours
// are at least gap apart, centred on the origin.
func circlePlace(nodes []*diagram.Node, gap float64) {
	if len(nodes) == 1 {
		nodes[0].X, nodes[0].Y = -nodes[0].Width/2, -nodes[0].Height/2
		return
	}
	span := 0.0
	for _, n := range nodes {
		span = math.Max(span, math.Hypot(n.Width, n.Height))
	}
	radius := float64(len(nodes)) * (span + gap) / (2 * math.Pi)
	radius = math.Max(radius, span)
	for i, n := range nodes {
		a := 2*math.Pi*float64(i)/float64(len(nodes)) - math.Pi/2
		n.X = radius*math.Cos(a) - n.Width/2
		n.Y = radius*math.Sin(a) - n.Height/2
	}
}
