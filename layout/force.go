package layout

import (
	"math"
	"slices"

	glayout "gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"

	"hcanvas/diagram"
	"hcanvas/geometry"
)

// Force is a spring-embedder layout built on the Eades optimiser. Like Flat
// it places every entity as a root and draws containment as edges. Initial
// positions are random, so the result is not deterministic.
type Force struct {
	opts Options
}

// NewForce creates the force-directed engine.
func NewForce(opts Options) *Force {
	return &Force{opts: opts}
}

// Name implements Engine.
func (f *Force) Name() string { return EngineForce }

// Traits implements Engine.
func (f *Force) Traits() Traits { return Traits{} }

// Apply runs the simulation to completion.
func (f *Force) Apply(entities []Entity, relationships []Relationship) Result {
	s := f.Start(entities, relationships)
	chunk := max(f.opts.ForceChunk, 1)
	for !s.Step(chunk) {
	}
	return s.Result()
}

// Start implements Stepper. Each step is one optimiser update.
func (f *Force) Start(entities []Entity, relationships []Relationship) Session {
	g := Normalize(entities, relationships, f.opts.logger())
	s := &forceSession{opts: f.opts, limit: max(f.opts.ForceIterations, 1)}
	if g.Len() == 0 {
		s.done = true
		return s
	}

	ug := simple.NewUndirectedGraph()
	for i, e := range g.Entities {
		s.nodes = append(s.nodes, f.opts.newNode(e))
		ug.AddNode(simple.Node(i))
	}
	s.edges = g.edges(true)
	for _, r := range slices.Concat(g.Relationships, g.Containment) {
		a, b := g.index[r.From], g.index[r.To]
		if a == b {
			continue
		}
		ug.SetEdge(ug.NewEdge(simple.Node(a), simple.Node(b)))
	}

	eades := &glayout.EadesR2{Updates: s.limit, Repulsion: 1, Rate: 0.05, Theta: 0.2}
	s.optimizer = glayout.NewOptimizerR2(ug, eades.Update)
	return s
}

type forceSession struct {
	opts      Options
	optimizer glayout.OptimizerR2
	nodes     []*diagram.Node
	edges     []*diagram.Edge
	limit     int
	steps     int
	done      bool
}

func (s *forceSession) Step(n int) bool {
	for i := 0; i < n && !s.done; i++ {
		if !s.optimizer.Update() {
			s.done = true
		}
		s.steps++
		if s.steps >= s.limit {
			s.done = true
		}
	}
	s.sync()
	return s.done
}

// sync scales optimiser coordinates into world space, shifted so the
// layout starts at the origin.
func (s *forceSession) sync() {
	if len(s.nodes) == 0 {
		return
	}
	scale := s.opts.LevelSpacing
	minX, minY := math.Inf(1), math.Inf(1)
	for i, n := range s.nodes {
		v := s.optimizer.Coord2(int64(i))
		n.X, n.Y = v.X*scale-n.Width/2, v.Y*scale-n.Height/2
		minX, minY = math.Min(minX, n.X), math.Min(minY, n.Y)
	}
	if !geometry.IsFinite(minX, minY) {
		circlePlace(s.nodes, s.opts.Gap)
		return
	}
	for _, n := range s.nodes {
		n.X -= minX
		n.Y -= minY
	}
}

func (s *forceSession) Result() Result {
	if len(s.nodes) == 0 {
		return Result{}
	}
	return Result{
		Nodes:  diagram.CloneNodes(s.nodes),
		Edges:  diagram.CloneEdges(s.edges),
		Camera: s.opts.fitCamera(s.nodes),
	}
}
