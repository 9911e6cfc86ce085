package layout

import (
	"hcanvas/diagram"
	"hcanvas/geometry"
)

// Tree is a tidy left-to-right tree over the containment hierarchy. Depth
// sets each node's column; leaves take consecutive rows and every parent is
// centred on the vertical extent of its children. Nodes keep their
// hierarchy but are not drawn inside each other, so the hierarchy is shown
// with generated CONTAINS edges.
type Tree struct {
	opts Options
}

// NewTree creates the tree engine.
func NewTree(opts Options) *Tree {
	return &Tree{opts: opts}
}

// Name implements Engine.
func (t *Tree) Name() string { return EngineTree }

// Traits implements Engine.
func (t *Tree) Traits() Traits {
	return Traits{Deterministic: true}
}

// Apply implements Engine.
func (t *Tree) Apply(entities []Entity, relationships []Relationship) Result {
	g := Normalize(entities, relationships, t.opts.logger())
	if g.Len() == 0 {
		return Result{}
	}

	// First pass, bottom-up: absolute positions.
	abs := make(map[*diagram.Node]geometry.Point)
	nextY := 0.0
	var place func(id string, depth int) *diagram.Node
	place = func(id string, depth int) *diagram.Node {
		e, _ := g.Entity(id)
		n := t.opts.newNode(e)
		x := float64(depth) * t.opts.LevelSpacing
		kids := g.Children(id)
		if len(kids) == 0 {
			abs[n] = geometry.Pt(x, nextY)
			nextY += n.Height + t.opts.SiblingSpacing
			return n
		}
		// Each subtree owns the rows [start, end); a parent taller than its
		// children's rows widens the band and pushes the children down.
		start := nextY
		for _, k := range kids {
			n.Children = append(n.Children, place(k, depth+1))
		}
		end := nextY - t.opts.SiblingSpacing
		if extra := n.Height - (end - start); extra > 0 {
			shift(n.Children, abs, extra/2)
			abs[n] = geometry.Pt(x, start)
			nextY = start + n.Height + t.opts.SiblingSpacing
			return n
		}
		first, last := n.Children[0], n.Children[len(n.Children)-1]
		top := abs[first].Y
		bottom := abs[last].Y + last.Height
		y := geometry.Clamp((top+bottom)/2-n.Height/2, start, end-n.Height)
		abs[n] = geometry.Pt(x, y)
		return n
	}

	roots := make([]*diagram.Node, 0, len(g.Roots()))
	for _, id := range g.Roots() {
		roots = append(roots, place(id, 0))
		nextY += t.opts.SiblingSpacing
	}

	// Second pass, top-down: absolute to parent-relative offsets.
	diagram.Walk(roots, func(n, parent *diagram.Node, _ int) bool {
		p := abs[n]
		if parent != nil {
			p = p.Sub(abs[parent])
		}
		n.X, n.Y = p.X, p.Y
		return true
	})

	edges := g.edges(true)
	for _, e := range edges {
		if e.Type == RelContains {
			e.Generated = true
		}
	}
	return Result{Nodes: roots, Edges: edges, Camera: t.opts.fitCamera(roots)}
}

// shift moves every node of the given subtrees down by dy.
func shift(nodes []*diagram.Node, abs map[*diagram.Node]geometry.Point, dy float64) {
	diagram.Walk(nodes, func(n, _ *diagram.Node, _ int) bool {
		abs[n] = abs[n].Add(geometry.Pt(0, dy))
		return true
	})
}
