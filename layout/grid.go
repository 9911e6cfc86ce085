package layout

import (
	"math"

	"hcanvas/diagram"
)

// Engine names.
const (
	EngineContainmentGrid       = "containment-grid"
	EngineTree                  = "tree"
	EngineForce                 = "force-directed"
	EngineFlat                  = "flat"
	EngineLayered               = "layered"
	EngineOrthogonal            = "orthogonal"
	EngineContainmentOrthogonal = "containment-orthogonal"
)

// ContainmentGrid nests contained entities inside their parents. Each
// parent's children are placed in a row-major grid, and the parent is grown
// to the grid's bounds plus padding. Subtrees are sized bottom-up so every
// ancestor is sized after its descendants.
type ContainmentGrid struct {
	opts Options
}

// NewContainmentGrid creates the containment-grid engine.
func NewContainmentGrid(opts Options) *ContainmentGrid {
	return &ContainmentGrid{opts: opts}
}

// Name implements Engine.
func (c *ContainmentGrid) Name() string { return EngineContainmentGrid }

// Traits implements Engine.
func (c *ContainmentGrid) Traits() Traits {
	return Traits{Deterministic: true, Containment: true}
}

// Apply implements Engine.
func (c *ContainmentGrid) Apply(entities []Entity, relationships []Relationship) Result {
	g := Normalize(entities, relationships, c.opts.logger())
	if g.Len() == 0 {
		return Result{}
	}

	var build func(id string) *diagram.Node
	build = func(id string) *diagram.Node {
		e, _ := g.Entity(id)
		n := c.opts.newNode(e)
		kids := g.Children(id)
		if len(kids) == 0 {
			return n
		}
		n.Style = DefaultContainerStyle
		applyStyleProps(&n.Style, e.Properties)
		for _, k := range kids {
			n.Children = append(n.Children, build(k))
		}
		top := c.opts.Padding + c.opts.Header
		w, h := gridPlace(n.Children, c.opts.Padding, top, c.opts.Gap)
		n.Width = math.Max(n.Width, w+c.opts.Padding)
		n.Height = math.Max(n.Height, h+c.opts.Padding)
		return n
	}

	roots := make([]*diagram.Node, 0, len(g.Roots()))
	for _, id := range g.Roots() {
		roots = append(roots, build(id))
	}
	gridPlace(roots, 0, 0, c.opts.Gap*2)

	return Result{Nodes: roots, Edges: g.edges(false), Camera: c.opts.fitCamera(roots)}
}

// gridPlace lays nodes out row-major in a near-square grid starting at
// (left, top). Columns take the width of their widest cell and rows the
// height of their tallest. It returns the right and bottom extent.
func gridPlace(nodes []*diagram.Node, left, top, gap float64) (right, bottom float64) {
	if len(nodes) == 0 {
		return left, top
	}
	cols := int(math.Ceil(math.Sqrt(float64(len(nodes)))))
	rows := (len(nodes) + cols - 1) / cols
	colW := make([]float64, cols)
	rowH := make([]float64, rows)
	for i, n := range nodes {
		colW[i%cols] = math.Max(colW[i%cols], n.Width)
		rowH[i/cols] = math.Max(rowH[i/cols], n.Height)
	}

	x := make([]float64, cols)
	x[0] = left
	for i := 1; i < cols; i++ {
		x[i] = x[i-1] + colW[i-1] + gap
	}
	y := make([]float64, rows)
	y[0] = top
	for i := 1; i < rows; i++ {
		y[i] = y[i-1] + rowH[i-1] + gap
	}

	for i, n := range nodes {
		n.X, n.Y = x[i%cols], y[i/cols]
	}
	return x[cols-1] + colW[cols-1], y[rows-1] + rowH[rows-1]
}
