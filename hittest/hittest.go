// Package hittest answers "which node is under this world point" queries
// against a scene tree.
package hittest

import (
	"math"
	"sort"

	"hcanvas/diagram"
	"hcanvas/geometry"
)

// Predicate decides whether p hits n, whose drawn world rectangle is bounds.
// It replaces the default rectangle test for non-rectangular shapes.
type Predicate func(n *diagram.Node, bounds geometry.Rect, p geometry.Point) bool

// Options configures both tester implementations.
type Options struct {
	Frames diagram.FrameOptions
	// PredicateFor returns a custom predicate for n, or nil for the default
	// rectangle test.
	PredicateFor func(n *diagram.Node) Predicate
}

// DefaultOptions uses shrink-mode frames and a built-in ellipse predicate.
func DefaultOptions() Options {
	return Options{Frames: diagram.DefaultFrames(), PredicateFor: ShapePredicates}
}

// Hit is one match returned by HitTestAll and HitTestBounds.
type Hit struct {
	Node   *diagram.Node
	Bounds geometry.Rect // drawn bounds in world space
	Depth  int
	Order  int // pre-order draw index; higher is drawn later
}

// Tester finds interactive nodes under a world point.
type Tester interface {
	// HitTest returns the topmost interactive node at p, or nil.
	HitTest(roots []*diagram.Node, p geometry.Point) *diagram.Node
	// HitTestAll returns every node containing p, deepest first.
	HitTestAll(roots []*diagram.Node, p geometry.Point) []Hit
	// HitTestBounds returns every node intersecting r, deepest first.
	HitTestBounds(roots []*diagram.Node, r geometry.Rect) []Hit
}

// ShapePredicates supplies the ellipse test for ellipse shapes.
func ShapePredicates(n *diagram.Node) Predicate {
	switch n.Style.Shape {
	case diagram.ShapeEllipse:
		return EllipsePredicate
	default:
		return nil
	}
}

// EllipsePredicate hits points inside the ellipse inscribed in bounds.
func EllipsePredicate(_ *diagram.Node, bounds geometry.Rect, p geometry.Point) bool {
	rx, ry := bounds.Width/2, bounds.Height/2
	if rx <= 0 || ry <= 0 {
		return false
	}
	c := bounds.Center()
	dx, dy := (p.X-c.X)/rx, (p.Y-c.Y)/ry
	return dx*dx+dy*dy <= 1
}

func (o Options) contains(n *diagram.Node, bounds geometry.Rect, p geometry.Point) bool {
	if o.PredicateFor != nil {
		if pred := o.PredicateFor(n); pred != nil {
			return pred(n, bounds, p)
		}
	}
	return bounds.Contains(p)
}

// interactive walks every node that can receive pointer events. Hidden and
// non-interactive nodes are skipped together with their subtrees, as are the
// descendants of collapsed nodes.
func interactive(roots []*diagram.Node, frames diagram.FrameOptions, fn func(Hit)) {
	order := 0
	diagram.WalkWorld(roots, func(n *diagram.Node, origin geometry.Point, depth int) bool {
		if n.Hidden || n.NonInteractive {
			return false
		}
		fn(Hit{Node: n, Bounds: frames.WorldRect(n, origin), Depth: depth, Order: order})
		order++
		return !n.Collapsed
	})
}

// sortDeepestFirst orders hits by depth, then by draw order, both descending.
func sortDeepestFirst(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Depth != hits[j].Depth {
			return hits[i].Depth > hits[j].Depth
		}
		return hits[i].Order > hits[j].Order
	})
}

// Hierarchical is the default tester. It walks the tree depth-first and tests
// children before their parent, later siblings before earlier ones, so a
// child always wins over an ancestor at the same point.
type Hierarchical struct {
	opts Options
}

// NewHierarchical creates a hierarchical tester.
func NewHierarchical(opts Options) *Hierarchical {
	return &Hierarchical{opts: opts}
}

// HitTest implements Tester.
func (h *Hierarchical) HitTest(roots []*diagram.Node, p geometry.Point) *diagram.Node {
	if !p.IsFinite() {
		return nil
	}
	var visit func(n *diagram.Node, base geometry.Point) *diagram.Node
	visit = func(n *diagram.Node, base geometry.Point) *diagram.Node {
		if n == nil || n.Hidden || n.NonInteractive {
			return nil
		}
		origin := base.Add(n.Offset())
		if !n.Collapsed {
			for i := len(n.Children) - 1; i >= 0; i-- {
				if hit := visit(n.Children[i], origin); hit != nil {
					return hit
				}
			}
		}
		if h.opts.contains(n, h.opts.Frames.WorldRect(n, origin), p) {
			return n
		}
		return nil
	}
	for i := len(roots) - 1; i >= 0; i-- {
		if hit := visit(roots[i], geometry.Point{}); hit != nil {
			return hit
		}
	}
	return nil
}

// HitTestAll implements Tester.
func (h *Hierarchical) HitTestAll(roots []*diagram.Node, p geometry.Point) []Hit {
	if !p.IsFinite() {
		return nil
	}
	var hits []Hit
	interactive(roots, h.opts.Frames, func(hit Hit) {
		if h.opts.contains(hit.Node, hit.Bounds, p) {
			hits = append(hits, hit)
		}
	})
	sortDeepestFirst(hits)
	return hits
}

// HitTestBounds implements Tester.
func (h *Hierarchical) HitTestBounds(roots []*diagram.Node, r geometry.Rect) []Hit {
	if !r.IsFinite() {
		return nil
	}
	var hits []Hit
	interactive(roots, h.opts.Frames, func(hit Hit) {
		if hit.Bounds.Intersects(r) {
			hits = append(hits, hit)
		}
	})
	sortDeepestFirst(hits)
	return hits
}

// Indexed is the opt-in tester for large scenes. It keeps a quadtree of world
// bounds and resolves a point to the deepest precise match among the
// candidates. Call Invalidate after the scene changes.
type Indexed struct {
	opts       Options
	maxObjects int
	maxDepth   int

	tree  *Quadtree[Hit]
	dirty bool
}

// NewIndexed creates a spatially indexed tester.
func NewIndexed(opts Options, maxObjects, maxDepth int) *Indexed {
	if maxObjects <= 0 {
		maxObjects = DefaultMaxObjects
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Indexed{opts: opts, maxObjects: maxObjects, maxDepth: maxDepth, dirty: true}
}

// Invalidate marks the index stale; it is rebuilt on the next query.
func (x *Indexed) Invalidate() {
	x.dirty = true
}

// Rebuild indexes roots immediately.
func (x *Indexed) Rebuild(roots []*diagram.Node) {
	var hits []Hit
	var rects []geometry.Rect
	interactive(roots, x.opts.Frames, func(hit Hit) {
		if !hit.Bounds.IsFinite() {
			return
		}
		hits = append(hits, hit)
		rects = append(rects, hit.Bounds)
	})
	world, ok := geometry.Bounding(rects)
	if !ok {
		world = geometry.Rect{Width: 1, Height: 1}
	}
	x.tree = NewQuadtree[Hit](world.Inset(-1), x.maxObjects, x.maxDepth)
	for _, hit := range hits {
		x.tree.Insert(hit.Bounds, hit)
	}
	x.dirty = false
}

// Len returns the number of indexed nodes.
func (x *Indexed) Len() int {
	if x.tree == nil {
		return 0
	}
	return x.tree.Len()
}

func (x *Indexed) ensure(roots []*diagram.Node) {
	if x.dirty || x.tree == nil {
		x.Rebuild(roots)
	}
}

// HitTest implements Tester.
func (x *Indexed) HitTest(roots []*diagram.Node, p geometry.Point) *diagram.Node {
	hits := x.HitTestAll(roots, p)
	if len(hits) == 0 {
		return nil
	}
	return hits[0].Node
}

// HitTestAll implements Tester.
func (x *Indexed) HitTestAll(roots []*diagram.Node, p geometry.Point) []Hit {
	if !p.IsFinite() {
		return nil
	}
	x.ensure(roots)
	var hits []Hit
	for _, cand := range x.tree.QueryPoint(p) {
		if x.opts.contains(cand.Node, cand.Bounds, p) {
			hits = append(hits, cand)
		}
	}
	sortDeepestFirst(hits)
	return hits
}

// HitTestBounds implements Tester.
func (x *Indexed) HitTestBounds(roots []*diagram.Node, r geometry.Rect) []Hit {
	if !r.IsFinite() {
		return nil
	}
	x.ensure(roots)
	hits := x.tree.QueryBounds(r)
	sortDeepestFirst(hits)
	return hits
}

// Distance returns how far p is from the nearest edge of the hit's bounds;
// zero when inside. Useful for snapping pointers to small targets.
func Distance(h Hit, p geometry.Point) float64 {
	dx := math.Max(math.Max(h.Bounds.X-p.X, 0), p.X-h.Bounds.Right())
	dy := math.Max(math.Max(h.Bounds.Y-p.Y, 0), p.Y-h.Bounds.Bottom())
	return math.Hypot(dx, dy)
}
