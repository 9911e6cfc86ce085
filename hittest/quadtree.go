package hittest

import (
	"hcanvas/geometry"
)

// Quadtree defaults.
const (
	DefaultMaxObjects = 8
	DefaultMaxDepth   = 8
)

type entry[T any] struct {
	bounds geometry.Rect
	value  T
}

// Quadtree is a region quadtree over axis-aligned bounds. An object is pushed
// into the smallest quadrant that fully contains it; objects straddling a
// quadrant boundary stay in the parent cell.
type Quadtree[T any] struct {
	bounds     geometry.Rect
	maxObjects int
	maxDepth   int
	level      int
	items      []entry[T]
	nodes      [4]*Quadtree[T]
}

// NewQuadtree creates an empty tree covering bounds.
func NewQuadtree[T any](bounds geometry.Rect, maxObjects, maxDepth int) *Quadtree[T] {
	if maxObjects <= 0 {
		maxObjects = DefaultMaxObjects
	}
	if maxDepth < 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Quadtree[T]{bounds: bounds, maxObjects: maxObjects, maxDepth: maxDepth}
}

// Bounds returns the area covered by the tree.
func (q *Quadtree[T]) Bounds() geometry.Rect {
	return q.bounds
}

func (q *Quadtree[T]) split() {
	hw, hh := q.bounds.Width/2, q.bounds.Height/2
	x, y := q.bounds.X, q.bounds.Y
	quads := [4]geometry.Rect{
		{X: x + hw, Y: y, Width: hw, Height: hh},
		{X: x, Y: y, Width: hw, Height: hh},
		{X: x, Y: y + hh, Width: hw, Height: hh},
		{X: x + hw, Y: y + hh, Width: hw, Height: hh},
	}
	for i, r := range quads {
		q.nodes[i] = &Quadtree[T]{bounds: r, maxObjects: q.maxObjects, maxDepth: q.maxDepth, level: q.level + 1}
	}
}

// quadrant returns the child index fully containing r, or -1.
func (q *Quadtree[T]) quadrant(r geometry.Rect) int {
	if q.nodes[0] == nil {
		return -1
	}
	for i, n := range q.nodes {
		if n.bounds.ContainsRect(r, 0) {
			return i
		}
	}
	return -1
}

// Insert adds a value with the given bounds.
func (q *Quadtree[T]) Insert(bounds geometry.Rect, value T) {
	if i := q.quadrant(bounds); i >= 0 {
		q.nodes[i].Insert(bounds, value)
		return
	}
	q.items = append(q.items, entry[T]{bounds: bounds, value: value})

	if len(q.items) <= q.maxObjects || q.level >= q.maxDepth {
		return
	}
	if q.nodes[0] == nil {
		q.split()
	}
	kept := q.items[:0]
	for _, e := range q.items {
		if i := q.quadrant(e.bounds); i >= 0 {
			q.nodes[i].Insert(e.bounds, e.value)
		} else {
			kept = append(kept, e)
		}
	}
	clear(q.items[len(kept):])
	q.items = kept
}

// QueryPoint returns every value whose bounds contain p.
func (q *Quadtree[T]) QueryPoint(p geometry.Point) []T {
	var out []T
	q.queryPoint(p, &out)
	return out
}

func (q *Quadtree[T]) queryPoint(p geometry.Point, out *[]T) {
	for _, e := range q.items {
		if e.bounds.Contains(p) {
			*out = append(*out, e.value)
		}
	}
	if q.nodes[0] == nil {
		return
	}
	for _, n := range q.nodes {
		if n.bounds.Contains(p) {
			n.queryPoint(p, out)
		}
	}
}

// QueryBounds returns every value whose bounds intersect r.
func (q *Quadtree[T]) QueryBounds(r geometry.Rect) []T {
	var out []T
	q.queryBounds(r, &out)
	return out
}

func (q *Quadtree[T]) queryBounds(r geometry.Rect, out *[]T) {
	for _, e := range q.items {
		if e.bounds.Intersects(r) {
			*out = append(*out, e.value)
		}
	}
	if q.nodes[0] == nil {
		return
	}
	for _, n := range q.nodes {
		if n.bounds.Intersects(r) {
			n.queryBounds(r, out)
		}
	}
}

// Len returns the number of stored values.
func (q *Quadtree[T]) Len() int {
	n := len(q.items)
	if q.nodes[0] != nil {
		for _, c := range q.nodes {
			n += c.Len()
		}
	}
	return n
}

// Depth returns the depth of the deepest cell.
func (q *Quadtree[T]) Depth() int {
	if q.nodes[0] == nil {
		return q.level
	}
	d := q.level
	for _, c := range q.nodes {
		d = max(d, c.Depth())
	}
	return d
}

// Clear removes every value and collapses the tree.
func (q *Quadtree[T]) Clear() {
	q.items = nil
	q.nodes = [4]*Quadtree[T]{}
}
