package diagram

import (
	"math"

	"hcanvas/geometry"
)

// DefaultPadding is the gap kept between a container's border and its children.
const DefaultPadding = 20.0

// MinNodeSize is the smallest width or height a resize may produce.
const MinNodeSize = 16.0

// ChildrenBounds returns the bounding box of n's children in n's own frame.
func ChildrenBounds(n *Node) (geometry.Rect, bool) {
	if n == nil || len(n.Children) == 0 {
		return geometry.Rect{}, false
	}
	rects := make([]geometry.Rect, 0, len(n.Children))
	for _, c := range n.Children {
		rects = append(rects, c.LocalBounds())
	}
	return geometry.Bounding(rects)
}

// MinimumSize returns the smallest size n can take while still containing all
// its children plus padding.
func MinimumSize(n *Node, padding float64) geometry.Size {
	s := geometry.Size{Width: MinNodeSize, Height: MinNodeSize}
	if b, ok := ChildrenBounds(n); ok {
		s.Width = math.Max(s.Width, b.Right()+padding)
		s.Height = math.Max(s.Height, b.Bottom()+padding)
	}
	return s
}

// GrowToFit enlarges n so that its children plus padding fit. It never
// shrinks n and reports whether the size changed.
func GrowToFit(n *Node, padding float64) bool {
	least := MinimumSize(n, padding)
	changed := false
	if n.Width < least.Width {
		n.Width = least.Width
		changed = true
	}
	if n.Height < least.Height {
		n.Height = least.Height
		changed = true
	}
	return changed
}

// GrowAncestors runs GrowToFit on every ancestor in path, innermost first.
// path is a root..node chain as returned by NodePath.
func GrowAncestors(path []*Node, padding float64) {
	for i := len(path) - 2; i >= 0; i-- {
		GrowToFit(path[i], padding)
	}
}

// ClampOffset returns the offset closest to want that keeps a child of the
// given size inside parent minus padding. A child larger than the available
// space is pinned to the padding.
func ClampOffset(parent *Node, size geometry.Size, want geometry.Point, padding float64) geometry.Point {
	if parent == nil {
		return want
	}
	maxX := parent.Width - padding - size.Width
	maxY := parent.Height - padding - size.Height
	return geometry.Point{
		X: geometry.Clamp(want.X, padding, math.Max(padding, maxX)),
		Y: geometry.Clamp(want.Y, padding, math.Max(padding, maxY)),
	}
}

// MoveNode moves the node at the end of path to the local offset want,
// clamped to its parent's bounds when contain is set. It returns the applied
// offset.
func MoveNode(path []*Node, want geometry.Point, padding float64, contain bool) geometry.Point {
	n := path[len(path)-1]
	got := want
	if contain && len(path) > 1 {
		parent := path[len(path)-2]
		got = ClampOffset(parent, n.Size(), want, padding)
	}
	if !got.IsFinite() {
		return n.Offset()
	}
	n.X, n.Y = got.X, got.Y
	if contain {
		GrowAncestors(path, padding)
	}
	return got
}

// ResizeNode resizes the node at the end of path. A size below the bounding
// box of the node's children is raised to the minimum containing size; a child
// is kept inside its parent minus padding, growing ancestors only when the
// child's own minimum does not fit. It returns the applied size.
func ResizeNode(path []*Node, want geometry.Size, padding float64, contain bool) geometry.Size {
	n := path[len(path)-1]
	if !geometry.IsFinite(want.Width, want.Height) {
		return n.Size()
	}
	least := geometry.Size{Width: MinNodeSize, Height: MinNodeSize}
	if contain {
		least = MinimumSize(n, padding)
	}
	w := math.Max(want.Width, least.Width)
	h := math.Max(want.Height, least.Height)

	if contain && len(path) > 1 {
		parent := path[len(path)-2]
		w = math.Max(least.Width, math.Min(w, parent.Width-padding-n.X))
		h = math.Max(least.Height, math.Min(h, parent.Height-padding-n.Y))
	}
	n.Width, n.Height = w, h
	if contain {
		GrowAncestors(path, padding)
	}
	return n.Size()
}

// EnforceContainment clamps every child inside its parent and grows parents to
// fit, bottom-up. It is used after loading a snapshot from an external source.
func EnforceContainment(roots []*Node, padding float64) {
	var fix func(n *Node)
	fix = func(n *Node) {
		for _, c := range n.Children {
			fix(c)
		}
		for _, c := range n.Children {
			if c.X < padding {
				c.X = padding
			}
			if c.Y < padding {
				c.Y = padding
			}
		}
		GrowToFit(n, padding)
	}
	for _, r := range roots {
		fix(r)
	}
}
