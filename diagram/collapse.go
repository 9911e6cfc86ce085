package diagram

import (
	"math"

	"hcanvas/geometry"
)

// CollapseMode selects how a collapsed node is framed.
type CollapseMode string

const (
	// CollapseShrink draws a collapsed node at its compact size.
	CollapseShrink CollapseMode = "shrink"
	// CollapseFull keeps a collapsed node at its stored size.
	CollapseFull CollapseMode = "full"
)

// DefaultCollapsedSize is the compact frame used by CollapseShrink.
var DefaultCollapsedSize = geometry.Size{Width: 160, Height: 48}

// FrameOptions is passed explicitly to every call that needs a node's drawn
// size (hit testing, rendering, routing). Collapse never rewrites stored sizes.
type FrameOptions struct {
	Mode          CollapseMode
	CollapsedSize geometry.Size
}

// DefaultFrames returns shrink-mode frame options.
func DefaultFrames() FrameOptions {
	return FrameOptions{Mode: CollapseShrink, CollapsedSize: DefaultCollapsedSize}
}

// Frame returns the size the node is drawn at.
func (o FrameOptions) Frame(n *Node) geometry.Size {
	if n.Collapsed && n.HasChildren() && o.Mode != CollapseFull {
		cs := o.CollapsedSize
		if cs.Width <= 0 || cs.Height <= 0 {
			cs = DefaultCollapsedSize
		}
		return geometry.Size{
			Width:  math.Min(n.Width, cs.Width),
			Height: math.Min(n.Height, cs.Height),
		}
	}
	return n.Size()
}

// WorldRect returns the node's drawn rectangle given its absolute origin.
func (o FrameOptions) WorldRect(n *Node, origin geometry.Point) geometry.Rect {
	s := o.Frame(n)
	return geometry.Rect{X: origin.X, Y: origin.Y, Width: s.Width, Height: s.Height}
}

// SetCollapsed sets the collapse flag and reports whether it changed. Nodes
// without children cannot collapse.
func SetCollapsed(n *Node, collapsed bool) bool {
	if n == nil || n.Collapsed == collapsed {
		return false
	}
	if collapsed && !n.HasChildren() {
		return false
	}
	n.Collapsed = collapsed
	return true
}

// CollapseToLevel collapses every node with children at depth >= level and
// expands the rest. It returns the number of nodes whose state changed.
func CollapseToLevel(roots []*Node, level int) int {
	changed := 0
	Walk(roots, func(n, _ *Node, depth int) bool {
		want := depth >= level && n.HasChildren()
		if n.Collapsed != want {
			n.Collapsed = want
			changed++
		}
		return true
	})
	return changed
}
