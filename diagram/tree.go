package diagram

import (
	"slices"

	"hcanvas/geometry"
)

// Walk visits every node depth-first, parents before children. fn receives the
// node, its parent (nil for roots) and its depth (0 for roots). Returning false
// from fn skips the node's subtree.
func Walk(roots []*Node, fn func(n, parent *Node, depth int) bool) {
	var visit func(n, parent *Node, depth int)
	visit = func(n, parent *Node, depth int) {
		if n == nil || !fn(n, parent, depth) {
			return
		}
		for _, c := range n.Children {
			visit(c, n, depth+1)
		}
	}
	for _, r := range roots {
		visit(r, nil, 0)
	}
}

// WalkWorld is Walk with each node's absolute origin computed on the way down.
func WalkWorld(roots []*Node, fn func(n *Node, origin geometry.Point, depth int) bool) {
	var visit func(n *Node, base geometry.Point, depth int)
	visit = func(n *Node, base geometry.Point, depth int) {
		if n == nil {
			return
		}
		origin := base.Add(n.Offset())
		if !fn(n, origin, depth) {
			return
		}
		for _, c := range n.Children {
			visit(c, origin, depth+1)
		}
	}
	for _, r := range roots {
		visit(r, geometry.Point{}, 0)
	}
}

// WalkVisible is WalkWorld restricted to rendered nodes: hidden nodes and the
// descendants of collapsed nodes are skipped.
func WalkVisible(roots []*Node, fn func(n *Node, origin geometry.Point, depth int)) {
	WalkWorld(roots, func(n *Node, origin geometry.Point, depth int) bool {
		if n.Hidden {
			return false
		}
		fn(n, origin, depth)
		return !n.Collapsed
	})
}

// FindByGUID returns the node with the given GUID, or nil.
func FindByGUID(roots []*Node, guid string) *Node {
	if guid == "" {
		return nil
	}
	var found *Node
	Walk(roots, func(n, _ *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.GUID == guid {
			found = n
			return false
		}
		return true
	})
	return found
}

// NodePath returns the chain root..target. Nodes are matched by GUID first and
// by reference when the target has no GUID. A nil result means the node is no
// longer in the tree and callers should skip the operation.
func NodePath(roots []*Node, target *Node) []*Node {
	if target == nil {
		return nil
	}
	match := func(n *Node) bool {
		if target.GUID != "" {
			return n.GUID == target.GUID
		}
		return n == target
	}

	var path []*Node
	var search func(n *Node) bool
	search = func(n *Node) bool {
		path = append(path, n)
		if match(n) {
			return true
		}
		for _, c := range n.Children {
			if search(c) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	for _, r := range roots {
		if search(r) {
			return path
		}
	}
	return nil
}

// PathByGUID is NodePath for a GUID.
func PathByGUID(roots []*Node, guid string) []*Node {
	if guid == "" {
		return nil
	}
	return NodePath(roots, &Node{GUID: guid})
}

// Index maps GUIDs to nodes and parents so a path can be found by climbing
// from the target in O(depth). Every path it returns is checked against the
// tree; a stale or missing entry falls back to PathByGUID.
type Index struct {
	nodes  map[string]*Node
	parent map[string]*Node
}

// NewIndex indexes the forest as it is now.
func NewIndex(roots []*Node) *Index {
	ix := &Index{nodes: make(map[string]*Node), parent: make(map[string]*Node)}
	Walk(roots, func(n, parent *Node, _ int) bool {
		if n.GUID != "" {
			ix.nodes[n.GUID] = n
			ix.parent[n.GUID] = parent
		}
		return true
	})
	return ix
}

// Path returns the chain root..node for guid within roots.
func (ix *Index) Path(roots []*Node, guid string) []*Node {
	if ix == nil || guid == "" {
		return PathByGUID(roots, guid)
	}
	n := ix.nodes[guid]
	if n == nil || n.GUID != guid {
		return PathByGUID(roots, guid)
	}
	var path []*Node
	for c := n; c != nil; c = ix.parent[c.GUID] {
		path = append(path, c)
		if len(path) > len(ix.nodes) {
			return PathByGUID(roots, guid)
		}
	}
	slices.Reverse(path)
	if !attached(roots, path) {
		return PathByGUID(roots, guid)
	}
	return path
}

// attached reports whether path is a live chain from one of roots.
func attached(roots, path []*Node) bool {
	if !slices.Contains(roots, path[0]) {
		return false
	}
	for i := 1; i < len(path); i++ {
		if !slices.Contains(path[i-1].Children, path[i]) {
			return false
		}
	}
	return true
}

// Parent returns the parent of target, or nil for roots and detached nodes.
func Parent(roots []*Node, target *Node) *Node {
	path := NodePath(roots, target)
	if len(path) < 2 {
		return nil
	}
	return path[len(path)-2]
}

// AbsolutePosition sums the offsets along the node's ancestor path. The result
// is computed on every call; it is never cached.
func AbsolutePosition(roots []*Node, target *Node) (geometry.Point, bool) {
	path := NodePath(roots, target)
	if path == nil {
		return geometry.Point{}, false
	}
	return pathOrigin(path), true
}

func pathOrigin(path []*Node) geometry.Point {
	var p geometry.Point
	for _, n := range path {
		p = p.Add(n.Offset())
	}
	return p
}

// AbsoluteBounds returns the node's stored rectangle in world space.
func AbsoluteBounds(roots []*Node, target *Node) (geometry.Rect, bool) {
	p, ok := AbsolutePosition(roots, target)
	if !ok {
		return geometry.Rect{}, false
	}
	return geometry.Rect{X: p.X, Y: p.Y, Width: target.Width, Height: target.Height}, true
}

// LocalToWorld converts a point in the node's own frame (origin at its
// top-left corner) to world coordinates.
func LocalToWorld(roots []*Node, target *Node, p geometry.Point) (geometry.Point, bool) {
	origin, ok := AbsolutePosition(roots, target)
	if !ok {
		return geometry.Point{}, false
	}
	return origin.Add(p), true
}

// WorldToLocal converts a world point into the node's own frame.
func WorldToLocal(roots []*Node, target *Node, p geometry.Point) (geometry.Point, bool) {
	origin, ok := AbsolutePosition(roots, target)
	if !ok {
		return geometry.Point{}, false
	}
	return p.Sub(origin), true
}

// Depth returns the node's depth (0 for roots) or -1 when detached.
func Depth(roots []*Node, target *Node) int {
	return len(NodePath(roots, target)) - 1
}

// AncestorGUIDs returns the GUIDs of the node's ancestors, outermost first.
func AncestorGUIDs(roots []*Node, target *Node) []string {
	path := NodePath(roots, target)
	if len(path) < 2 {
		return nil
	}
	ids := make([]string, 0, len(path)-1)
	for _, n := range path[:len(path)-1] {
		ids = append(ids, n.GUID)
	}
	return ids
}

// ContentBounds returns the world bounds of every rendered node using the
// given frame options, and false when nothing is rendered.
func ContentBounds(roots []*Node, frames FrameOptions) (geometry.Rect, bool) {
	var rects []geometry.Rect
	WalkVisible(roots, func(n *Node, origin geometry.Point, _ int) {
		r := frames.WorldRect(n, origin)
		if r.IsFinite() {
			rects = append(rects, r)
		}
	})
	return geometry.Bounding(rects)
}
