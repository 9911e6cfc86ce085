package diagram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"hcanvas/geometry"
)

// chain builds root(100,200,400x300) > mid(20,30,200x150) > leaf(10,15,50x40).
func chain() (roots []*Node, root, mid, leaf *Node) {
	leaf = &Node{GUID: "leaf", X: 10, Y: 15, Width: 50, Height: 40}
	mid = &Node{GUID: "mid", X: 20, Y: 30, Width: 200, Height: 150, Children: []*Node{leaf}}
	root = &Node{GUID: "root", X: 100, Y: 200, Width: 400, Height: 300, Children: []*Node{mid}}
	return []*Node{root}, root, mid, leaf
}

func TestAbsolutePosition(t *testing.T) {
	roots, root, mid, leaf := chain()

	p, ok := AbsolutePosition(roots, leaf)
	require.True(t, ok)
	assert.Equal(t, geometry.Pt(130, 245), p)

	// Moving an ancestor is visible immediately: nothing is cached.
	root.X = 0
	p, _ = AbsolutePosition(roots, leaf)
	assert.Equal(t, geometry.Pt(30, 245), p)

	mid.Y = 0
	p, _ = AbsolutePosition(roots, leaf)
	assert.Equal(t, geometry.Pt(30, 215), p)
}

func TestIndexPath(t *testing.T) {
	roots, root, mid, leaf := chain()
	ix := NewIndex(roots)

	assert.Equal(t, []*Node{root, mid, leaf}, ix.Path(roots, "leaf"))
	assert.Equal(t, []*Node{root}, ix.Path(roots, "root"))
	assert.Nil(t, ix.Path(roots, "nope"))
	assert.Nil(t, ix.Path(roots, ""))

	// A node added after indexing is still found.
	extra := &Node{GUID: "extra"}
	mid.Children = append(mid.Children, extra)
	assert.Equal(t, []*Node{root, mid, extra}, ix.Path(roots, "extra"))

	// A detached node is not reported through its stale entry.
	mid.Children = []*Node{extra}
	assert.Nil(t, ix.Path(roots, "leaf"))

	// A reparented node is found at its new place.
	root.Children = append(root.Children, leaf)
	assert.Equal(t, []*Node{root, leaf}, ix.Path(roots, "leaf"))

	// A cloned tree never returns nodes of the indexed one.
	clones := CloneNodes(roots)
	path := ix.Path(clones, "extra")
	require.Len(t, path, 3)
	assert.Same(t, clones[0], path[0])

	var nilIndex *Index
	assert.Equal(t, []*Node{root, mid, extra}, nilIndex.Path(roots, "extra"))
}

func TestNodePath(t *testing.T) {
	roots, root, mid, leaf := chain()

	t.Run("by guid", func(t *testing.T) {
		path := NodePath(roots, &Node{GUID: "leaf"})
		assert.Equal(t, []*Node{root, mid, leaf}, path)
	})

	t.Run("by reference without guid", func(t *testing.T) {
		anon := &Node{Width: 1, Height: 1}
		leaf.Children = append(leaf.Children, anon)
		path := NodePath(roots, anon)
		require.Len(t, path, 4)
		assert.Same(t, anon, path[3])
		leaf.Children = nil
	})

	t.Run("detached", func(t *testing.T) {
		assert.Nil(t, NodePath(roots, &Node{GUID: "gone"}))
		_, ok := AbsolutePosition(roots, &Node{GUID: "gone"})
		assert.False(t, ok)
		assert.Equal(t, -1, Depth(roots, &Node{GUID: "gone"}))
	})

	assert.Equal(t, []string{"root", "mid"}, AncestorGUIDs(roots, leaf))
	assert.Same(t, mid, Parent(roots, leaf))
	assert.Nil(t, Parent(roots, root))
}

func TestTransformRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		roots, root, mid, leaf := chain()
		root.X = rapid.Float64Range(-1e5, 1e5).Draw(t, "rx")
		mid.Y = rapid.Float64Range(-1e5, 1e5).Draw(t, "my")
		leaf.X = rapid.Float64Range(-1e5, 1e5).Draw(t, "lx")
		p := geometry.Pt(
			rapid.Float64Range(-1e6, 1e6).Draw(t, "px"),
			rapid.Float64Range(-1e6, 1e6).Draw(t, "py"),
		)
		target := rapid.SampledFrom([]*Node{root, mid, leaf}).Draw(t, "node")

		w, ok := LocalToWorld(roots, target, p)
		if !ok {
			t.Fatalf("node detached")
		}
		back, _ := WorldToLocal(roots, target, w)
		if math.Abs(back.X-p.X) > 1e-6 || math.Abs(back.Y-p.Y) > 1e-6 {
			t.Fatalf("round trip %v -> %v -> %v", p, w, back)
		}
	})
}

func TestCameraRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := Camera{
			X:    rapid.Float64Range(-1e4, 1e4).Draw(t, "x"),
			Y:    rapid.Float64Range(-1e4, 1e4).Draw(t, "y"),
			Zoom: rapid.Float64Range(MinZoom, MaxZoom).Draw(t, "zoom"),
		}
		p := geometry.Pt(rapid.Float64Range(-1e4, 1e4).Draw(t, "px"), rapid.Float64Range(-1e4, 1e4).Draw(t, "py"))
		back := c.ScreenToWorld(c.WorldToScreen(p))
		if p.Distance(back) > 1e-6 {
			t.Fatalf("camera round trip %v -> %v", p, back)
		}
	})
}

func TestCameraZoomAtKeepsAnchor(t *testing.T) {
	c := Camera{X: 10, Y: 20, Zoom: 1}
	anchor := geometry.Pt(300, 200)
	before := c.ScreenToWorld(anchor)

	z := c.ZoomAt(2, anchor)
	assert.Equal(t, 2.0, z.Zoom)
	after := z.ScreenToWorld(anchor)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)

	assert.Equal(t, MaxZoom, c.ZoomAt(1e9, anchor).Zoom)
	assert.False(t, Camera{Zoom: 0}.Valid())
	assert.False(t, Camera{X: math.NaN(), Zoom: 1}.Valid())
}

func TestFitCentersContent(t *testing.T) {
	bounds := geometry.Rect{X: 100, Y: 100, Width: 2000, Height: 500}
	vp := geometry.Size{Width: 1000, Height: 800}
	c := Fit(bounds, vp, 20)

	assert.Less(t, c.Zoom, 1.0)
	center := c.WorldToScreen(bounds.Center())
	assert.InDelta(t, 500, center.X, 1e-6)
	assert.InDelta(t, 400, center.Y, 1e-6)
	screen := c.WorldRectToScreen(bounds)
	assert.GreaterOrEqual(t, screen.X, 19.999)
	assert.LessOrEqual(t, screen.Right(), 980.001)
}

func TestWalkVisibleSkipsCollapsedAndHidden(t *testing.T) {
	roots, root, mid, leaf := chain()
	var seen []string
	collect := func() {
		seen = seen[:0]
		WalkVisible(roots, func(n *Node, _ geometry.Point, _ int) { seen = append(seen, n.GUID) })
	}

	collect()
	assert.Equal(t, []string{"root", "mid", "leaf"}, seen)

	mid.Collapsed = true
	collect()
	assert.Equal(t, []string{"root", "mid"}, seen)

	mid.Collapsed = false
	root.Hidden = true
	collect()
	assert.Empty(t, seen)
	_ = leaf
}

func TestFrameShrink(t *testing.T) {
	_, _, mid, leaf := chain()
	frames := DefaultFrames()

	assert.Equal(t, mid.Size(), frames.Frame(mid))
	mid.Collapsed = true
	assert.Equal(t, geometry.Size{Width: 160, Height: 48}, frames.Frame(mid))
	assert.Equal(t, geometry.Size{Width: 200, Height: 150}, mid.Size(), "stored size is untouched")

	full := FrameOptions{Mode: CollapseFull}
	assert.Equal(t, mid.Size(), full.Frame(mid))

	// Leaves never shrink.
	leaf.Collapsed = true
	assert.Equal(t, leaf.Size(), frames.Frame(leaf))
}

func TestCollapseToLevel(t *testing.T) {
	roots, root, mid, leaf := chain()

	changed := CollapseToLevel(roots, 1)
	assert.Equal(t, 1, changed)
	assert.False(t, root.Collapsed)
	assert.True(t, mid.Collapsed)
	assert.False(t, leaf.Collapsed)

	CollapseToLevel(roots, 0)
	assert.True(t, root.Collapsed)

	assert.False(t, SetCollapsed(leaf, true), "leaves cannot collapse")
	assert.True(t, SetCollapsed(root, false))
	assert.False(t, SetCollapsed(root, false))
}
