package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"hcanvas/geometry"
)

func TestResizeBelowChildrenGrowsToMinimum(t *testing.T) {
	roots, root, mid, _ := chain()
	path := NodePath(roots, mid)

	got := ResizeNode(path, geometry.Size{Width: 10, Height: 10}, DefaultPadding, true)
	// leaf spans to (60, 55) inside mid.
	assert.Equal(t, geometry.Size{Width: 80, Height: 75}, got)
	assert.Equal(t, 400.0, root.Width)
}

func TestResizeChildClampedToParent(t *testing.T) {
	roots, _, mid, _ := chain()
	path := NodePath(roots, mid)

	got := ResizeNode(path, geometry.Size{Width: 5000, Height: 5000}, DefaultPadding, true)
	assert.Equal(t, 400-DefaultPadding-mid.X, got.Width)
	assert.Equal(t, 300-DefaultPadding-mid.Y, got.Height)
}

func TestMoveClampsInsideParent(t *testing.T) {
	roots, _, mid, leaf := chain()
	path := NodePath(roots, leaf)

	got := MoveNode(path, geometry.Pt(-100, 1000), DefaultPadding, true)
	assert.Equal(t, geometry.Pt(DefaultPadding, mid.Height-DefaultPadding-leaf.Height), got)

	free := MoveNode(path, geometry.Pt(-100, 1000), DefaultPadding, false)
	assert.Equal(t, geometry.Pt(-100, 1000), free)
}

func TestEnforceContainment(t *testing.T) {
	child := &Node{GUID: "c", X: -5, Y: 500, Width: 100, Height: 100}
	parent := &Node{GUID: "p", Width: 50, Height: 50, Children: []*Node{child}}
	EnforceContainment([]*Node{parent}, 10)

	assert.Equal(t, 10.0, child.X)
	assert.Equal(t, 120.0, parent.Width)
	assert.Equal(t, 610.0, parent.Height)
}

// TestContainmentInvariant drives random moves and resizes through a nested
// scene and checks every child stays inside its parent.
func TestContainmentInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		roots, root, mid, leaf := chain()
		sibling := &Node{GUID: "sib", X: 250, Y: 30, Width: 60, Height: 60}
		root.Children = append(root.Children, sibling)
		nodes := []*Node{mid, leaf, sibling}
		EnforceContainment(roots, DefaultPadding)

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			n := rapid.SampledFrom(nodes).Draw(t, "node")
			path := NodePath(roots, n)
			if rapid.Bool().Draw(t, "resize") {
				ResizeNode(path, geometry.Size{
					Width:  rapid.Float64Range(-50, 2000).Draw(t, "w"),
					Height: rapid.Float64Range(-50, 2000).Draw(t, "h"),
				}, DefaultPadding, true)
			} else {
				MoveNode(path, geometry.Pt(
					rapid.Float64Range(-2000, 2000).Draw(t, "x"),
					rapid.Float64Range(-2000, 2000).Draw(t, "y"),
				), DefaultPadding, true)
			}
		}

		Walk(roots, func(n, parent *Node, _ int) bool {
			if parent == nil {
				return true
			}
			pb, ok := AbsoluteBounds(roots, parent)
			require.True(t, ok)
			cb, _ := AbsoluteBounds(roots, n)
			if !pb.Inset(DefaultPadding).ContainsRect(cb, 1e-6) {
				t.Fatalf("%s %v escapes %s %v", n.GUID, cb, parent.GUID, pb)
			}
			return true
		})
	})
}
