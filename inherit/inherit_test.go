package inherit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hcanvas/diagram"
)

// scene builds A > B > C with D a sibling of B, and an original edge C -> D.
func scene() (roots []*diagram.Node, b *diagram.Node, edges []*diagram.Edge) {
	c := &diagram.Node{GUID: "C", X: 20, Y: 40, Width: 100, Height: 50}
	b = &diagram.Node{GUID: "B", X: 20, Y: 40, Width: 200, Height: 150, Children: []*diagram.Node{c}}
	d := &diagram.Node{GUID: "D", X: 300, Y: 40, Width: 100, Height: 50}
	a := &diagram.Node{GUID: "A", Width: 500, Height: 300, Children: []*diagram.Node{b, d}}
	edges = []*diagram.Edge{{ID: "c-d", From: "C", To: "D", Type: "CALLS", Style: diagram.EdgeStyle{Stroke: "#718096", Width: 1.5}}}
	return []*diagram.Node{a}, b, edges
}

func TestCollapseRedirectsToVisibleAncestor(t *testing.T) {
	roots, b, original := scene()

	live := Resolve(roots, original, DefaultOptions())
	require.Len(t, live, 1)
	assert.Equal(t, "c-d", live[0].ID)
	assert.False(t, live[0].Inherited)

	require.True(t, diagram.SetCollapsed(b, true))
	live = Resolve(roots, original, DefaultOptions())
	require.Len(t, live, 1)
	e := live[0]
	assert.Equal(t, "B", e.From)
	assert.Equal(t, "D", e.To)
	assert.True(t, e.Inherited)
	assert.Equal(t, true, e.Metadata[MetaInherited])
	assert.Equal(t, "c-d", e.OriginalID)
	assert.NotEqual(t, "c-d", e.ID)
	assert.Equal(t, []float64{6, 4}, e.Style.Dash)
	assert.NotEqual(t, "#718096", e.Style.Stroke)

	// The original list is untouched.
	assert.Equal(t, "C", original[0].From)
	assert.Empty(t, original[0].Style.Dash)

	require.True(t, diagram.SetCollapsed(b, false))
	live = Resolve(roots, original, DefaultOptions())
	require.Len(t, live, 1)
	assert.Equal(t, "c-d", live[0].ID)
	assert.Equal(t, "C", live[0].From)
	assert.False(t, live[0].Inherited)
}

func TestCollapseDropsInternalEdges(t *testing.T) {
	roots, b, original := scene()
	original = append(original, &diagram.Edge{ID: "b-c", From: "B", To: "C"})

	diagram.SetCollapsed(b, true)
	live := Resolve(roots, original, DefaultOptions())
	require.Len(t, live, 1)
	assert.Equal(t, "B", live[0].From)
	assert.Equal(t, "D", live[0].To)
}

func TestInheritedEdgesAreMerged(t *testing.T) {
	roots, b, original := scene()
	c2 := &diagram.Node{GUID: "C2", X: 20, Y: 100, Width: 50, Height: 30}
	b.Children = append(b.Children, c2)
	original = append(original,
		&diagram.Edge{ID: "c2-d", From: "C2", To: "D", Type: "CALLS"},
		&diagram.Edge{ID: "c2-d-reads", From: "C2", To: "D", Type: "READS"},
	)

	diagram.SetCollapsed(b, true)
	live := Resolve(roots, original, DefaultOptions())
	require.Len(t, live, 2)
	assert.Equal(t, 2, live[0].Metadata[MetaCount])
	assert.Equal(t, []string{"c-d", "c2-d"}, live[0].Metadata[MetaOriginalIDs])
	assert.Equal(t, "READS", live[1].Type)
	assert.Equal(t, 1, live[1].Metadata[MetaCount])
}

func TestResolveDropsOrphansAndHiddenRoots(t *testing.T) {
	roots, _, original := scene()
	original = append(original, &diagram.Edge{ID: "ghost", From: "C", To: "missing"})

	live := Resolve(roots, original, DefaultOptions())
	assert.Len(t, live, 1)

	roots[0].Hidden = true
	assert.Empty(t, Resolve(roots, original, DefaultOptions()))
}

func TestVisibilityAndAnchors(t *testing.T) {
	roots, b, _ := scene()
	diagram.SetCollapsed(b, true)

	vis := Visibility(roots)
	assert.Equal(t, map[string]bool{"A": true, "B": true, "C": false, "D": true}, vis)

	anchors := Anchors(roots)
	assert.Equal(t, "B", anchors["C"])
	assert.Equal(t, "D", anchors["D"])

	roots[0].Children[1].Hidden = true
	assert.Equal(t, "A", Anchors(roots)["D"])
}
