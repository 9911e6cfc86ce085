package layout

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hcanvas/diagram"
	"hcanvas/geometry"
)

func TestEnginesHandleEmptyInput(t *testing.T) {
	r := NewRegistry()
	for _, name := range r.Names() {
		t.Run(name, func(t *testing.T) {
			e, ok := r.Get(name)
			require.True(t, ok)
			res := e.Apply(nil, nil)
			assert.Empty(t, res.Nodes)
			assert.Empty(t, res.Edges)

			res = e.Apply(nil, []Relationship{{Type: "LINKS", From: "x", To: "y"}})
			assert.Empty(t, res.Nodes)
		})
	}
}

func TestEnginesBasicCorrectness(t *testing.T) {
	r := NewRegistry()
	entities, rels := GenerateTree(3, 3)
	rels = append(rels, Relationship{Type: "CALLS", From: "n2", To: "n6"})

	for _, name := range r.Names() {
		t.Run(name, func(t *testing.T) {
			e, _ := r.Get(name)
			res := e.Apply(entities, rels)
			validator := NewTestValidator(t)
			validator.ValidateNodeSizes(res.Nodes)
			validator.ValidateEdges(res)
			assert.Equal(t, len(entities), countNodes(res.Nodes))
			require.NotNil(t, res.Camera)
			assert.True(t, res.Camera.Valid())
		})
	}
}

func TestDeterministicEngines(t *testing.T) {
	r := NewRegistry()
	entities, rels := GenerateHierarchy(30, 3)
	rels = append(rels, Relationship{Type: "CALLS", From: "e05", To: "e20"})

	for _, name := range r.Names() {
		e, _ := r.Get(name)
		if !e.Traits().Deterministic {
			continue
		}
		t.Run(name, func(t *testing.T) {
			NewTestValidator(t).ValidateDeterminism(e, entities, rels, 3)
		})
	}
}

func TestContainmentGridScenario(t *testing.T) {
	opts := DefaultOptions()
	engine := NewContainmentGrid(opts)
	entities, rels := GenerateHierarchy(50, 3)

	res := engine.Apply(entities, rels)
	require.Len(t, res.Nodes, 1)
	assert.Equal(t, 50, countNodes(res.Nodes))

	validator := NewTestValidator(t)
	validator.ValidateContainment(res.Nodes, opts.Padding)
	validator.ValidateNoOverlaps(res.Nodes)

	maxDepth := 0
	diagram.Walk(res.Nodes, func(_, _ *diagram.Node, depth int) bool {
		maxDepth = max(maxDepth, depth)
		return true
	})
	assert.Equal(t, 2, maxDepth)

	// The camera centres the content in the viewport.
	require.NotNil(t, res.Camera)
	bounds, ok := diagram.ContentBounds(res.Nodes, diagram.DefaultFrames())
	require.True(t, ok)
	mid := res.Camera.ScreenToWorld(geometry.Pt(opts.Viewport.Width/2, opts.Viewport.Height/2))
	assert.InDelta(t, bounds.Center().X, mid.X, 1e-6)
	assert.InDelta(t, bounds.Center().Y, mid.Y, 1e-6)

	onScreen := res.Camera.WorldRectToScreen(bounds)
	vp := geometry.Rect{Width: opts.Viewport.Width, Height: opts.Viewport.Height}
	assert.True(t, vp.ContainsRect(onScreen, 1e-6), "content %v should fit the viewport", onScreen)
}

func TestContainmentGridOmitsContainsEdges(t *testing.T) {
	res := NewContainmentGrid(DefaultOptions()).Apply(
		[]Entity{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		[]Relationship{
			{Type: RelContains, From: "a", To: "b"},
			{Type: "CALLS", From: "b", To: "c"},
		})

	require.Len(t, res.Edges, 1)
	assert.Equal(t, "CALLS", res.Edges[0].Type)
	require.Len(t, res.Nodes, 2)
	assert.Equal(t, DefaultContainerStyle.Fill, res.Nodes[0].Style.Fill)
}

func TestTreeCentresParentsOnChildren(t *testing.T) {
	opts := DefaultOptions()
	entities, rels := GenerateTree(3, 2)
	res := NewTree(opts).Apply(entities, rels)
	require.Len(t, res.Nodes, 1)

	diagram.Walk(res.Nodes, func(n, _ *diagram.Node, depth int) bool {
		abs, ok := diagram.AbsolutePosition(res.Nodes, n)
		require.True(t, ok)
		assert.InDelta(t, float64(depth)*opts.LevelSpacing, abs.X, 1e-9, "node %s column", n.ID)
		if !n.HasChildren() {
			return true
		}
		first, last := n.Children[0], n.Children[len(n.Children)-1]
		mid := (first.Y + last.Y + last.Height) / 2
		assert.InDelta(t, mid, n.Height/2, 1e-9, "node %s centred on its children", n.ID)
		return true
	})

	generated := 0
	for _, e := range res.Edges {
		if e.Type == RelContains {
			assert.True(t, e.Generated)
			generated++
		}
	}
	assert.Equal(t, len(entities)-1, generated)
}

func TestTreeReservesRowsForTallParents(t *testing.T) {
	opts := DefaultOptions()
	entities := []Entity{
		{ID: "r"},
		{ID: "a", Parent: "r", Height: 120},
		{ID: "a1", Parent: "a", Height: 20},
		{ID: "b", Parent: "r", Height: 120},
		{ID: "b1", Parent: "b", Height: 20},
		{ID: "c", Parent: "r", Height: 20},
	}
	res := NewTree(opts).Apply(entities, nil)
	require.Len(t, res.Nodes, 1)

	// Flatten to absolute bounds so nodes of different subtrees in the same
	// column are compared.
	var flat []*diagram.Node
	diagram.WalkWorld(res.Nodes, func(n *diagram.Node, origin geometry.Point, _ int) bool {
		flat = append(flat, &diagram.Node{ID: n.ID, X: origin.X, Y: origin.Y, Width: n.Width, Height: n.Height})
		return true
	})
	require.Len(t, flat, len(entities))
	NewTestValidator(t).ValidateNoOverlaps(flat)

	byID := map[string]*diagram.Node{}
	for _, n := range flat {
		byID[n.ID] = n
	}
	a, a1 := byID["a"], byID["a1"]
	assert.InDelta(t, a.Y+a.Height/2, a1.Y+a1.Height/2, 1e-9, "a tall parent stays centred on its child")
	assert.GreaterOrEqual(t, byID["b"].Y, a.Y+a.Height+opts.SiblingSpacing)
}

func TestFlatPlacesEveryEntityAsRoot(t *testing.T) {
	opts := DefaultOptions()
	entities, rels := GenerateTree(2, 5)
	res := NewFlat(opts).Apply(entities, rels)

	require.Len(t, res.Nodes, len(entities))
	NewTestValidator(t).ValidateNoOverlaps(res.Nodes)
	for _, n := range res.Nodes {
		assert.Empty(t, n.Children)
	}
	assert.Len(t, res.Edges, len(rels), "containment is drawn as plain edges")

	single := NewFlat(opts).Apply([]Entity{{ID: "only"}}, nil)
	require.Len(t, single.Nodes, 1)
	assert.Equal(t, geometry.Pt(-opts.LeafSize.Width/2, -opts.LeafSize.Height/2), single.Nodes[0].Offset())
}

func TestForceSessionSteps(t *testing.T) {
	opts := DefaultOptions()
	opts.ForceIterations = 40
	engine := NewForce(opts)
	entities, rels := GenerateStarGraph(8)

	s := engine.Start(entities, rels)
	steps := 0
	for !s.Step(5) {
		steps++
		require.Less(t, steps, 100, "force session never finished")
	}
	assert.LessOrEqual(t, steps, opts.ForceIterations/5)

	res := s.Result()
	require.Len(t, res.Nodes, len(entities))
	for _, n := range res.Nodes {
		assert.True(t, geometry.IsFinite(n.X, n.Y), "node %s at %v", n.ID, n.Offset())
	}
	assert.False(t, engine.Traits().Deterministic)

	assert.True(t, engine.Start(nil, nil).Step(1))
}

func TestStartWrapsPlainEngines(t *testing.T) {
	entities, rels := GenerateLinearChain(3)
	s := Start(NewFlat(DefaultOptions()), entities, rels)
	assert.Empty(t, s.Result().Nodes)
	assert.True(t, s.Step(1))
	assert.Len(t, s.Result().Nodes, 3)
}

func TestLayeredOrdersByDistance(t *testing.T) {
	entities, rels := GenerateLinearChain(4)
	res := NewLayered(DefaultOptions()).Apply(entities, rels)
	require.Len(t, res.Nodes, 4)
	for i := 1; i < len(res.Nodes); i++ {
		assert.Greater(t, res.Nodes[i].X, res.Nodes[i-1].X)
	}
}

func TestLayeredHandlesCyclesAndComponents(t *testing.T) {
	validator := NewTestValidator(t)
	engine := NewLayered(DefaultOptions())

	t.Run("cycle", func(t *testing.T) {
		entities, rels := GenerateCycle(5)
		res := engine.Apply(entities, rels)
		require.Len(t, res.Nodes, 5)
		validator.ValidateNoOverlaps(res.Nodes)
	})

	t.Run("components", func(t *testing.T) {
		entities, rels := GenerateDisconnectedComponents(3, 4)
		res := engine.Apply(entities, rels)
		require.Len(t, res.Nodes, 12)
		validator.ValidateNoOverlaps(res.Nodes)
	})

	t.Run("wide layer", func(t *testing.T) {
		entities, rels := GenerateStarGraph(25)
		res := engine.Apply(entities, rels)
		validator.ValidateNoOverlaps(res.Nodes)
	})

	t.Run("random dag", func(t *testing.T) {
		entities, rels := GenerateRandomDAG(30, 0.1, 7)
		validator.ValidatePerformance(engine, entities, rels, time.Second)
		validator.ValidateNoOverlaps(engine.Apply(entities, rels).Nodes)
	})
}

func TestRoutedEnginesProduceOrthogonalWaypoints(t *testing.T) {
	r := NewRegistry()
	entities, rels := GenerateHierarchy(12, 2)
	rels = append(rels,
		Relationship{Type: "CALLS", From: "e02", To: "e09"},
		Relationship{Type: "CALLS", From: "e04", To: "e07"},
	)

	for _, name := range []string{EngineOrthogonal, EngineContainmentOrthogonal} {
		t.Run(name, func(t *testing.T) {
			e, ok := r.Get(name)
			require.True(t, ok)
			assert.True(t, e.Traits().Routed)

			res := e.Apply(entities, rels)
			routed := 0
			for _, edge := range res.Edges {
				if len(edge.Waypoints) == 0 {
					continue
				}
				routed++
				for i := 1; i < len(edge.Waypoints); i++ {
					a, b := edge.Waypoints[i-1], edge.Waypoints[i]
					axis := math.Abs(a.X-b.X) < 1e-9 || math.Abs(a.Y-b.Y) < 1e-9
					assert.True(t, axis, "edge %s segment %v-%v is diagonal", edge.ID, a, b)
				}
			}
			assert.Positive(t, routed)
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(WithViewport(geometry.Size{Width: 800, Height: 600}))
	assert.Equal(t, []string{
		EngineContainmentGrid,
		EngineContainmentOrthogonal,
		EngineFlat,
		EngineForce,
		EngineLayered,
		EngineOrthogonal,
		EngineTree,
	}, r.Names())
	assert.Equal(t, 800.0, r.Options().Viewport.Width)

	_, ok := r.Get("nope")
	assert.False(t, ok)

	r.Register(NewRouted("custom", NewFlat(r.Options()), r.Options()))
	e, ok := r.Get("custom")
	require.True(t, ok)
	assert.Equal(t, "custom", e.Name())
}

func TestStyleProperties(t *testing.T) {
	res := NewFlat(DefaultOptions()).Apply([]Entity{{
		ID:         "a",
		Width:      50,
		Properties: map[string]any{"fill": "#ff0000", "shape": "ellipse", "cornerRadius": 3},
	}}, nil)
	n := res.Nodes[0]
	assert.Equal(t, "#ff0000", n.Style.Fill)
	assert.Equal(t, diagram.ShapeEllipse, n.Style.Shape)
	assert.Equal(t, 3.0, n.Style.CornerRadius)
	assert.Equal(t, 50.0, n.Width)
	assert.Equal(t, "a", n.Text, fmt.Sprintf("label falls back to id, got %q", n.Text))
}
