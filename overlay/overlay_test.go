package overlay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"hcanvas/diagram"
)

func fill(c string) *StylePatch { return &StylePatch{Fill: Ptr(c)} }

func TestCascadeStopsAtSubtree(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(Patch{Scope: ScopeGlobal, Style: fill("red")}))
	require.NoError(t, s.Put(Patch{Scope: ScopeSubtree, Target: "A", Style: fill("blue"), StopCascade: true}))
	require.NoError(t, s.Put(Patch{Scope: ScopeSubtree, Target: "B", Style: fill("green")}))
	require.NoError(t, s.Put(Patch{Scope: ScopeNode, Target: "C"}))

	inside := s.ResolveNode(NodeQuery{NodeID: "C", AncestorIDs: []string{"root", "A", "B"}})
	assert.Equal(t, "blue", inside.Style.Fill)

	sibling := s.ResolveNode(NodeQuery{NodeID: "S", AncestorIDs: []string{"root"}})
	assert.Equal(t, "red", sibling.Style.Fill)
}

func TestNodePatchWinsAfterStop(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(Patch{Scope: ScopeSubtree, Target: "A", Style: fill("blue"), StopCascade: true}))
	require.NoError(t, s.Put(Patch{Scope: ScopeNode, Target: "C", Style: &StylePatch{Stroke: Ptr("black")}, Author: "alice"}))

	r := s.ResolveNode(NodeQuery{NodeID: "C", AncestorIDs: []string{"A"}, Base: diagram.Style{Fill: "white", Stroke: "grey"}})
	assert.Equal(t, "blue", r.Style.Fill)
	assert.Equal(t, "black", r.Style.Stroke)
	assert.Equal(t, []string{"alice"}, r.Authors)
}

func TestInheritPassesThrough(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(Patch{Scope: ScopeGlobal, Style: fill("red")}))
	require.NoError(t, s.Put(Patch{Scope: ScopeNode, Target: "n", Style: &StylePatch{Fill: Ptr(Inherit), Icon: Ptr("db")}}))

	r := s.ResolveNode(NodeQuery{NodeID: "n", Base: diagram.Style{Fill: "white"}})
	assert.Equal(t, "red", r.Style.Fill)
	assert.Equal(t, "db", r.Style.Icon)
}

func TestSubtreeAppliesToRoot(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(Patch{Scope: ScopeSubtree, Target: "A", Style: fill("blue"), Collapsed: Ptr(true)}))

	r := s.ResolveNode(NodeQuery{NodeID: "A"})
	assert.Equal(t, "blue", r.Style.Fill)
	assert.True(t, r.Collapsed)
}

func TestResolveEdge(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(Patch{Scope: ScopeGlobal, EdgeStyle: &EdgeStylePatch{Stroke: Ptr("red"), Width: Ptr(2.0)}}))
	require.NoError(t, s.Put(Patch{Scope: ScopeEdge, Target: "e1", EdgeStyle: &EdgeStylePatch{Dash: &[]float64{2, 2}}, Visible: Ptr(false)}))

	r := s.ResolveEdge(EdgeQuery{EdgeID: "e1", Base: diagram.EdgeStyle{Stroke: "grey", Width: 1}, Visible: true})
	assert.Equal(t, "red", r.Style.Stroke)
	assert.Equal(t, 2.0, r.Style.Width)
	assert.Equal(t, []float64{2, 2}, r.Style.Dash)
	assert.False(t, r.Visible)

	other := s.ResolveEdge(EdgeQuery{EdgeID: "e2", Visible: true})
	assert.True(t, other.Visible)
	assert.Empty(t, other.Style.Dash)
}

func TestInvalidScope(t *testing.T) {
	s := NewStore()
	for _, p := range []Patch{
		{Scope: "planet"},
		{Scope: ScopeGlobal, Target: "x"},
		{Scope: ScopeNode},
		{Scope: ScopeSubtree},
	} {
		err := s.Put(p)
		assert.True(t, errors.Is(err, ErrInvalidScope), "patch %+v: %v", p, err)
		assert.ErrorIs(t, s.Apply(p), ErrInvalidScope)
	}
	assert.Zero(t, s.Version())
}

func TestApplyMerges(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Apply(Patch{Scope: ScopeNode, Target: "n", Style: fill("red")}))
	require.NoError(t, s.Apply(Patch{Scope: ScopeNode, Target: "n", Style: &StylePatch{Stroke: Ptr("blue")}, Layout: &LayoutPatch{Width: Ptr(300.0)}}))

	p, ok := s.Get(ScopeNode, "n")
	require.True(t, ok)
	assert.Equal(t, "red", *p.Style.Fill)
	assert.Equal(t, "blue", *p.Style.Stroke)

	r := s.ResolveNode(NodeQuery{NodeID: "n", Layout: Layout{Width: 100, Height: 50}})
	assert.Equal(t, 300.0, r.Layout.Width)
	assert.Equal(t, 50.0, r.Layout.Height)

	// Mutating a returned patch never changes the store.
	*p.Style.Fill = "green"
	assert.Equal(t, "red", s.ResolveNode(NodeQuery{NodeID: "n"}).Style.Fill)

	assert.True(t, s.Remove(ScopeNode, "n"))
	assert.False(t, s.Remove(ScopeNode, "n"))
	assert.Empty(t, s.Patches())
}

func TestStoreCopiesPatches(t *testing.T) {
	s := NewStore()
	color := "red"
	width := 2.0
	visible := true
	p := Patch{Scope: ScopeGlobal, Style: &StylePatch{Fill: &color, StrokeWidth: &width}, Visible: &visible}
	require.NoError(t, s.Put(p))

	// Writes through the submitted patch do not reach the store.
	color, width, visible = "blue", 9, false
	r := s.ResolveNode(NodeQuery{NodeID: "n"})
	assert.Equal(t, "red", r.Style.Fill)
	assert.Equal(t, 2.0, r.Style.StrokeWidth)
	assert.True(t, r.Visible)

	// Nor do writes through patches handed out by Patches.
	for _, got := range s.Patches() {
		*got.Style.Fill = "green"
		*got.Visible = false
	}
	r = s.ResolveNode(NodeQuery{NodeID: "n"})
	assert.Equal(t, "red", r.Style.Fill)
	assert.True(t, r.Visible)

	rule, err := CompileRule("all", "true", Patch{Style: fill("purple")})
	require.NoError(t, err)
	s.AddRule(rule)
	*s.Rules()[0].Patch.Style.Fill = "orange"
	assert.Equal(t, "purple", s.ResolveNode(NodeQuery{NodeID: "n"}).Style.Fill)
}

func TestRules(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(Patch{Scope: ScopeGlobal, Style: fill("red")}))
	rule, err := CompileRule("services", `node.type == "Service" && node.depth > 0`, Patch{Style: fill("purple")})
	require.NoError(t, err)
	s.AddRule(rule)
	tier, err := CompileRule("tier", `node.metadata.tier == "db"`, Patch{Style: &StylePatch{Icon: Ptr("database")}})
	require.NoError(t, err)
	s.AddRule(tier)
	require.NoError(t, s.Put(Patch{Scope: ScopeSubtree, Target: "A", Style: fill("blue")}))

	svc := s.ResolveNode(NodeQuery{NodeID: "s", Type: "Service", AncestorIDs: []string{"root"}})
	assert.Equal(t, "purple", svc.Style.Fill)
	assert.Empty(t, svc.Style.Icon, "missing metadata key is no match")

	topLevel := s.ResolveNode(NodeQuery{NodeID: "s", Type: "Service"})
	assert.Equal(t, "red", topLevel.Style.Fill)

	nested := s.ResolveNode(NodeQuery{NodeID: "s", Type: "Service", AncestorIDs: []string{"A"}, Metadata: map[string]any{"tier": "db"}})
	assert.Equal(t, "blue", nested.Style.Fill, "subtree patches apply after rules")
	assert.Equal(t, "database", nested.Style.Icon)

	_, err = CompileRule("bad", `node.type ==`, Patch{})
	assert.Error(t, err)
	_, err = CompileRule("not bool", `"x"`, Patch{})
	assert.Error(t, err)
}

func TestStyled(t *testing.T) {
	child := &diagram.Node{GUID: "c", Width: 10, Height: 10}
	root := &diagram.Node{GUID: "r", Width: 100, Height: 100, Children: []*diagram.Node{child}}
	edges := []*diagram.Edge{{ID: "e", From: "r", To: "c"}, {ID: "hidden", From: "c", To: "r"}}

	s := NewStore()
	require.NoError(t, s.Put(Patch{Scope: ScopeSubtree, Target: "r", Style: fill("blue")}))
	require.NoError(t, s.Put(Patch{Scope: ScopeNode, Target: "c", Visible: Ptr(false)}))
	require.NoError(t, s.Put(Patch{Scope: ScopeEdge, Target: "hidden", Visible: Ptr(false)}))

	nodes, out := s.Styled([]*diagram.Node{root}, edges)
	assert.Equal(t, "blue", nodes[0].Style.Fill)
	assert.Equal(t, "blue", nodes[0].Children[0].Style.Fill)
	assert.True(t, nodes[0].Children[0].Hidden)
	assert.Empty(t, root.Style.Fill, "input is not mutated")
	require.Len(t, out, 1)
	assert.Equal(t, "e", out[0].ID)
}

func TestResolutionIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewStore()
		colors := rapid.SampledFrom([]string{"red", "green", "blue", Inherit})
		ids := rapid.SampledFrom([]string{"a", "b", "c", "d"})
		for i := range rapid.IntRange(0, 8).Draw(t, "patches") {
			scope := rapid.SampledFrom([]Scope{ScopeGlobal, ScopeSubtree, ScopeNode}).Draw(t, "scope")
			p := Patch{Scope: scope, Style: fill(colors.Draw(t, "fill")), StopCascade: rapid.Bool().Draw(t, "stop")}
			if scope != ScopeGlobal {
				p.Target = ids.Draw(t, "target")
			}
			if err := s.Apply(p); err != nil {
				t.Fatalf("patch %d: %v", i, err)
			}
		}
		q := NodeQuery{NodeID: "d", AncestorIDs: []string{"a", "b", "c"}, Base: diagram.Style{Fill: "white"}}
		first := s.ResolveNode(q)
		second := s.ResolveNode(q)
		if first.Style != second.Style {
			t.Fatalf("resolution changed: %+v vs %+v", first.Style, second.Style)
		}
		if first.Style.Fill == Inherit {
			t.Fatalf("inherit leaked into the resolved style")
		}
	})
}
