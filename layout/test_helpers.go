package layout

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"hcanvas/diagram"
	"hcanvas/geometry"
)

// TestValidator provides comprehensive validation for layout tests.
type TestValidator struct {
	t testing.TB
}

// NewTestValidator creates a validator for the given test.
func NewTestValidator(t testing.TB) *TestValidator {
	return &TestValidator{t: t}
}

// ValidateNoOverlaps ensures no two siblings occupy the same space.
func (v *TestValidator) ValidateNoOverlaps(nodes []*diagram.Node) {
	v.t.Helper()
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			a, b := nodes[i].LocalBounds(), nodes[j].LocalBounds()
			if overlaps(a, b) {
				v.t.Errorf("Nodes %s and %s overlap: %s and %s",
					nodes[i].ID, nodes[j].ID, boundsString(a), boundsString(b))
			}
		}
		v.ValidateNoOverlaps(nodes[i].Children)
	}
}

// ValidateContainment ensures every child lies inside its parent minus padding,
// and every parent is at least as large as its children's bounds plus padding.
func (v *TestValidator) ValidateContainment(roots []*diagram.Node, padding float64) {
	v.t.Helper()
	const tol = 1e-6
	diagram.Walk(roots, func(n, parent *diagram.Node, _ int) bool {
		if parent == nil {
			return true
		}
		inner := geometry.Rect{Width: parent.Width, Height: parent.Height}.Inset(padding)
		if !inner.ContainsRect(n.LocalBounds(), tol) {
			v.t.Errorf("Node %s %s escapes parent %s %s",
				n.ID, boundsString(n.LocalBounds()), parent.ID, boundsString(inner))
		}
		return true
	})
	diagram.Walk(roots, func(n, _ *diagram.Node, _ int) bool {
		cb, ok := diagram.ChildrenBounds(n)
		if !ok {
			return true
		}
		if n.Width+tol < cb.Right()+padding || n.Height+tol < cb.Bottom()+padding {
			v.t.Errorf("Parent %s (%gx%g) smaller than children %s plus padding %g",
				n.ID, n.Width, n.Height, boundsString(cb), padding)
		}
		return true
	})
}

// ValidateNodeSizes ensures all nodes have positive, finite dimensions.
func (v *TestValidator) ValidateNodeSizes(roots []*diagram.Node) {
	v.t.Helper()
	diagram.Walk(roots, func(n, _ *diagram.Node, _ int) bool {
		if !geometry.IsFinite(n.X, n.Y, n.Width, n.Height) {
			v.t.Errorf("Node %s has non-finite bounds: %s", n.ID, boundsString(n.LocalBounds()))
		}
		if n.Width <= 0 || n.Height <= 0 {
			v.t.Errorf("Node %s has invalid size: %gx%g", n.ID, n.Width, n.Height)
		}
		return true
	})
}

// ValidateEdges ensures every edge endpoint resolves to a node in the tree.
func (v *TestValidator) ValidateEdges(res Result) {
	v.t.Helper()
	index := diagram.IndexByGUID(res.Nodes)
	for _, e := range res.Edges {
		if index[e.From] == nil || index[e.To] == nil {
			v.t.Errorf("Edge %s references a missing node: %s -> %s", e.ID, e.From, e.To)
		}
	}
}

// ValidateDeterminism ensures the engine produces identical offsets across runs.
func (v *TestValidator) ValidateDeterminism(engine Engine, entities []Entity, rels []Relationship, runs int) {
	v.t.Helper()
	first := offsets(engine.Apply(entities, rels).Nodes)
	for i := 1; i < runs; i++ {
		got := offsets(engine.Apply(entities, rels).Nodes)
		if !sameOffsets(first, got) {
			v.t.Errorf("Layout not deterministic: run %d differs from run 0", i)
		}
	}
}

// ValidatePerformance ensures the layout completes within a time limit.
func (v *TestValidator) ValidatePerformance(engine Engine, entities []Entity, rels []Relationship, maxDuration time.Duration) {
	v.t.Helper()
	start := time.Now()
	engine.Apply(entities, rels)
	if d := time.Since(start); d > maxDuration {
		v.t.Errorf("Layout too slow: %v > %v", d, maxDuration)
	}
}

// Helper methods

func overlaps(a, b geometry.Rect) bool {
	return !(a.Right() <= b.X || b.Right() <= a.X || a.Bottom() <= b.Y || b.Bottom() <= a.Y)
}

func boundsString(r geometry.Rect) string {
	return fmt.Sprintf("[%g,%g - %g,%g]", r.X, r.Y, r.Right(), r.Bottom())
}

type offset struct {
	id   string
	rect geometry.Rect
}

// offsets flattens the tree into display id + local bounds, in walk order.
func offsets(roots []*diagram.Node) []offset {
	var out []offset
	diagram.Walk(roots, func(n, _ *diagram.Node, _ int) bool {
		out = append(out, offset{n.ID, n.LocalBounds()})
		return true
	})
	return out
}

func sameOffsets(a, b []offset) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].id != b[i].id || a[i].rect != b[i].rect {
			return false
		}
	}
	return true
}

func countNodes(roots []*diagram.Node) int {
	count := 0
	diagram.Walk(roots, func(*diagram.Node, *diagram.Node, int) bool {
		count++
		return true
	})
	return count
}

// Graph generators for stress testing

// GenerateLinearChain creates a simple A->B->C... chain of relationships.
func GenerateLinearChain(length int) ([]Entity, []Relationship) {
	entities := make([]Entity, length)
	var rels []Relationship
	for i := 0; i < length; i++ {
		entities[i] = Entity{ID: fmt.Sprintf("n%d", i), Name: fmt.Sprintf("Node %d", i)}
		if i > 0 {
			rels = append(rels, Relationship{Type: "LINKS", From: entities[i-1].ID, To: entities[i].ID})
		}
	}
	return entities, rels
}

// GenerateTree creates a CONTAINS hierarchy with the given depth (levels
// including the root) and branching factor.
func GenerateTree(depth, branchingFactor int) ([]Entity, []Relationship) {
	entities := []Entity{{ID: "n0", Name: "Root"}}
	var rels []Relationship
	next := 0

	var generateLevel func(parent string, level int)
	generateLevel = func(parent string, level int) {
		if level >= depth {
			return
		}
		for i := 0; i < branchingFactor; i++ {
			next++
			id := fmt.Sprintf("n%d", next)
			entities = append(entities, Entity{ID: id, Name: fmt.Sprintf("N%d", next)})
			rels = append(rels, Relationship{Type: RelContains, From: parent, To: id})
			generateLevel(id, level+1)
		}
	}
	generateLevel("n0", 1)
	return entities, rels
}

// GenerateStarGraph creates a hub connected to many spokes.
func GenerateStarGraph(spokeCount int) ([]Entity, []Relationship) {
	entities := []Entity{{ID: "hub", Name: "Hub"}}
	rels := make([]Relationship, 0, spokeCount)
	for i := 1; i <= spokeCount; i++ {
		id := fmt.Sprintf("spoke%d", i)
		entities = append(entities, Entity{ID: id, Name: fmt.Sprintf("Spoke %d", i)})
		rels = append(rels, Relationship{Type: "LINKS", From: "hub", To: id})
	}
	return entities, rels
}

// GenerateCycle creates a simple cycle A->B->...->A.
func GenerateCycle(length int) ([]Entity, []Relationship) {
	entities, rels := GenerateLinearChain(length)
	rels = append(rels, Relationship{Type: "LINKS", From: entities[length-1].ID, To: entities[0].ID})
	return entities, rels
}

// GenerateRandomDAG creates a random directed acyclic graph from a seed.
func GenerateRandomDAG(nodeCount int, edgeProbability float64, seed int64) ([]Entity, []Relationship) {
	rng := rand.New(rand.NewSource(seed))
	entities, _ := GenerateLinearChain(nodeCount)
	var rels []Relationship
	// Edges only run from lower to higher index.
	for i := 0; i < nodeCount; i++ {
		for j := i + 1; j < nodeCount; j++ {
			if rng.Float64() < edgeProbability {
				rels = append(rels, Relationship{Type: "LINKS", From: entities[i].ID, To: entities[j].ID})
			}
		}
	}
	return entities, rels
}

// GenerateHierarchy creates count entities spread over a CONTAINS hierarchy
// of the given depth. Every non-leaf level gets roughly the same fan-out.
func GenerateHierarchy(count, depth int) ([]Entity, []Relationship) {
	fanout := max(2, int(math.Ceil(math.Pow(float64(count), 1/float64(depth)))))
	entities := make([]Entity, 0, count)
	var rels []Relationship
	levels := [][]string{{}}
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("e%02d", i)
		entities = append(entities, Entity{ID: id, Name: fmt.Sprintf("Entity %d", i), Type: "Component"})
		level := len(levels) - 1
		if level > 0 {
			parents := levels[level-1]
			parent := parents[(len(levels[level]))/fanout%len(parents)]
			rels = append(rels, Relationship{Type: RelContains, From: parent, To: id})
		}
		levels[level] = append(levels[level], id)
		if len(levels) < depth && len(levels[level]) >= pow(fanout, level) {
			levels = append(levels, nil)
		}
	}
	return entities, rels
}

func pow(base, exp int) int {
	r := 1
	for range exp {
		r *= base
	}
	return r
}

// GenerateDisconnectedComponents creates multiple separate chains.
func GenerateDisconnectedComponents(componentCount, nodesPerComponent int) ([]Entity, []Relationship) {
	var entities []Entity
	var rels []Relationship
	for c := 0; c < componentCount; c++ {
		for i := 0; i < nodesPerComponent; i++ {
			id := fmt.Sprintf("c%d-n%d", c, i)
			entities = append(entities, Entity{ID: id, Name: fmt.Sprintf("C%d-N%d", c, i)})
			if i > 0 {
				rels = append(rels, Relationship{Type: "LINKS", From: fmt.Sprintf("c%d-n%d", c, i-1), To: id})
			}
		}
	}
	return entities, rels
}
