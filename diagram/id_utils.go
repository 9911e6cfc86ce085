package diagram

import (
	"fmt"

	"github.com/google/uuid"
)

// NewGUID returns a random 128-bit identifier.
func NewGUID() string {
	return uuid.NewString()
}

// EnsureGUIDs gives every node without a GUID a fresh one. Existing GUIDs are
// never rewritten. It returns the number of GUIDs assigned.
func EnsureGUIDs(roots []*Node) int {
	assigned := 0
	Walk(roots, func(n, _ *Node, _ int) bool {
		if n.GUID == "" {
			n.GUID = NewGUID()
			assigned++
		}
		return true
	})
	return assigned
}

// EnsureUniqueEdgeIDs fills in missing edge IDs and renames duplicates so that
// every edge in the list has a distinct ID. The first occurrence keeps its ID.
func EnsureUniqueEdgeIDs(edges []*Edge) {
	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		if e.ID != "" && !seen[e.ID] {
			seen[e.ID] = true
			continue
		}
		base := e.ID
		if base == "" {
			base = fmt.Sprintf("%s->%s", e.From, e.To)
		}
		id := base
		for i := 1; seen[id]; i++ {
			id = fmt.Sprintf("%s#%d", base, i)
		}
		e.ID = id
		seen[id] = true
	}
}

// IndexByGUID maps every node GUID to its node.
func IndexByGUID(roots []*Node) map[string]*Node {
	idx := make(map[string]*Node)
	Walk(roots, func(n, _ *Node, _ int) bool {
		if n.GUID != "" {
			idx[n.GUID] = n
		}
		return true
	})
	return idx
}

// DropOrphanEdges returns the edges whose endpoints both resolve to a node in
// the tree. Orphans are dropped, never rendered.
func DropOrphanEdges(roots []*Node, edges []*Edge) []*Edge {
	idx := IndexByGUID(roots)
	out := edges[:0:0]
	for _, e := range edges {
		if e == nil {
			continue
		}
		if idx[e.From] != nil && idx[e.To] != nil {
			out = append(out, e)
		}
	}
	return out
}
