package diagram

import (
	"maps"
	"slices"
)

// Clone creates a deep copy of the snapshot.
func (d *CanvasData) Clone() *CanvasData {
	if d == nil {
		return nil
	}
	return &CanvasData{
		Nodes:         CloneNodes(d.Nodes),
		Edges:         CloneEdges(d.Edges),
		OriginalEdges: CloneEdges(d.OriginalEdges),
		Camera:        d.Camera,
	}
}

// CloneNodes deep-copies a forest.
func CloneNodes(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// Clone deep-copies the node and its subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Metadata = cloneMetadata(n.Metadata)
	c.Children = CloneNodes(n.Children)
	return &c
}

// CloneEdges deep-copies an edge list.
func CloneEdges(edges []*Edge) []*Edge {
	if edges == nil {
		return nil
	}
	out := make([]*Edge, len(edges))
	for i, e := range edges {
		out[i] = e.Clone()
	}
	return out
}

// Clone deep-copies the edge.
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	c := *e
	c.Style.Dash = slices.Clone(e.Style.Dash)
	c.Waypoints = slices.Clone(e.Waypoints)
	c.Metadata = cloneMetadata(e.Metadata)
	return &c
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		switch t := v.(type) {
		case map[string]any:
			out[k] = cloneMetadata(t)
		case []any:
			out[k] = slices.Clone(t)
		case []string:
			out[k] = slices.Clone(t)
		}
	}
	return out
}
