// Package inherit derives the rendered edge list from the original edges and
// the current collapse state. Edges whose endpoint is hidden are redirected
// to the nearest visible ancestor of that endpoint.
package inherit

import (
	"fmt"

	"hcanvas/diagram"
)

// Metadata keys set on inherited edges.
const (
	MetaInherited   = "inherited"
	MetaCount       = "inheritedCount"
	MetaOriginalIDs = "originalIds"
)

// Options controls how inherited edges are drawn.
type Options struct {
	Dash   []float64
	Darken float64 // lightness reduction in [0, 1]
}

// DefaultOptions returns dashed edges darkened by a quarter.
func DefaultOptions() Options {
	return Options{Dash: []float64{6, 4}, Darken: 0.25}
}

// Visibility maps every node GUID to whether the node is rendered: a node is
// visible when neither it nor an ancestor is hidden and no ancestor is
// collapsed.
func Visibility(roots []*diagram.Node) map[string]bool {
	vis := make(map[string]bool)
	var visit func(n *diagram.Node, shown bool)
	visit = func(n *diagram.Node, shown bool) {
		v := shown && !n.Hidden
		vis[n.GUID] = v
		for _, c := range n.Children {
			visit(c, v && !n.Collapsed)
		}
	}
	for _, r := range roots {
		visit(r, true)
	}
	return vis
}

// Anchors maps every node GUID to the GUID of the node that represents it on
// screen: itself when visible, otherwise its nearest visible ancestor. Nodes
// with no visible ancestor map to "".
func Anchors(roots []*diagram.Node) map[string]string {
	anchors := make(map[string]string)
	var visit func(n *diagram.Node, shown bool, anchor string)
	visit = func(n *diagram.Node, shown bool, anchor string) {
		v := shown && !n.Hidden
		if v {
			anchor = n.GUID
		}
		anchors[n.GUID] = anchor
		for _, c := range n.Children {
			visit(c, v && !n.Collapsed, anchor)
		}
	}
	for _, r := range roots {
		visit(r, true, "")
	}
	return anchors
}

// Resolve returns the live edge list for the current collapse state. The
// original edges are never modified; every returned edge is a fresh copy.
//
// An edge with both endpoints visible is kept as is. Otherwise each hidden
// endpoint is replaced by its anchor and the edge is marked inherited.
// Inherited edges that end up on a single node are dropped, and those that
// share (from, to, type) are merged into one edge carrying the count.
func Resolve(roots []*diagram.Node, original []*diagram.Edge, opts Options) []*diagram.Edge {
	anchors := Anchors(roots)
	out := make([]*diagram.Edge, 0, len(original))
	merged := make(map[string]*diagram.Edge)

	for _, e := range original {
		if e == nil {
			continue
		}
		from, okFrom := anchors[e.From]
		to, okTo := anchors[e.To]
		if !okFrom || !okTo || from == "" || to == "" {
			continue
		}
		if from == e.From && to == e.To {
			out = append(out, e.Clone())
			continue
		}
		if from == to {
			continue
		}

		key := inheritedID(from, to, e.Type)
		if m, ok := merged[key]; ok {
			m.Metadata[MetaCount] = m.Metadata[MetaCount].(int) + 1
			m.Metadata[MetaOriginalIDs] = append(m.Metadata[MetaOriginalIDs].([]string), e.ID)
			continue
		}
		m := e.Clone()
		m.ID = key
		m.From, m.To = from, to
		m.Inherited = true
		m.OriginalID = e.ID
		m.Waypoints = nil
		m.Style = inheritedStyle(e.Style, opts)
		if m.Metadata == nil {
			m.Metadata = make(map[string]any)
		}
		m.Metadata[MetaInherited] = true
		m.Metadata[MetaCount] = 1
		m.Metadata[MetaOriginalIDs] = []string{e.ID}
		merged[key] = m
		out = append(out, m)
	}
	return out
}

func inheritedID(from, to, typ string) string {
	return fmt.Sprintf("inherited:%s:%s:%s", from, to, typ)
}

func inheritedStyle(s diagram.EdgeStyle, opts Options) diagram.EdgeStyle {
	if s.Stroke != "" && opts.Darken > 0 {
		s.Stroke = diagram.Darken(s.Stroke, opts.Darken)
	}
	if len(opts.Dash) > 0 {
		s.Dash = append([]float64(nil), opts.Dash...)
	}
	return s
}
