package export

import (
	"strconv"
	"strings"
	"unicode"

	"hcanvas/diagram"
)

// identifiers assigns every node a unique identifier made of letters, digits
// and underscores, derived from its display id or GUID.
func identifiers(roots []*diagram.Node) map[string]string {
	ids := make(map[string]string)
	used := make(map[string]bool)
	diagram.Walk(roots, func(n, _ *diagram.Node, _ int) bool {
		base := n.ID
		if base == "" {
			base = n.GUID
		}
		id := sanitize(base)
		for i := 2; used[id]; i++ {
			id = sanitize(base) + "_" + strconv.Itoa(i)
		}
		used[id] = true
		ids[n.GUID] = id
		return true
	})
	return ids
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	id := b.String()
	if id == "" || unicode.IsDigit(rune(id[0])) {
		id = "n_" + id
	}
	return id
}

// sourceEdges returns the user's edges: the canonical list when present,
// without inherited or layout-generated edges.
func sourceEdges(view *diagram.CanvasData) []*diagram.Edge {
	edges := view.OriginalEdges
	if len(edges) == 0 {
		edges = view.Edges
	}
	out := make([]*diagram.Edge, 0, len(edges))
	for _, e := range edges {
		if e.Inherited || e.Generated {
			continue
		}
		out = append(out, e)
	}
	return out
}

func nodeLabel(n *diagram.Node) string {
	if n.Text != "" {
		return n.Text
	}
	if n.ID != "" {
		return n.ID
	}
	return n.GUID
}

func dashed(e *diagram.Edge) bool {
	if len(e.Style.Dash) > 0 {
		return true
	}
	s, _ := e.Metadata["style"].(string)
	return s == "dashed"
}

func thick(e *diagram.Edge) bool {
	s, _ := e.Metadata["style"].(string)
	return s == "thick" || e.Style.Width >= 2
}
