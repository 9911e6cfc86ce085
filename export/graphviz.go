package export

import (
	"fmt"
	"io"
	"strings"

	"hcanvas/diagram"
)

// GraphvizExporter exports the scene to Graphviz DOT syntax. Containers
// become clusters; an edge to a container attaches to an invisible anchor
// inside the cluster and is clipped to its border.
type GraphvizExporter struct{}

// NewGraphvizExporter creates a new Graphviz exporter
func NewGraphvizExporter() *GraphvizExporter {
	return &GraphvizExporter{}
}

// Export converts the scene to Graphviz DOT syntax
func (e *GraphvizExporter) Export(w io.Writer, view *diagram.CanvasData) error {
	if view == nil || len(view.Nodes) == 0 {
		return ErrEmpty
	}
	ids := identifiers(view.Nodes)
	containers := make(map[string]bool)

	var sb strings.Builder
	sb.WriteString("digraph G {\n")
	sb.WriteString("  compound=true;\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box];\n")
	sb.WriteString("  edge [arrowhead=normal];\n\n")

	var visit func(n *diagram.Node, depth int)
	visit = func(n *diagram.Node, depth int) {
		indent := strings.Repeat("  ", depth+1)
		id := ids[n.GUID]
		label := e.escapeLabel(nodeLabel(n))
		if !n.HasChildren() {
			if attrs := e.getNodeAttributes(n.Style); attrs != "" {
				fmt.Fprintf(&sb, "%s%s [label=\"%s\", %s];\n", indent, id, label, attrs)
			} else {
				fmt.Fprintf(&sb, "%s%s [label=\"%s\"];\n", indent, id, label)
			}
			return
		}
		containers[n.GUID] = true
		fmt.Fprintf(&sb, "%ssubgraph cluster_%s {\n", indent, id)
		fmt.Fprintf(&sb, "%s  label=\"%s\";\n", indent, label)
		if n.Style.Fill != "" {
			fmt.Fprintf(&sb, "%s  style=filled; fillcolor=\"%s\";\n", indent, n.Style.Fill)
		}
		if n.Style.Stroke != "" {
			fmt.Fprintf(&sb, "%s  color=\"%s\";\n", indent, n.Style.Stroke)
		}
		fmt.Fprintf(&sb, "%s  %s [shape=point, style=invis];\n", indent, anchor(id))
		for _, c := range n.Children {
			visit(c, depth+1)
		}
		fmt.Fprintf(&sb, "%s}\n", indent)
	}
	for _, n := range view.Nodes {
		visit(n, 0)
	}

	edges := sourceEdges(view)
	if len(edges) > 0 {
		sb.WriteString("\n")
	}
	for _, edge := range edges {
		from, ok := ids[edge.From]
		if !ok {
			continue
		}
		to, ok := ids[edge.To]
		if !ok {
			continue
		}
		var attrs []string
		if containers[edge.From] {
			attrs = append(attrs, "ltail=cluster_"+from)
			from = anchor(from)
		}
		if containers[edge.To] {
			attrs = append(attrs, "lhead=cluster_"+to)
			to = anchor(to)
		}
		attrs = append(attrs, e.getEdgeAttributes(edge)...)
		if len(attrs) > 0 {
			fmt.Fprintf(&sb, "  %s -> %s [%s];\n", from, to, strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&sb, "  %s -> %s;\n", from, to)
		}
	}

	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func anchor(id string) string { return id + "__anchor" }

// escapeLabel escapes special characters in labels
func (e *GraphvizExporter) escapeLabel(label string) string {
	label = strings.ReplaceAll(label, `\`, `\\`)
	label = strings.ReplaceAll(label, `"`, `\"`)
	return strings.ReplaceAll(label, "\n", `\n`)
}

// getNodeAttributes builds DOT attributes from a node style
func (e *GraphvizExporter) getNodeAttributes(s diagram.Style) string {
	var attrs, styles []string
	switch s.Shape {
	case diagram.ShapeEllipse:
		attrs = append(attrs, "shape=ellipse")
	case diagram.ShapePill, diagram.ShapeRounded:
		styles = append(styles, "rounded")
	}
	if s.Fill != "" {
		styles = append(styles, "filled")
		attrs = append(attrs, fmt.Sprintf("fillcolor=\"%s\"", s.Fill))
	}
	if s.Stroke != "" {
		attrs = append(attrs, fmt.Sprintf("color=\"%s\"", s.Stroke))
	}
	if s.TextColor != "" {
		attrs = append(attrs, fmt.Sprintf("fontcolor=\"%s\"", s.TextColor))
	}
	if s.StrokeWidth > 0 {
		attrs = append(attrs, fmt.Sprintf("penwidth=%g", s.StrokeWidth))
	}
	if len(styles) > 0 {
		attrs = append(attrs, fmt.Sprintf("style=\"%s\"", strings.Join(styles, ",")))
	}
	return strings.Join(attrs, ", ")
}

// getEdgeAttributes builds DOT attributes from an edge
func (e *GraphvizExporter) getEdgeAttributes(edge *diagram.Edge) []string {
	var attrs []string
	if edge.Label != "" {
		attrs = append(attrs, fmt.Sprintf("label=\"%s\"", e.escapeLabel(edge.Label)))
	}
	if dashed(edge) {
		attrs = append(attrs, "style=dashed")
	} else if thick(edge) {
		attrs = append(attrs, "penwidth=2")
	}
	if edge.Style.Stroke != "" {
		attrs = append(attrs, fmt.Sprintf("color=\"%s\"", edge.Style.Stroke))
	}
	return attrs
}

// GetFileExtension returns the file extension for DOT
func (e *GraphvizExporter) GetFileExtension() string { return ".dot" }

// GetFormatName returns the format name
func (e *GraphvizExporter) GetFormatName() string { return "Graphviz DOT" }
