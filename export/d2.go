package export

import (
	"fmt"
	"io"
	"strings"

	"hcanvas/diagram"
)

// D2Exporter exports the scene to D2 syntax. Containers become nested
// blocks and edges address nodes by dotted path.
type D2Exporter struct{}

// NewD2Exporter creates a new D2 exporter
func NewD2Exporter() *D2Exporter {
	return &D2Exporter{}
}

// Export converts the scene to D2 syntax
func (e *D2Exporter) Export(w io.Writer, view *diagram.CanvasData) error {
	if view == nil || len(view.Nodes) == 0 {
		return ErrEmpty
	}
	ids := identifiers(view.Nodes)
	paths := make(map[string]string)
	var sb strings.Builder

	var visit func(n *diagram.Node, prefix string, depth int)
	visit = func(n *diagram.Node, prefix string, depth int) {
		indent := strings.Repeat("  ", depth)
		id := ids[n.GUID]
		paths[n.GUID] = prefix + id
		label := e.escapeLabel(nodeLabel(n))
		if n.HasChildren() {
			fmt.Fprintf(&sb, "%s%s: %s {\n", indent, id, label)
			for _, c := range n.Children {
				visit(c, prefix+id+".", depth+1)
			}
			fmt.Fprintf(&sb, "%s}\n", indent)
		} else {
			fmt.Fprintf(&sb, "%s%s: %s\n", indent, id, label)
		}
		e.writeNodeAttributes(&sb, indent, id+".", n.Style)
	}
	for _, n := range view.Nodes {
		visit(n, "", 0)
	}

	edges := sourceEdges(view)
	if len(edges) > 0 {
		sb.WriteString("\n")
	}
	seen := make(map[[2]string]int)
	for _, edge := range edges {
		from, ok := paths[edge.From]
		if !ok {
			continue
		}
		to, ok := paths[edge.To]
		if !ok {
			continue
		}
		arrow := "->"
		if thick(edge) {
			arrow = "=>"
		}
		if edge.Label != "" {
			fmt.Fprintf(&sb, "%s %s %s: %s\n", from, arrow, to, e.escapeLabel(edge.Label))
		} else {
			fmt.Fprintf(&sb, "%s %s %s\n", from, arrow, to)
		}

		key := [2]string{from, to}
		connID := fmt.Sprintf("(%s %s %s)[%d]", from, arrow, to, seen[key])
		seen[key]++
		if dashed(edge) {
			fmt.Fprintf(&sb, "%s.style.stroke-dash: 3\n", connID)
		}
		if edge.Style.Stroke != "" {
			fmt.Fprintf(&sb, "%s.style.stroke: %q\n", connID, edge.Style.Stroke)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// writeNodeAttributes writes shape and style lines addressed by prefix.
func (e *D2Exporter) writeNodeAttributes(sb *strings.Builder, indent, prefix string, s diagram.Style) {
	switch s.Shape {
	case diagram.ShapeEllipse:
		fmt.Fprintf(sb, "%s%sshape: oval\n", indent, prefix)
	case diagram.ShapePill:
		fmt.Fprintf(sb, "%s%sshape: queue\n", indent, prefix)
	}
	if s.Icon != "" {
		fmt.Fprintf(sb, "%s%sicon: %s\n", indent, prefix, s.Icon)
	}
	attrs := []struct {
		key, value string
	}{
		{"fill", s.Fill},
		{"stroke", s.Stroke},
		{"font-color", s.TextColor},
	}
	for _, a := range attrs {
		if a.value != "" {
			fmt.Fprintf(sb, "%s%sstyle.%s: %q\n", indent, prefix, a.key, a.value)
		}
	}
	if s.StrokeWidth > 0 {
		fmt.Fprintf(sb, "%s%sstyle.stroke-width: %g\n", indent, prefix, s.StrokeWidth)
	}
	if s.Shape == diagram.ShapeRounded && s.CornerRadius > 0 {
		fmt.Fprintf(sb, "%s%sstyle.border-radius: %g\n", indent, prefix, s.CornerRadius)
	}
}

// escapeLabel quotes labels containing characters D2 would parse.
func (e *D2Exporter) escapeLabel(label string) string {
	label = strings.ReplaceAll(label, "\n", `\n`)
	if !strings.ContainsAny(label, ":-><|{}[]()\"#;") {
		return label
	}
	label = strings.ReplaceAll(label, `\`, `\\`)
	label = strings.ReplaceAll(label, `"`, `\"`)
	return `"` + label + `"`
}

// GetFileExtension returns the file extension for D2
func (e *D2Exporter) GetFileExtension() string { return ".d2" }

// GetFormatName returns the format name
func (e *D2Exporter) GetFormatName() string { return "D2" }
