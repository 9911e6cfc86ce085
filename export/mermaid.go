package export

import (
	"fmt"
	"io"
	"strings"

	"hcanvas/diagram"
)

// MermaidExporter exports the scene as a Mermaid flowchart. Containers
// become subgraphs.
type MermaidExporter struct {
	// Direction is the flowchart direction, TD by default.
	Direction string
}

// NewMermaidExporter creates a new Mermaid exporter
func NewMermaidExporter() *MermaidExporter {
	return &MermaidExporter{Direction: "TD"}
}

// Export converts the scene to Mermaid syntax
func (e *MermaidExporter) Export(w io.Writer, view *diagram.CanvasData) error {
	if view == nil || len(view.Nodes) == 0 {
		return ErrEmpty
	}
	ids := identifiers(view.Nodes)
	var sb strings.Builder
	fmt.Fprintf(&sb, "flowchart %s\n", e.Direction)

	var styles []string
	var visit func(n *diagram.Node, depth int)
	visit = func(n *diagram.Node, depth int) {
		indent := strings.Repeat("    ", depth+1)
		id := ids[n.GUID]
		if n.HasChildren() {
			fmt.Fprintf(&sb, "%ssubgraph %s [%s]\n", indent, id, e.escapeLabel(nodeLabel(n)))
			for _, c := range n.Children {
				visit(c, depth+1)
			}
			fmt.Fprintf(&sb, "%send\n", indent)
		} else {
			open, closing := e.brackets(n.Style.Shape)
			fmt.Fprintf(&sb, "%s%s%s%s%s\n", indent, id, open, e.escapeLabel(nodeLabel(n)), closing)
		}
		if s := e.style(n.Style); s != "" {
			styles = append(styles, fmt.Sprintf("    style %s %s\n", id, s))
		}
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
		arrow := "-->"
		switch {
		case dashed(edge):
			arrow = "-.->"
		case thick(edge):
			arrow = "==>"
		}
		if edge.Label != "" {
			fmt.Fprintf(&sb, "    %s %s|%s| %s\n", from, arrow, strings.ReplaceAll(edge.Label, "|", "/"), to)
		} else {
			fmt.Fprintf(&sb, "    %s %s %s\n", from, arrow, to)
		}
	}

	for _, s := range styles {
		sb.WriteString(s)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (e *MermaidExporter) brackets(shape diagram.Shape) (string, string) {
	switch shape {
	case diagram.ShapeEllipse:
		return "((", "))"
	case diagram.ShapePill:
		return "([", "])"
	case diagram.ShapeRounded:
		return "(", ")"
	default:
		return "[", "]"
	}
}

// escapeLabel quotes a label, replacing quotes with the Mermaid entity.
func (e *MermaidExporter) escapeLabel(label string) string {
	label = strings.ReplaceAll(label, `"`, "#quot;")
	label = strings.ReplaceAll(label, "\n", "<br/>")
	return `"` + label + `"`
}

func (e *MermaidExporter) style(s diagram.Style) string {
	var parts []string
	if s.Fill != "" {
		parts = append(parts, "fill:"+s.Fill)
	}
	if s.Stroke != "" {
		parts = append(parts, "stroke:"+s.Stroke)
	}
	if s.TextColor != "" {
		parts = append(parts, "color:"+s.TextColor)
	}
	if s.StrokeWidth > 0 {
		parts = append(parts, fmt.Sprintf("stroke-width:%gpx", s.StrokeWidth))
	}
	return strings.Join(parts, ",")
}

// GetFileExtension returns the file extension for Mermaid
func (e *MermaidExporter) GetFileExtension() string { return ".mmd" }

// GetFormatName returns the format name
func (e *MermaidExporter) GetFormatName() string { return "Mermaid" }
