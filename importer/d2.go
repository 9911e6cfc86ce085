package importer

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"hcanvas/diagram"
	"hcanvas/layout"
)

// RelConnects is the relationship type given to imported connections.
const RelConnects = "CONNECTS"

var (
	d2Container  = regexp.MustCompile(`^([^:{}]+?)\s*(?::\s*(.*?))?\s*\{$`)
	d2Connection = regexp.MustCompile(`^([^-<=]+?)\s*(->|=>|<->|<-|--)\s*([^:]+?)(?:\s*:\s*(.*))?$`)
	d2EdgeStyle  = regexp.MustCompile(`^\(.*\)\[\d+\]\.style\.([^:]+):\s*(.*)$`)
	d2Style      = regexp.MustCompile(`^(.+?)\.style\.([^:]+):\s*(.*)$`)
	d2Attr       = regexp.MustCompile(`^(.+?)\.(shape|icon|width|height):\s*(.*)$`)
	d2Node       = regexp.MustCompile(`^([^:]+?)\s*:\s*(.*)$`)
)

// D2Importer imports the D2 diagram format. Containers become parent
// entities; dotted paths address nested shapes.
type D2Importer struct{}

// NewD2Importer creates a new D2 importer
func NewD2Importer() *D2Importer {
	return &D2Importer{}
}

// CanImport checks if the content is a D2 diagram
func (d *D2Importer) CanImport(content string) bool {
	content = strings.TrimSpace(content)
	hasArrows := strings.Contains(content, "->") || strings.Contains(content, "<->") || strings.Contains(content, "--") || strings.Contains(content, "=>")
	hasNoOtherMarkers := !strings.HasPrefix(content, "{") &&
		!strings.HasPrefix(content, "graph") &&
		!strings.HasPrefix(content, "flowchart") &&
		!strings.HasPrefix(content, "digraph") &&
		!strings.HasPrefix(content, "@startuml")
	hasD2Syntax := strings.Contains(content, ".shape:") || strings.Contains(content, ".style.") ||
		strings.HasSuffix(firstLine(content), "{")
	return (hasArrows || hasD2Syntax) && hasNoOtherMarkers
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

// d2Builder accumulates entities keyed by their full dotted path.
type d2Builder struct {
	graph *Graph
	index map[string]int
}

func (b *d2Builder) ensure(path string) *layout.Entity {
	if i, ok := b.index[path]; ok {
		return &b.graph.Entities[i]
	}
	parent := ""
	if i := strings.LastIndex(path, "."); i >= 0 {
		parent = path[:i]
		b.ensure(parent)
	}
	b.graph.Entities = append(b.graph.Entities, layout.Entity{
		ID:     path,
		Name:   displayName(path),
		Parent: parent,
	})
	b.index[path] = len(b.graph.Entities) - 1
	return &b.graph.Entities[len(b.graph.Entities)-1]
}

func (b *d2Builder) setProp(path, key string, value any) {
	ent := b.ensure(path)
	if ent.Properties == nil {
		ent.Properties = make(map[string]any)
	}
	ent.Properties[key] = value
}

// Import converts D2 content to layout input
func (d *D2Importer) Import(content string) (*Graph, error) {
	b := &d2Builder{graph: &Graph{}, index: make(map[string]int)}
	var stack []string
	scoped := func(name string) string {
		name = unquote(name)
		if len(stack) == 0 {
			return name
		}
		return strings.Join(stack, ".") + "." + name
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if line == "}" {
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}

		// (a -> b)[0].style.stroke: red
		if m := d2EdgeStyle.FindStringSubmatch(line); m != nil {
			rels := b.graph.Relationships
			if len(rels) > 0 {
				last := &rels[len(rels)-1]
				if last.Properties == nil {
					last.Properties = make(map[string]any)
				}
				applyD2Style(last.Properties, strings.TrimSpace(m[1]), unquote(m[2]))
			}
			continue
		}

		if m := d2Container.FindStringSubmatch(line); m != nil {
			path := scoped(strings.TrimSpace(m[1]))
			ent := b.ensure(path)
			if label := unquote(m[2]); label != "" {
				ent.Name = label
			}
			stack = append(stack, unquote(strings.TrimSpace(m[1])))
			continue
		}

		if m := d2Connection.FindStringSubmatch(line); m != nil {
			from, to := scoped(strings.TrimSpace(m[1])), scoped(strings.TrimSpace(m[3]))
			arrow, label := m[2], unquote(m[4])
			if arrow == "<-" {
				from, to = to, from
			}
			b.ensure(from)
			b.ensure(to)
			rel := layout.Relationship{Type: RelConnects, From: from, To: to, Label: label}
			switch arrow {
			case "--":
				rel.Properties = map[string]any{"style": "dashed"}
			case "=>":
				rel.Properties = map[string]any{"style": "thick"}
			}
			b.graph.Relationships = append(b.graph.Relationships, rel)
			if arrow == "<->" {
				b.graph.Relationships = append(b.graph.Relationships,
					layout.Relationship{Type: RelConnects, From: to, To: from, Label: label})
			}
			continue
		}

		if m := d2Style.FindStringSubmatch(line); m != nil {
			ent := b.ensure(scoped(m[1]))
			if ent.Properties == nil {
				ent.Properties = make(map[string]any)
			}
			applyD2Style(ent.Properties, strings.TrimSpace(m[2]), unquote(m[3]))
			continue
		}

		if m := d2Attr.FindStringSubmatch(line); m != nil {
			path, value := scoped(m[1]), unquote(m[3])
			switch m[2] {
			case "shape":
				if shape, ok := normalizeShape(value); ok {
					b.setProp(path, "shape", string(shape))
				} else {
					b.ensure(path)
				}
			case "icon":
				b.setProp(path, "icon", value)
			case "width", "height":
				f, err := strconv.ParseFloat(value, 64)
				ent := b.ensure(path)
				if err == nil && m[2] == "width" {
					ent.Width = f
				} else if err == nil {
					ent.Height = f
				}
			}
			continue
		}

		if m := d2Node.FindStringSubmatch(line); m != nil {
			ent := b.ensure(scoped(m[1]))
			if label := unquote(m[2]); label != "" {
				ent.Name = strings.ReplaceAll(label, `\n`, "\n")
			}
			continue
		}

		// A bare shape declaration.
		b.ensure(scoped(line))
	}

	if len(b.graph.Entities) == 0 {
		return nil, errors.New("no shapes found in D2 diagram")
	}
	return b.graph, nil
}

func applyD2Style(props map[string]any, prop, value string) {
	switch prop {
	case "fill":
		props["fill"] = normalizeColor(value)
	case "stroke":
		props["stroke"] = normalizeColor(value)
	case "font-color":
		props["textColor"] = normalizeColor(value)
	case "border-radius":
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			props["cornerRadius"] = f
		}
	case "stroke-dash":
		props["style"] = "dashed"
	case "stroke-width":
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			props["strokeWidth"] = f
		}
	}
}

// unquote removes quotes from a string
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		return s[1 : len(s)-1]
	}
	return s
}

// displayName extracts the last part of a dotted name for display
func displayName(fullName string) string {
	parts := strings.Split(fullName, ".")
	return parts[len(parts)-1]
}

// normalizeShape maps D2 shape names onto the drawable shapes.
func normalizeShape(shape string) (diagram.Shape, bool) {
	switch strings.ToLower(shape) {
	case "rectangle", "square", "sql_table", "class":
		return diagram.ShapeRect, true
	case "circle", "oval":
		return diagram.ShapeEllipse, true
	case "step", "stored_data", "queue":
		return diagram.ShapePill, true
	case "package", "page", "document", "cylinder", "cloud", "hexagon", "diamond", "callout":
		return diagram.ShapeRounded, true
	}
	return "", false
}

// normalizeColor turns bare hex digits into a #-prefixed colour and keeps
// named colours as they are.
func normalizeColor(color string) string {
	color = strings.Trim(strings.TrimSpace(color), `"`)
	if strings.HasPrefix(color, "#") {
		return color
	}
	if _, ok := diagram.ParseColor("#" + color); ok && (len(color) == 3 || len(color) == 6) {
		return "#" + color
	}
	return strings.ToLower(color)
}

// GetFormatName returns the format name
func (d *D2Importer) GetFormatName() string {
	return "D2"
}

// GetFileExtensions returns common file extensions
func (d *D2Importer) GetFileExtensions() []string {
	return []string{".d2"}
}
