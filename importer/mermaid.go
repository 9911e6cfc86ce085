package importer

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"hcanvas/diagram"
	"hcanvas/layout"
)

var (
	mermaidID       = regexp.MustCompile(`[A-Za-z0-9_]+`)
	mermaidLeading  = regexp.MustCompile(`^\s*([A-Za-z0-9_]+)`)
	mermaidLink     = regexp.MustCompile(`^\s*(<-->|-\.->|-\.-|==>|===|-->|---|--o|--x)\s*(?:\|([^|]*)\|)?\s*([A-Za-z0-9_]+)`)
	mermaidSubgraph = regexp.MustCompile(`^subgraph\s+([A-Za-z0-9_]+)\s*(?:\[(.*)\])?\s*$`)
	mermaidStyle    = regexp.MustCompile(`^style\s+([A-Za-z0-9_]+)\s+(.*)$`)
)

// Bracket pairs in match order: longer openers first.
var mermaidShapes = []struct {
	open, close string
	shape       diagram.Shape
}{
	{"([", "])", diagram.ShapePill},
	{"[(", ")]", diagram.ShapePill},
	{"[[", "]]", diagram.ShapeRect},
	{"((", "))", diagram.ShapeEllipse},
	{"{{", "}}", diagram.ShapeRounded},
	{"[", "]", diagram.ShapeRect},
	{"(", ")", diagram.ShapeRounded},
	{"{", "}", diagram.ShapeRounded},
	{">", "]", diagram.ShapeRect},
}

// MermaidImporter imports Mermaid flowcharts. Subgraphs become parent
// entities of the nodes first declared inside them.
type MermaidImporter struct{}

// NewMermaidImporter creates a new Mermaid importer
func NewMermaidImporter() *MermaidImporter {
	return &MermaidImporter{}
}

// CanImport checks if the content is a Mermaid flowchart
func (m *MermaidImporter) CanImport(content string) bool {
	head := firstLine(strings.TrimSpace(content))
	return strings.HasPrefix(head, "graph") || strings.HasPrefix(head, "flowchart")
}

// GetFormatName returns the format name
func (m *MermaidImporter) GetFormatName() string {
	return "Mermaid"
}

// GetFileExtensions returns common file extensions
func (m *MermaidImporter) GetFileExtensions() []string {
	return []string{".mmd", ".mermaid"}
}

// Import converts a Mermaid flowchart to layout input
func (m *MermaidImporter) Import(content string) (*Graph, error) {
	if !m.CanImport(content) {
		return nil, errors.New("unsupported Mermaid diagram type")
	}
	g := &Graph{}
	index := make(map[string]int)
	var stack []string

	ensure := func(id string) *layout.Entity {
		if i, ok := index[id]; ok {
			return &g.Entities[i]
		}
		e := layout.Entity{ID: id, Name: id}
		if len(stack) > 0 {
			e.Parent = stack[len(stack)-1]
		}
		g.Entities = append(g.Entities, e)
		index[id] = len(g.Entities) - 1
		return &g.Entities[len(g.Entities)-1]
	}
	setProp := func(e *layout.Entity, key string, value any) {
		if e.Properties == nil {
			e.Properties = make(map[string]any)
		}
		e.Properties[key] = value
	}

	lines := strings.Split(strings.TrimSpace(content), "\n")
	for _, line := range lines[1:] {
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ";"))
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}

		switch {
		case line == "end":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		case strings.HasPrefix(line, "subgraph "):
			var id, title string
			if sm := mermaidSubgraph.FindStringSubmatch(line); sm != nil {
				id, title = sm[1], strings.Trim(sm[2], `"`)
			} else {
				title = strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "subgraph ")), `"`)
				id = strings.ReplaceAll(title, " ", "_")
			}
			e := ensure(id)
			if title != "" {
				e.Name = title
			}
			stack = append(stack, id)
			continue
		case strings.HasPrefix(line, "style "):
			if sm := mermaidStyle.FindStringSubmatch(line); sm != nil {
				e := ensure(sm[1])
				for _, decl := range strings.Split(sm[2], ",") {
					k, v, ok := strings.Cut(decl, ":")
					if !ok {
						continue
					}
					v = strings.TrimSpace(v)
					switch strings.TrimSpace(k) {
					case "fill":
						setProp(e, "fill", normalizeColor(v))
					case "stroke":
						setProp(e, "stroke", normalizeColor(v))
					case "color":
						setProp(e, "textColor", normalizeColor(v))
					case "stroke-width":
						if f, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64); err == nil {
							setProp(e, "strokeWidth", f)
						}
					}
				}
			}
			continue
		case strings.HasPrefix(line, "classDef "), strings.HasPrefix(line, "class "),
			strings.HasPrefix(line, "linkStyle "), strings.HasPrefix(line, "click "),
			strings.HasPrefix(line, "direction "):
			continue
		}

		line = declarations(line, func(id, text string, shape diagram.Shape) {
			e := ensure(id)
			if text != "" {
				e.Name = text
			}
			setProp(e, "shape", string(shape))
		})

		lead := mermaidLeading.FindStringSubmatch(line)
		if lead == nil {
			continue
		}
		prev := lead[1]
		ensure(prev)
		rest := line[len(lead[0]):]
		for {
			lm := mermaidLink.FindStringSubmatch(rest)
			if lm == nil {
				break
			}
			arrow, label, next := lm[1], strings.TrimSpace(lm[2]), lm[3]
			ensure(next)
			rel := layout.Relationship{Type: RelConnects, From: prev, To: next, Label: label}
			switch {
			case strings.Contains(arrow, "."):
				rel.Properties = map[string]any{"style": "dashed"}
			case strings.HasPrefix(arrow, "="):
				rel.Properties = map[string]any{"style": "thick"}
			}
			g.Relationships = append(g.Relationships, rel)
			if arrow == "<-->" {
				g.Relationships = append(g.Relationships,
					layout.Relationship{Type: RelConnects, From: next, To: prev, Label: label})
			}
			rest = rest[len(lm[0]):]
			prev = next
		}
	}

	if len(g.Entities) == 0 {
		return nil, errors.New("no nodes found in Mermaid diagram")
	}
	return g, nil
}

// declarations reports every id[text]-style node declaration in line and
// returns the line with the bracketed parts removed.
func declarations(line string, declare func(id, text string, shape diagram.Shape)) string {
	var out strings.Builder
	for i := 0; i < len(line); {
		loc := mermaidID.FindStringIndex(line[i:])
		if loc == nil {
			out.WriteString(line[i:])
			break
		}
		start, end := i+loc[0], i+loc[1]
		out.WriteString(line[i:end])
		i = end
		for _, s := range mermaidShapes {
			if !strings.HasPrefix(line[i:], s.open) {
				continue
			}
			body := line[i+len(s.open):]
			closeAt := strings.Index(body, s.close)
			if closeAt < 0 {
				continue
			}
			text := strings.Trim(strings.TrimSpace(body[:closeAt]), `"`)
			declare(line[start:end], text, s.shape)
			i += len(s.open) + closeAt + len(s.close)
			break
		}
	}
	return out.String()
}
