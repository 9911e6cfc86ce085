package importer

import (
	"fmt"
	"maps"
	"strings"

	json "github.com/goccy/go-json"

	"hcanvas/events"
	"hcanvas/layout"
)

// DefaultRelationshipType is used when a relationship carries no type.
const DefaultRelationshipType = "RELATIONSHIP"

// GraphResponseImporter reads query responses: either canonical
// {nodes, relationships} lists or raw result rows whose values are node and
// relationship objects. Identifier spellings (GUID, guid, parentGUID,
// parent_guid, fromGUID, source_guid, ...) are normalised here, once.
type GraphResponseImporter struct{}

// NewGraphResponseImporter creates a new graph response importer.
func NewGraphResponseImporter() *GraphResponseImporter {
	return &GraphResponseImporter{}
}

// CanImport reports whether content is a JSON object with nodes or rows.
func (g *GraphResponseImporter) CanImport(content string) bool {
	if !strings.HasPrefix(strings.TrimSpace(content), "{") {
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &probe); err != nil {
		return false
	}
	_, nodes := probe["nodes"]
	_, rows := probe["rows"]
	return nodes || rows
}

type graphResponse struct {
	Nodes         []map[string]any `json:"nodes"`
	Relationships []map[string]any `json:"relationships"`
	Rows          []map[string]any `json:"rows"`
}

// Import decodes the response and converts it to layout input.
func (g *GraphResponseImporter) Import(content string) (*Graph, error) {
	nodes, rels, err := ParseGraphResponse([]byte(content))
	if err != nil {
		return nil, err
	}
	out := &Graph{
		Entities:      make([]layout.Entity, 0, len(nodes)),
		Relationships: make([]layout.Relationship, 0, len(rels)),
	}
	for _, n := range nodes {
		out.Entities = append(out.Entities, EntityFromNode(n))
	}
	for _, r := range rels {
		out.Relationships = append(out.Relationships, RelationshipFromDTO(r))
	}
	return out, nil
}

// GetFormatName returns the format name
func (g *GraphResponseImporter) GetFormatName() string { return "GraphResponse" }

// GetFileExtensions returns common file extensions
func (g *GraphResponseImporter) GetFileExtensions() []string { return []string{".json"} }

// ParseGraphResponse decodes a graph response into canonical DTOs. Nodes and
// relationships are deduplicated by GUID, first occurrence wins; records
// without a usable identifier are skipped.
func ParseGraphResponse(data []byte) ([]events.NodeDTO, []events.RelationshipDTO, error) {
	var resp graphResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, nil, fmt.Errorf("decode graph response: %w", err)
	}

	var (
		nodes    []events.NodeDTO
		rels     []events.RelationshipDTO
		seenNode = make(map[string]bool)
		seenRel  = make(map[string]bool)
	)
	addNode := func(obj map[string]any) {
		if n, ok := parseNode(obj); ok && !seenNode[n.GUID] {
			seenNode[n.GUID] = true
			nodes = append(nodes, n)
		}
	}
	addRel := func(obj map[string]any) {
		if r, ok := parseRelationship(obj); ok && !seenRel[r.GUID] {
			seenRel[r.GUID] = true
			rels = append(rels, r)
		}
	}

	for _, obj := range resp.Nodes {
		addNode(obj)
	}
	for _, obj := range resp.Relationships {
		addRel(obj)
	}
	for _, row := range resp.Rows {
		for _, v := range row {
			obj, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if isRelationship(obj) {
				addRel(obj)
			} else {
				addNode(obj)
			}
		}
	}
	return nodes, rels, nil
}

func properties(obj map[string]any) map[string]any {
	props, _ := obj["properties"].(map[string]any)
	return props
}

// firstString returns the first non-empty string found under keys, looking
// in each map in turn.
func firstString(keys []string, ms ...map[string]any) string {
	for _, m := range ms {
		for _, k := range keys {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

var (
	guidKeys   = []string{"GUID", "guid", "id"}
	parentKeys = []string{"parentGUID", "parentGuid", "parent_guid", "parentId"}
	sourceKeys = []string{"source_guid", "sourceGuid", "fromGUID", "from_guid", "source", "startNodeId"}
	targetKeys = []string{"target_guid", "targetGuid", "toGUID", "to_guid", "target", "endNodeId"}
)

func isRelationship(obj map[string]any) bool {
	props := properties(obj)
	return firstString(sourceKeys, props, obj) != "" && firstString(targetKeys, props, obj) != ""
}

func parseNode(obj map[string]any) (events.NodeDTO, bool) {
	props := properties(obj)
	n := events.NodeDTO{
		GUID:       firstString(guidKeys, props, obj),
		ParentGUID: firstString(parentKeys, obj, props),
		Properties: maps.Clone(props),
	}
	if n.GUID == "" {
		return n, false
	}
	if labels, ok := obj["labels"].([]any); ok {
		for _, l := range labels {
			if s, ok := l.(string); ok {
				n.Labels = append(n.Labels, s)
			}
		}
	}
	if d, ok := obj["display"].(map[string]any); ok {
		n.Display = &events.NodeDisplay{
			Width:  number(d["width"]),
			Height: number(d["height"]),
			Color:  firstString([]string{"color"}, d),
			Icon:   firstString([]string{"icon"}, d),
		}
	}
	if p, ok := obj["position"].(map[string]any); ok {
		x, y := number(p["x"]), number(p["y"])
		if x != nil && y != nil {
			n.Position = &events.NodePosition{X: *x, Y: *y}
		}
	}
	return n, true
}

func parseRelationship(obj map[string]any) (events.RelationshipDTO, bool) {
	props := properties(obj)
	r := events.RelationshipDTO{
		SourceGUID: firstString(sourceKeys, obj, props),
		TargetGUID: firstString(targetKeys, obj, props),
		Type:       firstString([]string{"type"}, obj, props),
		Properties: maps.Clone(props),
	}
	if r.SourceGUID == "" || r.TargetGUID == "" {
		return r, false
	}
	if r.Type == "" {
		r.Type = DefaultRelationshipType
	}
	r.GUID = firstString([]string{"guid", "GUID"}, obj, props)
	if r.GUID == "" {
		r.GUID = fmt.Sprintf("%s->%s:%s", r.SourceGUID, r.TargetGUID, r.Type)
	}
	return r, true
}

func number(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	}
	return nil
}

var nameKeys = []string{"name", "title", "displayName", "label"}

// EntityFromNode converts a canonical node to a layout entity. The first
// label becomes the entity type; display hints become size and style
// properties.
func EntityFromNode(n events.NodeDTO) layout.Entity {
	e := layout.Entity{
		ID:         n.GUID,
		GUID:       n.GUID,
		Name:       firstString(nameKeys, n.Properties),
		Parent:     n.ParentGUID,
		Properties: maps.Clone(n.Properties),
	}
	if len(n.Labels) > 0 {
		e.Type = n.Labels[0]
	} else {
		e.Type = firstString([]string{"type"}, n.Properties)
	}
	if d := n.Display; d != nil {
		if d.Width != nil {
			e.Width = *d.Width
		}
		if d.Height != nil {
			e.Height = *d.Height
		}
		if d.Color != "" || d.Icon != "" {
			if e.Properties == nil {
				e.Properties = make(map[string]any)
			}
			if d.Color != "" {
				e.Properties["fill"] = d.Color
			}
			if d.Icon != "" {
				e.Properties["icon"] = d.Icon
			}
		}
	}
	return e
}

// RelationshipFromDTO converts a canonical relationship to layout input.
func RelationshipFromDTO(r events.RelationshipDTO) layout.Relationship {
	return layout.Relationship{
		ID:         r.GUID,
		Type:       r.Type,
		From:       r.SourceGUID,
		To:         r.TargetGUID,
		Label:      firstString([]string{"label"}, r.Properties),
		Properties: maps.Clone(r.Properties),
	}
}
