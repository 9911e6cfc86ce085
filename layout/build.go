package layout

import (
	"maps"

	"hcanvas/diagram"
)

// Base styles for generated nodes and edges.
var (
	DefaultNodeStyle = diagram.Style{
		Fill:         "#ffffff",
		Stroke:       "#4a5568",
		StrokeWidth:  1.5,
		TextColor:    "#1a202c",
		Shape:        diagram.ShapeRounded,
		CornerRadius: 8,
	}
	DefaultContainerStyle = diagram.Style{
		Fill:         "#f7fafc",
		Stroke:       "#a0aec0",
		StrokeWidth:  1,
		TextColor:    "#2d3748",
		Shape:        diagram.ShapeRounded,
		CornerRadius: 12,
	}
	DefaultEdgeStyle = diagram.EdgeStyle{Stroke: "#718096", Width: 1.5}
)

// newNode builds a leaf-sized node for e. Style fields can be set through the
// entity's properties (fill, stroke, textColor, icon, shape, cornerRadius).
func (o Options) newNode(e Entity) *diagram.Node {
	n := &diagram.Node{
		GUID:     e.GUID,
		ID:       e.ID,
		Type:     e.Type,
		Text:     e.Name,
		Width:    e.Width,
		Height:   e.Height,
		Style:    DefaultNodeStyle,
		Metadata: maps.Clone(e.Properties),
	}
	if n.Text == "" {
		n.Text = e.ID
	}
	if n.Width <= 0 {
		n.Width = o.LeafSize.Width
	}
	if n.Height <= 0 {
		n.Height = o.LeafSize.Height
	}
	applyStyleProps(&n.Style, e.Properties)
	return n
}

func applyStyleProps(s *diagram.Style, props map[string]any) {
	str := func(key string, dst *string) {
		if v, ok := props[key].(string); ok && v != "" {
			*dst = v
		}
	}
	str("fill", &s.Fill)
	str("stroke", &s.Stroke)
	str("textColor", &s.TextColor)
	str("icon", &s.Icon)
	if v, ok := props["shape"].(string); ok && v != "" {
		s.Shape = diagram.Shape(v)
	}
	num := func(key string, dst *float64) {
		switch v := props[key].(type) {
		case float64:
			*dst = v
		case int:
			*dst = float64(v)
		}
	}
	num("cornerRadius", &s.CornerRadius)
	num("strokeWidth", &s.StrokeWidth)
}

func (g *Graph) newEdge(r Relationship) *diagram.Edge {
	e := &diagram.Edge{
		ID:       r.ID,
		From:     g.GUID(r.From),
		To:       g.GUID(r.To),
		Type:     r.Type,
		Label:    r.Label,
		Style:    DefaultEdgeStyle,
		Metadata: maps.Clone(r.Properties),
	}
	if v, ok := r.Properties["stroke"].(string); ok && v != "" {
		e.Style.Stroke = v
	}
	switch r.Properties["style"] {
	case "dashed":
		e.Style.Dash = []float64{6, 4}
	case "thick":
		e.Style.Width = 3
	}
	return e
}

// edges converts the relationships to scene edges. With flatten set the
// containment links are drawn as plain edges too.
func (g *Graph) edges(flatten bool) []*diagram.Edge {
	out := make([]*diagram.Edge, 0, len(g.Relationships)+len(g.Containment))
	for _, r := range g.Relationships {
		out = append(out, g.newEdge(r))
	}
	if flatten {
		for _, r := range g.Containment {
			out = append(out, g.newEdge(r))
		}
	}
	diagram.EnsureUniqueEdgeIDs(out)
	return out
}

// fitCamera frames all content in the configured viewport.
func (o Options) fitCamera(nodes []*diagram.Node) *diagram.Camera {
	bounds, ok := diagram.ContentBounds(nodes, diagram.DefaultFrames())
	if !ok {
		c := diagram.DefaultCamera()
		return &c
	}
	c := diagram.Fit(bounds, o.Viewport, o.FitMargin)
	return &c
}
