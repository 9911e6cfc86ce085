package render

import (
	"math"
	"strconv"

	"github.com/mattn/go-runewidth"

	"hcanvas/diagram"
	"hcanvas/geometry"
)

// Sizes used by the primitives at zoom 1.
const (
	LabelSize   = 13.0
	BadgeRadius = 9.0
	ArrowSize   = 8.0
	IconSize    = 16.0
)

// ShapeRadius returns the corner radius used to draw a node's shape in a
// rectangle of size r.
func ShapeRadius(s diagram.Style, r geometry.Rect, zoom float64) float64 {
	switch s.Shape {
	case diagram.ShapeEllipse, diagram.ShapePill:
		return math.Min(r.Width, r.Height) / 2
	case diagram.ShapeRect:
		return 0
	}
	return s.CornerRadius * zoom
}

// DrawShape paints a node body.
func DrawShape(s Surface, r geometry.Rect, style diagram.Style, zoom float64) {
	pen := Pen{Fill: style.Fill, Stroke: style.Stroke, Width: style.StrokeWidth * zoom}
	if style.Shape == diagram.ShapeEllipse {
		s.Ellipse(r, pen)
		return
	}
	s.Rect(r, ShapeRadius(style, r, zoom), pen)
}

// DrawLabel writes text inside r: centred for leaves, in the header band
// for containers. Text wider than r is truncated with an ellipsis.
func DrawLabel(s Surface, r geometry.Rect, text string, color string, zoom float64, header bool) {
	if text == "" {
		return
	}
	size := LabelSize * zoom
	if size < 4 {
		return
	}
	// Average glyph advance is a little over half the font size.
	maxCols := int(r.Width / (size * 0.6))
	if maxCols <= 0 {
		return
	}
	text = runewidth.Truncate(text, maxCols, "…")

	at := r.Center()
	if header {
		at.Y = r.Y + math.Min(r.Height/2, size*1.5)
	}
	s.Text(at, text, Font{Color: color, Size: size, Bold: header}, AlignCenter)
}

// DrawIcon writes a glyph icon at the top-left corner of r.
func DrawIcon(s Surface, r geometry.Rect, icon string, color string, zoom float64) {
	if icon == "" {
		return
	}
	size := IconSize * zoom
	if size > r.Height || size > r.Width {
		return
	}
	at := geometry.Pt(r.X+size*0.5, r.Y+size*0.75)
	s.Text(at, icon, Font{Color: color, Size: size}, AlignLeft)
}

// DrawBadge paints a count bubble on the top-right corner of r. It marks a
// collapsed node with the number of hidden descendants.
func DrawBadge(s Surface, r geometry.Rect, count int, fill, color string, zoom float64) {
	if count <= 0 {
		return
	}
	rad := BadgeRadius * zoom
	label := strconv.Itoa(count)
	w := math.Max(2*rad, float64(len(label))*rad)
	box := geometry.Rect{X: r.Right() - w*0.75, Y: r.Y - rad, Width: w, Height: 2 * rad}
	s.Rect(box, rad, Pen{Fill: fill})
	s.Text(box.Center(), label, Font{Color: color, Size: rad * 1.2, Bold: true}, AlignCenter)
}

// DrawConnector strokes an edge polyline and puts an arrowhead on its last
// segment.
func DrawConnector(s Surface, pts []geometry.Point, style diagram.EdgeStyle, zoom float64, arrow bool) {
	if len(pts) < 2 {
		return
	}
	dash := make([]float64, len(style.Dash))
	for i, d := range style.Dash {
		dash[i] = d * zoom
	}
	width := math.Max(style.Width*zoom, 0.5)
	s.Polyline(pts, Pen{Stroke: style.Stroke, Width: width, Dash: dash})
	if arrow {
		if head := Arrowhead(pts[len(pts)-2], pts[len(pts)-1], ArrowSize*zoom); head != nil {
			s.Polygon(head, Pen{Fill: style.Stroke, Stroke: style.Stroke, Width: width})
		}
	}
}

// Arrowhead returns the triangle for an arrow pointing from a to b with its
// tip at b, or nil for a degenerate segment.
func Arrowhead(a, b geometry.Point, size float64) []geometry.Point {
	d := b.Sub(a)
	l := math.Hypot(d.X, d.Y)
	if l < geometry.Epsilon || size <= 0 {
		return nil
	}
	u := d.Scale(1 / l)
	n := geometry.Pt(-u.Y, u.X)
	base := b.Sub(u.Scale(size))
	return []geometry.Point{
		b,
		base.Add(n.Scale(size / 2)),
		base.Sub(n.Scale(size / 2)),
	}
}
