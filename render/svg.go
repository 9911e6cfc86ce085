package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"

	"hcanvas/geometry"
)

// SVGSurface writes SVG elements as they are drawn. Coordinates are rounded
// to whole pixels. Call Close to finish the document.
type SVGSurface struct {
	canvas *svg.SVG
	size   geometry.Size
	closed bool
}

// NewSVGSurface starts an SVG document of the given size on w.
func NewSVGSurface(w io.Writer, size geometry.Size, title string) *SVGSurface {
	s := &SVGSurface{canvas: svg.New(w), size: size}
	s.canvas.Start(px(size.Width), px(size.Height))
	if title != "" {
		s.canvas.Title(title)
	}
	return s
}

func (s *SVGSurface) Size() geometry.Size { return s.size }

func (s *SVGSurface) Rect(r geometry.Rect, radius float64, pen Pen) {
	if radius > 0 {
		rad := px(math.Min(radius, math.Min(r.Width, r.Height)/2))
		s.canvas.Roundrect(px(r.X), px(r.Y), px(r.Width), px(r.Height), rad, rad, penStyle(pen))
		return
	}
	s.canvas.Rect(px(r.X), px(r.Y), px(r.Width), px(r.Height), penStyle(pen))
}

func (s *SVGSurface) Ellipse(r geometry.Rect, pen Pen) {
	c := r.Center()
	s.canvas.Ellipse(px(c.X), px(c.Y), px(r.Width/2), px(r.Height/2), penStyle(pen))
}

func (s *SVGSurface) Polyline(pts []geometry.Point, pen Pen) {
	xs, ys := coords(pts)
	pen.Fill = ""
	s.canvas.Polyline(xs, ys, penStyle(pen))
}

func (s *SVGSurface) Polygon(pts []geometry.Point, pen Pen) {
	xs, ys := coords(pts)
	s.canvas.Polygon(xs, ys, penStyle(pen))
}

func (s *SVGSurface) Text(at geometry.Point, text string, font Font, align TextAlign) {
	style := fmt.Sprintf("fill:%s;font-size:%.1fpx;font-family:monospace;dominant-baseline:middle;text-anchor:%s",
		orNone(font.Color), font.Size, anchor(align))
	if font.Bold {
		style += ";font-weight:bold"
	}
	s.canvas.Text(px(at.X), px(at.Y), text, style)
}

// Close ends the document. Further drawing is invalid.
func (s *SVGSurface) Close() error {
	if !s.closed {
		s.canvas.End()
		s.closed = true
	}
	return nil
}

func px(v float64) int { return int(math.Round(v)) }

func coords(pts []geometry.Point) ([]int, []int) {
	xs := make([]int, len(pts))
	ys := make([]int, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = px(p.X), px(p.Y)
	}
	return xs, ys
}

func penStyle(p Pen) string {
	var b strings.Builder
	fmt.Fprintf(&b, "fill:%s", orNone(p.Fill))
	if p.Stroke != "" {
		w := p.Width
		if w <= 0 {
			w = 1
		}
		fmt.Fprintf(&b, ";stroke:%s;stroke-width:%.2f", p.Stroke, w)
		if len(p.Dash) > 0 {
			parts := make([]string, len(p.Dash))
			for i, d := range p.Dash {
				parts[i] = fmt.Sprintf("%.1f", d)
			}
			fmt.Fprintf(&b, ";stroke-dasharray:%s", strings.Join(parts, ","))
		}
	}
	return b.String()
}

func orNone(c string) string {
	if c == "" {
		return "none"
	}
	return c
}

func anchor(a TextAlign) string {
	switch a {
	case AlignCenter:
		return "middle"
	case AlignRight:
		return "end"
	default:
		return "start"
	}
}
