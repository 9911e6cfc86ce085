package render

import (
	"image"
	"image/color"
	"io"
	"math"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"hcanvas/diagram"
	"hcanvas/geometry"
)

// RasterSurface draws into an RGBA image. Text uses the fixed 7x13 bitmap
// face scaled to the requested size.
type RasterSurface struct {
	dc   *gg.Context
	size geometry.Size
}

// NewRasterSurface allocates a w x h pixel image.
func NewRasterSurface(w, h int) *RasterSurface {
	dc := gg.NewContext(w, h)
	dc.SetFontFace(basicfont.Face7x13)
	return &RasterSurface{dc: dc, size: geometry.Size{Width: float64(w), Height: float64(h)}}
}

func (s *RasterSurface) Size() geometry.Size { return s.size }

func (s *RasterSurface) Rect(r geometry.Rect, radius float64, pen Pen) {
	s.draw(pen, func() {
		if radius > 0 {
			s.dc.DrawRoundedRectangle(r.X, r.Y, r.Width, r.Height, math.Min(radius, math.Min(r.Width, r.Height)/2))
			return
		}
		s.dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	})
}

func (s *RasterSurface) Ellipse(r geometry.Rect, pen Pen) {
	c := r.Center()
	s.draw(pen, func() { s.dc.DrawEllipse(c.X, c.Y, r.Width/2, r.Height/2) })
}

func (s *RasterSurface) Polyline(pts []geometry.Point, pen Pen) {
	pen.Fill = ""
	s.draw(pen, func() { s.path(pts) })
}

func (s *RasterSurface) Polygon(pts []geometry.Point, pen Pen) {
	s.draw(pen, func() {
		s.path(pts)
		s.dc.ClosePath()
	})
}

func (s *RasterSurface) Text(at geometry.Point, text string, font Font, align TextAlign) {
	ax := 0.0
	switch align {
	case AlignCenter:
		ax = 0.5
	case AlignRight:
		ax = 1
	}
	k := font.Size / float64(basicfont.Face7x13.Height)
	if k <= 0 {
		return
	}
	s.dc.Push()
	defer s.dc.Pop()
	s.dc.ScaleAbout(k, k, at.X, at.Y)
	s.dc.SetColor(diagram.RGBA(font.Color, color.Black))
	s.dc.DrawStringAnchored(text, at.X, at.Y, ax, 0.5)
	if font.Bold {
		s.dc.DrawStringAnchored(text, at.X+1/k, at.Y, ax, 0.5)
	}
}

// Image returns the drawn image.
func (s *RasterSurface) Image() image.Image { return s.dc.Image() }

// EncodePNG writes the image as PNG.
func (s *RasterSurface) EncodePNG(w io.Writer) error { return s.dc.EncodePNG(w) }

func (s *RasterSurface) path(pts []geometry.Point) {
	s.dc.NewSubPath()
	for i, p := range pts {
		if i == 0 {
			s.dc.MoveTo(p.X, p.Y)
			continue
		}
		s.dc.LineTo(p.X, p.Y)
	}
}

// draw builds a path with build, then fills and strokes it per pen.
func (s *RasterSurface) draw(pen Pen, build func()) {
	fill, hasFill := diagram.ParseColor(pen.Fill)
	stroke, hasStroke := diagram.ParseColor(pen.Stroke)
	if !hasFill && !hasStroke {
		return
	}
	build()
	if hasFill {
		s.dc.SetColor(fill)
		if hasStroke {
			s.dc.FillPreserve()
		} else {
			s.dc.Fill()
		}
	}
	if hasStroke {
		w := pen.Width
		if w <= 0 {
			w = 1
		}
		s.dc.SetColor(stroke)
		s.dc.SetLineWidth(w)
		s.dc.SetDash(pen.Dash...)
		s.dc.Stroke()
		s.dc.SetDash()
	}
}
