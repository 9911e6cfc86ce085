// Package render paints a scene snapshot onto a drawing surface. The
// primitives are stateless and work in screen coordinates; Painter walks the
// scene, applies the camera and calls them.
package render

import (
	"hcanvas/geometry"
)

// TextAlign specifies where text sits relative to its anchor point.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// Pen describes how an outline or area is drawn. Empty colours are not
// drawn; a zero Width means a hairline.
type Pen struct {
	Fill   string
	Stroke string
	Width  float64
	Dash   []float64
}

// Font describes a text run.
type Font struct {
	Color string
	Size  float64
	Bold  bool
}

// Surface is a 2D drawing target. Every coordinate is in screen space.
type Surface interface {
	// Size returns the drawable area.
	Size() geometry.Size
	// Rect draws a rectangle with rounded corners of the given radius.
	Rect(r geometry.Rect, radius float64, pen Pen)
	// Ellipse draws the ellipse inscribed in r.
	Ellipse(r geometry.Rect, pen Pen)
	// Polyline strokes an open path.
	Polyline(pts []geometry.Point, pen Pen)
	// Polygon fills and strokes a closed path.
	Polygon(pts []geometry.Point, pen Pen)
	// Text draws s with its baseline vertically centred on at.
	Text(at geometry.Point, s string, font Font, align TextAlign)
}
