package diagram

import (
	"math"

	"hcanvas/geometry"
)

// Zoom limits.
const (
	MinZoom = 0.05
	MaxZoom = 20.0
)

// Camera maps world space to screen space. (X, Y) is the world point shown at
// the viewport's top-left corner.
type Camera struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultCamera is the identity camera.
func DefaultCamera() Camera {
	return Camera{Zoom: 1}
}

// Valid reports whether the camera is finite with a positive zoom.
func (c Camera) Valid() bool {
	return geometry.IsFinite(c.X, c.Y, c.Zoom) && c.Zoom > 0
}

// WorldToScreen converts a world point to screen coordinates.
func (c Camera) WorldToScreen(p geometry.Point) geometry.Point {
	return geometry.Point{X: (p.X - c.X) * c.Zoom, Y: (p.Y - c.Y) * c.Zoom}
}

// ScreenToWorld converts a screen point to world coordinates.
func (c Camera) ScreenToWorld(p geometry.Point) geometry.Point {
	return geometry.Point{X: p.X/c.Zoom + c.X, Y: p.Y/c.Zoom + c.Y}
}

// WorldRectToScreen converts a world rectangle to screen coordinates.
func (c Camera) WorldRectToScreen(r geometry.Rect) geometry.Rect {
	p := c.WorldToScreen(r.Min())
	return geometry.Rect{X: p.X, Y: p.Y, Width: r.Width * c.Zoom, Height: r.Height * c.Zoom}
}

// ScreenDelta converts a screen-space displacement into world units.
func (c Camera) ScreenDelta(d geometry.Point) geometry.Point {
	return d.Scale(1 / c.Zoom)
}

// Pan moves the camera by a screen-space displacement; content follows the pointer.
func (c Camera) Pan(d geometry.Point) Camera {
	w := c.ScreenDelta(d)
	c.X -= w.X
	c.Y -= w.Y
	return c
}

// ZoomAt multiplies the zoom by factor while keeping the world point under
// the screen anchor fixed.
func (c Camera) ZoomAt(factor float64, anchor geometry.Point) Camera {
	before := c.ScreenToWorld(anchor)
	c.Zoom = geometry.Clamp(c.Zoom*factor, MinZoom, MaxZoom)
	c.X = before.X - anchor.X/c.Zoom
	c.Y = before.Y - anchor.Y/c.Zoom
	return c
}

// Fit returns a camera that centers bounds inside a viewport of size vp,
// zooming out when needed (never zooming in past 1) and leaving margin pixels.
func Fit(bounds geometry.Rect, vp geometry.Size, margin float64) Camera {
	if !bounds.IsFinite() || vp.Width <= 0 || vp.Height <= 0 {
		return DefaultCamera()
	}
	zoom := 1.0
	availW, availH := vp.Width-2*margin, vp.Height-2*margin
	if bounds.Width > 0 && bounds.Height > 0 && availW > 0 && availH > 0 {
		zoom = math.Min(1, math.Min(availW/bounds.Width, availH/bounds.Height))
	}
	zoom = geometry.Clamp(zoom, MinZoom, MaxZoom)
	c := bounds.Center()
	return Camera{
		X:    c.X - vp.Width/(2*zoom),
		Y:    c.Y - vp.Height/(2*zoom),
		Zoom: zoom,
	}
}

// Viewport returns the world rectangle visible through a viewport of size vp.
func (c Camera) Viewport(vp geometry.Size) geometry.Rect {
	return geometry.Rect{X: c.X, Y: c.Y, Width: vp.Width / c.Zoom, Height: vp.Height / c.Zoom}
}
