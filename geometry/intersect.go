package geometry

import "math"

// BorderPoint returns where the ray from the center of r towards target leaves
// the rounded rectangle r with corner radius radius.
//
// The straight side regions are tried first. When the hit lands inside a corner
// region the ray is intersected with that corner's arc instead.
func BorderPoint(r Rect, radius float64, target Point) Point {
	c := r.Center()
	d := target.Sub(c)
	if d.X == 0 && d.Y == 0 {
		return c
	}

	hw, hh := r.Width/2, r.Height/2
	radius = Clamp(radius, 0, math.Min(hw, hh))

	t := math.Inf(1)
	if d.X != 0 {
		t = math.Min(t, hw/math.Abs(d.X))
	}
	if d.Y != 0 {
		t = math.Min(t, hh/math.Abs(d.Y))
	}
	hit := c.Add(d.Scale(t))
	if radius == 0 {
		return hit
	}

	// Straight region: the hit is at least radius away from both corners.
	if math.Abs(hit.X-c.X) <= hw-radius+Epsilon || math.Abs(hit.Y-c.Y) <= hh-radius+Epsilon {
		return hit
	}

	arc := Point{
		X: c.X + math.Copysign(hw-radius, d.X),
		Y: c.Y + math.Copysign(hh-radius, d.Y),
	}
	if s, ok := rayCircle(c, d, arc, radius); ok {
		return c.Add(d.Scale(s))
	}
	return hit
}

// rayCircle solves |o + d*t - center| = radius for the far root.
func rayCircle(o, d, center Point, radius float64) (float64, bool) {
	oc := o.Sub(center)
	a := d.X*d.X + d.Y*d.Y
	b := 2 * (d.X*oc.X + d.Y*oc.Y)
	c := oc.X*oc.X + oc.Y*oc.Y - radius*radius
	disc := b*b - 4*a*c
	if a == 0 || disc < 0 {
		return 0, false
	}
	return (-b + math.Sqrt(disc)) / (2 * a), true
}

// SegmentIntersectsRect reports whether the axis-aligned segment a-b passes
// through the interior of r.
func SegmentIntersectsRect(a, b Point, r Rect) bool {
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return maxX > r.X && minX < r.Right() && maxY > r.Y && minY < r.Bottom()
}
