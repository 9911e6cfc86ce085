package geometry

import "math"

// Epsilon is the tolerance used for floating point comparisons.
const Epsilon = 1e-9

// Clamp limits v to the range [lo, hi]. If lo > hi, lo wins.
func Clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// ApproxEqual reports whether a and b differ by at most tol.
func ApproxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// IsFinite reports whether every value is neither NaN nor infinite.
func IsFinite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ManhattanDistance calculates the Manhattan distance between two points.
func ManhattanDistance(a, b Point) float64 {
	return math.Abs(b.X-a.X) + math.Abs(b.Y-a.Y)
}

// IsHorizontal returns true if the line from a to b is more horizontal than vertical.
func IsHorizontal(a, b Point) bool {
	return math.Abs(b.X-a.X) > math.Abs(b.Y-a.Y)
}

// IsVertical returns true if the line from a to b is more vertical than horizontal.
func IsVertical(a, b Point) bool {
	return math.Abs(b.Y-a.Y) > math.Abs(b.X-a.X)
}
