package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectContainsAndUnion(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 100, Height: 50}

	assert.True(t, r.Contains(Pt(10, 10)))
	assert.True(t, r.Contains(Pt(110, 60)))
	assert.False(t, r.Contains(Pt(111, 60)))

	u := r.Union(Rect{X: -5, Y: 20, Width: 10, Height: 100})
	assert.Equal(t, Rect{X: -5, Y: 10, Width: 115, Height: 110}, u)

	b, ok := Bounding(nil)
	assert.False(t, ok)
	assert.Equal(t, Rect{}, b)
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(1, 2, 3))
	assert.False(t, IsFinite(1, math.NaN()))
	assert.False(t, Pt(math.Inf(1), 0).IsFinite())
}

func TestBorderPoint(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 60}

	t.Run("straight side", func(t *testing.T) {
		p := BorderPoint(r, 10, Pt(500, 30))
		assert.InDelta(t, 100, p.X, 1e-9)
		assert.InDelta(t, 30, p.Y, 1e-9)
	})

	t.Run("top side", func(t *testing.T) {
		p := BorderPoint(r, 10, Pt(50, -400))
		assert.InDelta(t, 50, p.X, 1e-9)
		assert.InDelta(t, 0, p.Y, 1e-9)
	})

	t.Run("corner arc", func(t *testing.T) {
		// Diagonal through the bottom-right corner region.
		p := BorderPoint(r, 20, Pt(150, 90))
		arc := Pt(80, 40)
		assert.InDelta(t, 20, p.Distance(arc), 1e-6)
		assert.Less(t, p.X, 100.0)
		assert.Less(t, p.Y, 60.0)
	})

	t.Run("square corners", func(t *testing.T) {
		p := BorderPoint(r, 0, Pt(150, 90))
		assert.InDelta(t, 100, p.X, 1e-9)
		assert.InDelta(t, 60, p.Y, 1e-9)
	})

	t.Run("target at center", func(t *testing.T) {
		assert.Equal(t, r.Center(), BorderPoint(r, 5, r.Center()))
	})
}

func TestSegmentIntersectsRect(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 10, Height: 10}
	assert.True(t, SegmentIntersectsRect(Pt(0, 15), Pt(30, 15), r))
	assert.False(t, SegmentIntersectsRect(Pt(0, 10), Pt(30, 10), r), "touching the edge is not crossing")
	assert.False(t, SegmentIntersectsRect(Pt(0, 25), Pt(30, 25), r))
}
