package diagram

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseColor parses a #rgb or #rrggbb style colour.
func ParseColor(s string) (colorful.Color, bool) {
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, false
	}
	return c, true
}

// RGBA parses s and falls back to def when s is not a valid colour.
func RGBA(s string, def color.Color) color.Color {
	if c, ok := ParseColor(s); ok {
		return c
	}
	return def
}

// Darken lowers the lightness of a hex colour by factor (0..1) in Lab space.
// Unparseable input is returned unchanged.
func Darken(hex string, factor float64) string {
	c, ok := ParseColor(hex)
	if !ok {
		return hex
	}
	l, a, b := c.Lab()
	return colorful.Lab(l*(1-factor), a, b).Clamped().Hex()
}
