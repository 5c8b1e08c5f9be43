// Package colorutil provides shared color utilities for the slot editor.
package colorutil

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Common overlay colors used throughout the application.
var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// ParseHex parses "#RGB", "#RRGGBB" or "#RRGGBBAA" into a color.RGBA.
// The returned color is alpha-premultiplied, as image/color expects.
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	alpha := uint8(255)

	if len(s) == 9 && strings.HasPrefix(s, "#") {
		var a uint8
		if _, err := fmt.Sscanf(s[7:], "%02x", &a); err != nil {
			return color.RGBA{}, fmt.Errorf("parse alpha in %q: %w", s, err)
		}
		alpha = a
		s = s[:7]
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return WithAlpha(color.RGBA{R: r, G: g, B: b, A: 255}, alpha), nil
}

// MustParseHex is like ParseHex but panics on malformed input. Intended for
// package-level defaults.
func MustParseHex(s string) color.RGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// WithAlpha returns the opaque color c at the given alpha, premultiplied.
func WithAlpha(c color.RGBA, alpha uint8) color.RGBA {
	a := uint32(alpha)
	return color.RGBA{
		R: uint8(uint32(c.R) * a / 255),
		G: uint8(uint32(c.G) * a / 255),
		B: uint8(uint32(c.B) * a / 255),
		A: alpha,
	}
}

// Hex formats c as "#rrggbb", dropping alpha.
func Hex(c color.RGBA) string {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hex()
}
