package render

import (
	"fmt"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"slot-editor/internal/config"
	"slot-editor/pkg/colorutil"
)

// Style controls how the overlay is painted.
type Style struct {
	Stroke      color.RGBA
	StrokeWidth float64
	Fill        color.RGBA

	Label       color.RGBA
	LabelOffset float64 // added to the first vertex's y
	Face        font.Face

	Pending      color.RGBA
	PendingWidth float64
	MarkerRadius float64
}

// DefaultStyle returns the stock overlay look: green slots with a 20% fill,
// white labels and yellow construction feedback.
func DefaultStyle() Style {
	return Style{
		Stroke:       colorutil.Green,
		StrokeWidth:  3,
		Fill:         colorutil.WithAlpha(colorutil.Green, 51),
		Label:        colorutil.White,
		LabelOffset:  -5,
		Face:         basicfont.Face7x13,
		Pending:      colorutil.Yellow,
		PendingWidth: 2,
		MarkerRadius: 4,
	}
}

// StyleFromConfig returns DefaultStyle with colors taken from cfg.
func StyleFromConfig(cfg *config.Config) (Style, error) {
	s := DefaultStyle()
	for _, c := range []struct {
		dst *color.RGBA
		hex string
	}{
		{&s.Stroke, cfg.SlotStroke},
		{&s.Fill, cfg.SlotFill},
		{&s.Label, cfg.LabelColor},
		{&s.Pending, cfg.PendingColor},
	} {
		v, err := colorutil.ParseHex(c.hex)
		if err != nil {
			return s, fmt.Errorf("style: %w", err)
		}
		*c.dst = v
	}
	return s, nil
}
