package editor

import (
	"fmt"
	"strings"
)

// Mode selects how pointer input is interpreted.
type Mode int

const (
	// ModeRectangle draws axis-aligned boxes by press-drag-release.
	ModeRectangle Mode = iota
	// ModePolygon collects four clicks into a free quadrilateral.
	ModePolygon
	// ModeDelete removes the topmost slot under a click.
	ModeDelete
)

// Modes lists every mode in display order.
func Modes() []Mode {
	return []Mode{ModeRectangle, ModePolygon, ModeDelete}
}

func (m Mode) String() string {
	switch m {
	case ModeRectangle:
		return "rectangle"
	case ModePolygon:
		return "polygon"
	case ModeDelete:
		return "delete"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// HelpText is the status line shown while m is active.
func (m Mode) HelpText() string {
	switch m {
	case ModeRectangle:
		return "Click and Drag to draw a box."
	case ModePolygon:
		return "Click 4 corners to make a shape."
	case ModeDelete:
		return "Click a slot to remove it."
	default:
		return ""
	}
}

// ParseMode maps a mode name (case-insensitive) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rectangle", "rect":
		return ModeRectangle, nil
	case "polygon", "poly":
		return ModePolygon, nil
	case "delete":
		return ModeDelete, nil
	}
	return ModeRectangle, fmt.Errorf("unknown mode %q", s)
}
