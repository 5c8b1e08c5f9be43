package server

//go:generate templ generate

import (
	"fmt"
	"strconv"

	"slot-editor/internal/slots"
	"slot-editor/pkg/geometry"
)

func slotCount(labeled []slots.Labeled) string {
	if len(labeled) == 1 {
		return "1 slot"
	}
	return strconv.Itoa(len(labeled)) + " slots"
}

func pointCount(l slots.Labeled) string {
	return strconv.Itoa(len(l.Points))
}

func areaText(l slots.Labeled) string {
	return fmt.Sprintf("%.0f", geometry.Area([]geometry.Point2D(l.Points)))
}
