// Package slots holds the ordered collection of committed slot polygons and
// their wire forms.
package slots

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"slot-editor/pkg/geometry"
)

// ErrIndexOutOfRange is returned by RemoveAt for an index outside the store.
var ErrIndexOutOfRange = errors.New("slot index out of range")

// Polygon is a closed slot outline in logical image pixels. The closing edge
// from the last point back to the first is implicit.
type Polygon []geometry.Point2D

// Rectangle returns the axis-aligned polygon spanned by two opposite corners,
// always in TL, TR, BR, BL order.
func Rectangle(a, b geometry.Point2D) Polygon {
	return Polygon(geometry.RectFromCorners(a, b).Corners())
}

// Clone returns a copy that shares no backing storage with p.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// Contains reports whether pt falls inside the polygon.
func (p Polygon) Contains(pt geometry.Point2D) bool {
	return geometry.PointInPolygon(pt, p)
}

// Equal reports whether a and b hold the same polygons in the same order.
// A nil list equals an empty one.
func Equal(a, b []Polygon) bool {
	return slices.EqualFunc(a, b, func(p, q Polygon) bool { return slices.Equal(p, q) })
}

// Store is an ordered list of committed polygons. Insertion order is display
// order; a polygon's label is its 1-based position.
//
// Store is not safe for concurrent use.
type Store struct {
	polys []Polygon
}

// NewStore creates a store holding copies of polys.
func NewStore(polys []Polygon) *Store {
	s := &Store{}
	s.Replace(polys)
	return s
}

// Len returns the number of committed polygons.
func (s *Store) Len() int {
	return len(s.polys)
}

// At returns the polygon at index i.
func (s *Store) At(i int) Polygon {
	return s.polys[i]
}

// All returns a snapshot of every polygon in insertion order.
func (s *Store) All() []Polygon {
	out := make([]Polygon, len(s.polys))
	for i, p := range s.polys {
		out[i] = p.Clone()
	}
	return out
}

// Append commits a polygon at the end of the store.
func (s *Store) Append(p Polygon) {
	s.polys = append(s.polys, p.Clone())
}

// RemoveAt removes the polygon at index i, shifting later polygons down.
func (s *Store) RemoveAt(i int) error {
	if i < 0 || i >= len(s.polys) {
		return fmt.Errorf("remove %d of %d: %w", i, len(s.polys), ErrIndexOutOfRange)
	}
	s.polys = append(s.polys[:i], s.polys[i+1:]...)
	return nil
}

// Pop removes the most recently committed polygon. It reports false when the
// store was already empty.
func (s *Store) Pop() (Polygon, bool) {
	n := len(s.polys)
	if n == 0 {
		return nil, false
	}
	last := s.polys[n-1]
	s.polys = s.polys[:n-1]
	return last, true
}

// Replace discards the current contents and stores copies of polys.
func (s *Store) Replace(polys []Polygon) {
	s.polys = make([]Polygon, 0, len(polys))
	for _, p := range polys {
		s.polys = append(s.polys, p.Clone())
	}
}

// HitTest returns the index of the topmost polygon containing pt, scanning
// from the most recent. It returns -1 when nothing is hit.
func (s *Store) HitTest(pt geometry.Point2D) int {
	for i := len(s.polys) - 1; i >= 0; i-- {
		if s.polys[i].Contains(pt) {
			return i
		}
	}
	return -1
}

// Label returns the on-canvas label for the polygon at index i.
func Label(i int) string {
	return "#" + strconv.Itoa(i+1)
}

// SlotLabel returns the name the backend assigns to the polygon at index i.
func SlotLabel(i int) string {
	return fmt.Sprintf("Slot-%d", i+1)
}

// Labeled is a stored slot with its backend label.
type Labeled struct {
	Label  string  `json:"label"`
	Points Polygon `json:"points"`
}

// LabelAll names polys in order as Slot-1..N.
func LabelAll(polys []Polygon) []Labeled {
	out := make([]Labeled, len(polys))
	for i, p := range polys {
		out[i] = Labeled{Label: SlotLabel(i), Points: p.Clone()}
	}
	return out
}

// Payload is the body of a save request. Rects holds full polygons; the
// field name is kept for compatibility with existing backends.
type Payload struct {
	LotID LotID     `json:"lot_id"`
	Rects []Polygon `json:"rects"`
}

// LotID is an opaque lot identifier. It decodes from either a JSON string
// or a JSON number and always encodes as a string.
type LotID string

// UnmarshalJSON accepts "12" or 12.
func (id *LotID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = LotID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("lot_id: want string or number: %w", err)
	}
	*id = LotID(n.String())
	return nil
}

// ParseInitial decodes a hosted initial slot list. Anything that is not a
// list of polygons yields an empty list rather than an error.
func ParseInitial(data []byte) []Polygon {
	var polys []Polygon
	if err := json.Unmarshal(data, &polys); err != nil || polys == nil {
		return []Polygon{}
	}
	return polys
}
