package editor

import (
	"reflect"
	"testing"

	"slot-editor/internal/slots"
	"slot-editor/pkg/geometry"
)

const canvasSize = 1000

func pt(x, y float64) geometry.Point2D { return geometry.Point2D{X: x, Y: y} }

func newEditor(t *testing.T) *Editor {
	t.Helper()
	e := New(Options{MinRectSize: 10})
	e.Viewport().SetLogicalSize(geometry.Size{Width: canvasSize, Height: canvasSize})
	return e
}

// at builds a primary-button event on an unzoomed canvas at the screen
// origin, so screen and logical coordinates coincide.
func at(x, y float64) PointerEvent {
	return PointerEvent{
		Position: pt(x, y),
		Canvas:   geometry.Rect{Width: canvasSize, Height: canvasSize},
	}
}

func drag(e *Editor, from, to geometry.Point2D) {
	e.PointerDown(at(from.X, from.Y))
	e.PointerMove(at((from.X+to.X)/2, (from.Y+to.Y)/2))
	e.PointerUp(at(to.X, to.Y))
}

func square(x, y, size float64) slots.Polygon {
	return slots.Polygon{pt(x, y), pt(x+size, y), pt(x+size, y+size), pt(x, y+size)}
}

func TestRectangleCommit(t *testing.T) {
	e := newEditor(t)
	drag(e, pt(50, 50), pt(120, 130))

	want := []slots.Polygon{{pt(50, 50), pt(120, 50), pt(120, 130), pt(50, 130)}}
	if got := e.Slots(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Slots = %v, want %v", got, want)
	}
	if e.Drawing() {
		t.Error("drag still active after release")
	}
}

func TestRectangleBelowMinimumDiscarded(t *testing.T) {
	e := newEditor(t)
	drag(e, pt(50, 50), pt(55, 52))
	drag(e, pt(50, 50), pt(200, 60)) // height exactly 10
	drag(e, pt(50, 50), pt(60, 200)) // width exactly 10

	if n := len(e.Slots()); n != 0 {
		t.Fatalf("committed %d slots, want 0", n)
	}
	if e.Drawing() {
		t.Error("drag still active after discarded release")
	}
}

func TestRectangleReverseDragNormalized(t *testing.T) {
	e := newEditor(t)
	drag(e, pt(120, 130), pt(50, 50))

	want := []slots.Polygon{{pt(50, 50), pt(120, 50), pt(120, 130), pt(50, 130)}}
	if got := e.Slots(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Slots = %v, want %v", got, want)
	}
}

func TestRectanglePreviewInScene(t *testing.T) {
	e := newEditor(t)
	e.PointerDown(at(50, 50))
	e.PointerMove(at(90, 80))

	s := e.Scene()
	if s.Drag == nil {
		t.Fatal("scene has no drag preview")
	}
	if s.Drag.Anchor != pt(50, 50) || s.Drag.Cursor != pt(90, 80) {
		t.Errorf("Drag = %+v", *s.Drag)
	}
	if len(s.Slots) != 0 {
		t.Error("moving committed a slot")
	}
}

func TestPointerMoveIgnoredWithoutDrag(t *testing.T) {
	e := newEditor(t)
	redraws := 0
	e.On(EventBufferChanged, func(interface{}) { redraws++ })

	e.PointerMove(at(10, 10))
	e.PointerUp(at(10, 10))
	if redraws != 0 || len(e.Slots()) != 0 {
		t.Errorf("idle move/up produced %d redraws, %d slots", redraws, len(e.Slots()))
	}
}

func TestPolygonCommit(t *testing.T) {
	e := newEditor(t)
	e.SetMode(ModePolygon)

	clicks := []geometry.Point2D{pt(10, 10), pt(90, 10), pt(90, 90), pt(10, 90)}
	for i, c := range clicks[:3] {
		e.PointerDown(at(c.X, c.Y))
		if got := len(e.Pending()); got != i+1 {
			t.Fatalf("after click %d pending = %d", i+1, got)
		}
	}
	if len(e.Slots()) != 0 {
		t.Fatal("committed before the fourth click")
	}

	e.PointerDown(at(clicks[3].X, clicks[3].Y))
	want := []slots.Polygon{{pt(10, 10), pt(90, 10), pt(90, 90), pt(10, 90)}}
	if got := e.Slots(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Slots = %v, want %v", got, want)
	}
	if len(e.Pending()) != 0 {
		t.Errorf("pending = %v, want empty", e.Pending())
	}
}

func TestSecondaryPressIgnored(t *testing.T) {
	e := newEditor(t)
	e.SetMode(ModePolygon)
	ev := at(10, 10)
	ev.Button = ButtonSecondary
	e.PointerDown(ev)
	if len(e.Pending()) != 0 {
		t.Error("secondary press added a point")
	}

	e.SetMode(ModeRectangle)
	e.PointerDown(ev)
	if e.Drawing() {
		t.Error("secondary press started a drag")
	}
}

func TestDeleteRemovesTopmost(t *testing.T) {
	e := newEditor(t)
	a, b := square(0, 0, 100), square(50, 50, 100)
	e.Load([]slots.Polygon{a, b})
	e.SetMode(ModeDelete)

	e.PointerDown(at(75, 75))
	if got := e.Slots(); !reflect.DeepEqual(got, []slots.Polygon{a}) {
		t.Fatalf("after delete = %v, want [A]", got)
	}

	e.PointerDown(at(500, 500))
	if len(e.Slots()) != 1 {
		t.Error("miss removed a slot")
	}
}

func TestUndoAndContextMenu(t *testing.T) {
	e := newEditor(t)
	a, b, c := square(0, 0, 20), square(30, 0, 20), square(60, 0, 20)
	e.Load([]slots.Polygon{a, b, c})

	e.ContextMenu()
	if got := e.Slots(); !reflect.DeepEqual(got, []slots.Polygon{a, b}) {
		t.Fatalf("after context menu = %v", got)
	}
	if !e.Undo() || !e.Undo() {
		t.Fatal("Undo on non-empty store reported false")
	}

	changes := 0
	e.On(EventSlotsChanged, func(interface{}) { changes++ })
	if e.Undo() {
		t.Error("Undo on empty store reported true")
	}
	e.ContextMenu()
	if len(e.Slots()) != 0 || changes != 0 {
		t.Errorf("empty pop: slots=%d changes=%d", len(e.Slots()), changes)
	}
}

func TestSetModeClearsConstruction(t *testing.T) {
	e := newEditor(t)

	e.SetMode(ModePolygon)
	e.PointerDown(at(10, 10))
	e.PointerDown(at(20, 10))
	e.SetMode(ModeRectangle)
	if len(e.Pending()) != 0 {
		t.Error("switching to rectangle kept polygon points")
	}

	e.PointerDown(at(10, 10))
	e.SetMode(ModePolygon)
	if e.Drawing() {
		t.Error("switching to polygon kept the rectangle drag")
	}
	e.SetMode(ModeRectangle)
	e.PointerUp(at(200, 200))
	if len(e.Slots()) != 0 {
		t.Error("release after mode switch committed a stale drag")
	}
}

func TestLoadReplaces(t *testing.T) {
	e := New(Options{Initial: []slots.Polygon{square(0, 0, 5)}})
	if len(e.Slots()) != 1 {
		t.Fatal("initial slots not loaded")
	}

	var got interface{}
	e.On(EventSlotsChanged, func(data interface{}) { got = data })
	e.Load([]slots.Polygon{square(1, 1, 5), square(10, 10, 5)})
	if len(e.Slots()) != 2 || got != 2 {
		t.Errorf("Load: slots=%d event=%v", len(e.Slots()), got)
	}

	e.Load(nil)
	if s := e.Slots(); s == nil || len(s) != 0 {
		t.Errorf("Load(nil) = %v, want empty", s)
	}
}

func TestZoomedInputStoredInLogicalPixels(t *testing.T) {
	e := newEditor(t)
	if !e.Viewport().SetZoom(2) {
		t.Fatal("SetZoom(2) rejected")
	}
	shown := e.Viewport().DisplaySize()
	canvas := geometry.Rect{X: 30, Y: 40, Width: shown.Width, Height: shown.Height}

	ev := func(x, y float64) PointerEvent {
		return PointerEvent{Position: pt(x, y), Canvas: canvas}
	}
	e.PointerDown(ev(30+100, 40+100))
	e.PointerUp(ev(30+240, 40+260))

	want := []slots.Polygon{{pt(50, 50), pt(120, 50), pt(120, 130), pt(50, 130)}}
	if got := e.Slots(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Slots = %v, want %v", got, want)
	}

	e.SetMode(ModePolygon)
	e.PointerDown(ev(30, 40))
	if p := e.Pending(); len(p) != 1 || p[0] != pt(0, 0) {
		t.Errorf("canvas corner = %v, want (0,0)", p)
	}
}

func TestImageLoadedFitsOnce(t *testing.T) {
	e := New(Options{})
	zooms := 0
	e.On(EventZoomChanged, func(interface{}) { zooms++ })

	img := geometry.Size{Width: 2000, Height: 1000}
	avail := geometry.Size{Width: 1000, Height: 1000}
	e.ImageLoaded(img, avail)
	e.ImageLoaded(img, avail)

	if zooms != 1 {
		t.Errorf("zoom events = %d, want 1", zooms)
	}
	if e.Viewport().Percent() != "50%" {
		t.Errorf("Percent = %s", e.Viewport().Percent())
	}
	if e.Viewport().LogicalSize() != img {
		t.Errorf("LogicalSize = %v", e.Viewport().LogicalSize())
	}
}

func TestModeStrings(t *testing.T) {
	for _, m := range Modes() {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
		if m.HelpText() == "" {
			t.Errorf("%s has no help text", m)
		}
	}
	if _, err := ParseMode("lasso"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
