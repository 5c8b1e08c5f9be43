// Package editor implements the slot annotation state machine: it turns
// pointer input into committed polygons according to the active mode.
package editor

import (
	"io"
	"log/slog"
	"math"

	"slot-editor/internal/render"
	"slot-editor/internal/slots"
	"slot-editor/internal/viewport"
	"slot-editor/pkg/geometry"
)

// polygonCorners is the number of clicks that completes a free polygon.
const polygonCorners = 4

// Button identifies the pointer button of an event.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
)

// PointerEvent is a pointer position in screen space together with where
// the canvas is currently displayed.
type PointerEvent struct {
	Position geometry.Point2D
	Canvas   geometry.Rect
	Button   Button
}

// EventType identifies editor events.
type EventType int

const (
	EventSlotsChanged EventType = iota
	EventBufferChanged
	EventModeChanged
	EventZoomChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Options configures a new Editor.
type Options struct {
	MinRectSize float64
	Limits      viewport.Limits
	Initial     []slots.Polygon
	Logger      *slog.Logger
}

// Editor owns the slot store, the construction buffer and the viewport.
// All methods must be called from a single goroutine.
type Editor struct {
	mode    Mode
	store   *slots.Store
	view    *viewport.Viewport
	minRect float64

	pending []geometry.Point2D
	drag    *render.Drag

	listeners map[EventType][]EventListener
	logger    *slog.Logger
}

// New creates an editor in rectangle mode.
func New(opts Options) *Editor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	limits := opts.Limits
	if limits == (viewport.Limits{}) {
		limits = viewport.DefaultLimits()
	}

	e := &Editor{
		mode:      ModeRectangle,
		store:     slots.NewStore(opts.Initial),
		view:      viewport.New(limits),
		minRect:   opts.MinRectSize,
		listeners: make(map[EventType][]EventListener),
		logger:    logger,
	}
	e.view.OnChange(func(zoom float64) {
		e.emit(EventZoomChanged, zoom)
	})
	return e
}

// On registers an event listener for the specified event type.
func (e *Editor) On(event EventType, listener EventListener) {
	e.listeners[event] = append(e.listeners[event], listener)
}

func (e *Editor) emit(event EventType, data interface{}) {
	for _, listener := range e.listeners[event] {
		listener(data)
	}
}

// Mode returns the active mode.
func (e *Editor) Mode() Mode {
	return e.mode
}

// SetMode switches the active mode and discards any shape under
// construction.
func (e *Editor) SetMode(m Mode) {
	cleared := len(e.pending) > 0 || e.drag != nil
	e.mode = m
	e.pending = nil
	e.drag = nil
	e.emit(EventModeChanged, m)
	if cleared {
		e.emit(EventBufferChanged, nil)
	}
}

// HelpText returns the status line for the active mode.
func (e *Editor) HelpText() string {
	return e.mode.HelpText()
}

// Viewport returns the editor's zoom controller.
func (e *Editor) Viewport() *viewport.Viewport {
	return e.view
}

// Slots returns a snapshot of the committed polygons.
func (e *Editor) Slots() []slots.Polygon {
	return e.store.All()
}

// Pending returns a copy of the polygon points collected so far.
func (e *Editor) Pending() []geometry.Point2D {
	return append([]geometry.Point2D(nil), e.pending...)
}

// Drawing reports whether a rectangle drag is in progress.
func (e *Editor) Drawing() bool {
	return e.drag != nil
}

// Scene returns what the overlay should currently show.
func (e *Editor) Scene() render.Scene {
	s := render.Scene{
		Slots:   e.store.All(),
		Pending: e.Pending(),
	}
	if e.drag != nil {
		d := *e.drag
		s.Drag = &d
	}
	return s
}

// toLogical converts an event position to logical canvas pixels. Before an
// image is loaded the displayed canvas size stands in for the logical one.
func (e *Editor) toLogical(ev PointerEvent) geometry.Point2D {
	logical := e.view.LogicalSize()
	if logical.Empty() {
		logical = geometry.Size{Width: ev.Canvas.Width, Height: ev.Canvas.Height}
	}
	return geometry.ScreenToLogical(ev.Position, ev.Canvas, logical)
}

// PointerDown handles a button press. Secondary presses are ignored; the
// context menu path handles them.
func (e *Editor) PointerDown(ev PointerEvent) {
	if ev.Button == ButtonSecondary {
		return
	}
	p := e.toLogical(ev)

	switch e.mode {
	case ModeDelete:
		i := e.store.HitTest(p)
		if i < 0 {
			return
		}
		if err := e.store.RemoveAt(i); err != nil {
			e.logger.Error("delete slot", slog.Any("err", err))
			return
		}
		e.logger.Debug("slot deleted", "index", i, "remaining", e.store.Len())
		e.emit(EventSlotsChanged, e.store.Len())

	case ModeRectangle:
		e.drag = &render.Drag{Anchor: p, Cursor: p}
		e.emit(EventBufferChanged, nil)

	case ModePolygon:
		e.pending = append(e.pending, p)
		if len(e.pending) == polygonCorners {
			e.store.Append(slots.Polygon(e.pending))
			e.pending = nil
			e.logger.Debug("polygon committed", "count", e.store.Len())
			e.emit(EventSlotsChanged, e.store.Len())
			return
		}
		e.emit(EventBufferChanged, nil)
	}
}

// PointerMove updates the live rectangle preview while dragging.
func (e *Editor) PointerMove(ev PointerEvent) {
	if e.mode != ModeRectangle || e.drag == nil {
		return
	}
	e.drag.Cursor = e.toLogical(ev)
	e.emit(EventBufferChanged, nil)
}

// PointerUp finishes a rectangle drag. The rectangle is committed only when
// both sides exceed the minimum size; otherwise it is discarded.
func (e *Editor) PointerUp(ev PointerEvent) {
	if e.mode != ModeRectangle || e.drag == nil {
		return
	}
	anchor := e.drag.Anchor
	end := e.toLogical(ev)
	e.drag = nil

	w, h := end.X-anchor.X, end.Y-anchor.Y
	if math.Abs(w) > e.minRect && math.Abs(h) > e.minRect {
		e.store.Append(slots.Rectangle(anchor, end))
		e.logger.Debug("rectangle committed", "count", e.store.Len())
		e.emit(EventSlotsChanged, e.store.Len())
		return
	}
	e.emit(EventBufferChanged, nil)
}

// ContextMenu handles a secondary-button request: it removes the most
// recent slot in any mode.
func (e *Editor) ContextMenu() {
	e.Undo()
}

// Undo removes the most recently committed slot. It reports false, and
// does nothing else, when there are no slots.
func (e *Editor) Undo() bool {
	if _, ok := e.store.Pop(); !ok {
		return false
	}
	e.emit(EventSlotsChanged, e.store.Len())
	return true
}

// Load replaces every committed slot. A nil list empties the store.
func (e *Editor) Load(polys []slots.Polygon) {
	e.store.Replace(polys)
	e.logger.Debug("slots loaded", "count", e.store.Len())
	e.emit(EventSlotsChanged, e.store.Len())
}

// ImageLoaded adopts the reference image size as the logical canvas
// resolution and fits it into avail. Repeated notifications for the same
// image are ignored.
func (e *Editor) ImageLoaded(img, avail geometry.Size) {
	if !e.view.AutoFit(img, avail) {
		e.view.SetLogicalSize(img)
	}
}
