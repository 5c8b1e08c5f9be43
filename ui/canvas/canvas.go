// Package canvas provides the zoomable slot canvas: the reference image with
// the rendered slot overlay on top, forwarding mouse input to the editor.
package canvas

import (
	"image"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"slot-editor/internal/editor"
	"slot-editor/pkg/geometry"
)

// SlotCanvas displays the reference image and overlay at the editor's zoom.
type SlotCanvas struct {
	editor *editor.Editor

	reference image.Image

	background *fynecanvas.Image
	overlay    *fynecanvas.Image

	content *slotContent
	scroll  *zoomScroll

	onHover func(p geometry.Point2D)
}

// zoomScroll is a widget that wraps a scroll container but intercepts wheel for zoom.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *SlotCanvas
}

func newZoomScroll(content fyne.CanvasObject, sc *SlotCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: sc}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	// Use wheel for zoom, not scroll
	if ev.Scrolled.DY > 0 {
		zs.canvas.editor.Viewport().ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		zs.canvas.editor.Viewport().ZoomOut()
	}
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

// slotContent stacks the background and overlay and receives mouse input.
// It is deliberately not Draggable so press, move and release arrive as
// plain mouse events.
type slotContent struct {
	widget.BaseWidget
	canvas  *SlotCanvas
	minSize fyne.Size
}

var (
	_ desktop.Mouseable       = (*slotContent)(nil)
	_ desktop.Hoverable       = (*slotContent)(nil)
	_ fyne.SecondaryTappable = (*slotContent)(nil)
)

func newSlotContent(sc *SlotCanvas) *slotContent {
	c := &slotContent{canvas: sc, minSize: fyne.NewSize(400, 300)}
	c.ExtendBaseWidget(c)
	return c
}

func (c *slotContent) CreateRenderer() fyne.WidgetRenderer {
	return &slotContentRenderer{content: c}
}

func (c *slotContent) MinSize() fyne.Size {
	return c.minSize
}

func (c *slotContent) event(pos fyne.Position, button desktop.MouseButton) editor.PointerEvent {
	size := c.Size()
	b := editor.ButtonPrimary
	if button == desktop.MouseButtonSecondary {
		b = editor.ButtonSecondary
	}
	return editor.PointerEvent{
		Position: geometry.Point2D{X: float64(pos.X), Y: float64(pos.Y)},
		Canvas:   geometry.Rect{Width: float64(size.Width), Height: float64(size.Height)},
		Button:   b,
	}
}

func (c *slotContent) MouseDown(ev *desktop.MouseEvent) {
	c.canvas.editor.PointerDown(c.event(ev.Position, ev.Button))
}

func (c *slotContent) MouseUp(ev *desktop.MouseEvent) {
	c.canvas.editor.PointerUp(c.event(ev.Position, ev.Button))
}

func (c *slotContent) MouseIn(*desktop.MouseEvent) {}

func (c *slotContent) MouseMoved(ev *desktop.MouseEvent) {
	pe := c.event(ev.Position, ev.Button)
	c.canvas.editor.PointerMove(pe)
	if c.canvas.onHover != nil {
		logical := c.canvas.editor.Viewport().LogicalSize()
		c.canvas.onHover(geometry.ScreenToLogical(pe.Position, pe.Canvas, logical))
	}
}

func (c *slotContent) MouseOut() {}

// TappedSecondary removes the most recent slot.
func (c *slotContent) TappedSecondary(*fyne.PointEvent) {
	c.canvas.editor.ContextMenu()
}

type slotContentRenderer struct {
	content *slotContent
}

func (r *slotContentRenderer) Layout(size fyne.Size) {
	r.content.canvas.background.Resize(size)
	r.content.canvas.overlay.Resize(size)
}

func (r *slotContentRenderer) MinSize() fyne.Size {
	return r.content.minSize
}

func (r *slotContentRenderer) Refresh() {
	r.content.canvas.background.Refresh()
	r.content.canvas.overlay.Refresh()
}

func (r *slotContentRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.content.canvas.background, r.content.canvas.overlay}
}

func (r *slotContentRenderer) Destroy() {}

// NewSlotCanvas creates a canvas driving ed.
func NewSlotCanvas(ed *editor.Editor) *SlotCanvas {
	sc := &SlotCanvas{editor: ed}

	sc.background = fynecanvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	sc.background.FillMode = fynecanvas.ImageFillStretch
	sc.background.ScaleMode = fynecanvas.ImageScaleSmooth

	sc.overlay = fynecanvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	sc.overlay.FillMode = fynecanvas.ImageFillStretch
	sc.overlay.ScaleMode = fynecanvas.ImageScaleSmooth

	sc.content = newSlotContent(sc)
	sc.scroll = newZoomScroll(sc.content, sc)
	return sc
}

// Container returns the canvas container for embedding in layouts.
func (sc *SlotCanvas) Container() fyne.CanvasObject {
	return sc.scroll
}

// OnHover sets a callback receiving the logical pointer position.
func (sc *SlotCanvas) OnHover(fn func(p geometry.Point2D)) {
	sc.onHover = fn
}

// AvailableSize returns the visible area that auto-fit should fill.
func (sc *SlotCanvas) AvailableSize() geometry.Size {
	s := sc.scroll.Size()
	return geometry.Size{Width: float64(s.Width), Height: float64(s.Height)}
}

// SetReference replaces the background image and re-applies the zoom. A nil
// image clears the canvas.
func (sc *SlotCanvas) SetReference(img image.Image) {
	sc.reference = img
	if img == nil {
		sc.background.Image = image.NewRGBA(image.Rect(0, 0, 1, 1))
		sc.overlay.Image = image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	sc.UpdateZoom()
}

// SetOverlay shows a freshly rendered overlay.
func (sc *SlotCanvas) SetOverlay(img *image.RGBA) {
	sc.overlay.Image = img
	sc.overlay.Refresh()
}

// UpdateZoom resizes the presentation to the editor's current zoom. The
// stored coordinates are unaffected; only the on-screen size changes.
func (sc *SlotCanvas) UpdateZoom() {
	vp := sc.editor.Viewport()
	if sc.reference != nil {
		sc.background.Image = vp.Present(sc.reference)
	}
	shown := vp.DisplaySize()
	if !shown.Empty() {
		sc.content.minSize = fyne.NewSize(float32(shown.Width), float32(shown.Height))
		sc.content.Resize(sc.content.minSize)
	}
	sc.background.Refresh()
	sc.content.Refresh()
	sc.scroll.scroll.Refresh()
}
