// Package viewport maps the logical canvas resolution to its zoomed on-screen
// presentation. Stored coordinates never depend on the zoom level.
package viewport

import (
	"image"
	"math"
	"strconv"

	"github.com/disintegration/imaging"

	"slot-editor/pkg/geometry"
)

// Limits bounds the zoom factor.
type Limits struct {
	Min  float64
	Max  float64
	Step float64
}

// DefaultLimits returns the standard zoom range [0.2, 5.0] with 0.1 steps.
func DefaultLimits() Limits {
	return Limits{Min: 0.2, Max: 5.0, Step: 0.1}
}

// Allows reports whether f lies inside the limits.
func (l Limits) Allows(f float64) bool {
	return f >= l.Min && f <= l.Max
}

// Viewport holds the zoom factor and the logical canvas size.
type Viewport struct {
	limits  Limits
	zoom    float64
	logical geometry.Size

	// fitted is set once AutoFit has run for the current logical size.
	fitted bool

	onChange func(zoom float64)
}

// New creates a viewport at 100% zoom.
func New(limits Limits) *Viewport {
	return &Viewport{limits: limits, zoom: 1}
}

// Limits returns the configured zoom bounds.
func (v *Viewport) Limits() Limits {
	return v.limits
}

// Zoom returns the current zoom factor.
func (v *Viewport) Zoom() float64 {
	return v.zoom
}

// OnChange registers a callback invoked after every accepted zoom change.
func (v *Viewport) OnChange(fn func(zoom float64)) {
	v.onChange = fn
}

// SetZoom applies f if it is within limits. Out-of-range requests are
// ignored and SetZoom reports false.
func (v *Viewport) SetZoom(f float64) bool {
	if math.IsNaN(f) || !v.limits.Allows(f) {
		return false
	}
	v.zoom = f
	if v.onChange != nil {
		v.onChange(f)
	}
	return true
}

// ZoomIn raises the zoom by one step.
func (v *Viewport) ZoomIn() bool {
	return v.SetZoom(v.zoom + v.limits.Step)
}

// ZoomOut lowers the zoom by one step.
func (v *Viewport) ZoomOut() bool {
	return v.SetZoom(v.zoom - v.limits.Step)
}

// Percent returns the zoom readout, e.g. "200%".
func (v *Viewport) Percent() string {
	return strconv.Itoa(int(math.Floor(v.zoom*100+0.5))) + "%"
}

// LogicalSize returns the intrinsic canvas resolution.
func (v *Viewport) LogicalSize() geometry.Size {
	return v.logical
}

// SetLogicalSize sets the intrinsic canvas resolution. A new size re-arms
// AutoFit.
func (v *Viewport) SetLogicalSize(s geometry.Size) {
	if s != v.logical {
		v.fitted = false
	}
	v.logical = s
}

// DisplaySize returns the on-screen size: logical width times zoom, with
// the height following the aspect ratio.
func (v *Viewport) DisplaySize() geometry.Size {
	return geometry.Size{
		Width:  v.logical.Width * v.zoom,
		Height: v.logical.Height * v.zoom,
	}
}

// AutoFit adopts imgSize as the logical resolution and applies the largest
// zoom at which the image fits in avail, never above 1.0. It succeeds at
// most once per image size, so a repeated load notification is harmless. The
// returned bool reports whether a zoom was applied.
func (v *Viewport) AutoFit(imgSize, avail geometry.Size) bool {
	if imgSize.Empty() {
		return false
	}
	if v.fitted && v.logical == imgSize {
		return false
	}
	v.SetLogicalSize(imgSize)

	fit := math.Min(avail.Width/imgSize.Width, avail.Height/imgSize.Height)
	if fit > 1 {
		fit = 1
	}
	// A rejected fit, e.g. before the window has been laid out, leaves the
	// next notification free to try again.
	if !v.SetZoom(fit) {
		return false
	}
	v.fitted = true
	return true
}

// Present scales img to the current display width. The height follows the
// source aspect ratio.
func (v *Viewport) Present(img image.Image) *image.NRGBA {
	w := int(math.Floor(v.DisplaySize().Width + 0.5))
	if w < 1 {
		w = 1
	}
	return imaging.Resize(img, w, 0, imaging.Linear)
}
