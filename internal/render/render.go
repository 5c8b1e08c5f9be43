// Package render paints the slot overlay: committed polygons with labels,
// the polygon under construction and the live rectangle preview.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"slot-editor/internal/slots"
	"slot-editor/pkg/geometry"
)

// markerSegments is the number of sides used to approximate vertex markers.
const markerSegments = 16

// Drag is an in-progress rectangle from Anchor to the current Cursor.
type Drag struct {
	Anchor geometry.Point2D
	Cursor geometry.Point2D
}

// Scene is everything the overlay shows at one instant.
type Scene struct {
	Slots   []slots.Polygon
	Pending []geometry.Point2D
	Drag    *Drag
}

// Renderer draws scenes onto an RGBA overlay in logical pixels.
//
// A Renderer is not safe for concurrent use.
type Renderer struct {
	style Style
	ras   *vector.Rasterizer
}

// NewRenderer creates a renderer with the given style.
func NewRenderer(style Style) *Renderer {
	return &Renderer{style: style, ras: vector.NewRasterizer(0, 0)}
}

// Style returns the renderer's style.
func (r *Renderer) Style() Style {
	return r.style
}

// Render clears dst and draws scene onto it.
func (r *Renderer) Render(dst *image.RGBA, scene Scene) {
	b := dst.Bounds()
	draw.Draw(dst, b, image.Transparent, image.Point{}, draw.Src)

	for i, poly := range scene.Slots {
		if len(poly) == 0 {
			continue
		}
		r.fillPolygon(dst, poly, r.style.Fill)
		r.strokePath(dst, poly, true, r.style.StrokeWidth, r.style.Stroke)
		r.drawLabel(dst, slots.Label(i), poly[0])
	}

	if n := len(scene.Pending); n > 0 && n < 4 {
		r.strokePath(dst, scene.Pending, false, r.style.PendingWidth, r.style.Pending)
		for _, p := range scene.Pending {
			r.fillPolygon(dst, marker(p, r.style.MarkerRadius), r.style.Pending)
		}
	}

	if d := scene.Drag; d != nil {
		rect := geometry.RectFromCorners(d.Anchor, d.Cursor)
		r.strokePath(dst, rect.Corners(), true, r.style.PendingWidth, r.style.Pending)
	}
}

// fillPolygon fills pts with a uniform color using nonzero coverage.
func (r *Renderer) fillPolygon(dst *image.RGBA, pts []geometry.Point2D, c color.Color) {
	if len(pts) < 3 {
		return
	}
	b := dst.Bounds()
	r.ras.Reset(b.Dx(), b.Dy())
	r.ras.MoveTo(f32(pts[0].X-float64(b.Min.X)), f32(pts[0].Y-float64(b.Min.Y)))
	for _, p := range pts[1:] {
		r.ras.LineTo(f32(p.X-float64(b.Min.X)), f32(p.Y-float64(b.Min.Y)))
	}
	r.ras.ClosePath()
	r.ras.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// strokePath draws each segment as its own square-capped quad so that
// overlapping segments never cancel each other's coverage.
func (r *Renderer) strokePath(dst *image.RGBA, pts []geometry.Point2D, closed bool, width float64, c color.Color) {
	n := len(pts)
	if n < 2 {
		return
	}
	segments := n - 1
	if closed {
		segments = n
	}
	for i := 0; i < segments; i++ {
		r.fillPolygon(dst, segmentQuad(pts[i], pts[(i+1)%n], width), c)
	}
}

func (r *Renderer) drawLabel(dst *image.RGBA, text string, at geometry.Point2D) {
	if r.style.Face == nil {
		return
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(r.style.Label),
		Face: r.style.Face,
		Dot:  fixed.P(int(math.Round(at.X)), int(math.Round(at.Y+r.style.LabelOffset))),
	}
	d.DrawString(text)
}

// segmentQuad returns the rectangle covering segment p-q at the given width,
// extended by half the width at both ends.
func segmentQuad(p, q geometry.Point2D, width float64) []geometry.Point2D {
	d := q.Sub(p)
	l := d.Distance(geometry.Point2D{})
	if l == 0 {
		h := width / 2
		return geometry.Rect{X: p.X - h, Y: p.Y - h, Width: width, Height: width}.Corners()
	}
	u := d.Scale(width / 2 / l)
	nrm := geometry.Point2D{X: -u.Y, Y: u.X}
	a, b := p.Sub(u), q.Add(u)
	return []geometry.Point2D{a.Add(nrm), b.Add(nrm), b.Sub(nrm), a.Sub(nrm)}
}

func marker(c geometry.Point2D, radius float64) []geometry.Point2D {
	pts := make([]geometry.Point2D, markerSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / markerSegments
		pts[i] = geometry.Point2D{X: c.X + radius*math.Cos(a), Y: c.Y + radius*math.Sin(a)}
	}
	return pts
}

func f32(v float64) float32 { return float32(v) }
