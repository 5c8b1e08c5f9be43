package render

import (
	"image"
	"image/color"
	"testing"

	"slot-editor/internal/config"
	"slot-editor/internal/slots"
	"slot-editor/pkg/geometry"
)

func pt(x, y float64) geometry.Point2D { return geometry.Point2D{X: x, Y: y} }

func newCanvas() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 300, 300))
}

func TestRender_CommittedSlot(t *testing.T) {
	dst := newCanvas()
	r := NewRenderer(DefaultStyle())
	r.Render(dst, Scene{Slots: []slots.Polygon{
		{pt(50, 50), pt(120, 50), pt(120, 130), pt(50, 130)},
	}})

	if got, want := dst.RGBAAt(85, 100), (color.RGBA{R: 0, G: 51, B: 0, A: 51}); got != want {
		t.Errorf("fill pixel = %v, want %v", got, want)
	}
	if got, want := dst.RGBAAt(50, 100), (color.RGBA{R: 0, G: 255, B: 0, A: 255}); got != want {
		t.Errorf("stroke pixel = %v, want %v", got, want)
	}
	if got := dst.RGBAAt(10, 10); got != (color.RGBA{}) {
		t.Errorf("outside pixel = %v, want transparent", got)
	}

	// "#1" sits on the baseline 5px above the first vertex.
	if !anyPixel(dst, image.Rect(50, 33, 66, 46), func(c color.RGBA) bool { return c.R > 200 && c.B > 200 }) {
		t.Error("no label pixels found above the first vertex")
	}
}

func TestRender_PendingPolygon(t *testing.T) {
	dst := newCanvas()
	r := NewRenderer(DefaultStyle())
	r.Render(dst, Scene{Pending: []geometry.Point2D{pt(10, 10), pt(60, 10)}})

	yellow := color.RGBA{R: 255, G: 255, B: 0, A: 255}
	if got := dst.RGBAAt(35, 10); got != yellow {
		t.Errorf("segment pixel = %v, want %v", got, yellow)
	}
	if got := dst.RGBAAt(10, 10); got != yellow {
		t.Errorf("marker pixel = %v, want %v", got, yellow)
	}
	if got := dst.RGBAAt(35, 40); got != (color.RGBA{}) {
		t.Errorf("open polygon should not be filled, got %v", got)
	}
}

func TestRender_DragPreview(t *testing.T) {
	dst := newCanvas()
	r := NewRenderer(DefaultStyle())
	r.Render(dst, Scene{Drag: &Drag{Anchor: pt(200, 200), Cursor: pt(150, 150)}})

	yellow := color.RGBA{R: 255, G: 255, B: 0, A: 255}
	if got := dst.RGBAAt(150, 175); got != yellow {
		t.Errorf("preview edge = %v, want %v", got, yellow)
	}
	if got := dst.RGBAAt(175, 175); got != (color.RGBA{}) {
		t.Errorf("preview interior = %v, want transparent", got)
	}
}

func TestRender_Clears(t *testing.T) {
	dst := newCanvas()
	r := NewRenderer(DefaultStyle())
	r.Render(dst, Scene{Slots: []slots.Polygon{{pt(0, 0), pt(100, 0), pt(100, 100)}}})
	r.Render(dst, Scene{})

	if anyPixel(dst, dst.Bounds(), func(c color.RGBA) bool { return c.A != 0 }) {
		t.Error("empty scene left pixels behind")
	}
}

func TestStyleFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SlotStroke = "#0000ff"
	s, err := StyleFromConfig(cfg)
	if err != nil {
		t.Fatalf("StyleFromConfig: %v", err)
	}
	if s.Stroke != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("Stroke = %v", s.Stroke)
	}
	if s.Fill != DefaultStyle().Fill {
		t.Errorf("Fill = %v, want default", s.Fill)
	}

	cfg.LabelColor = "white"
	if _, err := StyleFromConfig(cfg); err == nil {
		t.Error("expected error for malformed color")
	}
}

func anyPixel(img *image.RGBA, r image.Rectangle, match func(color.RGBA) bool) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if match(img.RGBAAt(x, y)) {
				return true
			}
		}
	}
	return false
}
