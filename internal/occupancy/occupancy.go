// Package occupancy decides, per saved slot, whether a camera frame shows it
// occupied. A slot is occupied when enough edge pixels fall inside it after
// adaptive thresholding.
package occupancy

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"

	"gocv.io/x/gocv"

	"slot-editor/internal/config"
	"slot-editor/internal/slots"
	"slot-editor/pkg/colorutil"
	"slot-editor/pkg/geometry"
)

// DefaultThreshold is the edge-pixel count above which a slot is occupied.
const DefaultThreshold = 800

// State is the occupancy of one slot.
type State int

const (
	StateFree State = iota
	StateReserved
	StateOccupied
)

func (s State) String() string {
	switch s {
	case StateOccupied:
		return "OCCUPIED"
	case StateReserved:
		return "BOOKED"
	default:
		return "FREE"
	}
}

// Key is the short status name used by dashboards.
func (s State) Key() string {
	switch s {
	case StateOccupied:
		return "full"
	case StateReserved:
		return "reserved"
	default:
		return "available"
	}
}

// Status is the result for one slot.
type Status struct {
	Label string
	State State
	Count int
	// Anchor is where the label is drawn: the area centroid, or the first
	// vertex for degenerate polygons.
	Anchor image.Point
}

// Palette colors the annotation per state.
type Palette struct {
	Occupied color.RGBA
	Reserved color.RGBA
	Free     color.RGBA
	Label    color.RGBA
}

// DefaultPalette is red/yellow/green with white labels.
func DefaultPalette() Palette {
	return Palette{
		Occupied: colorutil.Red,
		Reserved: colorutil.Yellow,
		Free:     colorutil.Green,
		Label:    colorutil.White,
	}
}

// PaletteFromConfig builds a palette from the configured occupied, vacant and
// pending colors.
func PaletteFromConfig(cfg *config.Config) (Palette, error) {
	p := DefaultPalette()
	var err error
	if p.Occupied, err = colorutil.ParseHex(cfg.OccupiedColor); err != nil {
		return DefaultPalette(), fmt.Errorf("occupied color: %w", err)
	}
	if p.Free, err = colorutil.ParseHex(cfg.VacantColor); err != nil {
		return DefaultPalette(), fmt.Errorf("vacant color: %w", err)
	}
	if p.Reserved, err = colorutil.ParseHex(cfg.PendingColor); err != nil {
		return DefaultPalette(), fmt.Errorf("pending color: %w", err)
	}
	return p, nil
}

func (p Palette) color(s State) color.RGBA {
	switch s {
	case StateOccupied:
		return p.Occupied
	case StateReserved:
		return p.Reserved
	default:
		return p.Free
	}
}

// Checker evaluates slots against frames.
type Checker struct {
	Threshold int
	Palette   Palette
	logger    *slog.Logger
}

// NewChecker creates a checker. A non-positive threshold uses
// DefaultThreshold.
func NewChecker(threshold int, logger *slog.Logger) *Checker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Checker{Threshold: threshold, Palette: DefaultPalette(), logger: logger}
}

// Check returns the status of every slot in order. Labels in booked mark
// slots that are reserved when not occupied. Slots with fewer than three
// points are skipped.
func (c *Checker) Check(frame image.Image, labeled []slots.Labeled, booked map[string]bool) ([]Status, error) {
	src, err := imageToMat(frame)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	processed := preprocess(src)
	defer processed.Close()

	return c.check(processed, labeled, booked), nil
}

func (c *Checker) check(processed gocv.Mat, labeled []slots.Labeled, booked map[string]bool) []Status {
	out := make([]Status, 0, len(labeled))
	for _, l := range labeled {
		if len(l.Points) < 3 {
			c.logger.Warn("skipping slot with too few points", "label", l.Label, "points", len(l.Points))
			continue
		}
		pts := toImagePoints(l.Points)
		count := maskedCount(processed, pts)

		st := StateFree
		switch {
		case count > c.Threshold:
			st = StateOccupied
		case booked[l.Label]:
			st = StateReserved
		}
		out = append(out, Status{Label: l.Label, State: st, Count: count, Anchor: anchor(l.Points)})
	}
	return out
}

// Annotate checks the frame and returns a copy with every slot outlined in
// its state color and labeled.
func (c *Checker) Annotate(frame image.Image, labeled []slots.Labeled, booked map[string]bool) (image.Image, []Status, error) {
	src, err := imageToMat(frame)
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	processed := preprocess(src)
	defer processed.Close()

	statuses := c.check(processed, labeled, booked)
	byLabel := make(map[string]Status, len(statuses))
	for _, s := range statuses {
		byLabel[s.Label] = s
	}

	for _, l := range labeled {
		s, ok := byLabel[l.Label]
		if !ok {
			continue
		}
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{toImagePoints(l.Points)})
		gocv.Polylines(&src, pv, true, c.Palette.color(s.State), 2)
		pv.Close()
		gocv.PutText(&src, l.Label, image.Pt(s.Anchor.X-10, s.Anchor.Y),
			gocv.FontHersheySimplex, 0.5, c.Palette.Label, 2)
	}

	img, err := src.ToImage()
	if err != nil {
		return nil, nil, fmt.Errorf("convert annotated frame: %w", err)
	}
	return img, statuses, nil
}

// preprocess turns a BGR frame into a binary edge map: blur, inverse
// adaptive threshold, median blur to drop speckle, then dilate.
func preprocess(src gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(gray, &blur, image.Pt(3, 3), 1, 1, gocv.BorderDefault)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.AdaptiveThreshold(blur, &thresh, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, 25, 16)

	median := gocv.NewMat()
	defer median.Close()
	gocv.MedianBlur(thresh, &median, 5)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()

	dilated := gocv.NewMat()
	gocv.Dilate(median, &dilated, kernel)
	return dilated
}

// maskedCount counts non-zero pixels of processed inside the polygon.
func maskedCount(processed gocv.Mat, pts []image.Point) int {
	mask := gocv.Zeros(processed.Rows(), processed.Cols(), gocv.MatTypeCV8U)
	defer mask.Close()

	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()
	gocv.FillPoly(&mask, pv, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	masked := gocv.NewMat()
	defer masked.Close()
	gocv.BitwiseAnd(processed, mask, &masked)

	return gocv.CountNonZero(masked)
}

func anchor(poly slots.Polygon) image.Point {
	c, _ := geometry.AreaCentroid(poly)
	return image.Pt(int(c.X), int(c.Y))
}

func toImagePoints(poly slots.Polygon) []image.Point {
	pts := make([]image.Point, len(poly))
	for i, p := range poly {
		r := p.Round()
		pts[i] = image.Pt(int(r.X), int(r.Y))
	}
	return pts
}

// imageToMat converts a Go image.Image to a BGR gocv.Mat.
func imageToMat(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return gocv.NewMat(), fmt.Errorf("empty frame")
	}

	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			mat.SetUCharAt(y, x*3+0, uint8(b>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}
	return mat, nil
}
