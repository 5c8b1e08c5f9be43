package geometry

// ScreenToLogical converts a pointer position in screen space into logical
// canvas pixels.
//
// displayed is where the canvas currently sits on screen (origin and rendered
// size); logical is the canvas's intrinsic resolution. The offset from the
// displayed origin is multiplied by logical/displayed on each axis and rounded
// to whole pixels, so stored coordinates do not depend on the zoom level.
// An axis with no displayed extent is passed through unscaled.
func ScreenToLogical(screen Point2D, displayed Rect, logical Size) Point2D {
	scaleX, scaleY := 1.0, 1.0
	if displayed.Width > 0 {
		scaleX = logical.Width / displayed.Width
	}
	if displayed.Height > 0 {
		scaleY = logical.Height / displayed.Height
	}
	return Point2D{
		X: (screen.X - displayed.X) * scaleX,
		Y: (screen.Y - displayed.Y) * scaleY,
	}.Round()
}
