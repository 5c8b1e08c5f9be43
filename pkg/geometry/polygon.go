package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// PointInPolygon tests if a point is inside a polygon using ray casting.
//
// Each edge (i, i-1) toggles the result when it straddles the point's y and
// the ray going right from p crosses it. Horizontal edges never straddle, so
// the division below is never reached for them.
func PointInPolygon(p Point2D, polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)

	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := polygon[i], polygon[j]

		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}

	return inside
}

// SignedArea returns the shoelace area of the polygon. The sign follows the
// vertex winding in image coordinates (y down).
func SignedArea(polygon []Point2D) float64 {
	if len(polygon) < 3 {
		return 0
	}
	var sum float64
	n := len(polygon)
	for i := 0; i < n; i++ {
		sum += r2.Cross(toVec(polygon[i]), toVec(polygon[(i+1)%n]))
	}
	return sum / 2
}

// Area returns the absolute shoelace area of the polygon.
func Area(polygon []Point2D) float64 {
	return math.Abs(SignedArea(polygon))
}

// AreaCentroid returns the centroid of the polygon's enclosed area (the
// first-moment centroid, not the vertex average). ok is false when the
// polygon has no area, in which case the first vertex is returned.
func AreaCentroid(polygon []Point2D) (c Point2D, ok bool) {
	if len(polygon) == 0 {
		return Point2D{}, false
	}
	a := SignedArea(polygon)
	if a == 0 {
		return polygon[0], false
	}

	var acc r2.Vec
	n := len(polygon)
	for i := 0; i < n; i++ {
		p, q := toVec(polygon[i]), toVec(polygon[(i+1)%n])
		acc = r2.Add(acc, r2.Scale(r2.Cross(p, q), r2.Add(p, q)))
	}
	acc = r2.Scale(1/(6*a), acc)
	return Point2D{X: acc.X, Y: acc.Y}, true
}

// IsConvex returns true if the polygon vertices form a convex polygon.
// The polygon is assumed to be simple (non-self-intersecting).
func IsConvex(polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	n := len(polygon)
	var sign int

	for i := 0; i < n; i++ {
		cross := crossProduct(
			polygon[i],
			polygon[(i+1)%n],
			polygon[(i+2)%n],
		)

		if cross != 0 {
			currentSign := 1
			if cross < 0 {
				currentSign = -1
			}

			if sign == 0 {
				sign = currentSign
			} else if currentSign != sign {
				return false
			}
		}
	}

	return true
}

// crossProduct computes the cross product of vectors OA and OB.
func crossProduct(o, a, b Point2D) float64 {
	return r2.Cross(r2.Sub(toVec(a), toVec(o)), r2.Sub(toVec(b), toVec(o)))
}

func toVec(p Point2D) r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}
