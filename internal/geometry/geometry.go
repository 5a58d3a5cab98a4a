// Package geometry provides the planar primitives used to turn tracked
// landmark positions into segment lengths and joint angles.
//
// All coordinates are image pixels with the y axis pointing down. Nothing is
// flipped, so a positive angle is counter-clockwise as drawn in image space.
package geometry

import "math"

// Point is a 2-D pixel position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// IsNaN reports whether either coordinate is missing.
func (p Point) IsNaN() bool {
	return math.IsNaN(p.X) || math.IsNaN(p.Y)
}

// Distance returns the Euclidean norm of p2 - p1. NaN inputs propagate.
func Distance(p1, p2 Point) float64 {
	d := p2.Sub(p1)
	return math.Hypot(d.X, d.Y)
}

// Angle returns the signed angle in degrees from (p1 - vertex) to
// (p2 - vertex), in the range (-180, 180].
//
// The angle is undefined when either vector has zero length; NaN is returned
// in that case rather than the 0 that atan2(0, 0) would give.
func Angle(vertex, p1, p2 Point) float64 {
	v1 := p1.Sub(vertex)
	v2 := p2.Sub(vertex)
	if isZero(v1) || isZero(v2) {
		return math.NaN()
	}
	cross := v1.X*v2.Y - v1.Y*v2.X
	dot := v1.X*v2.X + v1.Y*v2.Y
	deg := math.Atan2(cross, dot) * 180 / math.Pi
	if deg == -180 {
		// atan2 yields -pi for a negative-zero cross product.
		deg = 180
	}
	return deg
}

// IsDegenerate reports whether Angle(vertex, p1, p2) is undefined because one
// of its rays has zero length. Missing coordinates are not degenerate.
func IsDegenerate(vertex, p1, p2 Point) bool {
	return isZero(p1.Sub(vertex)) || isZero(p2.Sub(vertex))
}

func isZero(v Point) bool {
	return v.X == 0 && v.Y == 0
}
