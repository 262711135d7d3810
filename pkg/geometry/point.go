// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"math"
)

// Point3 represents a 3D point with floating-point coordinates.
// Calibration fitting is planar; Z is carried through unchanged.
type Point3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// NewPoint3 creates a new Point3.
func NewPoint3(x, y, z float64) Point3 {
	return Point3{X: x, Y: y, Z: z}
}

// Add returns the sum of two points.
func (p Point3) Add(other Point3) Point3 {
	return Point3{X: p.X + other.X, Y: p.Y + other.Y, Z: p.Z + other.Z}
}

// Sub returns the difference of two points.
func (p Point3) Sub(other Point3) Point3 {
	return Point3{X: p.X - other.X, Y: p.Y - other.Y, Z: p.Z - other.Z}
}

// Scale returns the point scaled by a factor.
func (p Point3) Scale(factor float64) Point3 {
	return Point3{X: p.X * factor, Y: p.Y * factor, Z: p.Z * factor}
}

// Distance returns the Euclidean distance to another point.
func (p Point3) Distance(other Point3) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	dz := p.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// DistanceXY returns the planar Euclidean distance to another point,
// ignoring Z.
func (p Point3) DistanceXY(other Point3) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Magnitude returns the Euclidean length of the point treated as a vector.
func (p Point3) Magnitude() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// IsFinite reports whether all coordinates are finite numbers.
func (p Point3) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

// Centroid computes the centroid (average position) of a set of points.
func Centroid(points []Point3) Point3 {
	if len(points) == 0 {
		return Point3{}
	}
	var sumX, sumY, sumZ float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
		sumZ += p.Z
	}
	n := float64(len(points))
	return Point3{X: sumX / n, Y: sumY / n, Z: sumZ / n}
}
