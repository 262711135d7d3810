// Package calibration computes coordinate transforms that map locally
// measured UWB positions onto a shared reference frame, from small sets
// of known correspondence points.
package calibration

import (
	"math"

	"uwb-viewer/pkg/geometry"
)

// CorrespondencePoint pairs a known reference position with the position
// measured for the same physical location. Points sharing OwnerID belong
// to the same calibration subject (antenna).
type CorrespondencePoint struct {
	ID        string
	OwnerID   string
	Reference geometry.Point3
	Measured  geometry.Point3
}

// SimilarityTransform maps measured-frame coordinates into the reference
// frame. Scale holds the sensor's per-axis scale factor relative to the
// reference frame (measured units per reference unit), so a sensor
// reporting half-size coordinates carries Scale ≈ (0.5, 0.5). The forward
// application rotates by Rotation, divides by Scale, then translates, in
// that order. Scale.Z is carried but unused by the planar fit.
type SimilarityTransform struct {
	Translation geometry.Point3
	Rotation    float64 // radians
	Scale       geometry.Point3
	Accuracy    float64 // RMSE of the fit, 0 for a perfect fit
}

// IsValid reports whether the transform has positive scales and finite
// components. CalculateTransform only returns valid transforms; this is
// for transforms restored from outside the solver.
func (t SimilarityTransform) IsValid() bool {
	if !t.Translation.IsFinite() || !t.Scale.IsFinite() {
		return false
	}
	if math.IsNaN(t.Rotation) || math.IsInf(t.Rotation, 0) {
		return false
	}
	if math.IsNaN(t.Accuracy) || math.IsInf(t.Accuracy, 0) {
		return false
	}
	return t.Scale.X > 0 && t.Scale.Y > 0
}

// Matrix returns the forward (measured-to-reference) affine matrix:
// rotation first, then division by the per-axis scale, then translation.
func (t SimilarityTransform) Matrix() geometry.AffineTransform {
	m := geometry.ScaleXY(1/t.Scale.X, 1/t.Scale.Y).Compose(geometry.Rotation(t.Rotation))
	m.TX = t.Translation.X
	m.TY = t.Translation.Y
	return m
}

// Apply maps a measured-frame point into the reference frame. Z passes
// through with the translation's Z added.
func (t SimilarityTransform) Apply(p geometry.Point3) geometry.Point3 {
	out := t.Matrix().Apply(p)
	out.Z = p.Z + t.Translation.Z
	return out
}

// Invert returns the reference-to-measured transform. The inverse of an
// anisotropically scaled similarity is re-decomposed into the same
// rotate-scale-translate form; for isotropic scale this is exact.
func (t SimilarityTransform) Invert() (SimilarityTransform, error) {
	inv, ok := t.Matrix().Inverse()
	if !ok {
		return SimilarityTransform{}, ErrSingularMatrix
	}
	angle, sx, sy, _, err := decomposeLinear(inv.Linear())
	if err != nil {
		return SimilarityTransform{}, err
	}
	return SimilarityTransform{
		Translation: geometry.Point3{X: inv.TX, Y: inv.TY, Z: -t.Translation.Z},
		Rotation:    angle,
		Scale:       geometry.Point3{X: 1 / sx, Y: 1 / sy, Z: t.Scale.Z},
		Accuracy:    t.Accuracy,
	}, nil
}

// DecomposedPose is the factorization of a 2x2 linear map into a proper
// rotation and independent axis scale factors.
type DecomposedPose struct {
	AngleDegrees float64
	ScaleX       float64
	ScaleY       float64
	Rotation     geometry.AffineTransform // orthonormal, det ≈ +1, no translation
}

// AntennaPose is the estimated placement of one antenna in the reference
// frame: position, orientation and the residual quality of the estimate.
type AntennaPose struct {
	X            float64
	Y            float64
	AngleDegrees float64
	RMSE         float64
	ScaleX       float64
	ScaleY       float64
}
