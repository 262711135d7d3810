package calibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"uwb-viewer/pkg/geometry"
)

// singularDetTolerance is the determinant magnitude below which a 2x2
// linear map is treated as non-invertible.
const singularDetTolerance = 1e-10

// ExtractRotationAngle factors the 2x2 linear part of a transform into a
// proper rotation and independent axis scale factors. The rotation angle
// is returned in degrees. Reflections (negative determinant) are rejected
// rather than folded into a negative scale.
func ExtractRotationAngle(linear geometry.AffineTransform) (DecomposedPose, error) {
	angle, sx, sy, rot, err := decomposeLinear(linear.Linear())
	if err != nil {
		return DecomposedPose{}, err
	}
	return DecomposedPose{
		AngleDegrees: angle * 180 / math.Pi,
		ScaleX:       sx,
		ScaleY:       sy,
		Rotation:     rot,
	}, nil
}

// decomposeLinear computes the polar factorization M = P·R of a 2x2 map,
// where R is the closest proper rotation (R = U·Vᵀ from the SVD) and P is
// symmetric positive. The returned scales are the diagonal of P, so that
// scaling after rotating reproduces M exactly whenever M has the
// rotate-then-scale form. The angle is in radians.
func decomposeLinear(linear geometry.AffineTransform) (angle, sx, sy float64, rot geometry.AffineTransform, err error) {
	if !linear.IsFinite() {
		return 0, 0, 0, geometry.AffineTransform{}, fmt.Errorf("non-finite matrix: %w", ErrInvalidData)
	}

	det := linear.Det()
	if math.Abs(det) < singularDetTolerance {
		return 0, 0, 0, geometry.AffineTransform{}, fmt.Errorf("determinant %.3e: %w", det, ErrSingularMatrix)
	}
	if det < 0 {
		return 0, 0, 0, geometry.AffineTransform{}, fmt.Errorf("reflection in linear part (det %.3e): %w", det, ErrDegenerateConfiguration)
	}

	m := mat.NewDense(2, 2, []float64{linear.A, linear.B, linear.C, linear.D})

	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return 0, 0, 0, geometry.AffineTransform{}, fmt.Errorf("SVD failed: %w", ErrSingularMatrix)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// R = U * Vᵀ is the rotation closest to M in the Frobenius sense.
	var r mat.Dense
	r.Mul(&u, v.T())

	rot = geometry.AffineTransform{
		A: r.At(0, 0), B: r.At(0, 1),
		C: r.At(1, 0), D: r.At(1, 1),
	}
	if rot.Det() < 0 {
		return 0, 0, 0, geometry.AffineTransform{}, fmt.Errorf("improper rotation: %w", ErrDegenerateConfiguration)
	}

	// P = M * Rᵀ is symmetric positive definite; its diagonal carries the
	// per-axis scale factors.
	var p mat.Dense
	p.Mul(m, r.T())

	sx = p.At(0, 0)
	sy = p.At(1, 1)
	if sx <= 0 || sy <= 0 {
		return 0, 0, 0, geometry.AffineTransform{}, fmt.Errorf("non-positive scale (%.3e, %.3e): %w", sx, sy, ErrDegenerateConfiguration)
	}

	angle = math.Atan2(rot.C, rot.A)
	return angle, sx, sy, rot, nil
}
