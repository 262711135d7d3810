package calibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"uwb-viewer/pkg/geometry"
)

// affineConditionLimit is the condition number above which the affine
// design matrix is treated as singular (collinear or coincident points).
const affineConditionLimit = 1e12

// EstimateAffineTransform fits target ≈ A·source + t over all point pairs
// by least squares. Source and target must have equal length and at least
// 3 pairs; collinear sources are rejected as singular. Only the XY
// components participate in the fit.
func EstimateAffineTransform(source, target []geometry.Point3) (geometry.AffineTransform, error) {
	if len(source) != len(target) {
		return geometry.AffineTransform{}, fmt.Errorf("point count mismatch: %d vs %d: %w", len(source), len(target), ErrInvalidData)
	}
	if len(source) < 3 {
		return geometry.AffineTransform{}, &InsufficientPointsError{Required: 3, Provided: len(source)}
	}

	n := len(source)

	// Build the overdetermined system from [x, y, 1] design rows:
	// x' = a*x + b*y + tx, y' = c*x + d*y + ty.
	A := mat.NewDense(n*2, 6, nil)
	B := mat.NewVecDense(n*2, nil)

	for i := 0; i < n; i++ {
		x, y := source[i].X, source[i].Y
		xp, yp := target[i].X, target[i].Y

		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		B.SetVec(i*2, xp)

		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		B.SetVec(i*2+1, yp)
	}

	if cond := mat.Cond(A, 2); cond > affineConditionLimit {
		return geometry.AffineTransform{}, fmt.Errorf("design matrix condition %.3e: %w", cond, ErrSingularMatrix)
	}

	// Solve using QR decomposition.
	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return geometry.AffineTransform{}, fmt.Errorf("least-squares solve: %w", ErrSingularMatrix)
	}

	transform := geometry.AffineTransform{
		A:  params.AtVec(0),
		B:  params.AtVec(1),
		TX: params.AtVec(2),
		C:  params.AtVec(3),
		D:  params.AtVec(4),
		TY: params.AtVec(5),
	}

	if !transform.IsFinite() {
		return geometry.AffineTransform{}, fmt.Errorf("non-finite solution: %w", ErrSingularMatrix)
	}
	if det := transform.Det(); det > -singularDetTolerance && det < singularDetTolerance {
		return geometry.AffineTransform{}, fmt.Errorf("fitted linear part determinant %.3e: %w", transform.Det(), ErrSingularMatrix)
	}

	return transform, nil
}

// ResidualRMSE computes the root-mean-square planar distance between the
// transformed source points and their targets.
func ResidualRMSE(source, target []geometry.Point3, transform geometry.AffineTransform) float64 {
	if len(source) == 0 || len(source) != len(target) {
		return 0
	}
	var sum float64
	for i := range source {
		d := transform.Apply(source[i]).DistanceXY(target[i])
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(source)))
}
