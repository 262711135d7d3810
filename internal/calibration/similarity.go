package calibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"uwb-viewer/pkg/geometry"
)

// spreadTolerance is the minimum RMS planar deviation from the centroid a
// point set must have to anchor a fit. Below this the geometry carries no
// rotation or scale information.
const spreadTolerance = 1e-6

// CalculateTransform fits a similarity transform (translation, rotation,
// independent per-axis scale) that maps the measured positions of the
// given correspondence points onto their reference positions.
//
// The linear part is fit by least squares over the centroid deviations of
// both sets and then factored into a proper rotation and per-axis scale
// (see decomposeLinear). Translation is the reference centroid minus the
// image of the measured centroid. Accuracy is the RMS planar residual of
// the returned transform over the input points; the returned transform is
// always valid per SimilarityTransform.IsValid.
func CalculateTransform(points []CorrespondencePoint) (SimilarityTransform, error) {
	if len(points) < 3 {
		return SimilarityTransform{}, &InsufficientPointsError{Required: 3, Provided: len(points)}
	}

	refs := make([]geometry.Point3, len(points))
	meas := make([]geometry.Point3, len(points))
	for i, cp := range points {
		if !cp.Reference.IsFinite() || !cp.Measured.IsFinite() {
			return SimilarityTransform{}, fmt.Errorf("point %q has non-finite coordinates: %w", cp.ID, ErrInvalidData)
		}
		refs[i] = cp.Reference
		meas[i] = cp.Measured
	}

	refCentroid := geometry.Centroid(refs)
	measCentroid := geometry.Centroid(meas)

	if s := planarSpread(refs, refCentroid); s < spreadTolerance {
		return SimilarityTransform{}, fmt.Errorf("reference points have no spread (%.3e): %w", s, ErrDegenerateConfiguration)
	}
	if s := planarSpread(meas, measCentroid); s < spreadTolerance {
		return SimilarityTransform{}, fmt.Errorf("measured points have no spread (%.3e): %w", s, ErrDegenerateConfiguration)
	}

	linear, err := fitDeviationMap(meas, measCentroid, refs, refCentroid)
	if err != nil {
		return SimilarityTransform{}, err
	}

	angle, fwdSX, fwdSY, _, err := decomposeLinear(linear)
	if err != nil {
		return SimilarityTransform{}, err
	}

	transform := SimilarityTransform{
		Rotation: angle,
		Scale:    geometry.Point3{X: 1 / fwdSX, Y: 1 / fwdSY, Z: 1},
	}

	// Translation anchors the measured centroid onto the reference
	// centroid after rotation and scaling; Z is a plain offset.
	mapped := transform.Matrix().Linear().Apply(measCentroid)
	transform.Translation = geometry.Point3{
		X: refCentroid.X - mapped.X,
		Y: refCentroid.Y - mapped.Y,
		Z: refCentroid.Z - measCentroid.Z,
	}

	var sum float64
	for i := range points {
		d := transform.Apply(meas[i]).DistanceXY(refs[i])
		sum += d * d
	}
	transform.Accuracy = math.Sqrt(sum / float64(len(points)))

	if !transform.IsValid() {
		return SimilarityTransform{}, fmt.Errorf("fit produced invalid transform: %w", ErrDegenerateConfiguration)
	}
	return transform, nil
}

// ApplyCalibration maps a measured-frame point into the reference frame
// using the given transform.
func ApplyCalibration(p geometry.Point3, transform SimilarityTransform) geometry.Point3 {
	return transform.Apply(p)
}

// planarSpread returns the RMS XY distance of the points from the centroid.
func planarSpread(points []geometry.Point3, centroid geometry.Point3) float64 {
	var sum float64
	for _, p := range points {
		d := p.DistanceXY(centroid)
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(points)))
}

// fitDeviationMap solves for the 2x2 map taking measured centroid
// deviations onto reference centroid deviations in the least-squares
// sense. Collinear measured deviations make the system rank deficient.
func fitDeviationMap(meas []geometry.Point3, measCentroid geometry.Point3, refs []geometry.Point3, refCentroid geometry.Point3) (geometry.AffineTransform, error) {
	n := len(meas)

	A := mat.NewDense(n*2, 4, nil)
	B := mat.NewVecDense(n*2, nil)

	for i := 0; i < n; i++ {
		mx := meas[i].X - measCentroid.X
		my := meas[i].Y - measCentroid.Y
		rx := refs[i].X - refCentroid.X
		ry := refs[i].Y - refCentroid.Y

		A.Set(i*2, 0, mx)
		A.Set(i*2, 1, my)
		B.SetVec(i*2, rx)

		A.Set(i*2+1, 2, mx)
		A.Set(i*2+1, 3, my)
		B.SetVec(i*2+1, ry)
	}

	if cond := mat.Cond(A, 2); cond > affineConditionLimit {
		return geometry.AffineTransform{}, fmt.Errorf("deviation matrix condition %.3e: %w", cond, ErrSingularMatrix)
	}

	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return geometry.AffineTransform{}, fmt.Errorf("least-squares solve: %w", ErrSingularMatrix)
	}

	return geometry.AffineTransform{
		A: params.AtVec(0), B: params.AtVec(1),
		C: params.AtVec(2), D: params.AtVec(3),
	}, nil
}
