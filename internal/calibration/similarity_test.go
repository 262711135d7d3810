package calibration

import (
	"errors"
	"math"
	"testing"

	"uwb-viewer/pkg/geometry"
)

// lShape returns the three-point L configuration used across the fit tests.
func lShape() []geometry.Point3 {
	return []geometry.Point3{
		{X: 0, Y: 0},
		{X: 5, Y: 0},
		{X: 0, Y: 5},
	}
}

func pairsFrom(refs, meas []geometry.Point3) []CorrespondencePoint {
	points := make([]CorrespondencePoint, len(refs))
	for i := range refs {
		points[i] = CorrespondencePoint{
			ID:        string(rune('a' + i)),
			OwnerID:   "antenna-1",
			Reference: refs[i],
			Measured:  meas[i],
		}
	}
	return points
}

func TestCalculateTransform_Identity(t *testing.T) {
	refs := lShape()
	transform, err := CalculateTransform(pairsFrom(refs, refs))
	if err != nil {
		t.Fatalf("CalculateTransform failed: %v", err)
	}

	if math.Abs(transform.Translation.X) > 1e-9 || math.Abs(transform.Translation.Y) > 1e-9 {
		t.Errorf("Expected zero translation, got (%v, %v)", transform.Translation.X, transform.Translation.Y)
	}
	if math.Abs(transform.Rotation) > 1e-9 {
		t.Errorf("Expected zero rotation, got %v", transform.Rotation)
	}
	if math.Abs(transform.Scale.X-1) > 1e-9 || math.Abs(transform.Scale.Y-1) > 1e-9 {
		t.Errorf("Expected unit scale, got (%v, %v)", transform.Scale.X, transform.Scale.Y)
	}
	if transform.Accuracy > 0.001 {
		t.Errorf("Expected near-zero accuracy, got %v", transform.Accuracy)
	}
	if !transform.IsValid() {
		t.Error("Transform should be valid")
	}
}

func TestCalculateTransform_TranslationRecovery(t *testing.T) {
	refs := lShape()
	offset := geometry.Point3{X: 1.5, Y: 1.0}
	meas := make([]geometry.Point3, len(refs))
	for i, r := range refs {
		meas[i] = r.Sub(offset)
	}

	transform, err := CalculateTransform(pairsFrom(refs, meas))
	if err != nil {
		t.Fatalf("CalculateTransform failed: %v", err)
	}

	if math.Abs(transform.Translation.X-1.5) > 1e-6 || math.Abs(transform.Translation.Y-1.0) > 1e-6 {
		t.Errorf("Expected translation (1.5, 1.0), got (%v, %v)", transform.Translation.X, transform.Translation.Y)
	}
	if math.Abs(transform.Rotation) > 1e-6 {
		t.Errorf("Expected zero rotation, got %v", transform.Rotation)
	}
	if math.Abs(transform.Scale.X-1) > 1e-6 || math.Abs(transform.Scale.Y-1) > 1e-6 {
		t.Errorf("Expected unit scale, got (%v, %v)", transform.Scale.X, transform.Scale.Y)
	}
	if transform.Accuracy > 0.01 {
		t.Errorf("Expected accuracy < 0.01, got %v", transform.Accuracy)
	}
}

func TestCalculateTransform_ScaleRecovery(t *testing.T) {
	refs := lShape()
	meas := make([]geometry.Point3, len(refs))
	for i, r := range refs {
		meas[i] = r.Scale(0.5)
	}

	transform, err := CalculateTransform(pairsFrom(refs, meas))
	if err != nil {
		t.Fatalf("CalculateTransform failed: %v", err)
	}

	if math.Abs(transform.Scale.X-0.5) > 1e-6 || math.Abs(transform.Scale.Y-0.5) > 1e-6 {
		t.Errorf("Expected scale (0.5, 0.5), got (%v, %v)", transform.Scale.X, transform.Scale.Y)
	}
	if transform.Accuracy > 0.1 {
		t.Errorf("Expected accuracy < 0.1, got %v", transform.Accuracy)
	}
}

func TestCalculateTransform_RotationAndScale(t *testing.T) {
	// Sensor frame rotated 30° and reporting half-size coordinates:
	// measured = 0.5 * R(-30°) * reference.
	theta := 30 * math.Pi / 180
	inv := geometry.Rotation(-theta)
	refs := []geometry.Point3{
		{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 0, Y: 5}, {X: 4, Y: 4},
	}
	meas := make([]geometry.Point3, len(refs))
	for i, r := range refs {
		meas[i] = inv.Apply(r).Scale(0.5)
	}

	transform, err := CalculateTransform(pairsFrom(refs, meas))
	if err != nil {
		t.Fatalf("CalculateTransform failed: %v", err)
	}

	if math.Abs(transform.Rotation-theta) > 1e-6 {
		t.Errorf("Expected rotation %v, got %v", theta, transform.Rotation)
	}
	if math.Abs(transform.Scale.X-0.5) > 1e-6 || math.Abs(transform.Scale.Y-0.5) > 1e-6 {
		t.Errorf("Expected scale (0.5, 0.5), got (%v, %v)", transform.Scale.X, transform.Scale.Y)
	}
	if transform.Accuracy > 1e-6 {
		t.Errorf("Expected exact fit, got accuracy %v", transform.Accuracy)
	}
}

func TestCalculateTransform_MinimumPoints(t *testing.T) {
	refs := lShape()

	_, err := CalculateTransform(pairsFrom(refs[:2], refs[:2]))
	var ipe *InsufficientPointsError
	if !errors.As(err, &ipe) {
		t.Fatalf("Expected InsufficientPointsError, got %v", err)
	}
	if ipe.Required != 3 || ipe.Provided != 2 {
		t.Errorf("Expected required=3 provided=2, got required=%d provided=%d", ipe.Required, ipe.Provided)
	}

	if _, err := CalculateTransform(pairsFrom(refs, refs)); err != nil {
		t.Errorf("3 non-degenerate points should succeed, got %v", err)
	}
}

func TestCalculateTransform_Degenerate(t *testing.T) {
	refs := lShape()

	t.Run("coincident measured", func(t *testing.T) {
		meas := []geometry.Point3{{X: 2, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 2}}
		_, err := CalculateTransform(pairsFrom(refs, meas))
		if !errors.Is(err, ErrDegenerateConfiguration) {
			t.Errorf("Expected ErrDegenerateConfiguration, got %v", err)
		}
	})

	t.Run("coincident reference", func(t *testing.T) {
		same := []geometry.Point3{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}}
		_, err := CalculateTransform(pairsFrom(same, refs))
		if !errors.Is(err, ErrDegenerateConfiguration) {
			t.Errorf("Expected ErrDegenerateConfiguration, got %v", err)
		}
	})

	t.Run("collinear measured", func(t *testing.T) {
		meas := []geometry.Point3{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
		_, err := CalculateTransform(pairsFrom(refs, meas))
		if !errors.Is(err, ErrSingularMatrix) {
			t.Errorf("Expected ErrSingularMatrix, got %v", err)
		}
	})

	t.Run("reflected measured", func(t *testing.T) {
		meas := make([]geometry.Point3, len(refs))
		for i, r := range refs {
			meas[i] = geometry.Point3{X: r.X, Y: -r.Y}
		}
		_, err := CalculateTransform(pairsFrom(refs, meas))
		if !errors.Is(err, ErrDegenerateConfiguration) {
			t.Errorf("Expected ErrDegenerateConfiguration for reflection, got %v", err)
		}
	})
}

func TestApplyCalibration_RoundTrip(t *testing.T) {
	refs := []geometry.Point3{
		{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 0, Y: 5}, {X: 6, Y: 7},
	}
	offset := geometry.Point3{X: 2.5, Y: -1.25}
	meas := make([]geometry.Point3, len(refs))
	for i, r := range refs {
		meas[i] = r.Scale(0.8).Sub(offset)
	}

	transform, err := CalculateTransform(pairsFrom(refs, meas))
	if err != nil {
		t.Fatalf("CalculateTransform failed: %v", err)
	}

	for i := range refs {
		mapped := ApplyCalibration(meas[i], transform)
		if d := mapped.DistanceXY(refs[i]); d > 0.5 {
			t.Errorf("Point %d: round-trip residual %v exceeds 0.5", i, d)
		}
	}
}

func TestSimilarityTransform_Invert(t *testing.T) {
	refs := []geometry.Point3{
		{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 0, Y: 5}, {X: 3, Y: 2},
	}
	theta := 20 * math.Pi / 180
	inv := geometry.Rotation(-theta)
	meas := make([]geometry.Point3, len(refs))
	for i, r := range refs {
		meas[i] = inv.Apply(r).Scale(0.5).Add(geometry.Point3{X: 1, Y: -2})
	}

	transform, err := CalculateTransform(pairsFrom(refs, meas))
	if err != nil {
		t.Fatalf("CalculateTransform failed: %v", err)
	}

	inverse, err := transform.Invert()
	if err != nil {
		t.Fatalf("Invert failed: %v", err)
	}

	for i := range refs {
		back := inverse.Apply(transform.Apply(meas[i]))
		if d := back.DistanceXY(meas[i]); d > 1e-6 {
			t.Errorf("Point %d: inverse round-trip residual %v", i, d)
		}
	}
}

func TestCalculateTransform_ValidByConstruction(t *testing.T) {
	// A successful return must never carry NaN or infinite fields.
	refs := lShape()
	meas := []geometry.Point3{{X: 0.001, Y: 0}, {X: 0, Y: 0.001}, {X: 0.001, Y: 0.001}}

	transform, err := CalculateTransform(pairsFrom(refs, meas))
	if err != nil {
		// Rejection is acceptable; an invalid transform is not.
		return
	}
	if !transform.IsValid() {
		t.Errorf("Successful return must be valid, got %+v", transform)
	}
}

func TestCalculateTransform_NonFiniteInput(t *testing.T) {
	refs := lShape()
	meas := []geometry.Point3{{X: math.NaN(), Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	_, err := CalculateTransform(pairsFrom(refs, meas))
	if !errors.Is(err, ErrInvalidData) {
		t.Errorf("Expected ErrInvalidData, got %v", err)
	}
}
