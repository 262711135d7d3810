package calibration

import (
	"errors"
	"fmt"
)

// Sentinel errors for calibration failures. Wrapped values carry context;
// match with errors.Is.
var (
	// ErrInvalidData indicates structurally malformed input, such as
	// mismatched source/target lengths.
	ErrInvalidData = errors.New("invalid calibration data")

	// ErrSingularMatrix indicates the least-squares system is not
	// invertible, typically from collinear or coincident points.
	ErrSingularMatrix = errors.New("singular matrix")

	// ErrDegenerateConfiguration indicates numerically unusable input
	// that is not strictly singular, such as near-zero point spread or
	// a reflected linear part.
	ErrDegenerateConfiguration = errors.New("degenerate point configuration")
)

// InsufficientPointsError reports fewer correspondence points than the
// minimum needed to determine the transform.
type InsufficientPointsError struct {
	Required int
	Provided int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient calibration points: need %d, got %d", e.Required, e.Provided)
}

// IsInsufficientPoints reports whether err is an InsufficientPointsError.
func IsInsufficientPoints(err error) bool {
	var ipe *InsufficientPointsError
	return errors.As(err, &ipe)
}
