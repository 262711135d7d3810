package calibration

// PoseQuality grades a pose estimate by its residual RMSE. The grading is
// advisory; a poor pose is still a pose.
type PoseQuality string

const (
	// PoseQualityExcellent indicates RMSE < 0.05 units.
	PoseQualityExcellent PoseQuality = "excellent"
	// PoseQualityGood indicates RMSE 0.05-0.15 units.
	PoseQualityGood PoseQuality = "good"
	// PoseQualityFair indicates RMSE 0.15-0.30 units; consider recalibration.
	PoseQualityFair PoseQuality = "fair"
	// PoseQualityPoor indicates RMSE > 0.30 units; recalibration required.
	PoseQualityPoor PoseQuality = "poor"
	// PoseQualityUnknown indicates RMSE was not computed.
	PoseQualityUnknown PoseQuality = "unknown"
)

// RMSE thresholds separating the quality grades, in input coordinate units.
const (
	rmseThresholdExcellent = 0.05
	rmseThresholdGood      = 0.15
	rmseThresholdFair      = 0.30
)

// Quality returns the RMSE-based grade of the pose estimate.
func (p AntennaPose) Quality() PoseQuality {
	switch {
	case p.RMSE < 0:
		return PoseQualityUnknown
	case p.RMSE < rmseThresholdExcellent:
		return PoseQualityExcellent
	case p.RMSE < rmseThresholdGood:
		return PoseQualityGood
	case p.RMSE < rmseThresholdFair:
		return PoseQualityFair
	default:
		return PoseQualityPoor
	}
}

// String returns a human-readable description of the quality grade.
func (q PoseQuality) String() string {
	switch q {
	case PoseQualityExcellent:
		return "excellent (RMSE < 0.05)"
	case PoseQualityGood:
		return "good (RMSE 0.05-0.15)"
	case PoseQualityFair:
		return "fair (RMSE 0.15-0.30, consider recalibration)"
	case PoseQualityPoor:
		return "poor (RMSE > 0.30, recalibration required)"
	default:
		return string(q)
	}
}
