package calibration

import (
	"sort"

	"uwb-viewer/pkg/geometry"
)

// EstimateAntennaConfig derives one antenna pose from repeated noisy
// per-tag measurements and the known true tag positions. Measurements for
// each tag are averaged, tags present in both maps are matched, and an
// affine fit from averaged measurements to truth yields the antenna
// position (the transform's translation), orientation and per-axis scale.
// Solver failures propagate unchanged.
func EstimateAntennaConfig(measuredByTag map[string][]geometry.Point3, truePositions map[string]geometry.Point3) (AntennaPose, error) {
	common := make([]string, 0, len(measuredByTag))
	for tagID, samples := range measuredByTag {
		if len(samples) == 0 {
			continue
		}
		if _, ok := truePositions[tagID]; ok {
			common = append(common, tagID)
		}
	}
	if len(common) < 3 {
		return AntennaPose{}, &InsufficientPointsError{Required: 3, Provided: len(common)}
	}
	sort.Strings(common)

	source := make([]geometry.Point3, len(common))
	target := make([]geometry.Point3, len(common))
	for i, tagID := range common {
		source[i] = geometry.Centroid(measuredByTag[tagID])
		target[i] = truePositions[tagID]
	}

	transform, err := EstimateAffineTransform(source, target)
	if err != nil {
		return AntennaPose{}, err
	}

	pose, err := ExtractRotationAngle(transform.Linear())
	if err != nil {
		return AntennaPose{}, err
	}

	return AntennaPose{
		X:            transform.TX,
		Y:            transform.TY,
		AngleDegrees: pose.AngleDegrees,
		RMSE:         ResidualRMSE(source, target, transform),
		ScaleX:       pose.ScaleX,
		ScaleY:       pose.ScaleY,
	}, nil
}
