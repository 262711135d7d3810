// Command calibtest runs a calibration scenario file through the engine
// and prints per-antenna transforms, pose estimates and fleet statistics.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"uwb-viewer/internal/calibration"
	"uwb-viewer/internal/registry"
	"uwb-viewer/internal/version"
	"uwb-viewer/pkg/geometry"
)

// scenario is the YAML input format: a list of antennas with reference/
// measured pairs, plus optional raw per-tag measurement batches matched
// against shared truth positions.
type scenario struct {
	Antennas []antennaInput             `yaml:"antennas"`
	Truth    map[string]geometry.Point3 `yaml:"truth"`
}

type antennaInput struct {
	ID     string                       `yaml:"id"`
	Points []pairInput                  `yaml:"points"`
	Tags   map[string][]geometry.Point3 `yaml:"tags"`
}

type pairInput struct {
	Reference geometry.Point3 `yaml:"reference"`
	Measured  geometry.Point3 `yaml:"measured"`
}

func main() {
	file := flag.String("f", "", "Path to scenario YAML file")
	verbose := flag.Bool("v", false, "Print per-point residuals")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("calibtest", version.String())
		return
	}

	if *file == "" {
		fmt.Println("Usage: calibtest -f <scenario.yaml> [-v]")
		os.Exit(1)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read scenario: %v\n", err)
		os.Exit(1)
	}

	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse scenario: %v\n", err)
		os.Exit(1)
	}
	if len(sc.Antennas) == 0 {
		fmt.Fprintln(os.Stderr, "Scenario has no antennas")
		os.Exit(1)
	}

	reg := registry.New()
	failures := 0

	for _, ant := range sc.Antennas {
		fmt.Printf("=== Antenna %s ===\n", ant.ID)

		for _, pair := range ant.Points {
			reg.AddPoint(ant.ID, pair.Reference, pair.Measured)
		}

		if len(ant.Points) > 0 {
			transform, err := reg.PerformCalibration(ant.ID)
			if err != nil {
				fmt.Printf("calibration failed: %v\n", err)
				failures++
			} else {
				printTransform(transform)
				if *verbose {
					printResiduals(reg.Points(ant.ID), transform)
				}
			}
		}

		if len(ant.Tags) > 0 {
			pose, err := calibration.EstimateAntennaConfig(ant.Tags, sc.Truth)
			if err != nil {
				fmt.Printf("pose estimation failed: %v\n", err)
				failures++
			} else {
				fmt.Printf("pose: (%.3f, %.3f) angle=%.2f° scale=(%.3f, %.3f) rmse=%.4f [%s]\n",
					pose.X, pose.Y, pose.AngleDegrees, pose.ScaleX, pose.ScaleY, pose.RMSE, pose.Quality())
			}
		}

		fmt.Println()
	}

	stats := reg.Statistics()
	fmt.Printf("=== Fleet ===\n")
	fmt.Printf("antennas: %d, calibrated: %d (%.1f%%), avg accuracy: %.4f\n",
		stats.TotalAntennas, stats.CalibratedAntennas, stats.CompletionPercentage, stats.AverageAccuracy)

	if failures > 0 {
		os.Exit(1)
	}
}

func printTransform(t calibration.SimilarityTransform) {
	fmt.Printf("translation: (%.3f, %.3f, %.3f)\n", t.Translation.X, t.Translation.Y, t.Translation.Z)
	fmt.Printf("rotation:    %.2f°\n", t.Rotation*180/math.Pi)
	fmt.Printf("scale:       (%.4f, %.4f)\n", t.Scale.X, t.Scale.Y)
	fmt.Printf("accuracy:    %.4f\n", t.Accuracy)
}

func printResiduals(points []calibration.CorrespondencePoint, t calibration.SimilarityTransform) {
	for _, cp := range points {
		mapped := calibration.ApplyCalibration(cp.Measured, t)
		fmt.Printf("  %s: residual %.4f\n", cp.ID, mapped.DistanceXY(cp.Reference))
	}
}
