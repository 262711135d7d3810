// Package registry tracks per-antenna calibration sessions across a rig:
// correspondence point accumulation, solve invocation, and fleet-wide
// completion statistics. A Registry is shared mutable state; all methods
// are safe for concurrent use.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"uwb-viewer/internal/calibration"
	"uwb-viewer/pkg/geometry"
)

// Status is the lifecycle state of one calibration session.
type Status int

const (
	// StatusEmpty means the session holds no correspondence points.
	StatusEmpty Status = iota
	// StatusAccumulating means points are present but no current solve result.
	StatusAccumulating
	// StatusCalibrated means a solve succeeded on the current point set.
	StatusCalibrated
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusAccumulating:
		return "accumulating"
	case StatusCalibrated:
		return "calibrated"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrUnknownOwner is returned for operations on an owner id that has no
// session.
var ErrUnknownOwner = errors.New("unknown owner id")

// session accumulates correspondence points for one antenna and holds the
// solve result once calibrated.
type session struct {
	points    []calibration.CorrespondencePoint
	status    Status
	transform calibration.SimilarityTransform
	accuracy  float64
}

// Stats summarizes calibration progress across the fleet.
type Stats struct {
	TotalAntennas        int
	CalibratedAntennas   int
	CompletionPercentage float64
	AverageAccuracy      float64
}

// Registry maps owner ids to calibration sessions. The zero value is not
// usable; create one with New. Callers own its lifecycle; it is passed by
// reference to whichever component needs it.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	nextID   int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{sessions: make(map[string]*session)}
}

// AddPoint appends a correspondence point to the owner's session,
// creating the session on first use. The returned point carries the
// generated id used for later removal. Adding never fails and never
// changes a calibrated session's stored result.
func (r *Registry) AddPoint(ownerID string, reference, measured geometry.Point3) calibration.CorrespondencePoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[ownerID]
	if !ok {
		s = &session{status: StatusEmpty}
		r.sessions[ownerID] = s
	}

	r.nextID++
	cp := calibration.CorrespondencePoint{
		ID:        fmt.Sprintf("%s-%d", ownerID, r.nextID),
		OwnerID:   ownerID,
		Reference: reference,
		Measured:  measured,
	}
	s.points = append(s.points, cp)
	if s.status == StatusEmpty {
		s.status = StatusAccumulating
	}
	return cp
}

// RemovePoint removes a point by id from the owner's session. It reports
// whether a point was removed. Removing a point from a calibrated session
// invalidates the stored transform: the result was computed from a point
// set that no longer exists.
func (r *Registry) RemovePoint(ownerID, pointID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[ownerID]
	if !ok {
		return false
	}
	for i, cp := range s.points {
		if cp.ID != pointID {
			continue
		}
		s.points = append(s.points[:i], s.points[i+1:]...)
		if s.status == StatusCalibrated {
			s.transform = calibration.SimilarityTransform{}
			s.accuracy = 0
			s.status = StatusAccumulating
		}
		if len(s.points) == 0 {
			s.status = StatusEmpty
		}
		return true
	}
	return false
}

// PerformCalibration runs the similarity solver over the owner's
// accumulated points. On success the result is stored and the session
// marked calibrated; on failure the session state is left untouched and
// the solver error is returned.
func (r *Registry) PerformCalibration(ownerID string) (calibration.SimilarityTransform, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[ownerID]
	if !ok {
		return calibration.SimilarityTransform{}, fmt.Errorf("owner %q: %w", ownerID, ErrUnknownOwner)
	}

	transform, err := calibration.CalculateTransform(s.points)
	if err != nil {
		return calibration.SimilarityTransform{}, fmt.Errorf("calibrate %q: %w", ownerID, err)
	}

	s.transform = transform
	s.accuracy = transform.Accuracy
	s.status = StatusCalibrated
	return transform, nil
}

// Transform returns the stored transform for the owner. The second result
// is false unless the session is currently calibrated.
func (r *Registry) Transform(ownerID string) (calibration.SimilarityTransform, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[ownerID]
	if !ok || s.status != StatusCalibrated {
		return calibration.SimilarityTransform{}, false
	}
	return s.transform, true
}

// Status returns the lifecycle state of the owner's session. Owners
// without a session report StatusEmpty.
func (r *Registry) Status(ownerID string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[ownerID]
	if !ok {
		return StatusEmpty
	}
	return s.status
}

// Points returns a copy of the owner's correspondence points in insertion
// order.
func (r *Registry) Points(ownerID string) []calibration.CorrespondencePoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[ownerID]
	if !ok || len(s.points) == 0 {
		return nil
	}
	out := make([]calibration.CorrespondencePoint, len(s.points))
	copy(out, s.points)
	return out
}

// Owners returns the ids of all known sessions, in map order.
func (r *Registry) Owners() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.sessions))
	for ownerID := range r.sessions {
		out = append(out, ownerID)
	}
	return out
}

// Clear removes the owner's session entirely.
func (r *Registry) Clear(ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, ownerID)
}

// Reset removes every session.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*session)
}

// Statistics scans all sessions and reports fleet-wide completion.
// AverageAccuracy averages over calibrated sessions only and is 0 when
// none are calibrated.
func (r *Registry) Statistics() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{TotalAntennas: len(r.sessions)}
	var accuracySum float64
	for _, s := range r.sessions {
		if s.status == StatusCalibrated {
			stats.CalibratedAntennas++
			accuracySum += s.accuracy
		}
	}
	if stats.TotalAntennas > 0 {
		stats.CompletionPercentage = float64(stats.CalibratedAntennas) / float64(stats.TotalAntennas) * 100
	}
	if stats.CalibratedAntennas > 0 {
		stats.AverageAccuracy = accuracySum / float64(stats.CalibratedAntennas)
	}
	return stats
}
