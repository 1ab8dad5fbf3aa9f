// Package calibration maps raw classifier scores to probabilities.
//
// A fitted mapping is a Model: Platt (sigmoid of a linear transform),
// Isotonic (monotone piecewise-linear table) or Identity. Every Model can be
// persisted as a Record and rebuilt from it without refitting.
package calibration

import (
	"fmt"
	"math"
	"strings"

	"fusionguard/internal/telemetry"
)

// Kind selects a calibration method.
type Kind string

const (
	KindPlatt    Kind = "platt"
	KindIsotonic Kind = "isotonic"
	KindNone     Kind = "none"
)

// Model versions written into records.
const (
	VersionFitted     = "fitted"
	VersionNormalized = "normalized"
	VersionNone       = "none"
)

// ParseKind resolves a configured calibration kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPlatt, KindIsotonic, KindNone:
		return k, nil
	default:
		return "", fmt.Errorf("calibration kind %q: %w", s, telemetry.ErrUnsupportedConfiguration)
	}
}

// Model is an immutable score-to-probability mapping.
type Model interface {
	Kind() Kind
	Version() string
	Apply(score float64) float64
	Record() Record
}

// Calibrator fits a Model on a batch of raw scores. labels may be nil when no
// ground truth is available; not every method supports that.
type Calibrator interface {
	FitTransform(scores []float64, labels []bool) ([]float64, Model, error)
}

// New returns the calibrator for kind.
func New(kind string) (Calibrator, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	switch k {
	case KindPlatt:
		return Platt{}, nil
	case KindIsotonic:
		return Isotonic{}, nil
	default:
		return None{}, nil
	}
}

// ApplyAll maps every score through m.
func ApplyAll(m Model, scores []float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = m.Apply(s)
	}
	return out
}

func checkBatch(scores []float64, labels []bool) error {
	if len(scores) == 0 {
		return fmt.Errorf("calibrate: no scores: %w", telemetry.ErrInvalidInput)
	}
	if labels != nil && len(labels) != len(scores) {
		return fmt.Errorf("calibrate: %d labels for %d scores: %w", len(labels), len(scores), telemetry.ErrInvalidInput)
	}
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("calibrate: score %d is %v: %w", i, s, telemetry.ErrInvalidInput)
		}
	}
	return nil
}

// None leaves scores untouched.
type None struct{}

// FitTransform returns a copy of scores and the identity model.
func (None) FitTransform(scores []float64, labels []bool) ([]float64, Model, error) {
	if labels != nil && len(labels) != len(scores) {
		return nil, nil, fmt.Errorf("calibrate: %d labels for %d scores: %w", len(labels), len(scores), telemetry.ErrInvalidInput)
	}
	return append([]float64(nil), scores...), IdentityModel{}, nil
}

// IdentityModel returns the raw score.
type IdentityModel struct{}

func (IdentityModel) Kind() Kind                  { return KindNone }
func (IdentityModel) Version() string             { return VersionNone }
func (IdentityModel) Apply(score float64) float64 { return score }

func (IdentityModel) Record() Record {
	return Record{Kind: string(KindNone), Scale: 1, Offset: 0, Version: VersionNone}
}
