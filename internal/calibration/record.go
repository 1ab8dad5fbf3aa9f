package calibration

import (
	"fmt"
	"math"
	"sort"

	"fusionguard/internal/telemetry"
)

// Breakpoint is one knot of an isotonic mapping.
type Breakpoint struct {
	Score       float64 `json:"score"`
	Probability float64 `json:"probability"`
}

// Record is the persisted form of a Model.
//
// Platt records use scale/offset; a "normalized" Platt record additionally
// carries the score bounds of the batch it was built from. Isotonic records
// carry the full breakpoint table.
type Record struct {
	Kind        string       `json:"kind"`
	Scale       float64      `json:"scale"`
	Offset      float64      `json:"offset"`
	Version     string       `json:"version"`
	NormMin     *float64     `json:"norm_min,omitempty"`
	NormMax     *float64     `json:"norm_max,omitempty"`
	Breakpoints []Breakpoint `json:"breakpoints,omitempty"`
}

// FromRecord rebuilds the Model described by r.
func FromRecord(r Record) (Model, error) {
	kind, err := ParseKind(r.Kind)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindPlatt:
		m := PlattModel{Scale: r.Scale, Offset: r.Offset, VersionTag: r.Version}
		if (r.NormMin == nil) != (r.NormMax == nil) {
			return nil, fmt.Errorf("platt record: partial normalisation bounds: %w", telemetry.ErrInvalidInput)
		}
		if r.NormMin != nil {
			m.Normalize = true
			m.NormMin, m.NormMax = *r.NormMin, *r.NormMax
		}
		return m, nil

	case KindIsotonic:
		if len(r.Breakpoints) == 0 {
			return nil, fmt.Errorf("isotonic record: no breakpoints: %w", telemetry.ErrInvalidInput)
		}
		bps := append([]Breakpoint(nil), r.Breakpoints...)
		for i, bp := range bps {
			if math.IsNaN(bp.Score) || math.IsInf(bp.Score, 0) {
				return nil, fmt.Errorf("isotonic record: breakpoint %d score is %v: %w", i, bp.Score, telemetry.ErrInvalidInput)
			}
			if math.IsNaN(bp.Probability) || bp.Probability < 0 || bp.Probability > 1 {
				return nil, fmt.Errorf("isotonic record: breakpoint %d probability is %v: %w", i, bp.Probability, telemetry.ErrInvalidInput)
			}
		}
		ok := sort.SliceIsSorted(bps, func(i, j int) bool { return bps[i].Score < bps[j].Score })
		if !ok {
			return nil, fmt.Errorf("isotonic record: breakpoints not sorted by score: %w", telemetry.ErrInvalidInput)
		}
		for i := 1; i < len(bps); i++ {
			if bps[i].Probability < bps[i-1].Probability {
				return nil, fmt.Errorf("isotonic record: breakpoint %d decreases: %w", i, telemetry.ErrInvalidInput)
			}
		}
		return newIsotonicModel(bps), nil

	default:
		return IdentityModel{}, nil
	}
}
