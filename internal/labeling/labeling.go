// Package labeling turns time-to-disruption into per-horizon binary labels.
package labeling

import (
	"fmt"
	"math"

	"fusionguard/internal/telemetry"
)

// Column names the label column of a horizon, e.g. label_h50.
func Column(horizonMs int) string {
	return fmt.Sprintf("label_h%d", horizonMs)
}

// LabelSet holds one boolean column per distinct horizon, in first-seen order.
type LabelSet struct {
	Horizons []int
	Labels   map[int][]bool
}

// For returns the labels of horizon h.
func (s LabelSet) For(h int) ([]bool, bool) {
	l, ok := s.Labels[h]
	return l, ok
}

// Label computes label_h{h}[i] = ttd[i] <= h for each horizon. Rows with a
// NaN time to disruption are rejected; non-disruptive rows carry +Inf.
func Label(ttd []float64, horizons []int) (LabelSet, error) {
	if len(horizons) == 0 {
		return LabelSet{}, fmt.Errorf("label: no horizons: %w", telemetry.ErrInvalidInput)
	}
	for i, v := range ttd {
		if math.IsNaN(v) {
			return LabelSet{}, fmt.Errorf("label: row %d has no time to disruption: %w", i, telemetry.ErrInvalidInput)
		}
	}

	set := LabelSet{Labels: make(map[int][]bool, len(horizons))}
	for _, h := range horizons {
		if _, dup := set.Labels[h]; dup {
			continue
		}
		col := make([]bool, len(ttd))
		limit := float64(h)
		for i, v := range ttd {
			col[i] = v <= limit
		}
		set.Horizons = append(set.Horizons, h)
		set.Labels[h] = col
	}
	return set, nil
}

// Apply labels table and appends the label columns as 0/1 values.
func Apply(table *telemetry.Table, horizons []int) (LabelSet, error) {
	set, err := Label(table.TimeToDisruption(), horizons)
	if err != nil {
		return LabelSet{}, err
	}
	for _, h := range set.Horizons {
		labels := set.Labels[h]
		col := make([]float64, len(labels))
		for i, positive := range labels {
			if positive {
				col[i] = 1
			}
		}
		if err := table.SetColumn(Column(h), col); err != nil {
			return LabelSet{}, fmt.Errorf("label horizon %dms: %w", h, err)
		}
	}
	return set, nil
}
