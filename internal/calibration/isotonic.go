package calibration

import (
	"fmt"
	"math"
	"sort"

	"fusionguard/internal/telemetry"
)

// Isotonic fits a non-decreasing mapping from score to positive rate with
// the pool-adjacent-violators algorithm. Ground truth is required.
type Isotonic struct{}

// FitTransform fits the mapping and returns the calibrated batch.
func (Isotonic) FitTransform(scores []float64, labels []bool) ([]float64, Model, error) {
	if labels == nil {
		return nil, nil, fmt.Errorf("isotonic calibration requires labels: %w", telemetry.ErrUnsupportedConfiguration)
	}
	if err := checkBatch(scores, labels); err != nil {
		return nil, nil, err
	}

	m := newIsotonicModel(fitIsotonic(scores, labels))
	return ApplyAll(m, scores), m, nil
}

// IsotonicModel interpolates linearly between breakpoints and clamps scores
// outside the fitted range to the boundary probabilities.
type IsotonicModel struct {
	scores []float64
	probs  []float64
}

func newIsotonicModel(bps []Breakpoint) IsotonicModel {
	m := IsotonicModel{
		scores: make([]float64, len(bps)),
		probs:  make([]float64, len(bps)),
	}
	for i, bp := range bps {
		m.scores[i] = bp.Score
		m.probs[i] = bp.Probability
	}
	return m
}

func (m IsotonicModel) Kind() Kind      { return KindIsotonic }
func (m IsotonicModel) Version() string { return VersionFitted }

// Breakpoints returns a copy of the mapping table.
func (m IsotonicModel) Breakpoints() []Breakpoint {
	out := make([]Breakpoint, len(m.scores))
	for i := range m.scores {
		out[i] = Breakpoint{Score: m.scores[i], Probability: m.probs[i]}
	}
	return out
}

// Apply maps one raw score to a probability.
func (m IsotonicModel) Apply(score float64) float64 {
	n := len(m.scores)
	switch {
	case n == 0 || math.IsNaN(score):
		return math.NaN()
	case score <= m.scores[0]:
		return m.probs[0]
	case score >= m.scores[n-1]:
		return m.probs[n-1]
	}

	hi := sort.SearchFloat64s(m.scores, score)
	if m.scores[hi] == score {
		return m.probs[hi]
	}
	lo := hi - 1
	w := (score - m.scores[lo]) / (m.scores[hi] - m.scores[lo])
	return m.probs[lo] + w*(m.probs[hi]-m.probs[lo])
}

func (m IsotonicModel) Record() Record {
	return Record{
		Kind:        string(KindIsotonic),
		Scale:       1,
		Offset:      0,
		Version:     VersionFitted,
		Breakpoints: m.Breakpoints(),
	}
}

// fitIsotonic returns the breakpoints of the isotonic fit. Tied scores are
// merged into one weighted point and interior points lying on a flat run
// are dropped.
func fitIsotonic(scores []float64, labels []bool) []Breakpoint {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	// unique scores with mean label and weight
	var xs, ys, ws []float64
	for _, i := range idx {
		y := 0.0
		if labels[i] {
			y = 1
		}
		if n := len(xs); n > 0 && xs[n-1] == scores[i] {
			ys[n-1] += y
			ws[n-1]++
			continue
		}
		xs = append(xs, scores[i])
		ys = append(ys, y)
		ws = append(ws, 1)
	}
	for i := range ys {
		ys[i] /= ws[i]
	}

	fitted := poolAdjacentViolators(ys, ws)

	bps := make([]Breakpoint, 0, len(xs))
	for i := range xs {
		if i > 0 && i < len(xs)-1 && fitted[i-1] == fitted[i] && fitted[i] == fitted[i+1] {
			continue
		}
		bps = append(bps, Breakpoint{Score: xs[i], Probability: fitted[i]})
	}
	return bps
}

// poolAdjacentViolators returns the weighted least-squares non-decreasing fit of ys.
func poolAdjacentViolators(ys, ws []float64) []float64 {
	type block struct {
		sum, weight float64
		count       int
	}
	blocks := make([]block, 0, len(ys))
	for i := range ys {
		blocks = append(blocks, block{sum: ys[i] * ws[i], weight: ws[i], count: 1})
		for len(blocks) > 1 {
			last := blocks[len(blocks)-1]
			prev := blocks[len(blocks)-2]
			if prev.sum/prev.weight <= last.sum/last.weight {
				break
			}
			blocks = blocks[:len(blocks)-2]
			blocks = append(blocks, block{sum: prev.sum + last.sum, weight: prev.weight + last.weight, count: prev.count + last.count})
		}
	}

	out := make([]float64, 0, len(ys))
	for _, b := range blocks {
		v := b.sum / b.weight
		for k := 0; k < b.count; k++ {
			out = append(out, v)
		}
	}
	return out
}
