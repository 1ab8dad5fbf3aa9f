package calibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"fusionguard/internal/telemetry"
)

// normEpsilon is the smallest score range that is rescaled before the sigmoid.
const normEpsilon = 1e-9

// Platt fits a one-dimensional logistic regression of label on score.
//
// Without labels it falls back to min-max normalisation of the batch followed
// by a plain sigmoid. That mapping is order preserving but is not a
// calibration; its model is tagged with version "normalized".
type Platt struct{}

// FitTransform fits the model and returns the calibrated batch.
func (Platt) FitTransform(scores []float64, labels []bool) ([]float64, Model, error) {
	if err := checkBatch(scores, labels); err != nil {
		return nil, nil, err
	}

	var m PlattModel
	if labels == nil {
		m = PlattModel{Scale: 1, Offset: 0, VersionTag: VersionNormalized}
		lo, hi := floats.Min(scores), floats.Max(scores)
		if hi-lo > normEpsilon {
			m.Normalize = true
			m.NormMin, m.NormMax = lo, hi
		}
	} else {
		scale, offset, err := fitLogistic(scores, labels)
		if err != nil {
			return nil, nil, err
		}
		m = PlattModel{Scale: scale, Offset: offset, VersionTag: VersionFitted}
	}
	return ApplyAll(m, scores), m, nil
}

// PlattModel computes sigmoid(Scale*x + Offset), where x is the raw score or,
// when Normalize is set, (score-NormMin)/(NormMax-NormMin).
type PlattModel struct {
	Scale      float64
	Offset     float64
	VersionTag string
	Normalize  bool
	NormMin    float64
	NormMax    float64
}

func (m PlattModel) Kind() Kind      { return KindPlatt }
func (m PlattModel) Version() string { return m.VersionTag }

// Apply maps one raw score to a probability.
func (m PlattModel) Apply(score float64) float64 {
	x := score
	if m.Normalize {
		x = (score - m.NormMin) / (m.NormMax - m.NormMin)
	}
	return sigmoid(m.Scale*x + m.Offset)
}

func (m PlattModel) Record() Record {
	r := Record{Kind: string(KindPlatt), Scale: m.Scale, Offset: m.Offset, Version: m.VersionTag}
	if m.Normalize {
		lo, hi := m.NormMin, m.NormMax
		r.NormMin, r.NormMax = &lo, &hi
	}
	return r
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// log1pExp returns log(1 + e^z) without overflow.
func log1pExp(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

// fitLogistic minimises 0.5*(w^2 + b^2) + sum log(1 + exp(-y(w*x + b))) with
// y in {-1, +1}. The intercept is penalised like the slope, as liblinear does
// with its default settings.
func fitLogistic(scores []float64, labels []bool) (scale, offset float64, err error) {
	ys := make([]float64, len(labels))
	for i, positive := range labels {
		ys[i] = -1
		if positive {
			ys[i] = 1
		}
	}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			w, b := p[0], p[1]
			loss := 0.5 * (w*w + b*b)
			for i, x := range scores {
				loss += log1pExp(-ys[i] * (w*x + b))
			}
			return loss
		},
		Grad: func(grad, p []float64) {
			w, b := p[0], p[1]
			grad[0], grad[1] = w, b
			for i, x := range scores {
				// d/dz log(1+e^{-yz}) = -y * sigmoid(-yz)
				g := -ys[i] * sigmoid(-ys[i]*(w*x+b))
				grad[0] += g * x
				grad[1] += g
			}
		},
	}

	// A line-search failure close to the optimum still leaves a usable
	// iterate, so only a missing or non-finite result is fatal.
	result, err := optimize.Minimize(problem, []float64{0, 0}, nil, &optimize.BFGS{})
	if result == nil || !finite(result.X) {
		return 0, 0, fmt.Errorf("fit platt scaling: no finite optimum (%v): %w", err, telemetry.ErrDegenerateData)
	}
	return result.X[0], result.X[1], nil
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
