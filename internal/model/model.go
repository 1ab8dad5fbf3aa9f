// Package model fits the baseline disruption scorer that feeds calibration.
package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"fusionguard/internal/telemetry"
)

// Scorer produces raw, unbounded scores for the rows of a design matrix.
type Scorer interface {
	Scores(x *mat.Dense) ([]float64, error)
}

// Params is the exported form of a linear scorer: score = intercept + sum(coef * value).
type Params struct {
	Coefficients map[string]float64 `json:"coefficients"`
	Intercept    float64            `json:"intercept"`
	Version      string             `json:"version"`
}

// Score evaluates the linear scorer on one row of named feature values.
func (p Params) Score(features map[string]float64) float64 {
	score := p.Intercept
	for name, value := range features {
		score += value * p.Coefficients[name]
	}
	return score
}

// DesignMatrix builds a rows x features matrix from table columns. Missing
// values become 0.
func DesignMatrix(table *telemetry.Table, features []string) (*mat.Dense, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("design matrix: no features: %w", telemetry.ErrInvalidInput)
	}
	rows := table.Len()
	x := mat.NewDense(rows, len(features), nil)
	for j, name := range features {
		col, ok := table.Column(name)
		if !ok {
			return nil, fmt.Errorf("design matrix: missing feature %q: %w", name, telemetry.ErrInvalidInput)
		}
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			x.Set(i, j, v)
		}
	}
	return x, nil
}
