package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"fusionguard/internal/telemetry"
)

// LogisticOptions tune FitLogistic.
type LogisticOptions struct {
	// C is the inverse L2 regularisation strength; 0 means 1.
	C float64
	// MaxIterations bounds the optimiser; 0 means 1000.
	MaxIterations int
}

// Logistic is an L2-regularised logistic regression whose scores are the
// decision function (log-odds) rather than probabilities.
type Logistic struct {
	features  []string
	coef      []float64
	intercept float64
}

// FitLogistic fits the model on x with binary labels. Features are
// standardised internally; the returned coefficients apply to raw values.
func FitLogistic(x *mat.Dense, features []string, labels []bool, opts LogisticOptions) (*Logistic, error) {
	rows, cols := x.Dims()
	if rows == 0 || rows != len(labels) {
		return nil, fmt.Errorf("fit logistic: %d rows for %d labels: %w", rows, len(labels), telemetry.ErrInvalidInput)
	}
	if cols != len(features) {
		return nil, fmt.Errorf("fit logistic: %d columns for %d feature names: %w", cols, len(features), telemetry.ErrInvalidInput)
	}
	c := opts.C
	if c <= 0 {
		c = 1
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 1000
	}

	means := make([]float64, cols)
	scales := make([]float64, cols)
	z := mat.NewDense(rows, cols, nil)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		means[j], scales[j] = mean, std
		for i, v := range col {
			z.Set(i, j, (v-mean)/std)
		}
	}

	signs := mat.NewVecDense(rows, nil)
	for i, positive := range labels {
		if positive {
			signs.SetVec(i, 1)
		} else {
			signs.SetVec(i, -1)
		}
	}

	margin := mat.NewVecDense(rows, nil)
	weights := mat.NewVecDense(rows, nil)
	gradW := mat.NewVecDense(cols, nil)

	// p = [w..., b]
	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			w := mat.NewVecDense(cols, p[:cols])
			b := p[cols]
			margin.MulVec(z, w)
			loss := 0.5 * (floats.Dot(p[:cols], p[:cols]) + b*b)
			for i := 0; i < rows; i++ {
				loss += c * log1pExp(-signs.AtVec(i)*(margin.AtVec(i)+b))
			}
			return loss
		},
		Grad: func(grad, p []float64) {
			w := mat.NewVecDense(cols, p[:cols])
			b := p[cols]
			margin.MulVec(z, w)
			var gb float64
			for i := 0; i < rows; i++ {
				s := signs.AtVec(i)
				g := -c * s * sigmoid(-s*(margin.AtVec(i)+b))
				weights.SetVec(i, g)
				gb += g
			}
			gradW.MulVec(z.T(), weights)
			for j := 0; j < cols; j++ {
				grad[j] = p[j] + gradW.AtVec(j)
			}
			grad[cols] = b + gb
		},
	}

	settings := &optimize.Settings{MajorIterations: maxIter}
	result, err := optimize.Minimize(problem, make([]float64, cols+1), settings, &optimize.LBFGS{})
	if result == nil {
		return nil, fmt.Errorf("fit logistic: %w", err)
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("fit logistic: non-finite coefficients (%v): %w", err, telemetry.ErrDegenerateData)
		}
	}

	m := &Logistic{features: append([]string(nil), features...), coef: make([]float64, cols)}
	m.intercept = result.X[cols]
	for j := 0; j < cols; j++ {
		m.coef[j] = result.X[j] / scales[j]
		m.intercept -= result.X[j] * means[j] / scales[j]
	}
	return m, nil
}

// Features returns the feature order the model expects.
func (m *Logistic) Features() []string {
	return append([]string(nil), m.features...)
}

// Scores returns the decision function for every row of x.
func (m *Logistic) Scores(x *mat.Dense) ([]float64, error) {
	rows, cols := x.Dims()
	if cols != len(m.coef) {
		return nil, fmt.Errorf("score: %d columns, model has %d features: %w", cols, len(m.coef), telemetry.ErrInvalidInput)
	}
	out := mat.NewVecDense(rows, nil)
	out.MulVec(x, mat.NewVecDense(cols, append([]float64(nil), m.coef...)))
	scores := make([]float64, rows)
	for i := range scores {
		scores[i] = out.AtVec(i) + m.intercept
	}
	return scores, nil
}

// Params exports the model with raw-space coefficients.
func (m *Logistic) Params(version string) Params {
	p := Params{Coefficients: make(map[string]float64, len(m.features)), Intercept: m.intercept, Version: version}
	for j, name := range m.features {
		p.Coefficients[name] = m.coef[j]
	}
	return p
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func log1pExp(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

var _ Scorer = (*Logistic)(nil)

// Probability maps a decision-function score to P(disruption).
func Probability(score float64) float64 {
	return sigmoid(score)
}
