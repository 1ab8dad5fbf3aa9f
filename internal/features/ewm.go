package features

import "math"

// ewmBaseline tracks an exponentially weighted mean and bias-corrected
// standard deviation with a fixed smoothing factor and no start-up
// adjustment: after every update the weights are renormalised so the
// running mean follows mean = (1-alpha)*mean + alpha*x.
type ewmBaseline struct {
	alpha  float64
	mean   float64
	cov    float64
	sumWt  float64
	sumWt2 float64
	oldWt  float64
	nobs   int
}

func newEWMBaseline(alpha float64) *ewmBaseline {
	return &ewmBaseline{alpha: alpha}
}

func (b *ewmBaseline) push(x float64) {
	if b.nobs == 0 {
		b.mean = x
		b.cov = 0
		b.sumWt, b.sumWt2, b.oldWt = 1, 1, 1
		b.nobs = 1
		return
	}
	b.nobs++

	decay := 1 - b.alpha
	b.sumWt *= decay
	b.sumWt2 *= decay * decay
	b.oldWt *= decay

	oldMean := b.mean
	// constant series keep an exact mean
	if b.mean != x {
		b.mean = (b.oldWt*oldMean + b.alpha*x) / (b.oldWt + b.alpha)
	}
	d := oldMean - b.mean
	e := x - b.mean
	b.cov = (b.oldWt*(b.cov+d*d) + b.alpha*e*e) / (b.oldWt + b.alpha)

	b.sumWt += b.alpha
	b.sumWt2 += b.alpha * b.alpha
	b.oldWt += b.alpha

	b.sumWt /= b.oldWt
	b.sumWt2 /= b.oldWt * b.oldWt
	b.oldWt = 1
}

// std returns the bias-corrected standard deviation, or 1 until it is defined.
func (b *ewmBaseline) std() float64 {
	if b.nobs < 2 {
		return 1
	}
	num := b.sumWt * b.sumWt
	den := num - b.sumWt2
	if den <= 0 {
		return 1
	}
	return math.Sqrt(num / den * b.cov)
}
