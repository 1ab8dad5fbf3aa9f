package evaluation

import "math"

// Bin is one bucket of a reliability diagram.
type Bin struct {
	Lower      float64
	Upper      float64
	Count      int
	Confidence float64
	Accuracy   float64
}

// ReliabilityBins partitions probabilities into n equal-width bins
// (lower, upper]. A probability of exactly 0 falls in no bin.
func ReliabilityBins(labels []bool, probs []float64, n int) []Bin {
	step := 1 / float64(n)
	bins := make([]Bin, n)
	for k := range bins {
		bins[k].Lower = float64(k) * step
		bins[k].Upper = float64(k+1) * step
	}
	bins[n-1].Upper = 1

	for i, p := range probs {
		for k := range bins {
			if p > bins[k].Lower && p <= bins[k].Upper {
				bins[k].Count++
				bins[k].Confidence += p
				if labels[i] {
					bins[k].Accuracy++
				}
				break
			}
		}
	}
	for k := range bins {
		if c := bins[k].Count; c > 0 {
			bins[k].Confidence /= float64(c)
			bins[k].Accuracy /= float64(c)
		}
	}
	return bins
}

// ExpectedCalibrationError weights |confidence - accuracy| of every
// non-empty bin by its share of all samples.
func ExpectedCalibrationError(labels []bool, probs []float64, n int) float64 {
	total := float64(len(probs))
	if total == 0 {
		return 0
	}
	var ece float64
	for _, b := range ReliabilityBins(labels, probs, n) {
		if b.Count == 0 {
			continue
		}
		ece += math.Abs(b.Confidence-b.Accuracy) * float64(b.Count) / total
	}
	return ece
}

// BrierScore is the mean squared difference between probability and outcome.
func BrierScore(labels []bool, probs []float64) float64 {
	if len(probs) == 0 {
		return 0
	}
	var sum float64
	for i, p := range probs {
		y := 0.0
		if labels[i] {
			y = 1
		}
		sum += (p - y) * (p - y)
	}
	return sum / float64(len(probs))
}
