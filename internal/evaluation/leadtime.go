package evaluation

import "math"

// MeanLeadTime averages, over positive rows with a finite time to
// disruption, the time between the closest preceding alert (p >= threshold)
// and the row itself. Scans never leave the row's shot group: rows with the
// same id that are adjacent form one group, and a nil shots slice makes the
// whole input a single group. Returns 0 when no lead time is recorded.
func MeanLeadTime(labels []bool, probs, ttd []float64, shots []string, threshold float64) float64 {
	var sum float64
	var count int

	start := 0
	for i := range labels {
		if shots != nil && i > 0 && shots[i] != shots[i-1] {
			start = i
		}
		if !labels[i] || math.IsInf(ttd[i], 0) || math.IsNaN(ttd[i]) {
			continue
		}
		for j := i; j >= start; j-- {
			if probs[j] < threshold {
				continue
			}
			lead := ttd[j] - ttd[i]
			if lead > 0 && !math.IsInf(lead, 0) {
				sum += lead
				count++
			}
			break
		}
	}

	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
