package evaluation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
)

// ROC is a receiver operating characteristic curve. Points are ordered by
// decreasing threshold; the first point is (0, 0) at threshold +Inf.
type ROC struct {
	FPR        []float64
	TPR        []float64
	Thresholds []float64
}

// OperatingPoint is a threshold chosen on a ROC curve.
type OperatingPoint struct {
	Threshold float64
	FPR       float64
	Recall    float64
}

// confusionSweep returns cumulative true/false positive counts for each
// distinct score, visiting scores from highest to lowest.
func confusionSweep(labels []bool, probs []float64) (tps, fps, thresholds []float64) {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })

	var tp, fp float64
	for k, i := range idx {
		if labels[i] {
			tp++
		} else {
			fp++
		}
		if k+1 < len(idx) && probs[idx[k+1]] == probs[i] {
			continue
		}
		tps = append(tps, tp)
		fps = append(fps, fp)
		thresholds = append(thresholds, probs[i])
	}
	return tps, fps, thresholds
}

// Curve builds the ROC curve of probs against labels. Collinear intermediate
// points are dropped. Both classes must be present.
func Curve(labels []bool, probs []float64) ROC {
	tps, fps, thresholds := confusionSweep(labels, probs)

	if n := len(tps); n > 2 {
		keep := make([]int, 0, n)
		keep = append(keep, 0)
		for i := 1; i < n-1; i++ {
			d2fp := fps[i+1] - 2*fps[i] + fps[i-1]
			d2tp := tps[i+1] - 2*tps[i] + tps[i-1]
			if d2fp != 0 || d2tp != 0 {
				keep = append(keep, i)
			}
		}
		keep = append(keep, n-1)
		for k, i := range keep {
			tps[k], fps[k], thresholds[k] = tps[i], fps[i], thresholds[i]
		}
		tps, fps, thresholds = tps[:len(keep)], fps[:len(keep)], thresholds[:len(keep)]
	}

	positives, negatives := tps[len(tps)-1], fps[len(fps)-1]
	roc := ROC{
		FPR:        make([]float64, 0, len(tps)+1),
		TPR:        make([]float64, 0, len(tps)+1),
		Thresholds: make([]float64, 0, len(tps)+1),
	}
	roc.FPR = append(roc.FPR, 0)
	roc.TPR = append(roc.TPR, 0)
	roc.Thresholds = append(roc.Thresholds, math.Inf(1))
	for i := range tps {
		roc.FPR = append(roc.FPR, fps[i]/negatives)
		roc.TPR = append(roc.TPR, tps[i]/positives)
		roc.Thresholds = append(roc.Thresholds, thresholds[i])
	}
	return roc
}

// AUC is the trapezoidal area under the curve.
func (r ROC) AUC() float64 {
	return integrate.Trapezoidal(r.FPR, r.TPR)
}

// AtFPR selects the point whose false-positive rate is closest to target,
// preferring the earliest point on ties.
func (r ROC) AtFPR(target float64) (OperatingPoint, bool) {
	if len(r.FPR) == 0 {
		return OperatingPoint{}, false
	}
	best := 0
	for i := 1; i < len(r.FPR); i++ {
		if math.Abs(r.FPR[i]-target) < math.Abs(r.FPR[best]-target) {
			best = i
		}
	}
	return OperatingPoint{Threshold: r.Thresholds[best], FPR: r.FPR[best]}, true
}

// AveragePrecision summarises the precision-recall curve as
// sum_n (R_n - R_{n-1}) * P_n over decreasing thresholds.
func AveragePrecision(labels []bool, probs []float64) float64 {
	tps, fps, _ := confusionSweep(labels, probs)
	positives := tps[len(tps)-1]
	if positives == 0 {
		return 0
	}

	var ap, prevRecall float64
	for i := range tps {
		recall := tps[i] / positives
		precision := tps[i] / (tps[i] + fps[i])
		ap += (recall - prevRecall) * precision
		prevRecall = recall
	}
	return ap
}

// RecallAtThreshold is TP / max(1, TP+FN) when predicting positive for p >= threshold.
func RecallAtThreshold(labels []bool, probs []float64, threshold float64) float64 {
	var tp, fn float64
	for i, positive := range labels {
		if !positive {
			continue
		}
		if probs[i] >= threshold {
			tp++
		} else {
			fn++
		}
	}
	return tp / math.Max(1, tp+fn)
}

// RecallAtFPR picks the operating threshold closest to targetFPR and returns
// the recall there. Without a usable curve the threshold defaults to 0.5.
//
// Ties go to the earliest curve point. The curve starts at (0, 0) with
// threshold +Inf, so when a real threshold also sits at FPR 0 the start point
// wins and a small target such as 0.01 reports recall 0. This matches
// scikit-learn's roc_curve followed by argmin over |fpr - target|.
func RecallAtFPR(labels []bool, probs []float64, targetFPR float64) OperatingPoint {
	point := OperatingPoint{Threshold: defaultThreshold, FPR: math.NaN()}
	if hasBothClasses(labels) {
		if p, ok := Curve(labels, probs).AtFPR(targetFPR); ok {
			point = p
		}
	}
	point.Recall = RecallAtThreshold(labels, probs, point.Threshold)
	return point
}

func hasBothClasses(labels []bool) bool {
	var pos, neg bool
	for _, l := range labels {
		if l {
			pos = true
		} else {
			neg = true
		}
		if pos && neg {
			return true
		}
	}
	return false
}
