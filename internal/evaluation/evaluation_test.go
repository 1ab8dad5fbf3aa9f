package evaluation

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"fusionguard/internal/telemetry"
)

func bools(xs ...int) []bool {
	out := make([]bool, len(xs))
	for i, x := range xs {
		out[i] = x == 1
	}
	return out
}

func TestEvaluateReferenceScenario(t *testing.T) {
	labels := bools(0, 0, 1, 1)
	probs := []float64{0.1, 0.4, 0.35, 0.8}

	report, err := Evaluate(labels, probs)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if math.Abs(report.ROCAUC-0.75) > 1e-12 {
		t.Fatalf("roc_auc = %v, want 0.75", report.ROCAUC)
	}
	// precision 1 at recall .5, then 2/3 at recall 1
	if math.Abs(report.PRAUC-(0.5+0.5*2.0/3)) > 1e-12 {
		t.Fatalf("pr_auc = %v", report.PRAUC)
	}
	wantBrier := (0.01 + 0.16 + 0.65*0.65 + 0.04) / 4
	if math.Abs(report.BrierScore-wantBrier) > 1e-12 {
		t.Fatalf("brier = %v, want %v", report.BrierScore, wantBrier)
	}
	// the +Inf start point has fpr 0 and wins the tie with threshold 0.8
	if report.RecallAtFPR != 0 {
		t.Fatalf("unexpected recall_at_fpr %v", report.RecallAtFPR)
	}
	if report.MeanLeadTimeMs != 0 {
		t.Fatalf("lead time should be 0 without ttd, got %v", report.MeanLeadTimeMs)
	}
}

func TestCurveDropsCollinearPoints(t *testing.T) {
	roc := Curve(bools(1, 1, 1, 0), []float64{0.9, 0.8, 0.7, 0.1})
	if len(roc.FPR) != 4 || roc.TPR[1] != 1.0/3 || roc.TPR[2] != 1 {
		t.Fatalf("expected 4 points, got fpr=%v tpr=%v", roc.FPR, roc.TPR)
	}
	if !math.IsInf(roc.Thresholds[0], 1) {
		t.Fatalf("curve should start at +Inf, got %v", roc.Thresholds[0])
	}
	if roc.AUC() != 1 {
		t.Fatalf("expected perfect auc, got %v", roc.AUC())
	}
}

func TestRecallAtZeroFPRPicksMinimum(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	labels := make([]bool, 300)
	probs := make([]float64, len(labels))
	for i := range labels {
		labels[i] = rng.Intn(3) == 0
		probs[i] = rng.Float64()
		if labels[i] {
			probs[i] = math.Min(1, probs[i]+0.3)
		}
	}

	roc := Curve(labels, probs)
	minFPR := math.Inf(1)
	for _, f := range roc.FPR {
		minFPR = math.Min(minFPR, f)
	}
	point := RecallAtFPR(labels, probs, 0)
	if point.FPR != minFPR {
		t.Fatalf("selected fpr %v, minimum %v", point.FPR, minFPR)
	}
}

func TestRecallAtFPRPrefersCurveStartOnTies(t *testing.T) {
	point := RecallAtFPR(bools(0, 0, 1, 1), []float64{0.1, 0.4, 0.35, 0.8}, 0.01)
	if !math.IsInf(point.Threshold, 1) || point.FPR != 0 || point.Recall != 0 {
		t.Fatalf("expected the (0, 0) start point at +Inf, got %+v", point)
	}
}

func TestRecallAtFPRDefaultsThreshold(t *testing.T) {
	point := RecallAtFPR(bools(1, 1), []float64{0.4, 0.6}, 0.01)
	if point.Threshold != 0.5 || point.Recall != 0.5 {
		t.Fatalf("expected threshold 0.5 and recall 0.5, got %+v", point)
	}
}

func TestCalibrationErrorBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for trial := 0; trial < 20; trial++ {
		labels := make([]bool, 50)
		probs := make([]float64, len(labels))
		for i := range labels {
			labels[i] = rng.Intn(2) == 1
			probs[i] = rng.Float64()
		}
		ece := ExpectedCalibrationError(labels, probs, 10)
		if ece < 0 || ece > 1 {
			t.Fatalf("ece out of bounds: %v", ece)
		}
	}

	if got := ExpectedCalibrationError(bools(1, 0), []float64{1, 0}, 10); got != 0 {
		t.Fatalf("perfect predictions should have zero ece, got %v", got)
	}
	// p = 0 falls outside every bin and only dilutes the weight
	if got := ExpectedCalibrationError(bools(1, 1), []float64{0, 0.95}, 10); math.Abs(got-0.025) > 1e-12 {
		t.Fatalf("expected 0.025, got %v", got)
	}
}

func TestEvaluateErrors(t *testing.T) {
	if _, err := Evaluate(nil, nil); !errors.Is(err, telemetry.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty input, got %v", err)
	}
	if _, err := Evaluate(bools(1, 0), []float64{0.5}); !errors.Is(err, telemetry.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for mismatch, got %v", err)
	}
	if _, err := Evaluate(bools(1, 1), []float64{0.2, 0.9}); !errors.Is(err, telemetry.ErrDegenerateData) {
		t.Fatalf("expected ErrDegenerateData for single class, got %v", err)
	}
}

func TestEvaluateRejectsOutOfRangeProbabilities(t *testing.T) {
	cases := map[string][]float64{
		"decision scores": {-3.2, -0.4, 1.7, 4.1},
		"above one":       {0.1, 0.2, 0.9, 1.0001},
		"below zero":      {-0.01, 0.2, 0.9, 0.95},
		"nan":             {0.1, math.NaN(), 0.9, 0.95},
	}
	for name, probs := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Evaluate(bools(0, 0, 1, 1), probs); !errors.Is(err, telemetry.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	if _, err := Evaluate(bools(0, 0, 1, 1), []float64{0, 0.2, 0.9, 1}); err != nil {
		t.Fatalf("bounds 0 and 1 must be accepted, got %v", err)
	}
}

func TestMeanLeadTime(t *testing.T) {
	labels := bools(0, 0, 1, 1)
	probs := []float64{0.1, 0.7, 0.2, 0.3}
	ttd := []float64{300, 200, 100, 0}

	report, err := Evaluate(labels, probs, WithTimeToDisruption(ttd))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	// both positives look back to the alert at ttd=200
	if report.MeanLeadTimeMs != 150 {
		t.Fatalf("mean lead time = %v, want 150", report.MeanLeadTimeMs)
	}
}

func TestMeanLeadTimeStaysInShot(t *testing.T) {
	labels := bools(0, 0, 1, 1)
	probs := []float64{0.9, 0.1, 0.2, 0.3}
	ttd := []float64{50, 200, 100, 0}
	shots := []string{"a", "b", "b", "b"}

	if got := MeanLeadTime(labels, probs, ttd, shots, 0.5); got != 0 {
		t.Fatalf("alert in shot a must not count for shot b, got %v", got)
	}
	if got := MeanLeadTime(labels, probs, ttd, nil, 0.5); got == 0 {
		t.Fatal("without shot ids the scan covers the whole input")
	}
}
