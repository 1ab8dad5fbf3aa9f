// Package evaluation scores calibrated disruption probabilities.
package evaluation

import (
	"fmt"
	"math"

	"fusionguard/internal/telemetry"
)

const (
	defaultTargetFPR = 0.01
	defaultThreshold = 0.5
	eceBins          = 10
)

// Report holds the six evaluation metrics under their persisted names.
type Report struct {
	ROCAUC           float64 `json:"roc_auc"`
	PRAUC            float64 `json:"pr_auc"`
	RecallAtFPR      float64 `json:"recall_at_fpr"`
	MeanLeadTimeMs   float64 `json:"mean_lead_time_ms"`
	BrierScore       float64 `json:"brier_score"`
	CalibrationError float64 `json:"calibration_error"`
}

type options struct {
	ttd           []float64
	shots         []string
	targetFPR     float64
	leadThreshold float64
}

// Option customises Evaluate.
type Option func(*options)

// WithTimeToDisruption enables the lead-time metric.
func WithTimeToDisruption(ttd []float64) Option {
	return func(o *options) { o.ttd = ttd }
}

// WithShots groups rows by shot for the lead-time scan.
func WithShots(shots []string) Option {
	return func(o *options) { o.shots = shots }
}

// WithTargetFPR sets the false-positive rate used for recall_at_fpr.
func WithTargetFPR(fpr float64) Option {
	return func(o *options) { o.targetFPR = fpr }
}

// WithLeadThreshold sets the alert threshold used for lead time.
func WithLeadThreshold(threshold float64) Option {
	return func(o *options) { o.leadThreshold = threshold }
}

// Evaluate computes the metrics report of probs against labels.
//
// Both classes must be present: a single-class label set yields
// ErrDegenerateData rather than an invented AUC. Probabilities outside
// [0, 1] are rejected with ErrInvalidInput.
func Evaluate(labels []bool, probs []float64, opts ...Option) (Report, error) {
	o := options{targetFPR: defaultTargetFPR, leadThreshold: defaultThreshold}
	for _, opt := range opts {
		opt(&o)
	}

	if len(labels) == 0 {
		return Report{}, fmt.Errorf("evaluate: no rows: %w", telemetry.ErrInvalidInput)
	}
	if len(probs) != len(labels) {
		return Report{}, fmt.Errorf("evaluate: %d probabilities for %d labels: %w", len(probs), len(labels), telemetry.ErrInvalidInput)
	}
	if o.ttd != nil && len(o.ttd) != len(labels) {
		return Report{}, fmt.Errorf("evaluate: %d time-to-disruption values for %d labels: %w", len(o.ttd), len(labels), telemetry.ErrInvalidInput)
	}
	if o.shots != nil && len(o.shots) != len(labels) {
		return Report{}, fmt.Errorf("evaluate: %d shot ids for %d labels: %w", len(o.shots), len(labels), telemetry.ErrInvalidInput)
	}
	for i, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return Report{}, fmt.Errorf("evaluate: probability %d is %v, outside [0, 1]: %w", i, p, telemetry.ErrInvalidInput)
		}
	}
	if !hasBothClasses(labels) {
		return Report{}, fmt.Errorf("evaluate: labels contain a single class: %w", telemetry.ErrDegenerateData)
	}

	report := Report{
		ROCAUC:           Curve(labels, probs).AUC(),
		PRAUC:            AveragePrecision(labels, probs),
		RecallAtFPR:      RecallAtFPR(labels, probs, o.targetFPR).Recall,
		BrierScore:       BrierScore(labels, probs),
		CalibrationError: ExpectedCalibrationError(labels, probs, eceBins),
	}
	if o.ttd != nil {
		report.MeanLeadTimeMs = MeanLeadTime(labels, probs, o.ttd, o.shots, o.leadThreshold)
	}
	return report, nil
}
