// Package metrics exposes evaluation results as Prometheus gauges and writes
// them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"fusionguard/internal/evaluation"
)

const namespace = "fusionguard"

// Recorder holds per-horizon model quality gauges on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	rocAUC           *prometheus.GaugeVec
	prAUC            *prometheus.GaugeVec
	recallAtFPR      *prometheus.GaugeVec
	meanLeadTime     *prometheus.GaugeVec
	brierScore       *prometheus.GaugeVec
	calibrationError *prometheus.GaugeVec
	qualityViolation *prometheus.GaugeVec
	shots            *prometheus.GaugeVec
	lastRun          prometheus.Gauge
}

// NewRecorder registers all gauges.
func NewRecorder() *Recorder {
	labels := []string{"horizon_ms", "calibration"}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      name,
			Help:      help,
		}, labels)
	}

	r := &Recorder{
		registry:         prometheus.NewRegistry(),
		rocAUC:           gauge("roc_auc", "Area under the ROC curve on held-out shots."),
		prAUC:            gauge("pr_auc", "Average precision on held-out shots."),
		recallAtFPR:      gauge("recall_at_fpr", "Recall at the target false positive rate."),
		meanLeadTime:     gauge("mean_lead_time_ms", "Mean warning lead time in milliseconds."),
		brierScore:       gauge("brier_score", "Mean squared error of calibrated probabilities."),
		calibrationError: gauge("calibration_error", "Expected calibration error over 10 bins."),
		qualityViolation: gauge("quality_violation", "1 when the run failed the quality gate."),
		shots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "shots",
			Help:      "Number of shots per split.",
		}, []string{"split"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run.",
		}),
	}

	r.registry.MustRegister(
		r.rocAUC, r.prAUC, r.recallAtFPR, r.meanLeadTime,
		r.brierScore, r.calibrationError, r.qualityViolation,
		r.shots, r.lastRun,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveReport sets the gauges of one horizon.
func (r *Recorder) ObserveReport(horizonMs int, calibration string, report evaluation.Report, violated bool) {
	labels := prometheus.Labels{"horizon_ms": strconv.Itoa(horizonMs), "calibration": calibration}
	r.rocAUC.With(labels).Set(report.ROCAUC)
	r.prAUC.With(labels).Set(report.PRAUC)
	r.recallAtFPR.With(labels).Set(report.RecallAtFPR)
	r.meanLeadTime.With(labels).Set(report.MeanLeadTimeMs)
	r.brierScore.With(labels).Set(report.BrierScore)
	r.calibrationError.With(labels).Set(report.CalibrationError)

	v := 0.0
	if violated {
		v = 1
	}
	r.qualityViolation.With(labels).Set(v)
}

// ObserveSplit records the train/test shot counts.
func (r *Recorder) ObserveSplit(train, test int) {
	r.shots.WithLabelValues("train").Set(float64(train))
	r.shots.WithLabelValues("test").Set(float64(test))
}

// MarkRun stamps the last run time.
func (r *Recorder) MarkRun(unixSeconds float64) {
	r.lastRun.Set(unixSeconds)
}

// WriteTextfile writes every gauge to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
