package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fusionguard/internal/alerting"
	"fusionguard/internal/config"
	"fusionguard/internal/evaluation"
	"fusionguard/internal/metrics"
	"fusionguard/internal/pipeline"
	"fusionguard/internal/storage"
)

// Gate holds the model quality thresholds. A zero threshold is not checked.
type Gate struct {
	MinROCAUC           decimal.Decimal
	MaxCalibrationError decimal.Decimal
}

// Check lists the thresholds report violates.
func (g Gate) Check(report evaluation.Report) []string {
	var violations []string
	auc := decimal.NewFromFloat(report.ROCAUC)
	ece := decimal.NewFromFloat(report.CalibrationError)

	if !g.MinROCAUC.IsZero() && auc.LessThan(g.MinROCAUC) {
		violations = append(violations, fmt.Sprintf("roc_auc %s below %s", auc.StringFixed(3), g.MinROCAUC.String()))
	}
	if !g.MaxCalibrationError.IsZero() && ece.GreaterThan(g.MaxCalibrationError) {
		violations = append(violations, fmt.Sprintf("calibration_error %s above %s", ece.StringFixed(3), g.MaxCalibrationError.String()))
	}
	return violations
}

// Outcome summarises the publication of one horizon.
type Outcome struct {
	HorizonMs  int
	Violations []string
	Persisted  bool
	Notified   bool
}

// Service persists training results, records metrics and enforces the
// quality gate.
type Service struct {
	store    storage.RunStore
	notifier alerting.Notifier
	recorder *metrics.Recorder
	logger   zerolog.Logger

	gate     Gate
	alertsOn bool
	now      func() time.Time
}

// New constructs the publishing service. store, notifier and recorder are optional.
func New(cfg *config.Config, store storage.RunStore, notifier alerting.Notifier, recorder *metrics.Recorder, logger zerolog.Logger) *Service {
	var gate Gate
	if cfg.Alerting.MinROCAUC > 0 {
		gate.MinROCAUC = decimal.NewFromFloat(cfg.Alerting.MinROCAUC)
	}
	if cfg.Alerting.MaxCalibrationError > 0 {
		gate.MaxCalibrationError = decimal.NewFromFloat(cfg.Alerting.MaxCalibrationError)
	}

	return &Service{
		store:    store,
		notifier: notifier,
		recorder: recorder,
		logger:   logger.With().Str("component", "service").Logger(),
		gate:     gate,
		alertsOn: cfg.Alerting.Enabled,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Publish handles every horizon of a training run. Persistence and
// notification failures are logged and do not abort the remaining horizons.
func (s *Service) Publish(ctx context.Context, runID uuid.UUID, kind string, result *pipeline.Result) ([]Outcome, error) {
	if result == nil {
		return nil, fmt.Errorf("publish: nil result")
	}
	if s.recorder != nil {
		s.recorder.ObserveSplit(len(result.Split.Train), len(result.Split.Test))
	}

	outcomes := make([]Outcome, 0, len(result.Horizons))
	for _, hr := range result.Horizons {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		out, err := s.publishHorizon(ctx, runID, kind, hr, len(result.Split.Train), len(result.Split.Test))
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}

	if s.recorder != nil {
		s.recorder.MarkRun(float64(s.now().Unix()))
	}
	return outcomes, nil
}

func (s *Service) publishHorizon(ctx context.Context, runID uuid.UUID, kind string, hr pipeline.HorizonResult, trainShots, testShots int) (Outcome, error) {
	out := Outcome{HorizonMs: hr.HorizonMs, Violations: s.gate.Check(hr.Report)}

	if s.recorder != nil {
		s.recorder.ObserveReport(hr.HorizonMs, kind, hr.Report, len(out.Violations) > 0)
	}

	if s.store != nil {
		run, err := storage.NewEvaluationRun(runID, hr.HorizonMs, kind, hr.Report, trainShots, testShots)
		if err != nil {
			return out, fmt.Errorf("horizon %dms: %w", hr.HorizonMs, err)
		}
		rec, err := storage.NewCalibrationRecord(runID, hr.HorizonMs, hr.Calibration.Record())
		if err != nil {
			return out, fmt.Errorf("horizon %dms: %w", hr.HorizonMs, err)
		}
		if err := s.store.SaveRun(ctx, run, rec); err != nil {
			s.logger.Error().Err(err).Int("horizon_ms", hr.HorizonMs).Msg("failed to persist evaluation run")
		} else {
			out.Persisted = true
		}
	}

	event := s.logger.Info()
	if len(out.Violations) > 0 {
		event = s.logger.Warn().Strs("violations", out.Violations)
	}
	event.Int("horizon_ms", hr.HorizonMs).
		Str("roc_auc", decimal.NewFromFloat(hr.Report.ROCAUC).StringFixed(4)).
		Str("calibration_error", decimal.NewFromFloat(hr.Report.CalibrationError).StringFixed(4)).
		Msg("evaluation recorded")

	if s.alertsOn && s.notifier != nil && len(out.Violations) > 0 {
		note := alerting.Notification{
			RunID:               runID.String(),
			HorizonMs:           hr.HorizonMs,
			CalibrationKind:     kind,
			EvaluatedAt:         s.now(),
			ROCAUC:              decimal.NewFromFloat(hr.Report.ROCAUC),
			CalibrationError:    decimal.NewFromFloat(hr.Report.CalibrationError),
			MinROCAUC:           s.gate.MinROCAUC,
			MaxCalibrationError: s.gate.MaxCalibrationError,
			Violations:          out.Violations,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Int("horizon_ms", hr.HorizonMs).Msg("failed to dispatch alert")
		} else {
			out.Notified = true
		}
	}
	return out, nil
}
