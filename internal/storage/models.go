package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fusionguard/internal/calibration"
	"fusionguard/internal/evaluation"
)

// EvaluationRun is one persisted metrics report for a horizon of a training run.
type EvaluationRun struct {
	RunID            uuid.UUID
	HorizonMs        int
	CalibrationKind  string
	ROCAUC           decimal.Decimal
	PRAUC            decimal.Decimal
	RecallAtFPR      decimal.Decimal
	MeanLeadTimeMs   decimal.Decimal
	BrierScore       decimal.Decimal
	CalibrationError decimal.Decimal
	TrainShots       int
	TestShots        int
	CreatedAt        time.Time
}

// CalibrationRecord is the persisted calibration model of a horizon.
type CalibrationRecord struct {
	RunID       uuid.UUID
	HorizonMs   int
	Kind        string
	Scale       decimal.Decimal
	Offset      decimal.Decimal
	Version     string
	NormMin     *decimal.Decimal
	NormMax     *decimal.Decimal
	Breakpoints json.RawMessage
	CreatedAt   time.Time
}

// NewEvaluationRun converts a metrics report into its persisted form.
func NewEvaluationRun(runID uuid.UUID, horizonMs int, kind string, report evaluation.Report, trainShots, testShots int) (EvaluationRun, error) {
	run := EvaluationRun{
		RunID:           runID,
		HorizonMs:       horizonMs,
		CalibrationKind: kind,
		TrainShots:      trainShots,
		TestShots:       testShots,
	}
	fields := []struct {
		name string
		src  float64
		dst  *decimal.Decimal
	}{
		{"roc_auc", report.ROCAUC, &run.ROCAUC},
		{"pr_auc", report.PRAUC, &run.PRAUC},
		{"recall_at_fpr", report.RecallAtFPR, &run.RecallAtFPR},
		{"mean_lead_time_ms", report.MeanLeadTimeMs, &run.MeanLeadTimeMs},
		{"brier_score", report.BrierScore, &run.BrierScore},
		{"calibration_error", report.CalibrationError, &run.CalibrationError},
	}
	for _, f := range fields {
		d, err := toDecimal(f.name, f.src)
		if err != nil {
			return EvaluationRun{}, err
		}
		*f.dst = d
	}
	return run, nil
}

// Report converts the run back into a metrics report.
func (r EvaluationRun) Report() evaluation.Report {
	return evaluation.Report{
		ROCAUC:           r.ROCAUC.InexactFloat64(),
		PRAUC:            r.PRAUC.InexactFloat64(),
		RecallAtFPR:      r.RecallAtFPR.InexactFloat64(),
		MeanLeadTimeMs:   r.MeanLeadTimeMs.InexactFloat64(),
		BrierScore:       r.BrierScore.InexactFloat64(),
		CalibrationError: r.CalibrationError.InexactFloat64(),
	}
}

// NewCalibrationRecord converts a calibration record into its persisted form.
func NewCalibrationRecord(runID uuid.UUID, horizonMs int, rec calibration.Record) (CalibrationRecord, error) {
	scale, err := toDecimal("scale", rec.Scale)
	if err != nil {
		return CalibrationRecord{}, err
	}
	offset, err := toDecimal("offset", rec.Offset)
	if err != nil {
		return CalibrationRecord{}, err
	}

	out := CalibrationRecord{
		RunID:     runID,
		HorizonMs: horizonMs,
		Kind:      rec.Kind,
		Scale:     scale,
		Offset:    offset,
		Version:   rec.Version,
	}
	if rec.NormMin != nil && rec.NormMax != nil {
		lo, err := toDecimal("norm_min", *rec.NormMin)
		if err != nil {
			return CalibrationRecord{}, err
		}
		hi, err := toDecimal("norm_max", *rec.NormMax)
		if err != nil {
			return CalibrationRecord{}, err
		}
		out.NormMin, out.NormMax = &lo, &hi
	}
	if len(rec.Breakpoints) > 0 {
		payload, err := json.Marshal(rec.Breakpoints)
		if err != nil {
			return CalibrationRecord{}, fmt.Errorf("encode breakpoints: %w", err)
		}
		out.Breakpoints = payload
	}
	return out, nil
}

// Record converts the persisted form back into a calibration record.
func (c CalibrationRecord) Record() (calibration.Record, error) {
	rec := calibration.Record{
		Kind:    c.Kind,
		Scale:   c.Scale.InexactFloat64(),
		Offset:  c.Offset.InexactFloat64(),
		Version: c.Version,
	}
	if c.NormMin != nil && c.NormMax != nil {
		lo, hi := c.NormMin.InexactFloat64(), c.NormMax.InexactFloat64()
		rec.NormMin, rec.NormMax = &lo, &hi
	}
	if len(c.Breakpoints) > 0 {
		if err := json.Unmarshal(c.Breakpoints, &rec.Breakpoints); err != nil {
			return calibration.Record{}, fmt.Errorf("decode breakpoints: %w", err)
		}
	}
	return rec, nil
}

func toDecimal(name string, v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Decimal{}, fmt.Errorf("%s is not a finite number: %v", name, v)
	}
	return decimal.NewFromFloat(v), nil
}
