package storage

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"

	"fusionguard/internal/calibration"
	"fusionguard/internal/evaluation"
)

func TestEvaluationRunConversion(t *testing.T) {
	report := evaluation.Report{ROCAUC: 0.75, PRAUC: 0.8333, RecallAtFPR: 0.5, MeanLeadTimeMs: 150, BrierScore: 0.155625, CalibrationError: 0.1}
	run, err := NewEvaluationRun(uuid.New(), 50, "platt", report, 8, 2)
	if err != nil {
		t.Fatalf("NewEvaluationRun: %v", err)
	}
	if run.ROCAUC.String() != "0.75" || run.MeanLeadTimeMs.String() != "150" {
		t.Fatalf("unexpected decimals %s / %s", run.ROCAUC, run.MeanLeadTimeMs)
	}
	if back := run.Report(); back != report {
		t.Fatalf("report changed: %+v vs %+v", back, report)
	}

	report.ROCAUC = math.NaN()
	if _, err := NewEvaluationRun(uuid.New(), 50, "platt", report, 8, 2); err == nil {
		t.Fatal("NaN metric should be rejected")
	}
}

func TestCalibrationRecordConversion(t *testing.T) {
	scores := []float64{0.1, 0.4, 0.35, 0.8}
	labels := []bool{false, false, true, true}

	_, model, err := calibration.Isotonic{}.FitTransform(scores, labels)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	stored, err := NewCalibrationRecord(uuid.New(), 200, model.Record())
	if err != nil {
		t.Fatalf("NewCalibrationRecord: %v", err)
	}
	if len(stored.Breakpoints) == 0 {
		t.Fatal("isotonic breakpoints should be encoded")
	}

	rec, err := stored.Record()
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	restored, err := calibration.FromRecord(rec)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	for _, s := range []float64{0, 0.2, 0.37, 0.9} {
		if math.Abs(restored.Apply(s)-model.Apply(s)) > 1e-12 {
			t.Fatalf("score %v: restored %v, fitted %v", s, restored.Apply(s), model.Apply(s))
		}
	}

	_, normalized, err := calibration.Platt{}.FitTransform(scores, nil)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	stored, err = NewCalibrationRecord(uuid.New(), 200, normalized.Record())
	if err != nil {
		t.Fatalf("NewCalibrationRecord: %v", err)
	}
	if stored.NormMin == nil || stored.NormMax == nil {
		t.Fatal("normalisation bounds should be kept")
	}
}

func TestNilStoreNotConfigured(t *testing.T) {
	var s *Store
	if _, err := s.ListRecentRuns(context.Background(), 5); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := NewStore(nil).EnsureSchema(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
