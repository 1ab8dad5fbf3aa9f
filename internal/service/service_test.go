package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fusionguard/internal/alerting"
	"fusionguard/internal/calibration"
	"fusionguard/internal/config"
	"fusionguard/internal/evaluation"
	"fusionguard/internal/metrics"
	"fusionguard/internal/pipeline"
	"fusionguard/internal/storage"
)

type fakeStore struct {
	runs    []storage.EvaluationRun
	records []storage.CalibrationRecord
	err     error
}

func (f *fakeStore) SaveRun(_ context.Context, run storage.EvaluationRun, rec storage.CalibrationRecord) error {
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, run)
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) ListRecentRuns(context.Context, int) ([]storage.EvaluationRun, error) {
	return f.runs, nil
}

func (f *fakeStore) LatestCalibration(context.Context, int) (storage.CalibrationRecord, error) {
	return storage.CalibrationRecord{}, errors.New("not implemented")
}

type fakeNotifier struct {
	notes []alerting.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, note alerting.Notification) error {
	f.notes = append(f.notes, note)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{Alerting: config.AlertingConfig{
		Enabled:             true,
		MinROCAUC:           0.7,
		MaxCalibrationError: 0.1,
	}}
}

func testResult() *pipeline.Result {
	return &pipeline.Result{
		Split: pipeline.Split{Train: []string{"a", "b", "c"}, Test: []string{"d"}},
		Horizons: []pipeline.HorizonResult{
			{
				HorizonMs:   50,
				Calibration: calibration.PlattModel{Scale: 1.2, Offset: -0.3, VersionTag: calibration.VersionFitted},
				Report:      evaluation.Report{ROCAUC: 0.91, CalibrationError: 0.02},
			},
			{
				HorizonMs:   200,
				Calibration: calibration.PlattModel{Scale: 0.8, Offset: 0.1, VersionTag: calibration.VersionFitted},
				Report:      evaluation.Report{ROCAUC: 0.61, CalibrationError: 0.2},
			},
		},
	}
}

func TestGateCheck(t *testing.T) {
	gate := Gate{MinROCAUC: decimal.RequireFromString("0.7"), MaxCalibrationError: decimal.RequireFromString("0.1")}

	if v := gate.Check(evaluation.Report{ROCAUC: 0.8, CalibrationError: 0.05}); len(v) != 0 {
		t.Fatalf("expected no violations, got %v", v)
	}
	if v := gate.Check(evaluation.Report{ROCAUC: 0.6, CalibrationError: 0.15}); len(v) != 2 {
		t.Fatalf("expected 2 violations, got %v", v)
	}
	if v := (Gate{}).Check(evaluation.Report{}); len(v) != 0 {
		t.Fatalf("zero gate should accept everything, got %v", v)
	}
}

func TestPublishPersistsAndAlerts(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	svc := New(testConfig(), store, notifier, metrics.NewRecorder(), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	runID := uuid.New()
	outcomes, err := svc.Publish(context.Background(), runID, "platt", testResult())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if !outcomes[0].Persisted || outcomes[0].Notified || len(outcomes[0].Violations) != 0 {
		t.Fatalf("unexpected outcome for h50: %+v", outcomes[0])
	}
	if !outcomes[1].Notified || len(outcomes[1].Violations) != 2 {
		t.Fatalf("unexpected outcome for h200: %+v", outcomes[1])
	}

	if len(store.runs) != 2 || store.runs[1].RunID != runID || store.runs[1].TrainShots != 3 || store.runs[1].TestShots != 1 {
		t.Fatalf("unexpected persisted runs %+v", store.runs)
	}
	if store.records[0].Kind != "platt" || !store.records[0].Scale.Equal(decimal.RequireFromString("1.2")) {
		t.Fatalf("unexpected calibration record %+v", store.records[0])
	}

	if len(notifier.notes) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.notes))
	}
	note := notifier.notes[0]
	if note.HorizonMs != 200 || note.RunID != runID.String() || !note.MinROCAUC.Equal(decimal.RequireFromString("0.7")) {
		t.Fatalf("unexpected notification %+v", note)
	}
}

func TestPublishSurvivesStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	svc := New(testConfig(), store, nil, nil, zerolog.Nop())

	outcomes, err := svc.Publish(context.Background(), uuid.New(), "platt", testResult())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	for _, out := range outcomes {
		if out.Persisted || out.Notified {
			t.Fatalf("unexpected outcome %+v", out)
		}
	}
}

func TestPublishWithoutAlerting(t *testing.T) {
	cfg := testConfig()
	cfg.Alerting.Enabled = false
	notifier := &fakeNotifier{}
	svc := New(cfg, nil, notifier, nil, zerolog.Nop())

	if _, err := svc.Publish(context.Background(), uuid.New(), "platt", testResult()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(notifier.notes) != 0 {
		t.Fatalf("alerting disabled but %d notifications sent", len(notifier.notes))
	}
}
