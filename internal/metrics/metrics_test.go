package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fusionguard/internal/evaluation"
)

func TestObserveReport(t *testing.T) {
	r := NewRecorder()
	r.ObserveReport(50, "platt", evaluation.Report{ROCAUC: 0.82, CalibrationError: 0.04}, false)
	r.ObserveReport(200, "platt", evaluation.Report{ROCAUC: 0.61}, true)

	families, err := r.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "," + lp.GetName() + "=" + lp.GetValue()
			}
			values[key] = m.GetGauge().GetValue()
		}
	}

	if got := values["fusionguard_model_roc_auc,calibration=platt,horizon_ms=50"]; got != 0.82 {
		t.Fatalf("expected roc_auc 0.82, got %v", got)
	}
	if got := values["fusionguard_model_quality_violation,calibration=platt,horizon_ms=200"]; got != 1 {
		t.Fatalf("expected violation 1, got %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveReport(50, "isotonic", evaluation.Report{ROCAUC: 0.9}, false)
	r.ObserveSplit(16, 4)
	r.MarkRun(1700000000)

	path := filepath.Join(t.TempDir(), "fusionguard.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`fusionguard_model_roc_auc{calibration="isotonic",horizon_ms="50"} 0.9`,
		`fusionguard_dataset_shots{split="test"} 4`,
		"fusionguard_last_run_timestamp_seconds",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("textfile missing %q:\n%s", want, text)
		}
	}
}
