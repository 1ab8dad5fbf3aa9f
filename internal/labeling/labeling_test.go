package labeling

import (
	"errors"
	"math"
	"testing"

	"fusionguard/internal/telemetry"
)

func TestLabelHorizons(t *testing.T) {
	set, err := Label([]float64{10, 60, 210}, []int{50, 200})
	if err != nil {
		t.Fatalf("Label: %v", err)
	}
	want := map[int][]bool{
		50:  {true, false, false},
		200: {true, true, false},
	}
	for h, expected := range want {
		got, ok := set.For(h)
		if !ok {
			t.Fatalf("horizon %d missing", h)
		}
		for i := range expected {
			if got[i] != expected[i] {
				t.Fatalf("label_h%d = %v, want %v", h, got, expected)
			}
		}
	}
}

func TestLabelMonotoneInHorizon(t *testing.T) {
	ttd := []float64{-5, 0, 1, 49, 50, 51, 199, 200, 1e6, math.Inf(1)}
	horizons := []int{0, 10, 50, 100, 200, 1000}
	set, err := Label(ttd, horizons)
	if err != nil {
		t.Fatalf("Label: %v", err)
	}
	for k := 1; k < len(horizons); k++ {
		lo, hi := set.Labels[horizons[k-1]], set.Labels[horizons[k]]
		for i := range ttd {
			if lo[i] && !hi[i] {
				t.Fatalf("row %d positive at %dms but negative at %dms", i, horizons[k-1], horizons[k])
			}
		}
	}
}

func TestLabelDuplicatesCollapse(t *testing.T) {
	set, err := Label([]float64{1}, []int{50, 50, 10})
	if err != nil {
		t.Fatalf("Label: %v", err)
	}
	if len(set.Horizons) != 2 || set.Horizons[0] != 50 || set.Horizons[1] != 10 {
		t.Fatalf("unexpected horizons %v", set.Horizons)
	}
}

func TestLabelRejectsInvalid(t *testing.T) {
	if _, err := Label([]float64{1}, nil); !errors.Is(err, telemetry.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for no horizons, got %v", err)
	}
	if _, err := Label([]float64{math.NaN()}, []int{10}); !errors.Is(err, telemetry.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for NaN ttd, got %v", err)
	}
}

func TestApplyDisruptionFreeShot(t *testing.T) {
	var samples []telemetry.Sample
	for i := 0; i < 5; i++ {
		ttd := float64(40 - 10*i)
		samples = append(samples, telemetry.Sample{ShotID: "a", TimeUnixNs: int64(i), TimeToDisruptionMs: &ttd})
	}
	for i := 0; i < 5; i++ {
		samples = append(samples, telemetry.Sample{ShotID: "b", TimeUnixNs: int64(i)})
	}
	table, err := telemetry.NewTable(samples)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	if _, err := Apply(table, []int{10, 100, 100000}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for _, h := range []int{10, 100, 100000} {
		col, ok := table.Column(Column(h))
		if !ok {
			t.Fatalf("column %s missing", Column(h))
		}
		for i := 5; i < 10; i++ {
			if col[i] != 0 {
				t.Fatalf("%s row %d of disruption-free shot should be 0", Column(h), i)
			}
		}
		if col[0] != 1 && h >= 40 {
			t.Fatalf("%s row 0 should be positive", Column(h))
		}
	}
}
