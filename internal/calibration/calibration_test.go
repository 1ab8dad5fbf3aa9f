package calibration

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"fusionguard/internal/telemetry"
)

func TestNewRejectsUnknownKind(t *testing.T) {
	if _, err := New("beta"); !errors.Is(err, telemetry.ErrUnsupportedConfiguration) {
		t.Fatalf("expected ErrUnsupportedConfiguration, got %v", err)
	}
	if _, err := FromRecord(Record{Kind: "temperature"}); !errors.Is(err, telemetry.ErrUnsupportedConfiguration) {
		t.Fatalf("expected ErrUnsupportedConfiguration from record, got %v", err)
	}
	for _, kind := range []string{"platt", "Isotonic", "none"} {
		if _, err := New(kind); err != nil {
			t.Fatalf("New(%q): %v", kind, err)
		}
	}
}

func TestIsotonicRequiresLabels(t *testing.T) {
	_, _, err := Isotonic{}.FitTransform([]float64{0.1, 0.2}, nil)
	if !errors.Is(err, telemetry.ErrUnsupportedConfiguration) {
		t.Fatalf("expected ErrUnsupportedConfiguration, got %v", err)
	}
}

func TestIsotonicFit(t *testing.T) {
	scores := []float64{1, 2, 2, 3, 4, 5}
	labels := []bool{false, true, false, false, true, true}

	calibrated, model, err := Isotonic{}.FitTransform(scores, labels)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	// ties at 2 average to 0.5, then pooled with 3 into 1/3
	want := []float64{0, 1.0 / 3, 1.0 / 3, 1.0 / 3, 1, 1}
	for i := range want {
		if math.Abs(calibrated[i]-want[i]) > 1e-12 {
			t.Fatalf("calibrated = %v, want %v", calibrated, want)
		}
	}
	if model.Apply(-10) != 0 || model.Apply(10) != 1 {
		t.Fatalf("out-of-range scores should clip, got %v / %v", model.Apply(-10), model.Apply(10))
	}
	if got := model.Apply(3.5); math.Abs(got-(1.0/3+1)/2) > 1e-12 {
		t.Fatalf("expected interpolation between knots, got %v", got)
	}
}

func TestIsotonicMonotone(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	scores := make([]float64, 500)
	labels := make([]bool, len(scores))
	for i := range scores {
		scores[i] = rng.NormFloat64()
		labels[i] = rng.Float64() < sigmoid(2*scores[i])
	}

	_, model, err := Isotonic{}.FitTransform(scores, labels)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	prev := math.Inf(-1)
	for x := -4.0; x <= 4; x += 0.01 {
		p := model.Apply(x)
		if p < prev {
			t.Fatalf("calibration decreases at %v: %v < %v", x, p, prev)
		}
		if p < 0 || p > 1 {
			t.Fatalf("probability out of range at %v: %v", x, p)
		}
		prev = p
	}
}

func TestPlattFitted(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	scores := make([]float64, 400)
	labels := make([]bool, len(scores))
	for i := range scores {
		scores[i] = rng.NormFloat64() * 2
		labels[i] = rng.Float64() < sigmoid(1.5*scores[i]-0.5)
	}

	calibrated, model, err := Platt{}.FitTransform(scores, labels)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	if model.Version() != VersionFitted {
		t.Fatalf("expected fitted version, got %q", model.Version())
	}
	pm := model.(PlattModel)
	if pm.Scale < 0.8 || pm.Scale > 2.5 {
		t.Fatalf("scale %v far from generating slope 1.5", pm.Scale)
	}
	for i := range scores {
		if calibrated[i] <= 0 || calibrated[i] >= 1 {
			t.Fatalf("probability out of range: %v", calibrated[i])
		}
	}
}

func TestPlattNormalizedFallback(t *testing.T) {
	scores := []float64{-3, 0, 5}
	calibrated, model, err := Platt{}.FitTransform(scores, nil)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	if model.Version() != VersionNormalized {
		t.Fatalf("expected normalized version, got %q", model.Version())
	}
	if math.Abs(calibrated[0]-0.5) > 1e-12 || math.Abs(calibrated[2]-sigmoid(1)) > 1e-12 {
		t.Fatalf("unexpected normalised output %v", calibrated)
	}

	flat, _, err := Platt{}.FitTransform([]float64{2, 2}, nil)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	if math.Abs(flat[0]-sigmoid(2)) > 1e-12 {
		t.Fatalf("constant batch should use raw scores, got %v", flat)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	scores := []float64{0.1, 0.4, 0.35, 0.8, 0.2, 0.9}
	labels := []bool{false, false, true, true, false, true}

	for _, kind := range []string{"platt", "isotonic", "none"} {
		for _, withLabels := range []bool{true, false} {
			if kind == "isotonic" && !withLabels {
				continue
			}
			cal, err := New(kind)
			if err != nil {
				t.Fatalf("New(%q): %v", kind, err)
			}
			var l []bool
			if withLabels {
				l = labels
			}
			calibrated, model, err := cal.FitTransform(scores, l)
			if err != nil {
				t.Fatalf("%s FitTransform: %v", kind, err)
			}

			payload, err := json.Marshal(model.Record())
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var rec Record
			if err := json.Unmarshal(payload, &rec); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			restored, err := FromRecord(rec)
			if err != nil {
				t.Fatalf("%s FromRecord: %v", kind, err)
			}
			for i, s := range scores {
				if got := restored.Apply(s); math.Abs(got-calibrated[i]) > 1e-12 {
					t.Fatalf("%s (labels=%v) row %d: restored %v, fitted %v", kind, withLabels, i, got, calibrated[i])
				}
			}
		}
	}
}

func TestRecordFieldNames(t *testing.T) {
	payload, err := json.Marshal(PlattModel{Scale: 2, Offset: -1, VersionTag: VersionFitted}.Record())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"kind", "scale", "offset", "version"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("record missing %q: %s", key, payload)
		}
	}
	if _, ok := fields["breakpoints"]; ok {
		t.Fatalf("platt record should not carry breakpoints: %s", payload)
	}
}

func TestCheckBatch(t *testing.T) {
	if _, _, err := (Platt{}).FitTransform(nil, nil); !errors.Is(err, telemetry.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty batch, got %v", err)
	}
	if _, _, err := (Platt{}).FitTransform([]float64{1}, []bool{true, false}); !errors.Is(err, telemetry.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for mismatched labels, got %v", err)
	}
}

func TestFromRecordRejectsInvalidBreakpoints(t *testing.T) {
	nan := math.NaN()
	cases := map[string][]Breakpoint{
		"nan first probability": {{Score: 0, Probability: nan}, {Score: 1, Probability: 0.5}},
		"nan score":             {{Score: 0, Probability: 0.1}, {Score: nan, Probability: 0.5}},
		"infinite score":        {{Score: math.Inf(-1), Probability: 0.1}, {Score: 1, Probability: 0.5}},
		"probability above one": {{Score: 0, Probability: 0.2}, {Score: 1, Probability: 1.5}},
		"decreasing":            {{Score: 0, Probability: 0.6}, {Score: 1, Probability: 0.4}},
		"unsorted":              {{Score: 1, Probability: 0.2}, {Score: 0, Probability: 0.4}},
	}
	for name, bps := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromRecord(Record{Kind: "isotonic", Breakpoints: bps})
			if !errors.Is(err, telemetry.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	m, err := FromRecord(Record{Kind: "isotonic", Breakpoints: []Breakpoint{{Score: 0, Probability: 0}, {Score: 1, Probability: 1}}})
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if p := m.Apply(0.5); math.IsNaN(p) || p < 0 || p > 1 {
		t.Fatalf("expected a probability, got %v", p)
	}
}
