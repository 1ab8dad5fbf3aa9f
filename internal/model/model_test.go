package model

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"fusionguard/internal/telemetry"
)

func TestFitLogisticSeparatesClasses(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	const rows = 400
	x := mat.NewDense(rows, 2, nil)
	labels := make([]bool, rows)
	for i := 0; i < rows; i++ {
		signal := rng.NormFloat64()
		x.Set(i, 0, 100+20*signal)
		x.Set(i, 1, rng.NormFloat64())
		labels[i] = signal+0.3*rng.NormFloat64() > 0
	}

	m, err := FitLogistic(x, []string{"prad", "noise"}, labels, LogisticOptions{})
	if err != nil {
		t.Fatalf("FitLogistic: %v", err)
	}
	scores, err := m.Scores(x)
	if err != nil {
		t.Fatalf("Scores: %v", err)
	}

	correct := 0
	for i, s := range scores {
		if (s > 0) == labels[i] {
			correct++
		}
	}
	if float64(correct)/rows < 0.85 {
		t.Fatalf("accuracy too low: %d/%d", correct, rows)
	}

	params := m.Params("dev_h50")
	if params.Coefficients["prad"] <= 0 {
		t.Fatalf("expected positive prad coefficient, got %v", params.Coefficients["prad"])
	}
	row := map[string]float64{"prad": x.At(7, 0), "noise": x.At(7, 1)}
	if math.Abs(params.Score(row)-scores[7]) > 1e-9 {
		t.Fatalf("exported params disagree with Scores: %v vs %v", params.Score(row), scores[7])
	}
}

func TestDesignMatrixFillsMissing(t *testing.T) {
	table, err := telemetry.NewTable([]telemetry.Sample{
		{ShotID: "a", TimeUnixNs: 0, Channels: map[string]float64{"ip": 1}},
		{ShotID: "a", TimeUnixNs: 1, Channels: map[string]float64{}},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	x, err := DesignMatrix(table, []string{"ip"})
	if err != nil {
		t.Fatalf("DesignMatrix: %v", err)
	}
	if x.At(0, 0) != 1 || x.At(1, 0) != 0 {
		t.Fatalf("unexpected matrix %v", mat.Formatted(x))
	}
	if _, err := DesignMatrix(table, []string{"ne"}); err == nil {
		t.Fatal("unknown feature should fail")
	}
}
