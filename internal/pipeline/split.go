package pipeline

import (
	"fmt"
	"math"
	"math/rand"

	"fusionguard/internal/telemetry"
)

// Split partitions shot ids into training and test sets.
type Split struct {
	Train []string
	Test  []string
}

// SplitShots shuffles the shots of table with rng and moves
// round(len * testFraction) of them, at least one, into the test set. Rows of
// one shot never straddle the split.
func SplitShots(table *telemetry.Table, testFraction float64, rng *rand.Rand) (Split, error) {
	if testFraction <= 0 || testFraction >= 1 {
		return Split{}, fmt.Errorf("split: test fraction %v outside (0, 1): %w", testFraction, telemetry.ErrInvalidInput)
	}
	shots := table.Shots()
	if len(shots) < 2 {
		return Split{}, fmt.Errorf("split: need at least 2 shots, have %d: %w", len(shots), telemetry.ErrInvalidInput)
	}

	ids := make([]string, len(shots))
	for i, s := range shots {
		ids[i] = s.ID
	}
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	nTest := int(math.Round(float64(len(ids)) * testFraction))
	nTest = min(max(nTest, 1), len(ids)-1)
	return Split{Train: ids[nTest:], Test: ids[:nTest]}, nil
}
