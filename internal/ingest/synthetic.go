package ingest

import (
	"fmt"
	"math"
	"math/rand"

	"fusionguard/internal/telemetry"
)

// SyntheticChannels lists the channels produced by Synthetic.
var SyntheticChannels = []string{"dwdt", "h_alpha", "ip", "ne", "prad"}

// Synthetic generates tokamak-like shots. Disruptive shots end their last
// second with rising radiation and a falling plasma current.
type Synthetic struct {
	Shots                 int
	DurationMs            int
	SampleRateHz          int
	DisruptionProbability float64
}

// Generate draws all randomness from rng.
func (g Synthetic) Generate(rng *rand.Rand) ([]telemetry.Sample, error) {
	if rng == nil {
		return nil, fmt.Errorf("synthetic: nil random source: %w", telemetry.ErrInvalidInput)
	}
	n := g.DurationMs * g.SampleRateHz / 1000
	if g.Shots <= 0 || n < 2 {
		return nil, fmt.Errorf("synthetic: %d shots of %d samples: %w", g.Shots, n, telemetry.ErrInvalidInput)
	}

	samples := make([]telemetry.Sample, 0, g.Shots*n)
	duration := float64(g.DurationMs)
	for shot := 0; shot < g.Shots; shot++ {
		id := fmt.Sprintf("synthetic_%04d", shot)

		rows := make([]map[string]float64, n)
		times := make([]int64, n)
		for i := range rows {
			tMs := duration * float64(i) / float64(n-1)
			times[i] = int64(tMs * 1e6)
			rows[i] = map[string]float64{
				"ip":      1.0 + 0.1*math.Sin(2*math.Pi*tMs/2000) + 0.05*rng.NormFloat64(),
				"ne":      0.5 + 0.1*math.Sin(2*math.Pi*tMs/3000) + 0.03*rng.NormFloat64(),
				"dwdt":    0.01 * rng.NormFloat64(),
				"prad":    0.3 + 0.05*math.Sin(2*math.Pi*tMs/4000) + 0.02*rng.NormFloat64(),
				"h_alpha": 0.1 + 0.02*rng.NormFloat64(),
			}
		}

		var disruptionNs *int64
		if rng.Float64() < g.DisruptionProbability {
			disruptionMs := duration * (0.7 + 0.3*rng.Float64())
			ns := int64(disruptionMs * 1e6)
			disruptionNs = &ns

			end := int(disruptionMs * float64(g.SampleRateHz) / 1000)
			start := max(0, end-g.SampleRateHz)
			for i := start; i < min(end, n); i++ {
				progress := float64(i-start) / float64(end-start)
				rows[i]["prad"] += 0.5 * progress
				rows[i]["ip"] -= 0.2 * progress
				rows[i]["h_alpha"] += 0.1 * progress
			}
		}

		for i := range rows {
			samples = append(samples, telemetry.Sample{
				ShotID:               id,
				TimeUnixNs:           times[i],
				Channels:             rows[i],
				DisruptionTimeUnixNs: disruptionNs,
			})
		}
	}
	return samples, nil
}
