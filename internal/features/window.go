package features

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"fusionguard/internal/telemetry"
)

// WindowOptions tune the rolling-window engine.
type WindowOptions struct {
	// Workers bounds the number of shots processed concurrently.
	Workers int
}

// WindowEngine computes trailing-window statistics per channel and window size.
type WindowEngine struct {
	workers int
	logger  zerolog.Logger
}

// NewWindowEngine constructs a WindowEngine.
func NewWindowEngine(opts WindowOptions, logger zerolog.Logger) *WindowEngine {
	return &WindowEngine{
		workers: opts.Workers,
		logger:  logger.With().Str("component", "window_features").Logger(),
	}
}

// Compute appends mean/std/min/max/slope/last/delta/zscore columns for every
// channel and window to table and returns it. Channels absent from the table
// are skipped.
func (e *WindowEngine) Compute(table *telemetry.Table, channels []string, windowsMs []int, sampleRateHz int) (*telemetry.Table, error) {
	if sampleRateHz <= 0 {
		return nil, fmt.Errorf("window features: sample rate %dHz: %w", sampleRateHz, telemetry.ErrInvalidInput)
	}
	if len(windowsMs) == 0 {
		return nil, fmt.Errorf("window features: no window sizes: %w", telemetry.ErrInvalidInput)
	}

	sizes := make([]int, len(windowsMs))
	for i, w := range windowsMs {
		n, err := WindowSamples(w, sampleRateHz)
		if err != nil {
			return nil, fmt.Errorf("window features: %w", err)
		}
		sizes[i] = n
	}

	shots := table.Shots()
	rows := table.Len()
	perMs := float64(sampleRateHz) / 1000

	for _, channel := range channels {
		values, ok := table.Column(channel)
		if !ok {
			e.logger.Debug().Str("channel", channel).Msg("channel not present; skipping")
			continue
		}

		zscore := newColumn(rows)
		delta := newColumn(rows)
		err := forEachShot(shots, e.workers, func(shot telemetry.Shot) error {
			shotZScores(values[shot.Start:shot.End], zscore[shot.Start:shot.End])
			shotDeltas(values[shot.Start:shot.End], delta[shot.Start:shot.End])
			return nil
		})
		if err != nil {
			return nil, err
		}

		for i, windowMs := range windowsMs {
			cols := make(map[string][]float64, len(WindowStats))
			for _, name := range []string{"mean", "std", "min", "max", "slope"} {
				cols[name] = newColumn(rows)
			}
			n := sizes[i]

			err := forEachShot(shots, e.workers, func(shot telemetry.Shot) error {
				out := rollingOutputs{
					mean:  cols["mean"][shot.Start:shot.End],
					std:   cols["std"][shot.Start:shot.End],
					min:   cols["min"][shot.Start:shot.End],
					max:   cols["max"][shot.Start:shot.End],
					slope: cols["slope"][shot.Start:shot.End],
				}
				shotRolling(values[shot.Start:shot.End], n, perMs, out)
				return nil
			})
			if err != nil {
				return nil, err
			}

			cols["last"] = append([]float64(nil), values...)
			cols["delta"] = append([]float64(nil), delta...)
			cols["zscore"] = append([]float64(nil), zscore...)

			for _, name := range WindowStats {
				if err := table.SetColumn(WindowColumn(channel, name, windowMs), cols[name]); err != nil {
					return nil, err
				}
			}
			e.logger.Debug().Str("channel", channel).Int("window_ms", windowMs).Int("samples", n).Msg("window features computed")
		}
	}

	return table, nil
}

type rollingOutputs struct {
	mean, std, min, max, slope []float64
}

// shotRolling fills the trailing-window aggregates of one shot. Missing values
// are ignored; a window without any present value yields NaN aggregates.
func shotRolling(values []float64, n int, perMs float64, out rollingOutputs) {
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)

	for i := range values {
		lo := max(0, i-n+1)
		xs, ys = xs[:0], ys[:0]
		for k, v := range values[lo : i+1] {
			if isMissing(v) {
				continue
			}
			xs = append(xs, float64(k))
			ys = append(ys, v)
		}

		if len(ys) == 0 {
			nan := math.NaN()
			out.mean[i], out.std[i], out.min[i], out.max[i] = nan, nan, nan, nan
			out.slope[i] = 0
			continue
		}

		if len(ys) == 1 {
			out.mean[i] = ys[0]
			out.std[i] = 0
		} else {
			out.mean[i], out.std[i] = stat.MeanStdDev(ys, nil)
		}
		out.min[i] = floats.Min(ys)
		out.max[i] = floats.Max(ys)

		if len(ys) >= 2 {
			_, beta := stat.LinearRegression(xs, ys, nil, false)
			out.slope[i] = beta * perMs
		}
	}
}

// shotDeltas writes first differences; the first row and rows next to a
// missing value get 0.
func shotDeltas(values, out []float64) {
	for i := range values {
		if i == 0 || isMissing(values[i]) || isMissing(values[i-1]) {
			out[i] = 0
			continue
		}
		out[i] = values[i] - values[i-1]
	}
}

// shotZScores writes the deviation of each value from an exponential moving
// baseline that includes the value itself.
func shotZScores(values, out []float64) {
	base := newEWMBaseline(emaAlpha)
	for i, v := range values {
		if isMissing(v) {
			out[i] = math.NaN()
			continue
		}
		base.push(v)
		out[i] = (v - base.mean) / (base.std() + zscoreEpsilon)
	}
}
