package features

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"fusionguard/internal/telemetry"
)

// AnomalyOptions tune the anomaly engine.
type AnomalyOptions struct {
	Workers int
}

// AnomalyEngine scores each value by its robust distance from the recent median.
type AnomalyEngine struct {
	workers int
	logger  zerolog.Logger
}

// NewAnomalyEngine constructs an AnomalyEngine.
func NewAnomalyEngine(opts AnomalyOptions, logger zerolog.Logger) *AnomalyEngine {
	return &AnomalyEngine{
		workers: opts.Workers,
		logger:  logger.With().Str("component", "anomaly_features").Logger(),
	}
}

// Compute appends <channel>_anomaly for every channel present in table and
// the missing_ratio column over those channels.
//
// The score is |x - median| / (MAD + 1e-9) over the trailing 1000 present
// values of the shot, including x. It is 0 while fewer than 10 values are
// buffered or when the MAD is 0, and NaN when x itself is missing.
func (e *AnomalyEngine) Compute(table *telemetry.Table, channels []string) (*telemetry.Table, error) {
	shots := table.Shots()
	rows := table.Len()

	var present [][]float64
	for _, channel := range channels {
		values, ok := table.Column(channel)
		if !ok {
			e.logger.Debug().Str("channel", channel).Msg("channel not present; skipping")
			continue
		}
		present = append(present, values)

		scores := newColumn(rows)
		err := forEachShot(shots, e.workers, func(shot telemetry.Shot) error {
			shotAnomaly(values[shot.Start:shot.End], scores[shot.Start:shot.End])
			return nil
		})
		if err != nil {
			return nil, err
		}
		if err := table.SetColumn(AnomalyColumn(channel), scores); err != nil {
			return nil, err
		}
	}

	if len(present) == 0 {
		e.logger.Warn().Strs("channels", channels).Msg("no requested channel present; missing_ratio not emitted")
		return table, nil
	}

	ratio := newColumn(rows)
	for i := range ratio {
		missing := 0
		for _, col := range present {
			if isMissing(col[i]) {
				missing++
			}
		}
		ratio[i] = float64(missing) / float64(len(present))
	}
	if err := table.SetColumn(MissingRatioColumn, ratio); err != nil {
		return nil, err
	}
	return table, nil
}

func shotAnomaly(values, out []float64) {
	buf := newRing(anomalyWindow)
	var window, scratch []float64

	for i, v := range values {
		if isMissing(v) {
			out[i] = math.NaN()
			continue
		}
		buf.push(v)
		if buf.len() < anomalyMinLen {
			continue
		}

		window = buf.slice(window)
		med := median(window, &scratch)
		for k, x := range window {
			window[k] = math.Abs(x - med)
		}
		mad := median(window, &scratch)
		if mad > 0 {
			out[i] = math.Abs(v-med) / (mad + madEpsilon)
		}
	}
}

// median returns the median of xs, averaging the two middle values for even
// lengths. xs is left untouched; scratch is reused between calls.
func median(xs []float64, scratch *[]float64) float64 {
	s := append((*scratch)[:0], xs...)
	sort.Float64s(s)
	*scratch = s

	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
