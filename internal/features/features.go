// Package features derives causal per-shot features from telemetry tables.
//
// Every engine restarts its state at shot boundaries: a value written at row i
// only depends on rows of the same shot at or before i. Shots are independent,
// so engines may process them concurrently; rows of one shot are always
// visited in time order.
package features

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"fusionguard/internal/telemetry"
)

const (
	emaAlpha       = 0.01
	zscoreEpsilon  = 1e-9
	madEpsilon     = 1e-9
	spectralMinLen = 32
	spectralMaxLen = 1000
	anomalyWindow  = 1000
	anomalyMinLen  = 10
)

// MissingRatioColumn is the per-row fraction of requested channels without a value.
const MissingRatioColumn = "missing_ratio"

// WindowColumn names a rolling-window feature column, e.g. ip_mean_w50.
func WindowColumn(channel, stat string, windowMs int) string {
	return fmt.Sprintf("%s_%s_w%d", channel, stat, windowMs)
}

// WindowStats lists the per-window statistics in column order.
var WindowStats = []string{"mean", "std", "min", "max", "slope", "last", "delta", "zscore"}

// SpectralColumns returns the energy and dominant frequency column names.
func SpectralColumns(channel string) (energy, dominant string) {
	return channel + "_energy", channel + "_dominant_freq"
}

// AnomalyColumn names the robust anomaly score column.
func AnomalyColumn(channel string) string {
	return channel + "_anomaly"
}

// WindowSamples converts a window length in milliseconds to a sample count.
func WindowSamples(windowMs, sampleRateHz int) (int, error) {
	n := windowMs * sampleRateHz / 1000
	if n < 1 {
		return 0, fmt.Errorf("window %dms at %dHz resolves to %d samples: %w", windowMs, sampleRateHz, n, telemetry.ErrInvalidInput)
	}
	return n, nil
}

// forEachShot runs fn for every shot, using up to workers goroutines.
func forEachShot(shots []telemetry.Shot, workers int, fn func(telemetry.Shot) error) error {
	if workers <= 1 {
		for _, shot := range shots {
			if err := fn(shot); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for _, shot := range shots {
		shot := shot
		g.Go(func() error { return fn(shot) })
	}
	return g.Wait()
}

// newColumn allocates a zeroed column for n rows.
func newColumn(n int) []float64 {
	return make([]float64, n)
}

func isMissing(v float64) bool { return math.IsNaN(v) }
