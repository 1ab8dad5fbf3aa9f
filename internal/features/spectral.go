package features

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"fusionguard/internal/telemetry"
)

// SpectralOptions tune the spectral engine.
type SpectralOptions struct {
	Workers int
}

// SpectralEngine computes trailing-buffer FFT energy and dominant frequency.
type SpectralEngine struct {
	workers int
	logger  zerolog.Logger
}

// NewSpectralEngine constructs a SpectralEngine.
func NewSpectralEngine(opts SpectralOptions, logger zerolog.Logger) *SpectralEngine {
	return &SpectralEngine{
		workers: opts.Workers,
		logger:  logger.With().Str("component", "spectral_features").Logger(),
	}
}

// Compute appends <channel>_energy and <channel>_dominant_freq to table.
//
// The trailing buffer of a shot holds min(1000, len(shot)/10) present values.
// Until it contains at least 32 values both features are 0.
func (e *SpectralEngine) Compute(table *telemetry.Table, channels []string, sampleRateHz int) (*telemetry.Table, error) {
	if sampleRateHz <= 0 {
		return nil, fmt.Errorf("spectral features: sample rate %dHz: %w", sampleRateHz, telemetry.ErrInvalidInput)
	}

	shots := table.Shots()
	rows := table.Len()
	rate := float64(sampleRateHz)

	for _, channel := range channels {
		values, ok := table.Column(channel)
		if !ok {
			e.logger.Debug().Str("channel", channel).Msg("channel not present; skipping")
			continue
		}

		energy := newColumn(rows)
		dominant := newColumn(rows)
		err := forEachShot(shots, e.workers, func(shot telemetry.Shot) error {
			shotSpectrum(values[shot.Start:shot.End], rate, energy[shot.Start:shot.End], dominant[shot.Start:shot.End])
			return nil
		})
		if err != nil {
			return nil, err
		}

		energyName, dominantName := SpectralColumns(channel)
		if err := table.SetColumn(energyName, energy); err != nil {
			return nil, err
		}
		if err := table.SetColumn(dominantName, dominant); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func shotSpectrum(values []float64, rate float64, energy, dominant []float64) {
	capacity := min(spectralMaxLen, len(values)/10)
	if capacity < spectralMinLen {
		// outputs are already zero
		return
	}

	buf := newRing(capacity)
	plans := make(map[int]*fourier.FFT)
	var (
		seq    []float64
		coeffs []complex128
		power  []float64
	)

	for i, v := range values {
		if !isMissing(v) {
			buf.push(v)
		}
		n := buf.len()
		if n < spectralMinLen {
			continue
		}

		plan, ok := plans[n]
		if !ok {
			plan = fourier.NewFFT(n)
			plans[n] = plan
		}
		seq = buf.slice(seq)
		if bins := n/2 + 1; cap(coeffs) < bins {
			coeffs = make([]complex128, bins)
		} else {
			coeffs = coeffs[:bins]
		}
		coeffs = plan.Coefficients(coeffs, seq)

		power = power[:0]
		for _, c := range coeffs {
			power = append(power, real(c)*real(c)+imag(c)*imag(c))
		}
		energy[i] = floats.Sum(power)
		k := floats.MaxIdx(power[1:]) + 1
		dominant[i] = plan.Freq(k) * rate
	}
}
