// Package ingest turns input files or generated shots into telemetry tables.
package ingest

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/rs/zerolog"

	"fusionguard/internal/telemetry"
)

// Request lists the sources of one dataset. Samples from all sources are
// concatenated before the table is built.
type Request struct {
	Paths []string
	// Format overrides suffix detection for every path when not FormatAuto.
	Format    Format
	Synthetic *Synthetic
	Rand      *rand.Rand
}

// Loader reads samples from the sources of a Request.
type Loader struct {
	logger zerolog.Logger
}

// NewLoader constructs a Loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{logger: logger.With().Str("component", "ingest").Logger()}
}

// Load reads every source and builds the table.
func (l *Loader) Load(ctx context.Context, req Request) (*telemetry.Table, error) {
	samples, err := l.Samples(ctx, req)
	if err != nil {
		return nil, err
	}
	table, err := telemetry.NewTable(samples)
	if err != nil {
		return nil, err
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	l.logger.Info().Int("rows", table.Len()).Int("shots", len(table.Shots())).Msg("dataset loaded")
	return table, nil
}

// Samples reads every source without building a table.
func (l *Loader) Samples(ctx context.Context, req Request) ([]telemetry.Sample, error) {
	var samples []telemetry.Sample
	for _, path := range req.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		format := req.Format
		if format == FormatAuto {
			detected, err := DetectFormat(path)
			if err != nil {
				return nil, err
			}
			format = detected
		}
		loaded, err := l.loadFile(path, format)
		if err != nil {
			return nil, err
		}
		l.logger.Debug().Str("path", path).Str("format", format.String()).Int("samples", len(loaded)).Msg("source read")
		samples = append(samples, loaded...)
	}

	if req.Synthetic != nil || req.Format == FormatSynthetic {
		if req.Synthetic == nil {
			return nil, fmt.Errorf("synthetic format without generator settings: %w", telemetry.ErrInvalidInput)
		}
		generated, err := req.Synthetic.Generate(req.Rand)
		if err != nil {
			return nil, err
		}
		l.logger.Debug().Int("shots", req.Synthetic.Shots).Int("samples", len(generated)).Msg("synthetic shots generated")
		samples = append(samples, generated...)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("no data sources provided: %w", telemetry.ErrInvalidInput)
	}
	return samples, nil
}

func (l *Loader) loadFile(path string, format Format) ([]telemetry.Sample, error) {
	switch format {
	case FormatCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		samples, err := ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return samples, nil
	case FormatHDF5, FormatNetCDF:
		return nil, fmt.Errorf("%s (%s): no reader available: %w", path, format, ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%s: format %s is not file based: %w", path, format, ErrUnsupportedFormat)
	}
}
