package app

import (
	"context"
	"errors"
	"math/rand"
	"os"

	"fusionguard/internal/ingest"
)

// Generate writes synthetic shots as CSV.
func (a *App) Generate(ctx context.Context, opts GenerateOptions) error {
	if opts.Output == "" {
		return errors.New("--output must be provided")
	}

	gen := a.synthetic()
	if opts.Shots > 0 {
		gen.Shots = opts.Shots
	}
	seed := a.Config.Pipeline.Seed
	if opts.Seed != 0 {
		seed = opts.Seed
	}

	samples, err := ingest.NewLoader(a.Logger).Samples(ctx, ingest.Request{
		Synthetic: gen,
		Rand:      rand.New(rand.NewSource(seed)),
	})
	if err != nil {
		return err
	}

	file, err := os.Create(opts.Output)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := ingest.WriteCSV(file, samples); err != nil {
		return err
	}
	a.Logger.Info().Str("path", opts.Output).Int("shots", gen.Shots).Int("samples", len(samples)).Msg("synthetic shots written")
	return nil
}
