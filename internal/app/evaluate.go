package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"fusionguard/internal/calibration"
	"fusionguard/internal/export"
	"fusionguard/internal/ingest"
	"fusionguard/internal/storage"
)

// Evaluate scores a saved batch of raw model scores. The calibration comes
// from a calibration.json file, from the store, or is fitted on the batch.
func (a *App) Evaluate(ctx context.Context, opts EvaluateOptions) error {
	if opts.ScoresPath == "" {
		return errors.New("--scores must be provided")
	}

	file, err := os.Open(opts.ScoresPath)
	if err != nil {
		return err
	}
	batch, err := ingest.ReadScores(file)
	file.Close()
	if err != nil {
		return err
	}

	prior, err := a.loadCalibration(ctx, opts)
	if err != nil {
		return err
	}

	p, err := a.newPipeline(opts.Calibration)
	if err != nil {
		return err
	}
	ev, err := p.EvaluateScores(ctx, batch, prior)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int("rows", batch.Len()).
		Str("calibration", string(ev.Calibration.Kind())).
		Str("version", ev.Calibration.Version()).
		Bool("prior", prior != nil).
		Msg("scores evaluated")

	if opts.Output != "" {
		return export.WriteJSON(opts.Output, ev.Report)
	}
	payload, err := json.MarshalIndent(ev.Report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(payload))
	return nil
}

func (a *App) loadCalibration(ctx context.Context, opts EvaluateOptions) (calibration.Model, error) {
	switch {
	case opts.CalibrationPath != "":
		data, err := os.ReadFile(opts.CalibrationPath)
		if err != nil {
			return nil, err
		}
		var rec calibration.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", opts.CalibrationPath, err)
		}
		return calibration.FromRecord(rec)

	case opts.FromStore:
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return nil, err
		}
		if store == nil {
			return nil, errors.New("database not configured; cannot load calibration")
		}
		defer closeStore()

		persisted, err := store.LatestCalibration(ctx, opts.HorizonMs)
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("no persisted calibration for horizon %dms", opts.HorizonMs)
		}
		if err != nil {
			return nil, err
		}
		rec, err := persisted.Record()
		if err != nil {
			return nil, err
		}
		a.Logger.Info().Str("run_id", persisted.RunID.String()).Int("horizon_ms", opts.HorizonMs).Msg("persisted calibration loaded")
		return calibration.FromRecord(rec)
	}
	return nil, nil
}
