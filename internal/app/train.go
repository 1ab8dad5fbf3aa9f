package app

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fusionguard/internal/export"
	"fusionguard/internal/ingest"
	"fusionguard/internal/metrics"
	"fusionguard/internal/pipeline"
	"fusionguard/internal/service"
	"fusionguard/internal/storage"
	"fusionguard/internal/version"
)

const scoresFile = "scores.csv"

// Train runs the full pipeline, writes per-horizon artifacts and publishes
// the results.
func (a *App) Train(ctx context.Context, opts TrainOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	table, err := a.loadTable(ctx, opts.Input)
	if err != nil {
		return err
	}
	p, err := a.newPipeline(opts.Calibration)
	if err != nil {
		return err
	}
	result, err := p.Train(ctx, table)
	if err != nil {
		return err
	}

	runID := uuid.New()
	kind := a.Config.Pipeline.Calibration
	if opts.Calibration != "" {
		kind = opts.Calibration
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = a.Config.Export.Dir
	}

	info := map[string]string{
		"run_id":      runID.String(),
		"rows":        strconv.Itoa(table.Len()),
		"train_shots": strconv.Itoa(len(result.Split.Train)),
		"test_shots":  strconv.Itoa(len(result.Split.Test)),
		"calibration": kind,
		"build":       version.String(),
	}
	for _, hr := range result.Horizons {
		if err := a.writeHorizon(outDir, hr, info, !opts.SkipPNG && a.Config.Export.PNG); err != nil {
			return err
		}
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	var runStore storage.RunStore
	if store != nil {
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		runStore = store
	}

	recorder := metrics.NewRecorder()
	svc := service.New(a.Config, runStore, a.newNotifier(), recorder, a.Logger)
	outcomes, err := svc.Publish(ctx, runID, kind, result)
	if err != nil {
		return err
	}

	if path := a.Config.Export.MetricsTextfile; path != "" {
		if err := recorder.WriteTextfile(path); err != nil {
			return err
		}
	}

	a.Logger.Info().Str("run_id", runID.String()).Str("dir", outDir).Msg("training run complete")
	return printSummary(runID, result, outcomes)
}

func (a *App) writeHorizon(outDir string, hr pipeline.HorizonResult, info map[string]string, png bool) error {
	params := hr.Model
	dir, err := export.WriteHorizon(outDir, export.HorizonArtifacts{
		HorizonMs:   hr.HorizonMs,
		Calibration: hr.Calibration.Record(),
		Metrics:     hr.Report,
		Features:    hr.Features,
		Model:       &params,
		Info:        info,
	})
	if err != nil {
		return err
	}

	file, err := os.Create(filepath.Join(dir, scoresFile))
	if err != nil {
		return err
	}
	defer file.Close()
	if err := ingest.WriteScores(file, hr.Test); err != nil {
		return err
	}

	if png {
		if err := export.WriteROCPNG(filepath.Join(dir, export.ROCChartFile), hr.ROC, hr.HorizonMs); err != nil {
			a.Logger.Warn().Err(err).Int("horizon_ms", hr.HorizonMs).Msg("roc chart skipped")
		}
		if err := export.WriteReliabilityPNG(filepath.Join(dir, export.ReliabilityFile), hr.Bins, hr.HorizonMs); err != nil {
			a.Logger.Warn().Err(err).Int("horizon_ms", hr.HorizonMs).Msg("reliability chart skipped")
		}
	}

	a.Logger.Info().Int("horizon_ms", hr.HorizonMs).Str("dir", dir).Msg("artifacts written")
	return nil
}

func printSummary(runID uuid.UUID, result *pipeline.Result, outcomes []service.Outcome) error {
	gate := make(map[int]string, len(outcomes))
	for _, out := range outcomes {
		gate[out.HorizonMs] = "pass"
		if len(out.Violations) > 0 {
			gate[out.HorizonMs] = "FAIL"
		}
	}

	fmt.Fprintf(os.Stdout, "run %s: %d train / %d test shots\n", runID, len(result.Split.Train), len(result.Split.Test))
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Horizon\tROC AUC\tPR AUC\tRecall@FPR\tLead ms\tBrier\tECE\tGate")
	for _, hr := range result.Horizons {
		r := hr.Report
		fmt.Fprintf(
			writer,
			"%dms\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			hr.HorizonMs,
			formatFloat(r.ROCAUC, 3),
			formatFloat(r.PRAUC, 3),
			formatFloat(r.RecallAtFPR, 3),
			formatFloat(r.MeanLeadTimeMs, 1),
			formatFloat(r.BrierScore, 4),
			formatFloat(r.CalibrationError, 4),
			gate[hr.HorizonMs],
		)
	}
	return writer.Flush()
}

func formatFloat(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return formatDecimal(decimal.NewFromFloat(v), places)
}
