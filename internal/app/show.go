package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints recent evaluation runs.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show runs")
	}
	if closeStore != nil {
		defer closeStore()
	}

	runs, err := store.ListRecentRuns(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "no evaluation runs found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tRun\tHorizon\tCalibration\tROC AUC\tPR AUC\tRecall@FPR\tLead ms\tBrier\tECE\tShots")

	for _, run := range runs {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%dms\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d/%d\n",
			run.CreatedAt.UTC().Format(time.RFC3339),
			shortID(run.RunID.String()),
			run.HorizonMs,
			sanitizeInline(run.CalibrationKind),
			formatDecimal(run.ROCAUC, 3),
			formatDecimal(run.PRAUC, 3),
			formatDecimal(run.RecallAtFPR, 3),
			formatDecimal(run.MeanLeadTimeMs, 1),
			formatDecimal(run.BrierScore, 4),
			formatDecimal(run.CalibrationError, 4),
			run.TrainShots,
			run.TestShots,
		)
	}

	writer.Flush()
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
