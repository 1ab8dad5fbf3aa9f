package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"fusionguard/internal/export"
	"fusionguard/internal/labeling"
)

// Features computes feature and label columns and writes them as CSV.
func (a *App) Features(ctx context.Context, opts FeaturesOptions) error {
	if opts.Output == "" {
		return errors.New("--output must be provided")
	}
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts.MaxRows = a.Config.ResolveMaxRows(opts.MaxRows)

	table, err := a.loadTable(ctx, opts.Input)
	if err != nil {
		return err
	}
	p, err := a.newPipeline("")
	if err != nil {
		return err
	}
	names, labels, err := p.Features(ctx, table)
	if err != nil {
		return err
	}

	columns := append([]string(nil), names...)
	for _, h := range labels.Horizons {
		columns = append(columns, labeling.Column(h))
	}
	if err := export.WriteTableCSV(opts.Output, table, columns, opts.MaxRows); err != nil {
		return err
	}

	a.Logger.Info().
		Str("path", opts.Output).
		Int("rows", table.Len()).
		Int("features", len(names)).
		Int("max_rows", opts.MaxRows).
		Msg("features exported")
	return nil
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
