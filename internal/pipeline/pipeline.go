// Package pipeline runs feature extraction, labeling, model fitting,
// calibration and evaluation over a telemetry table.
package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"fusionguard/internal/calibration"
	"fusionguard/internal/config"
	"fusionguard/internal/evaluation"
	"fusionguard/internal/features"
	"fusionguard/internal/ingest"
	"fusionguard/internal/labeling"
	"fusionguard/internal/model"
	"fusionguard/internal/telemetry"
)

const reliabilityBins = 10

// Options configure a Pipeline.
type Options struct {
	Channels      []string
	WindowsMs     []int
	SampleRateHz  int
	Horizons      []int
	Calibration   string
	TestSplit     float64
	Seed          int64
	TargetFPR     float64
	LeadThreshold float64
	Workers       int
	Spectral      bool
	Anomaly       bool
}

// OptionsFromConfig maps the pipeline config section to Options.
func OptionsFromConfig(cfg config.PipelineConfig) Options {
	return Options{
		Channels:      cfg.Channels,
		WindowsMs:     cfg.WindowsMs,
		SampleRateHz:  cfg.SampleRateHz,
		Horizons:      cfg.Horizons,
		Calibration:   cfg.Calibration,
		TestSplit:     cfg.TestSplit,
		Seed:          cfg.Seed,
		TargetFPR:     cfg.TargetFPR,
		LeadThreshold: cfg.LeadThreshold,
		Workers:       cfg.Workers,
		Spectral:      cfg.Spectral,
		Anomaly:       cfg.Anomaly,
	}
}

// Pipeline wires the feature engines to the model and calibration stages.
type Pipeline struct {
	opts     Options
	kind     calibration.Kind
	window   *features.WindowEngine
	spectral *features.SpectralEngine
	anomaly  *features.AnomalyEngine
	logger   zerolog.Logger
}

// New validates opts and constructs a Pipeline.
func New(opts Options, logger zerolog.Logger) (*Pipeline, error) {
	kind, err := calibration.ParseKind(opts.Calibration)
	if err != nil {
		return nil, err
	}
	if len(opts.Horizons) == 0 {
		return nil, fmt.Errorf("pipeline: no horizons: %w", telemetry.ErrInvalidInput)
	}

	return &Pipeline{
		opts:     opts,
		kind:     kind,
		window:   features.NewWindowEngine(features.WindowOptions{Workers: opts.Workers}, logger),
		spectral: features.NewSpectralEngine(features.SpectralOptions{Workers: opts.Workers}, logger),
		anomaly:  features.NewAnomalyEngine(features.AnomalyOptions{Workers: opts.Workers}, logger),
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

// Features appends every derived feature column and the label columns to
// table and returns the names of the feature columns in table order.
func (p *Pipeline) Features(ctx context.Context, table *telemetry.Table) ([]string, labeling.LabelSet, error) {
	start := time.Now()
	source := table.Columns()
	var err error

	if table, err = p.window.Compute(table, p.opts.Channels, p.opts.WindowsMs, p.opts.SampleRateHz); err != nil {
		return nil, labeling.LabelSet{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, labeling.LabelSet{}, err
	}
	if p.opts.Spectral {
		if table, err = p.spectral.Compute(table, p.opts.Channels, p.opts.SampleRateHz); err != nil {
			return nil, labeling.LabelSet{}, err
		}
		if err := ctx.Err(); err != nil {
			return nil, labeling.LabelSet{}, err
		}
	}
	if p.opts.Anomaly {
		if table, err = p.anomaly.Compute(table, p.opts.Channels); err != nil {
			return nil, labeling.LabelSet{}, err
		}
	}

	labels, err := labeling.Apply(table, p.opts.Horizons)
	if err != nil {
		return nil, labeling.LabelSet{}, err
	}

	names := FeatureColumns(table, source, labels.Horizons)
	if len(names) == 0 {
		return nil, labeling.LabelSet{}, fmt.Errorf("pipeline: none of channels %v present: %w", p.opts.Channels, telemetry.ErrInvalidInput)
	}
	p.logger.Info().
		Int("rows", table.Len()).
		Int("features", len(names)).
		Dur("elapsed", time.Since(start)).
		Msg("features computed")
	return names, labels, nil
}

// FeatureColumns lists the columns of table that are neither in source nor
// label columns of horizons, in table order.
func FeatureColumns(table *telemetry.Table, source []string, horizons []int) []string {
	skip := make(map[string]struct{}, len(source)+len(horizons))
	for _, name := range source {
		skip[name] = struct{}{}
	}
	for _, h := range horizons {
		skip[labeling.Column(h)] = struct{}{}
	}

	var names []string
	for _, name := range table.Columns() {
		if _, ok := skip[name]; ok {
			continue
		}
		names = append(names, name)
	}
	return names
}

// HorizonResult is the outcome of one horizon.
type HorizonResult struct {
	HorizonMs   int
	Features    []string
	Model       model.Params
	Calibration calibration.Model
	Report      evaluation.Report
	ROC         evaluation.ROC
	Bins        []evaluation.Bin
	// Test holds the raw decision-function scores of the test rows so they
	// can be re-evaluated later with any calibration.
	Test ingest.Scores
}

// Result is the outcome of a training run.
type Result struct {
	Table    *telemetry.Table
	Split    Split
	Horizons []HorizonResult
}

// Train computes features, splits shots, fits one scorer and calibrator per
// horizon on the training shots and evaluates them on the test shots.
func (p *Pipeline) Train(ctx context.Context, table *telemetry.Table) (*Result, error) {
	names, labels, err := p.Features(ctx, table)
	if err != nil {
		return nil, err
	}

	split, err := SplitShots(table, p.opts.TestSplit, rand.New(rand.NewSource(p.opts.Seed)))
	if err != nil {
		return nil, err
	}
	train, test := table.Subset(split.Train), table.Subset(split.Test)
	p.logger.Info().
		Int("train_shots", len(split.Train)).
		Int("test_shots", len(split.Test)).
		Int("train_rows", train.Len()).
		Int("test_rows", test.Len()).
		Msg("shots split")

	xTrain, err := model.DesignMatrix(train, names)
	if err != nil {
		return nil, err
	}
	xTest, err := model.DesignMatrix(test, names)
	if err != nil {
		return nil, err
	}

	result := &Result{Table: table, Split: split}
	for _, h := range labels.Horizons {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hr, err := p.trainHorizon(h, names, train, test, xTrain, xTest)
		if err != nil {
			return nil, fmt.Errorf("horizon %dms: %w", h, err)
		}
		p.logger.Info().
			Int("horizon_ms", h).
			Float64("roc_auc", hr.Report.ROCAUC).
			Float64("pr_auc", hr.Report.PRAUC).
			Float64("calibration_error", hr.Report.CalibrationError).
			Msg("horizon evaluated")
		result.Horizons = append(result.Horizons, hr)
	}
	return result, nil
}

func (p *Pipeline) trainHorizon(h int, names []string, train, test *telemetry.Table, xTrain, xTest *mat.Dense) (HorizonResult, error) {
	trainLabels, err := labelColumn(train, h)
	if err != nil {
		return HorizonResult{}, err
	}
	testLabels, err := labelColumn(test, h)
	if err != nil {
		return HorizonResult{}, err
	}
	if !bothClasses(trainLabels) {
		return HorizonResult{}, fmt.Errorf("training labels contain a single class: %w", telemetry.ErrDegenerateData)
	}

	scorer, err := model.FitLogistic(xTrain, names, trainLabels, model.LogisticOptions{})
	if err != nil {
		return HorizonResult{}, err
	}
	trainScores, err := scorer.Scores(xTrain)
	if err != nil {
		return HorizonResult{}, err
	}
	testScores, err := scorer.Scores(xTest)
	if err != nil {
		return HorizonResult{}, err
	}

	calibrated, err := p.calibrate(trainScores, trainLabels)
	if err != nil {
		return HorizonResult{}, err
	}
	batch := ingest.Scores{
		Scores: testScores,
		Labels: testLabels,
		TTD:    test.TimeToDisruption(),
		Shots:  test.ShotIDs(),
	}
	ev, err := p.evaluate(batch, calibrated)
	if err != nil {
		return HorizonResult{}, err
	}

	return HorizonResult{
		HorizonMs:   h,
		Features:    append([]string(nil), names...),
		Model:       scorer.Params(fmt.Sprintf("h%d", h)),
		Calibration: calibrated,
		Report:      ev.Report,
		ROC:         ev.ROC,
		Bins:        ev.Bins,
		Test:        batch,
	}, nil
}

// calibrate fits the configured calibrator on training scores.
func (p *Pipeline) calibrate(scores []float64, labels []bool) (calibration.Model, error) {
	calibrator, err := calibration.New(string(p.kind))
	if err != nil {
		return nil, err
	}
	_, m, err := calibrator.FitTransform(scores, labels)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// probabilities maps raw decision-function scores through m. The identity
// model is preceded by the scorer's own logistic link so that metrics always
// see values in [0, 1].
func probabilities(m calibration.Model, scores []float64) []float64 {
	if m.Kind() != calibration.KindNone {
		return calibration.ApplyAll(m, scores)
	}
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = m.Apply(model.Probability(s))
	}
	return out
}

// Evaluation is the outcome of evaluating a batch of scores.
type Evaluation struct {
	Calibration calibration.Model
	Report      evaluation.Report
	ROC         evaluation.ROC
	Bins        []evaluation.Bin
}

// EvaluateScores calibrates a batch of raw decision-function scores and
// evaluates it. When prior is nil the calibrator is fitted on the batch itself.
func (p *Pipeline) EvaluateScores(ctx context.Context, batch ingest.Scores, prior calibration.Model) (Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return Evaluation{}, err
	}
	m := prior
	if m == nil {
		calibrator, err := calibration.New(string(p.kind))
		if err != nil {
			return Evaluation{}, err
		}
		if _, m, err = calibrator.FitTransform(batch.Scores, batch.Labels); err != nil {
			return Evaluation{}, err
		}
	}
	return p.evaluate(batch, m)
}

func (p *Pipeline) evaluate(batch ingest.Scores, m calibration.Model) (Evaluation, error) {
	probs := probabilities(m, batch.Scores)

	opts := []evaluation.Option{
		evaluation.WithTargetFPR(p.opts.TargetFPR),
		evaluation.WithLeadThreshold(p.opts.LeadThreshold),
	}
	if batch.TTD != nil {
		opts = append(opts, evaluation.WithTimeToDisruption(batch.TTD))
	}
	if batch.Shots != nil {
		opts = append(opts, evaluation.WithShots(batch.Shots))
	}
	report, err := evaluation.Evaluate(batch.Labels, probs, opts...)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{
		Calibration: m,
		Report:      report,
		ROC:         evaluation.Curve(batch.Labels, probs),
		Bins:        evaluation.ReliabilityBins(batch.Labels, probs, reliabilityBins),
	}, nil
}

func labelColumn(table *telemetry.Table, h int) ([]bool, error) {
	col, ok := table.Column(labeling.Column(h))
	if !ok {
		return nil, fmt.Errorf("missing %s column: %w", labeling.Column(h), telemetry.ErrInvalidInput)
	}
	out := make([]bool, len(col))
	for i, v := range col {
		out[i] = v == 1
	}
	return out, nil
}

func bothClasses(labels []bool) bool {
	var pos, neg bool
	for _, l := range labels {
		if l {
			pos = true
		} else {
			neg = true
		}
		if pos && neg {
			return true
		}
	}
	return false
}
