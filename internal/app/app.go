package app

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog"

	"fusionguard/internal/alerting"
	"fusionguard/internal/config"
	"fusionguard/internal/ingest"
	"fusionguard/internal/pipeline"
	"fusionguard/internal/storage"
	"fusionguard/internal/telemetry"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newPipeline builds a pipeline from config, overriding the calibration kind
// when calibration is not empty.
func (a *App) newPipeline(calibration string) (*pipeline.Pipeline, error) {
	opts := pipeline.OptionsFromConfig(a.Config.Pipeline)
	if calibration != "" {
		opts.Calibration = calibration
	}
	return pipeline.New(opts, a.Logger)
}

// InputOptions select the dataset of a command.
type InputOptions struct {
	Paths  []string
	Format string
	// Synthetic adds generated shots; implied when Paths is empty.
	Synthetic bool
}

func (a *App) loadTable(ctx context.Context, opts InputOptions) (*telemetry.Table, error) {
	format, err := ingest.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	req := ingest.Request{Paths: opts.Paths, Format: format}
	if opts.Synthetic || len(opts.Paths) == 0 || format == ingest.FormatSynthetic {
		req.Synthetic = a.synthetic()
		req.Rand = rand.New(rand.NewSource(a.Config.Pipeline.Seed))
	}
	return ingest.NewLoader(a.Logger).Load(ctx, req)
}

func (a *App) synthetic() *ingest.Synthetic {
	return &ingest.Synthetic{
		Shots:                 a.Config.Synthetic.Shots,
		DurationMs:            a.Config.Synthetic.DurationMs,
		SampleRateHz:          a.Config.Pipeline.SampleRateHz,
		DisruptionProbability: a.Config.Synthetic.DisruptionProbability,
	}
}

// TrainOptions configure the train command.
type TrainOptions struct {
	Input       InputOptions
	OutDir      string
	Calibration string
	SkipPNG     bool
}

// FeaturesOptions configure the features command.
type FeaturesOptions struct {
	Input   InputOptions
	Output  string
	MaxRows int
}

// EvaluateOptions configure the evaluate command.
type EvaluateOptions struct {
	ScoresPath      string
	CalibrationPath string
	// FromStore loads the latest persisted calibration of HorizonMs.
	FromStore   bool
	HorizonMs   int
	Calibration string
	Output      string
}

// GenerateOptions configure the generate command.
type GenerateOptions struct {
	Output string
	Shots  int
	Seed   int64
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// SimulateOptions describe a fabricated evaluation pushed through the quality gate.
type SimulateOptions struct {
	HorizonMs        int
	ROCAUC           float64
	CalibrationError float64
}
