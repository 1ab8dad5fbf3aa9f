package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"fusionguard/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Synthetic SyntheticConfig `mapstructure:"synthetic"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. An empty DSN disables persistence.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// PipelineConfig drives feature extraction, labeling, calibration and evaluation.
type PipelineConfig struct {
	Channels      []string `mapstructure:"channels"`
	WindowsMs     []int    `mapstructure:"windows_ms"`
	SampleRateHz  int      `mapstructure:"sample_rate_hz"`
	Horizons      []int    `mapstructure:"horizons"`
	Calibration   string   `mapstructure:"calibration"`
	TestSplit     float64  `mapstructure:"test_split"`
	Seed          int64    `mapstructure:"seed"`
	TargetFPR     float64  `mapstructure:"target_fpr"`
	LeadThreshold float64  `mapstructure:"lead_threshold"`
	Workers       int      `mapstructure:"workers"`
	Spectral      bool     `mapstructure:"spectral"`
	Anomaly       bool     `mapstructure:"anomaly"`
}

// SyntheticConfig shapes generated shots when no input file is given.
type SyntheticConfig struct {
	Shots                 int     `mapstructure:"shots"`
	DurationMs            int     `mapstructure:"duration_ms"`
	DisruptionProbability float64 `mapstructure:"disruption_probability"`
}

// AlertingConfig defines the model quality gate and its routing.
type AlertingConfig struct {
	Enabled             bool           `mapstructure:"enabled"`
	MinROCAUC           float64        `mapstructure:"min_roc_auc"`
	MaxCalibrationError float64        `mapstructure:"max_calibration_error"`
	Telegram            TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery.
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ExportConfig sets artifact output.
type ExportConfig struct {
	Dir             string `mapstructure:"dir"`
	PNG             bool   `mapstructure:"png"`
	MetricsTextfile string `mapstructure:"metrics_textfile"`
	MaxRows         int    `mapstructure:"max_rows"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FUSIONGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fusionguard")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.connect_timeout", "10s")

	v.SetDefault("pipeline.channels", []string{"ip", "ne", "dwdt", "prad", "h_alpha"})
	v.SetDefault("pipeline.windows_ms", []int{10, 50, 200})
	v.SetDefault("pipeline.sample_rate_hz", 1000)
	v.SetDefault("pipeline.horizons", []int{50, 200})
	v.SetDefault("pipeline.calibration", "platt")
	v.SetDefault("pipeline.test_split", 0.2)
	v.SetDefault("pipeline.seed", 42)
	v.SetDefault("pipeline.target_fpr", 0.01)
	v.SetDefault("pipeline.lead_threshold", 0.5)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.spectral", true)
	v.SetDefault("pipeline.anomaly", true)

	v.SetDefault("synthetic.shots", 20)
	v.SetDefault("synthetic.duration_ms", 2000)
	v.SetDefault("synthetic.disruption_probability", 0.3)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.min_roc_auc", 0.7)
	v.SetDefault("alerting.max_calibration_error", 0.1)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("export.dir", "artifacts")
	v.SetDefault("export.png", true)
	v.SetDefault("export.max_rows", 0)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	p := c.Pipeline
	if len(p.Channels) == 0 {
		return fmt.Errorf("pipeline.channels must not be empty")
	}
	if p.SampleRateHz <= 0 {
		return fmt.Errorf("pipeline.sample_rate_hz must be greater than zero")
	}
	if len(p.WindowsMs) == 0 {
		return fmt.Errorf("pipeline.windows_ms must not be empty")
	}
	for _, w := range p.WindowsMs {
		if w*p.SampleRateHz/1000 < 1 {
			return fmt.Errorf("pipeline.windows_ms: %dms is shorter than one sample at %dHz", w, p.SampleRateHz)
		}
	}
	if len(p.Horizons) == 0 {
		return fmt.Errorf("pipeline.horizons must not be empty")
	}
	switch strings.ToLower(p.Calibration) {
	case "platt", "isotonic", "none":
	default:
		return fmt.Errorf("pipeline.calibration %q must be one of platt, isotonic, none", p.Calibration)
	}
	if p.TestSplit <= 0 || p.TestSplit >= 1 {
		return fmt.Errorf("pipeline.test_split must be in (0, 1)")
	}
	if p.TargetFPR < 0 || p.TargetFPR > 1 {
		return fmt.Errorf("pipeline.target_fpr must be in [0, 1]")
	}
	if c.Synthetic.Shots < 0 || c.Synthetic.DurationMs < 0 {
		return fmt.Errorf("synthetic.shots and synthetic.duration_ms cannot be negative")
	}
	if c.Synthetic.DisruptionProbability < 0 || c.Synthetic.DisruptionProbability > 1 {
		return fmt.Errorf("synthetic.disruption_probability must be in [0, 1]")
	}
	if c.Export.MaxRows < 0 {
		return fmt.Errorf("export.max_rows cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// ResolveMaxRows returns either the CLI override or config default; 0 means unlimited.
func (c *Config) ResolveMaxRows(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxRows
}
