package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatalf("explicit missing file should fail, got %+v", cfg)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("app:\n  name: test\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Name != "test" {
		t.Fatalf("app.name = %q", cfg.App.Name)
	}
	if cfg.Pipeline.SampleRateHz != 1000 || len(cfg.Pipeline.Horizons) != 2 {
		t.Fatalf("unexpected pipeline defaults %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.Calibration != "platt" {
		t.Fatalf("calibration default = %q", cfg.Pipeline.Calibration)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
pipeline:
  channels: [ip, ne]
  windows_ms: [20]
  horizons: [100]
  calibration: isotonic
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FUSIONGUARD_PIPELINE_SEED", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Pipeline.Channels) != 2 || cfg.Pipeline.WindowsMs[0] != 20 || cfg.Pipeline.Horizons[0] != 100 {
		t.Fatalf("unexpected pipeline %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.Calibration != "isotonic" {
		t.Fatalf("calibration = %q", cfg.Pipeline.Calibration)
	}
	if cfg.Pipeline.Seed != 7 {
		t.Fatalf("seed from env = %d", cfg.Pipeline.Seed)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{Pipeline: PipelineConfig{
			Channels:     []string{"ip"},
			WindowsMs:    []int{10},
			SampleRateHz: 1000,
			Horizons:     []int{50},
			Calibration:  "platt",
			TestSplit:    0.2,
			TargetFPR:    0.01,
		}}
	}

	cfg := base()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(*Config){
		"short window":     func(c *Config) { c.Pipeline.WindowsMs = []int{1}; c.Pipeline.SampleRateHz = 100 },
		"unknown calib":    func(c *Config) { c.Pipeline.Calibration = "beta" },
		"no horizons":      func(c *Config) { c.Pipeline.Horizons = nil },
		"bad split":        func(c *Config) { c.Pipeline.TestSplit = 1 },
		"telegram no chat": func(c *Config) { c.Alerting.Telegram = TelegramConfig{Enabled: true, BotToken: "x"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
