package config

import (
	"os"
	"path/filepath"
	"testing"

	"ictrader/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	if cfg.Detection.PivotWindow != 5 {
		t.Errorf("pivot_window = %d, want 5", cfg.Detection.PivotWindow)
	}
	if cfg.Signal.BuyVolumeWeight != 0.6 {
		t.Errorf("buy_volume_weight = %f, want 0.6", cfg.Signal.BuyVolumeWeight)
	}
	if cfg.Risk.MaxDailyLoss != 1000 {
		t.Errorf("max_daily_loss = %f, want 1000", cfg.Risk.MaxDailyLoss)
	}
	if cfg.Sizing.KellyFraction != 0.25 {
		t.Errorf("kelly_fraction = %f, want 0.25", cfg.Sizing.KellyFraction)
	}
	if cfg.Backtest.InitialCapital != 50000 {
		t.Errorf("initial_capital = %f, want 50000", cfg.Backtest.InitialCapital)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero pivot window", func(c *Config) { c.Detection.PivotWindow = 0 }},
		{"divergence strength above 100", func(c *Config) { c.Detection.MinDivergenceStrength = 101 }},
		{"negative gap size", func(c *Config) { c.Detection.MinGapSize = -1 }},
		{"buy volume weight at coin flip", func(c *Config) { c.Signal.BuyVolumeWeight = 0.5 }},
		{"volume spike factor below 1", func(c *Config) { c.Signal.VolumeSpikeFactor = 0.9 }},
		{"zero daily loss limit", func(c *Config) { c.Risk.MaxDailyLoss = 0 }},
		{"heat below position risk", func(c *Config) { c.Risk.MaxPortfolioHeat = 100 }},
		{"max below base contracts", func(c *Config) { c.Sizing.MaxContracts = 0 }},
		{"kelly fraction above 1", func(c *Config) { c.Sizing.KellyFraction = 1.5 }},
		{"zero lookback", func(c *Config) { c.Backtest.Lookback = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation failure")
			}
			if !errors.Is(err, errors.ErrInvalidConfig) {
				t.Errorf("error must wrap ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("missing config file must not fail: %v", err)
	}
	if cfg.Detection.PivotWindow != 5 {
		t.Errorf("expected default pivot_window, got %d", cfg.Detection.PivotWindow)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	content := "[detection]\npivot_window = 7\n\n[risk]\nmax_daily_loss = 2500.0\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Detection.PivotWindow != 7 {
		t.Errorf("pivot_window = %d, want 7", cfg.Detection.PivotWindow)
	}
	if cfg.Risk.MaxDailyLoss != 2500 {
		t.Errorf("max_daily_loss = %f, want 2500", cfg.Risk.MaxDailyLoss)
	}
	// Untouched sections keep their defaults.
	if cfg.Sizing.BaseContracts != 1 {
		t.Errorf("base_contracts = %d, want default 1", cfg.Sizing.BaseContracts)
	}
}

func TestLoadFailsFastOnInvalidValues(t *testing.T) {
	dir := t.TempDir()
	content := "[detection]\nmin_gap_size = -3.0\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); !errors.Is(err, errors.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
