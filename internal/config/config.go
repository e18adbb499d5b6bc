// Package config provides configuration management for the engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"ictrader/internal/errors"
)

// Config holds all engine configuration.
type Config struct {
	Detection DetectionConfig `mapstructure:"detection"`
	Signal    SignalConfig    `mapstructure:"signal"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Sizing    SizingConfig    `mapstructure:"sizing"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
}

// DetectionConfig holds pattern detection thresholds.
type DetectionConfig struct {
	PivotWindow           int     `mapstructure:"pivot_window"`            // bars either side of a pivot
	MaxPivotDistance      int     `mapstructure:"max_pivot_distance"`      // price-to-indicator pivot matching range
	MinDivergenceStrength float64 `mapstructure:"min_divergence_strength"` // 0-100 filter
	MinGapSize            float64 `mapstructure:"min_gap_size"`            // points
	MinDisplacement       float64 `mapstructure:"min_displacement"`        // points of body move
	LiquidityLookback     int     `mapstructure:"liquidity_lookback"`      // half window for pool detection
	LiquidityTolerance    float64 `mapstructure:"liquidity_tolerance"`     // points for touch counting
}

// SignalConfig holds signal generation thresholds.
type SignalConfig struct {
	BuyVolumeWeight     float64 `mapstructure:"buy_volume_weight"`   // CVD weighting for the dominant side
	VolumeSpikeFactor   float64 `mapstructure:"volume_spike_factor"` // current vs mean volume
	FVGRecencyMinutes   int     `mapstructure:"fvg_recency_minutes"`
	SweepRecencyMinutes int     `mapstructure:"sweep_recency_minutes"`
	CVDAverageBars      int     `mapstructure:"cvd_average_bars"`
}

// RiskConfig holds risk management limits.
type RiskConfig struct {
	MaxDailyLoss         float64 `mapstructure:"max_daily_loss"`
	MaxPositionRisk      float64 `mapstructure:"max_position_risk"`
	MinRiskReward        float64 `mapstructure:"min_risk_reward"`
	MaxConsecutiveLosses int     `mapstructure:"max_consecutive_losses"`
	MaxPortfolioHeat     float64 `mapstructure:"max_portfolio_heat"`
	MaxPositions         int     `mapstructure:"max_positions"`
	MaxContractsPerTrade int     `mapstructure:"max_contracts_per_trade"`
	PointValue           float64 `mapstructure:"point_value"`
}

// SizingConfig holds position scaling parameters.
type SizingConfig struct {
	BaseContracts      int     `mapstructure:"base_contracts"`
	MaxContracts       int     `mapstructure:"max_contracts"`
	ScaleUpThreshold   int     `mapstructure:"scale_up_threshold"`   // consecutive wins
	ScaleDownThreshold int     `mapstructure:"scale_down_threshold"` // consecutive losses
	KellyFraction      float64 `mapstructure:"kelly_fraction"`
	MinKellySample     int     `mapstructure:"min_kelly_sample"`
	MarginPerContract  float64 `mapstructure:"margin_per_contract"`
}

// BacktestConfig holds backtest run parameters.
type BacktestConfig struct {
	InitialCapital        float64 `mapstructure:"initial_capital"`
	Lookback              int     `mapstructure:"lookback"`
	MaxForwardBars        int     `mapstructure:"max_forward_bars"`
	Contracts             int     `mapstructure:"contracts"`
	PointValue            float64 `mapstructure:"point_value"`
	MarginPerContract     float64 `mapstructure:"margin_per_contract"`
	MinDivergenceStrength float64 `mapstructure:"min_divergence_strength"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/ictrader"
	}
	return filepath.Join(home, ".config", "ictrader")
}

// Default returns a config populated with default thresholds.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		// Defaults are static and known to unmarshal.
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from the specified directory. Missing files fall
// back to defaults; invalid values fail fast.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading config.toml")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("detection.pivot_window", 5)
	v.SetDefault("detection.max_pivot_distance", 20)
	v.SetDefault("detection.min_divergence_strength", 30.0)
	v.SetDefault("detection.min_gap_size", 2.0)
	v.SetDefault("detection.min_displacement", 10.0)
	v.SetDefault("detection.liquidity_lookback", 10)
	v.SetDefault("detection.liquidity_tolerance", 1.0)

	v.SetDefault("signal.buy_volume_weight", 0.6)
	v.SetDefault("signal.volume_spike_factor", 1.5)
	v.SetDefault("signal.fvg_recency_minutes", 15)
	v.SetDefault("signal.sweep_recency_minutes", 30)
	v.SetDefault("signal.cvd_average_bars", 5)

	v.SetDefault("risk.max_daily_loss", 1000.0)
	v.SetDefault("risk.max_position_risk", 500.0)
	v.SetDefault("risk.min_risk_reward", 1.5)
	v.SetDefault("risk.max_consecutive_losses", 3)
	v.SetDefault("risk.max_portfolio_heat", 1500.0)
	v.SetDefault("risk.max_positions", 3)
	v.SetDefault("risk.max_contracts_per_trade", 5)
	v.SetDefault("risk.point_value", 20.0)

	v.SetDefault("sizing.base_contracts", 1)
	v.SetDefault("sizing.max_contracts", 4)
	v.SetDefault("sizing.scale_up_threshold", 3)
	v.SetDefault("sizing.scale_down_threshold", 2)
	v.SetDefault("sizing.kelly_fraction", 0.25)
	v.SetDefault("sizing.min_kelly_sample", 10)
	v.SetDefault("sizing.margin_per_contract", 500.0)

	v.SetDefault("backtest.initial_capital", 50000.0)
	v.SetDefault("backtest.lookback", 100)
	v.SetDefault("backtest.max_forward_bars", 100)
	v.SetDefault("backtest.contracts", 1)
	v.SetDefault("backtest.point_value", 20.0)
	v.SetDefault("backtest.margin_per_contract", 500.0)
	v.SetDefault("backtest.min_divergence_strength", 40.0)
}

// Validate enforces threshold sanity at construction time.
func (c *Config) Validate() error {
	if c.Detection.PivotWindow <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "pivot_window must be positive, got %d", c.Detection.PivotWindow)
	}
	if c.Detection.MaxPivotDistance <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "max_pivot_distance must be positive, got %d", c.Detection.MaxPivotDistance)
	}
	if c.Detection.MinDivergenceStrength < 0 || c.Detection.MinDivergenceStrength > 100 {
		return errors.Wrapf(errors.ErrInvalidConfig, "min_divergence_strength must be within [0,100], got %.1f", c.Detection.MinDivergenceStrength)
	}
	if c.Detection.MinGapSize <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "min_gap_size must be positive, got %.2f", c.Detection.MinGapSize)
	}
	if c.Detection.MinDisplacement <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "min_displacement must be positive, got %.2f", c.Detection.MinDisplacement)
	}
	if c.Detection.LiquidityLookback <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "liquidity_lookback must be positive, got %d", c.Detection.LiquidityLookback)
	}

	if c.Signal.BuyVolumeWeight <= 0.5 || c.Signal.BuyVolumeWeight >= 1 {
		return errors.Wrapf(errors.ErrInvalidConfig, "buy_volume_weight must be within (0.5,1), got %.2f", c.Signal.BuyVolumeWeight)
	}
	if c.Signal.VolumeSpikeFactor <= 1 {
		return errors.Wrapf(errors.ErrInvalidConfig, "volume_spike_factor must exceed 1, got %.2f", c.Signal.VolumeSpikeFactor)
	}

	if c.Risk.MaxDailyLoss <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "max_daily_loss must be positive, got %.2f", c.Risk.MaxDailyLoss)
	}
	if c.Risk.MaxPositionRisk <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "max_position_risk must be positive, got %.2f", c.Risk.MaxPositionRisk)
	}
	if c.Risk.MinRiskReward <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "min_risk_reward must be positive, got %.2f", c.Risk.MinRiskReward)
	}
	if c.Risk.MaxConsecutiveLosses <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "max_consecutive_losses must be positive, got %d", c.Risk.MaxConsecutiveLosses)
	}
	if c.Risk.MaxPortfolioHeat < c.Risk.MaxPositionRisk {
		return errors.Wrapf(errors.ErrInvalidConfig, "max_portfolio_heat %.2f below max_position_risk %.2f", c.Risk.MaxPortfolioHeat, c.Risk.MaxPositionRisk)
	}
	if c.Risk.MaxPositions <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "max_positions must be positive, got %d", c.Risk.MaxPositions)
	}
	if c.Risk.PointValue <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "point_value must be positive, got %.2f", c.Risk.PointValue)
	}

	if c.Sizing.BaseContracts <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "base_contracts must be positive, got %d", c.Sizing.BaseContracts)
	}
	if c.Sizing.MaxContracts < c.Sizing.BaseContracts {
		return errors.Wrapf(errors.ErrInvalidConfig, "max_contracts %d below base_contracts %d", c.Sizing.MaxContracts, c.Sizing.BaseContracts)
	}
	if c.Sizing.KellyFraction <= 0 || c.Sizing.KellyFraction > 1 {
		return errors.Wrapf(errors.ErrInvalidConfig, "kelly_fraction must be within (0,1], got %.2f", c.Sizing.KellyFraction)
	}
	if c.Sizing.MarginPerContract <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "margin_per_contract must be positive, got %.2f", c.Sizing.MarginPerContract)
	}

	if c.Backtest.InitialCapital <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "initial_capital must be positive, got %.2f", c.Backtest.InitialCapital)
	}
	if c.Backtest.Lookback <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "lookback must be positive, got %d", c.Backtest.Lookback)
	}
	if c.Backtest.MaxForwardBars <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "max_forward_bars must be positive, got %d", c.Backtest.MaxForwardBars)
	}
	if c.Backtest.Contracts <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "contracts must be positive, got %d", c.Backtest.Contracts)
	}

	return nil
}
