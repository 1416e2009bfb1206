// Package config loads risk engine configuration from a YAML file
// (default: configs/risk.yaml) with fields overridable via RISK_*
// environment variables, and builds engine components from it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/liqtrade/riskengine/internal/risk"
	"github.com/liqtrade/riskengine/pkg/types"
)

// Config is the top-level configuration. Maps directly to the YAML
// file structure.
type Config struct {
	Risk          RiskSection         `mapstructure:"risk"`
	Sizer         SizerSection        `mapstructure:"sizer"`
	Pyramiding    PyramidingSection   `mapstructure:"pyramiding"`
	FrequencyCaps []FrequencyCapEntry `mapstructure:"frequency_caps"`
	Logging       LoggingSection      `mapstructure:"logging"`
}

// RiskSection mirrors risk.Config with file-friendly scalar types.
// Percentages are fractions (0.05 = 5%).
type RiskSection struct {
	MaxPositionPct   float64 `mapstructure:"max_position_pct"`
	MaxPositions     int     `mapstructure:"max_positions"`
	MinPositionValue float64 `mapstructure:"min_position_value"`

	MaxSectorPct     float64 `mapstructure:"max_sector_pct"`
	MaxGrossLeverage float64 `mapstructure:"max_gross_leverage"`
	MaxNetLeverage   float64 `mapstructure:"max_net_leverage"`
	MaxCorrelation   float64 `mapstructure:"max_correlation"`

	RiskPerTrade  float64 `mapstructure:"risk_per_trade"`
	KellyFraction float64 `mapstructure:"kelly_fraction"`
	VolTarget     float64 `mapstructure:"vol_target"`

	SizingMode     string `mapstructure:"sizing_mode"`
	PriceReference string `mapstructure:"price_reference"`

	StopLossATRMult   float64 `mapstructure:"stop_loss_atr_mult"`
	TakeProfitATRMult float64 `mapstructure:"take_profit_atr_mult"`
	MaxDrawdownHalt   float64 `mapstructure:"max_drawdown_halt"`
	MaxDailyLossHalt  float64 `mapstructure:"max_daily_loss_halt"`
	HaltMode          string  `mapstructure:"halt_mode"`

	AllowShorts   bool `mapstructure:"allow_shorts"`
	AllowLeverage bool `mapstructure:"allow_leverage"`

	DefaultBorrowRate    float64 `mapstructure:"default_borrow_rate"`
	DefaultSlippagePct   float64 `mapstructure:"default_slippage_pct"`
	DefaultCommissionPct float64 `mapstructure:"default_commission_pct"`
}

// SizerSection selects and parameterizes the position sizer.
//
//   - Kind: volatility, fixed_fractional, equal_weight, kelly,
//     risk_parity, crypto_fractional
//   - Fraction: allocation fraction for the fractional sizers
//   - Fractional: use fractional lots for the volatility sizer
//   - MinQty / StepQty: lot parameters for crypto_fractional
type SizerSection struct {
	Kind       string  `mapstructure:"kind"`
	Fraction   float64 `mapstructure:"fraction"`
	Fractional bool    `mapstructure:"fractional"`
	MinQty     float64 `mapstructure:"min_qty"`
	StepQty    float64 `mapstructure:"step_qty"`
}

// PyramidingSection parameterizes the pyramiding constraint.
type PyramidingSection struct {
	Enabled   bool    `mapstructure:"enabled"`
	MaxAdds   int     `mapstructure:"max_adds"`
	MaxAddPct float64 `mapstructure:"max_add_pct"`
}

// FrequencyCapEntry is one frequency cap rule in the file.
type FrequencyCapEntry struct {
	MaxTrades int    `mapstructure:"max_trades"`
	Timeframe string `mapstructure:"timeframe"`
	PerSymbol bool   `mapstructure:"per_symbol"`
}

// LoggingSection controls log output.
type LoggingSection struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file path. Missing file is
// not an error: defaults apply, and RISK_* environment variables still
// override (e.g. RISK_RISK_MAX_POSITION_PCT=0.10).
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("RISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// A missing file falls back to defaults; anything else is fatal.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if _, err := cfg.RiskConfig(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := risk.DefaultConfig()

	v.SetDefault("risk.max_position_pct", defaults.MaxPositionPct)
	v.SetDefault("risk.max_positions", defaults.MaxPositions)
	v.SetDefault("risk.min_position_value", 100.0)
	v.SetDefault("risk.max_sector_pct", defaults.MaxSectorPct)
	v.SetDefault("risk.max_gross_leverage", defaults.MaxGrossLeverage)
	v.SetDefault("risk.max_net_leverage", defaults.MaxNetLeverage)
	v.SetDefault("risk.risk_per_trade", defaults.RiskPerTrade)
	v.SetDefault("risk.kelly_fraction", defaults.KellyFraction)
	v.SetDefault("risk.sizing_mode", string(defaults.SizingMode))
	v.SetDefault("risk.price_reference", string(defaults.PriceReference))
	v.SetDefault("risk.stop_loss_atr_mult", defaults.StopLossATRMult)
	v.SetDefault("risk.max_drawdown_halt", defaults.MaxDrawdownHalt)
	v.SetDefault("risk.halt_mode", string(defaults.HaltMode))
	v.SetDefault("risk.allow_shorts", defaults.AllowShorts)
	v.SetDefault("risk.allow_leverage", defaults.AllowLeverage)

	v.SetDefault("sizer.kind", "volatility")
	v.SetDefault("sizer.fraction", 0.02)

	v.SetDefault("pyramiding.enabled", false)
	v.SetDefault("pyramiding.max_adds", 3)
	v.SetDefault("pyramiding.max_add_pct", 0.5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// RiskConfig converts the file section into a validated risk.Config.
func (c *Config) RiskConfig() (risk.Config, error) {
	cfg := risk.Config{
		MaxPositionPct:       c.Risk.MaxPositionPct,
		MaxPositions:         c.Risk.MaxPositions,
		MinPositionValue:     decimal.NewFromFloat(c.Risk.MinPositionValue),
		MaxSectorPct:         c.Risk.MaxSectorPct,
		MaxGrossLeverage:     c.Risk.MaxGrossLeverage,
		MaxNetLeverage:       c.Risk.MaxNetLeverage,
		MaxCorrelation:       c.Risk.MaxCorrelation,
		RiskPerTrade:         c.Risk.RiskPerTrade,
		KellyFraction:        c.Risk.KellyFraction,
		VolTarget:            c.Risk.VolTarget,
		StopLossATRMult:      c.Risk.StopLossATRMult,
		TakeProfitATRMult:    c.Risk.TakeProfitATRMult,
		MaxDrawdownHalt:      c.Risk.MaxDrawdownHalt,
		MaxDailyLossHalt:     c.Risk.MaxDailyLossHalt,
		AllowShorts:          c.Risk.AllowShorts,
		AllowLeverage:        c.Risk.AllowLeverage,
		DefaultBorrowRate:    c.Risk.DefaultBorrowRate,
		DefaultSlippagePct:   c.Risk.DefaultSlippagePct,
		DefaultCommissionPct: c.Risk.DefaultCommissionPct,
	}

	switch strings.ToLower(c.Risk.SizingMode) {
	case "", string(types.SizingModeRebalance):
		cfg.SizingMode = types.SizingModeRebalance
	case string(types.SizingModeIncremental):
		cfg.SizingMode = types.SizingModeIncremental
	case string(types.SizingModeReplace):
		cfg.SizingMode = types.SizingModeReplace
	default:
		return risk.Config{}, fmt.Errorf("unknown sizing_mode %q", c.Risk.SizingMode)
	}

	switch strings.ToLower(c.Risk.PriceReference) {
	case "", string(types.PriceReferenceMidrange):
		cfg.PriceReference = types.PriceReferenceMidrange
	case string(types.PriceReferenceClose):
		cfg.PriceReference = types.PriceReferenceClose
	case string(types.PriceReferenceVWAP):
		cfg.PriceReference = types.PriceReferenceVWAP
	default:
		return risk.Config{}, fmt.Errorf("unknown price_reference %q", c.Risk.PriceReference)
	}

	switch strings.ToLower(c.Risk.HaltMode) {
	case "", string(types.HaltBuysOnly):
		cfg.HaltMode = types.HaltBuysOnly
	case string(types.HaltAllRiskIncreasing):
		cfg.HaltMode = types.HaltAllRiskIncreasing
	case string(types.HaltAllTrades):
		cfg.HaltMode = types.HaltAllTrades
	default:
		return risk.Config{}, fmt.Errorf("unknown halt_mode %q", c.Risk.HaltMode)
	}

	if _, err := cfg.Validate(); err != nil {
		return risk.Config{}, err
	}

	return cfg, nil
}

// BuildSizer constructs the configured position sizer.
func (c *Config) BuildSizer() (risk.Sizer, error) {
	switch strings.ToLower(c.Sizer.Kind) {
	case "", "volatility":
		if c.Sizer.Fractional {
			return risk.NewFractionalVolatilitySizer(), nil
		}
		return risk.NewVolatilitySizer(), nil
	case "fixed_fractional":
		return risk.NewFixedFractionalSizer(c.Sizer.Fraction)
	case "equal_weight":
		return risk.NewEqualWeightSizer(), nil
	case "kelly":
		return risk.NewKellySizer(), nil
	case "risk_parity":
		return risk.NewRiskParitySizer(), nil
	case "crypto_fractional":
		return risk.NewCryptoFractionalSizer(
			c.Sizer.Fraction,
			decimal.NewFromFloat(c.Sizer.MinQty),
			decimal.NewFromFloat(c.Sizer.StepQty),
		)
	default:
		return nil, fmt.Errorf("unknown sizer kind %q", c.Sizer.Kind)
	}
}

// BuildConstraints constructs the constraint chain from the file. The
// stateful instances are returned separately so the caller can route
// fill acknowledgements to them.
func (c *Config) BuildConstraints() ([]risk.Constraint, *risk.PyramidingConstraint, *risk.FrequencyCapConstraint, error) {
	var pyramiding *risk.PyramidingConstraint
	if c.Pyramiding.Enabled {
		p, err := risk.NewPyramidingConstraint(c.Pyramiding.MaxAdds, c.Pyramiding.MaxAddPct)
		if err != nil {
			return nil, nil, nil, err
		}
		pyramiding = p
	}

	var frequency *risk.FrequencyCapConstraint
	if len(c.FrequencyCaps) > 0 {
		rules := make([]risk.FrequencyCapRule, 0, len(c.FrequencyCaps))
		for _, entry := range c.FrequencyCaps {
			tf, err := risk.ParseTimeframe(entry.Timeframe)
			if err != nil {
				return nil, nil, nil, err
			}
			rules = append(rules, risk.FrequencyCapRule{
				MaxTrades: entry.MaxTrades,
				Timeframe: tf,
				PerSymbol: entry.PerSymbol,
			})
		}
		f, err := risk.NewFrequencyCapConstraint(rules, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		frequency = f
	}

	if pyramiding == nil && frequency == nil {
		return risk.DefaultChain(), nil, nil, nil
	}
	return risk.FullChain(pyramiding, frequency), pyramiding, frequency, nil
}
