package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// Config holds risk parameters for position sizing and constraints.
// All percentages are fractions (0.05 = 5%). Optional knobs use the
// zero value as "not configured": MaxCorrelation, VolTarget,
// TakeProfitATRMult and MaxDailyLossHalt.
type Config struct {
	// Position limits
	MaxPositionPct   float64         `mapstructure:"max_position_pct"`
	MaxPositions     int             `mapstructure:"max_positions"`
	MinPositionValue decimal.Decimal `mapstructure:"min_position_value"`

	// Exposure limits
	MaxSectorPct     float64 `mapstructure:"max_sector_pct"`
	MaxGrossLeverage float64 `mapstructure:"max_gross_leverage"`
	MaxNetLeverage   float64 `mapstructure:"max_net_leverage"`
	MaxCorrelation   float64 `mapstructure:"max_correlation"`

	// Sizing parameters
	RiskPerTrade  float64 `mapstructure:"risk_per_trade"`
	KellyFraction float64 `mapstructure:"kelly_fraction"`
	VolTarget     float64 `mapstructure:"vol_target"`

	// Sizing behavior
	SizingMode     types.SizingMode     `mapstructure:"sizing_mode"`
	PriceReference types.PriceReference `mapstructure:"price_reference"`

	// Risk controls
	StopLossATRMult   float64        `mapstructure:"stop_loss_atr_mult"`
	TakeProfitATRMult float64        `mapstructure:"take_profit_atr_mult"`
	MaxDrawdownHalt   float64        `mapstructure:"max_drawdown_halt"`
	MaxDailyLossHalt  float64        `mapstructure:"max_daily_loss_halt"`
	HaltMode          types.HaltMode `mapstructure:"halt_mode"`

	// Trading permissions
	AllowShorts   bool `mapstructure:"allow_shorts"`
	AllowLeverage bool `mapstructure:"allow_leverage"`

	// Trading costs
	DefaultBorrowRate    float64 `mapstructure:"default_borrow_rate"`
	DefaultSlippagePct   float64 `mapstructure:"default_slippage_pct"`
	DefaultCommissionPct float64 `mapstructure:"default_commission_pct"`
}

// DefaultConfig returns a conservative zero-config starting point.
func DefaultConfig() Config {
	return Config{
		MaxPositionPct:   0.05,
		MaxPositions:     50,
		MinPositionValue: decimal.NewFromInt(100),
		MaxSectorPct:     0.30,
		MaxGrossLeverage: 1.0,
		MaxNetLeverage:   1.0,
		RiskPerTrade:     0.01,
		KellyFraction:    0.25,
		SizingMode:       types.SizingModeRebalance,
		PriceReference:   types.PriceReferenceMidrange,
		StopLossATRMult:  2.0,
		MaxDrawdownHalt:  0.15,
		HaltMode:         types.HaltBuysOnly,
		AllowShorts:      true,
		AllowLeverage:    false,
	}
}

// Validate checks configuration invariants. It returns a hard error for
// range violations and inconsistent leverage limits, plus advisory
// warnings the caller should log but may ignore.
func (c Config) Validate() ([]string, error) {
	if c.MaxPositionPct <= 0 || c.MaxPositionPct > 1 {
		return nil, fmt.Errorf("%w: max_position_pct must be in (0, 1], got %v", ErrInvalidConfig, c.MaxPositionPct)
	}
	if c.MaxPositions <= 0 {
		return nil, fmt.Errorf("%w: max_positions must be positive, got %d", ErrInvalidConfig, c.MaxPositions)
	}
	if c.MinPositionValue.IsNegative() {
		return nil, fmt.Errorf("%w: min_position_value must be >= 0, got %s", ErrInvalidConfig, c.MinPositionValue)
	}
	if c.MaxSectorPct <= 0 || c.MaxSectorPct > 1 {
		return nil, fmt.Errorf("%w: max_sector_pct must be in (0, 1], got %v", ErrInvalidConfig, c.MaxSectorPct)
	}
	if c.MaxGrossLeverage <= 0 {
		return nil, fmt.Errorf("%w: max_gross_leverage must be positive, got %v", ErrInvalidConfig, c.MaxGrossLeverage)
	}
	if c.MaxNetLeverage <= 0 {
		return nil, fmt.Errorf("%w: max_net_leverage must be positive, got %v", ErrInvalidConfig, c.MaxNetLeverage)
	}
	if c.MaxCorrelation < 0 || c.MaxCorrelation > 1 {
		return nil, fmt.Errorf("%w: max_correlation must be in (0, 1], got %v", ErrInvalidConfig, c.MaxCorrelation)
	}
	if c.RiskPerTrade <= 0 || c.RiskPerTrade > 1 {
		return nil, fmt.Errorf("%w: risk_per_trade must be in (0, 1], got %v", ErrInvalidConfig, c.RiskPerTrade)
	}
	if c.KellyFraction <= 0 || c.KellyFraction > 1 {
		return nil, fmt.Errorf("%w: kelly_fraction must be in (0, 1], got %v", ErrInvalidConfig, c.KellyFraction)
	}
	if c.VolTarget < 0 {
		return nil, fmt.Errorf("%w: vol_target must be positive when set, got %v", ErrInvalidConfig, c.VolTarget)
	}
	if c.StopLossATRMult <= 0 {
		return nil, fmt.Errorf("%w: stop_loss_atr_mult must be positive, got %v", ErrInvalidConfig, c.StopLossATRMult)
	}
	if c.TakeProfitATRMult < 0 {
		return nil, fmt.Errorf("%w: take_profit_atr_mult must be positive when set, got %v", ErrInvalidConfig, c.TakeProfitATRMult)
	}
	if c.MaxDrawdownHalt <= 0 || c.MaxDrawdownHalt > 1 {
		return nil, fmt.Errorf("%w: max_drawdown_halt must be in (0, 1], got %v", ErrInvalidConfig, c.MaxDrawdownHalt)
	}
	if c.MaxDailyLossHalt < 0 || c.MaxDailyLossHalt > 1 {
		return nil, fmt.Errorf("%w: max_daily_loss_halt must be in (0, 1], got %v", ErrInvalidConfig, c.MaxDailyLossHalt)
	}
	if c.DefaultBorrowRate < 0 {
		return nil, fmt.Errorf("%w: default_borrow_rate must be >= 0, got %v", ErrInvalidConfig, c.DefaultBorrowRate)
	}
	if c.DefaultSlippagePct < 0 {
		return nil, fmt.Errorf("%w: default_slippage_pct must be >= 0, got %v", ErrInvalidConfig, c.DefaultSlippagePct)
	}
	if c.DefaultCommissionPct < 0 {
		return nil, fmt.Errorf("%w: default_commission_pct must be >= 0, got %v", ErrInvalidConfig, c.DefaultCommissionPct)
	}

	// Net leverage bounded by gross leverage: net counts a subset of
	// the exposure gross counts, so a higher net cap is unsatisfiable.
	if c.MaxNetLeverage > c.MaxGrossLeverage {
		return nil, fmt.Errorf("%w: max_net_leverage (%v) cannot exceed max_gross_leverage (%v)",
			ErrInvalidConfig, c.MaxNetLeverage, c.MaxGrossLeverage)
	}

	var warnings []string
	maxTheoretical := c.MaxPositionPct * float64(c.MaxPositions)
	if maxTheoretical > c.MaxGrossLeverage {
		warnings = append(warnings, fmt.Sprintf(
			"max_position_pct (%v) * max_positions (%d) = %.2f exceeds max_gross_leverage (%v)",
			c.MaxPositionPct, c.MaxPositions, maxTheoretical, c.MaxGrossLeverage))
	}

	return warnings, nil
}

// HasTakeProfit reports whether take-profit targets are configured.
func (c Config) HasTakeProfit() bool {
	return c.TakeProfitATRMult > 0
}

// HasDailyLossHalt reports whether the daily loss kill-switch is configured.
func (c Config) HasDailyLossHalt() bool {
	return c.MaxDailyLossHalt > 0
}

// HasCorrelationLimit reports whether the correlation filter is configured.
func (c Config) HasCorrelationLimit() bool {
	return c.MaxCorrelation > 0
}
