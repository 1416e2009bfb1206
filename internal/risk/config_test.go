package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liqtrade/riskengine/pkg/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.05, cfg.MaxPositionPct)
	assert.Equal(t, 50, cfg.MaxPositions)
	assert.True(t, cfg.MinPositionValue.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 0.30, cfg.MaxSectorPct)
	assert.Equal(t, 1.0, cfg.MaxGrossLeverage)
	assert.Equal(t, 1.0, cfg.MaxNetLeverage)
	assert.Equal(t, 0.01, cfg.RiskPerTrade)
	assert.Equal(t, 0.25, cfg.KellyFraction)
	assert.Equal(t, types.SizingModeRebalance, cfg.SizingMode)
	assert.Equal(t, types.PriceReferenceMidrange, cfg.PriceReference)
	assert.Equal(t, 2.0, cfg.StopLossATRMult)
	assert.Equal(t, 0.15, cfg.MaxDrawdownHalt)
	assert.Equal(t, types.HaltBuysOnly, cfg.HaltMode)
	assert.True(t, cfg.AllowShorts)
	assert.False(t, cfg.AllowLeverage)
	assert.False(t, cfg.HasTakeProfit())
	assert.False(t, cfg.HasDailyLossHalt())
	assert.False(t, cfg.HasCorrelationLimit())
}

func TestConfigValidateRanges(t *testing.T) {
	mutations := []struct {
		name   string
		mutate func(*Config)
	}{
		{"max_position_pct zero", func(c *Config) { c.MaxPositionPct = 0 }},
		{"max_position_pct above one", func(c *Config) { c.MaxPositionPct = 1.5 }},
		{"max_positions zero", func(c *Config) { c.MaxPositions = 0 }},
		{"min_position_value negative", func(c *Config) { c.MinPositionValue = decimal.NewFromInt(-1) }},
		{"max_sector_pct zero", func(c *Config) { c.MaxSectorPct = 0 }},
		{"max_gross_leverage zero", func(c *Config) { c.MaxGrossLeverage = 0; c.MaxNetLeverage = 0.5 }},
		{"max_net_leverage negative", func(c *Config) { c.MaxNetLeverage = -1 }},
		{"max_correlation above one", func(c *Config) { c.MaxCorrelation = 1.2 }},
		{"risk_per_trade zero", func(c *Config) { c.RiskPerTrade = 0 }},
		{"kelly_fraction above one", func(c *Config) { c.KellyFraction = 1.1 }},
		{"stop_loss_atr_mult zero", func(c *Config) { c.StopLossATRMult = 0 }},
		{"take_profit_atr_mult negative", func(c *Config) { c.TakeProfitATRMult = -1 }},
		{"max_drawdown_halt zero", func(c *Config) { c.MaxDrawdownHalt = 0 }},
		{"max_daily_loss_halt above one", func(c *Config) { c.MaxDailyLossHalt = 1.5 }},
		{"default_borrow_rate negative", func(c *Config) { c.DefaultBorrowRate = -0.01 }},
		{"default_slippage_pct negative", func(c *Config) { c.DefaultSlippagePct = -0.01 }},
		{"default_commission_pct negative", func(c *Config) { c.DefaultCommissionPct = -0.01 }},
	}

	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfigNetCannotExceedGross(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxNetLeverage = 2.0
	cfg.MaxGrossLeverage = 1.0

	_, err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "max_net_leverage")
}

func TestConfigTheoreticalExposureWarning(t *testing.T) {
	// Defaults: 0.05 * 50 = 2.5 > 1.0 gross leverage. Accepted with a warning.
	cfg := DefaultConfig()
	warnings, err := cfg.Validate()
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "exceeds max_gross_leverage")

	// Tightening the position cap clears the warning.
	cfg.MaxPositions = 10
	cfg.MaxPositionPct = 0.05
	warnings, err = cfg.Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestConfigOptionalKnobs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TakeProfitATRMult = 3.0
	cfg.MaxDailyLossHalt = 0.05
	cfg.MaxCorrelation = 0.7

	_, err := cfg.Validate()
	require.NoError(t, err)
	assert.True(t, cfg.HasTakeProfit())
	assert.True(t, cfg.HasDailyLossHalt())
	assert.True(t, cfg.HasCorrelationLimit())
}
