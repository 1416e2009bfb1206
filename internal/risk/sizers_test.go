package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liqtrade/riskengine/pkg/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testNow() time.Time {
	return time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
}

func testBar(symbol string, open, high, low, close string) types.Bar {
	return types.Bar{
		Symbol:    symbol,
		Open:      d(open),
		High:      d(high),
		Low:       d(low),
		Close:     d(close),
		Volume:    d("1000000"),
		Timestamp: testNow(),
	}
}

func cashPortfolio(cash string) types.PortfolioState {
	return types.PortfolioState{
		Cash:      d(cash),
		Positions: map[string]types.Position{},
		Timestamp: testNow(),
	}
}

func longSignal(symbol string, strength float64) types.Signal {
	return types.Signal{Symbol: symbol, Timestamp: testNow(), Direction: types.DirectionLong, Strength: strength}
}

func TestVolatilitySizerFormula(t *testing.T) {
	// qty = (100000 * 0.01) / (100 * 2.0 * 2.50) = 1000 / 500 = 2
	sizer := NewVolatilitySizer()
	cfg := DefaultConfig()

	portfolio := cashPortfolio("100000")
	market := types.MarketState{
		CurrentBars: map[string]types.Bar{"AAPL": testBar("AAPL", "100", "102", "98", "100")},
		Volatility:  map[string]decimal.Decimal{"AAPL": d("2.50")},
		Liquidity:   map[string]decimal.Decimal{"AAPL": d("50000000")},
		Timestamp:   testNow(),
	}

	targets := sizer.SizePositions([]types.Signal{longSignal("AAPL", 1.0)}, portfolio, market, cfg)

	require.Len(t, targets, 1)
	assert.Equal(t, "AAPL", targets[0].Symbol)
	assert.Equal(t, types.DirectionLong, targets[0].Direction)
	assert.True(t, targets[0].TargetQuantity.Equal(d("2")))
	// Stop hint below entry: 100 - 2.50*2.0 = 95
	assert.True(t, targets[0].StopPrice.Equal(d("95")))
}

func TestVolatilitySizerFractional(t *testing.T) {
	sizer := NewFractionalVolatilitySizer()
	cfg := DefaultConfig()

	portfolio := cashPortfolio("100000")
	market := types.MarketState{
		CurrentBars: map[string]types.Bar{"AAPL": testBar("AAPL", "100", "102", "98", "100")},
		Volatility:  map[string]decimal.Decimal{"AAPL": d("2")},
		Liquidity:   map[string]decimal.Decimal{"AAPL": d("50000000")},
		Timestamp:   testNow(),
	}

	targets := sizer.SizePositions([]types.Signal{longSignal("AAPL", 1.0)}, portfolio, market, cfg)

	require.Len(t, targets, 1)
	// (100000 * 0.01) / (100 * 2 * 2) = 2.5, exact in fractional mode
	assert.True(t, targets[0].TargetQuantity.Equal(d("2.5")))
	assert.True(t, targets[0].StopPrice.Equal(d("96")))
}

func TestVolatilitySizerHigherVolSmallerPosition(t *testing.T) {
	sizer := NewFractionalVolatilitySizer()
	cfg := DefaultConfig()
	portfolio := cashPortfolio("100000")

	marketFor := func(vol string) types.MarketState {
		return types.MarketState{
			CurrentBars: map[string]types.Bar{"AAPL": testBar("AAPL", "100", "102", "98", "100")},
			Volatility:  map[string]decimal.Decimal{"AAPL": d(vol)},
			Liquidity:   map[string]decimal.Decimal{"AAPL": d("50000000")},
			Timestamp:   testNow(),
		}
	}

	low := sizer.SizePositions([]types.Signal{longSignal("AAPL", 1.0)}, portfolio, marketFor("1"), cfg)
	high := sizer.SizePositions([]types.Signal{longSignal("AAPL", 1.0)}, portfolio, marketFor("4"), cfg)

	require.Len(t, low, 1)
	require.Len(t, high, 1)
	assert.True(t, high[0].TargetQuantity.LessThan(low[0].TargetQuantity))
}

func TestVolatilitySizerSkips(t *testing.T) {
	sizer := NewVolatilitySizer()
	cfg := DefaultConfig()
	portfolio := cashPortfolio("100000")

	market := types.MarketState{
		CurrentBars: map[string]types.Bar{"AAPL": testBar("AAPL", "100", "102", "98", "100")},
		Volatility:  map[string]decimal.Decimal{"AAPL": d("2")},
		Timestamp:   testNow(),
	}

	// Flat signals, missing bars, and missing volatility all skip
	signals := []types.Signal{
		{Symbol: "AAPL", Timestamp: testNow(), Direction: types.DirectionFlat, Strength: 1.0},
		longSignal("NOBAR", 1.0),
		longSignal("NOVOL", 1.0),
	}
	market.CurrentBars["NOVOL"] = testBar("NOVOL", "50", "51", "49", "50")

	targets := sizer.SizePositions(signals, portfolio, market, cfg)
	assert.Empty(t, targets)
}

func TestVolatilitySizerZeroVolatilitySkipped(t *testing.T) {
	sizer := NewVolatilitySizer()
	cfg := DefaultConfig()
	market := types.MarketState{
		CurrentBars: map[string]types.Bar{"AAPL": testBar("AAPL", "100", "102", "98", "100")},
		Volatility:  map[string]decimal.Decimal{"AAPL": decimal.Zero},
		Timestamp:   testNow(),
	}

	targets := sizer.SizePositions([]types.Signal{longSignal("AAPL", 1.0)}, cashPortfolio("100000"), market, cfg)
	assert.Empty(t, targets)
}

func TestVolatilitySizerShort(t *testing.T) {
	sizer := NewVolatilitySizer()
	cfg := DefaultConfig()
	market := types.MarketState{
		CurrentBars: map[string]types.Bar{"AAPL": testBar("AAPL", "150", "152", "148", "150")},
		Volatility:  map[string]decimal.Decimal{"AAPL": d("2")},
		Timestamp:   testNow(),
	}
	signals := []types.Signal{{Symbol: "AAPL", Timestamp: testNow(), Direction: types.DirectionShort, Strength: 0.8}}

	targets := sizer.SizePositions(signals, cashPortfolio("100000"), market, cfg)

	require.Len(t, targets, 1)
	assert.Equal(t, types.DirectionShort, targets[0].Direction)
	assert.True(t, targets[0].TargetQuantity.IsNegative())
	// Short stop above entry: 150 + 4 = 154
	assert.True(t, targets[0].StopPrice.Equal(d("154")))
}

func TestVolatilitySizerClosePriceMode(t *testing.T) {
	sizer := NewVolatilitySizer()
	sizer.UseMidrangePrice = false
	cfg := DefaultConfig()

	// close = 50, midrange = (60+40)/2 = 50 would match; make them differ
	market := types.MarketState{
		CurrentBars: map[string]types.Bar{"AAPL": testBar("AAPL", "50", "60", "44", "50")},
		Volatility:  map[string]decimal.Decimal{"AAPL": d("2.50")},
		Timestamp:   testNow(),
	}

	targets := sizer.SizePositions([]types.Signal{longSignal("AAPL", 1.0)}, cashPortfolio("100000"), market, cfg)

	require.Len(t, targets, 1)
	// qty = 1000 / (50 * 2 * 2.50) = 4
	assert.True(t, targets[0].TargetQuantity.Equal(d("4")))
}

func TestFixedFractionalSizer(t *testing.T) {
	sizer, err := NewFixedFractionalSizer(0.02)
	require.NoError(t, err)
	assert.Equal(t, 0.02, sizer.Fraction())

	market := types.MarketState{
		CurrentBars: map[string]types.Bar{"AAPL": testBar("AAPL", "100", "102", "98", "100")},
		Timestamp:   testNow(),
	}

	targets := sizer.SizePositions([]types.Signal{longSignal("AAPL", 1.0)}, cashPortfolio("100000"), market, DefaultConfig())

	require.Len(t, targets, 1)
	// (100000 * 0.02) / 100 = 20 shares
	assert.True(t, targets[0].TargetQuantity.Equal(d("20")))
}

func TestFixedFractionalSizerValidation(t *testing.T) {
	_, err := NewFixedFractionalSizer(0)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewFixedFractionalSizer(1.5)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewFixedFractionalSizer(-0.1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEqualWeightSizer(t *testing.T) {
	sizer := NewEqualWeightSizer()

	market := types.MarketState{
		CurrentBars: map[string]types.Bar{
			"AAPL":  testBar("AAPL", "100", "101", "99", "100"),
			"GOOGL": testBar("GOOGL", "150", "151", "149", "150"),
			"TSLA":  testBar("TSLA", "300", "301", "299", "300"),
		},
		Timestamp: testNow(),
	}
	signals := []types.Signal{
		longSignal("AAPL", 0.9),
		longSignal("GOOGL", 0.8),
		longSignal("TSLA", 0.7),
	}

	targets := sizer.SizePositions(signals, cashPortfolio("90000"), market, DefaultConfig())

	require.Len(t, targets, 3)
	byQty := map[string]decimal.Decimal{}
	for _, target := range targets {
		byQty[target.Symbol] = target.TargetQuantity
	}
	// 30000 allocation per signal
	assert.True(t, byQty["AAPL"].Equal(d("300")))
	assert.True(t, byQty["GOOGL"].Equal(d("200")))
	assert.True(t, byQty["TSLA"].Equal(d("100")))
}

func TestEqualWeightSizerTruncatesByStrength(t *testing.T) {
	sizer := NewEqualWeightSizer()
	cfg := DefaultConfig()
	cfg.MaxPositions = 2

	market := types.MarketState{
		CurrentBars: map[string]types.Bar{
			"AAPL":  testBar("AAPL", "100", "101", "99", "100"),
			"GOOGL": testBar("GOOGL", "100", "101", "99", "100"),
			"TSLA":  testBar("TSLA", "100", "101", "99", "100"),
		},
		Timestamp: testNow(),
	}
	signals := []types.Signal{
		longSignal("AAPL", 0.5),
		longSignal("GOOGL", 0.9),
		longSignal("TSLA", 0.7),
	}

	targets := sizer.SizePositions(signals, cashPortfolio("100000"), market, cfg)

	require.Len(t, targets, 2)
	symbols := map[string]bool{}
	for _, target := range targets {
		symbols[target.Symbol] = true
	}
	assert.True(t, symbols["GOOGL"])
	assert.True(t, symbols["TSLA"])
	assert.False(t, symbols["AAPL"])
}

func TestKellySizer(t *testing.T) {
	sizer := NewKellySizer()
	cfg := DefaultConfig() // quarter Kelly

	market := types.MarketState{
		CurrentBars: map[string]types.Bar{"AAPL": testBar("AAPL", "100", "101", "99", "100")},
		Timestamp:   testNow(),
	}

	// strength 1.0: f* = 1.0, quarter Kelly = 0.25, 25000/100 = 250
	targets := sizer.SizePositions([]types.Signal{longSignal("AAPL", 1.0)}, cashPortfolio("100000"), market, cfg)
	require.Len(t, targets, 1)
	assert.True(t, targets[0].TargetQuantity.Equal(d("250")))

	// strength 0.75: f* = 0.5, quarter Kelly = 0.125, 12500/100 = 125
	targets = sizer.SizePositions([]types.Signal{longSignal("AAPL", 0.75)}, cashPortfolio("100000"), market, cfg)
	require.Len(t, targets, 1)
	assert.True(t, targets[0].TargetQuantity.Equal(d("125")))
}

func TestKellySizerNoEdgeSkipped(t *testing.T) {
	sizer := NewKellySizer()
	market := types.MarketState{
		CurrentBars: map[string]types.Bar{"AAPL": testBar("AAPL", "100", "101", "99", "100")},
		Timestamp:   testNow(),
	}

	// strength 0.5 means f* = 0: no edge, no position
	targets := sizer.SizePositions([]types.Signal{longSignal("AAPL", 0.5)}, cashPortfolio("100000"), market, DefaultConfig())
	assert.Empty(t, targets)

	targets = sizer.SizePositions([]types.Signal{longSignal("AAPL", 0.3)}, cashPortfolio("100000"), market, DefaultConfig())
	assert.Empty(t, targets)
}

func TestKellySizerMonotonicInStrength(t *testing.T) {
	sizer := NewKellySizer()
	market := types.MarketState{
		CurrentBars: map[string]types.Bar{"AAPL": testBar("AAPL", "100", "101", "99", "100")},
		Timestamp:   testNow(),
	}

	weak := sizer.SizePositions([]types.Signal{longSignal("AAPL", 0.6)}, cashPortfolio("100000"), market, DefaultConfig())
	strong := sizer.SizePositions([]types.Signal{longSignal("AAPL", 0.9)}, cashPortfolio("100000"), market, DefaultConfig())

	require.Len(t, weak, 1)
	require.Len(t, strong, 1)
	assert.True(t, strong[0].TargetQuantity.GreaterThanOrEqual(weak[0].TargetQuantity))
}

func TestRiskParitySizerEqualVols(t *testing.T) {
	sizer := NewRiskParitySizer()
	cfg := DefaultConfig()

	market := types.MarketState{
		CurrentBars: map[string]types.Bar{
			"AAPL":  testBar("AAPL", "100", "101", "99", "100"),
			"GOOGL": testBar("GOOGL", "100", "101", "99", "100"),
		},
		Volatility: map[string]decimal.Decimal{
			"AAPL":  d("2"),
			"GOOGL": d("2"),
		},
		Timestamp: testNow(),
	}
	signals := []types.Signal{longSignal("AAPL", 0.9), longSignal("GOOGL", 0.9)}

	targets := sizer.SizePositions(signals, cashPortfolio("100000"), market, cfg)

	require.Len(t, targets, 2)
	// Equal volatilities: equal share counts. 1000 total, 500 each @ 100.
	assert.True(t, targets[0].TargetQuantity.Equal(targets[1].TargetQuantity))
	assert.True(t, targets[0].TargetQuantity.Equal(d("5")))
}

func TestRiskParitySizerInverseVolWeights(t *testing.T) {
	sizer := NewRiskParitySizer()
	cfg := DefaultConfig()

	market := types.MarketState{
		CurrentBars: map[string]types.Bar{
			"CALM": testBar("CALM", "100", "101", "99", "100"),
			"WILD": testBar("WILD", "100", "101", "99", "100"),
		},
		Volatility: map[string]decimal.Decimal{
			"CALM": d("1"),
			"WILD": d("3"),
		},
		Timestamp: testNow(),
	}
	signals := []types.Signal{longSignal("CALM", 0.9), longSignal("WILD", 0.9)}

	targets := sizer.SizePositions(signals, cashPortfolio("100000"), market, cfg)

	require.Len(t, targets, 2)
	byQty := map[string]decimal.Decimal{}
	for _, target := range targets {
		byQty[target.Symbol] = target.TargetQuantity
	}
	// weights 0.75 / 0.25 over a 1000 allocation at price 100
	assert.True(t, byQty["CALM"].Equal(d("7")))
	assert.True(t, byQty["WILD"].Equal(d("2")))
}

func TestRiskParitySizerSkipsZeroVol(t *testing.T) {
	sizer := NewRiskParitySizer()
	market := types.MarketState{
		CurrentBars: map[string]types.Bar{
			"AAPL": testBar("AAPL", "100", "101", "99", "100"),
			"DEAD": testBar("DEAD", "100", "101", "99", "100"),
		},
		Volatility: map[string]decimal.Decimal{
			"AAPL": d("2"),
			"DEAD": decimal.Zero,
		},
		Timestamp: testNow(),
	}
	signals := []types.Signal{longSignal("AAPL", 0.9), longSignal("DEAD", 0.9)}

	targets := sizer.SizePositions(signals, cashPortfolio("100000"), market, DefaultConfig())

	require.Len(t, targets, 1)
	assert.Equal(t, "AAPL", targets[0].Symbol)
}

func TestCryptoFractionalSizer(t *testing.T) {
	sizer, err := NewCryptoFractionalSizer(0.02, d("0.0001"), d("0.0001"))
	require.NoError(t, err)

	market := types.MarketState{
		CurrentBars: map[string]types.Bar{"BTC_USDT": testBar("BTC_USDT", "30000", "30500", "29500", "30000")},
		Timestamp:   testNow(),
	}

	targets := sizer.SizePositions([]types.Signal{longSignal("BTC_USDT", 0.9)}, cashPortfolio("100000"), market, DefaultConfig())

	require.Len(t, targets, 1)
	// 2000 / 30000 = 0.0666..., quantized down to 0.0666
	assert.True(t, targets[0].TargetQuantity.Equal(d("0.0666")))
}

func TestCryptoFractionalSizerMinQty(t *testing.T) {
	sizer, err := NewCryptoFractionalSizer(0.02, d("1"), d("0.0001"))
	require.NoError(t, err)

	market := types.MarketState{
		CurrentBars: map[string]types.Bar{"BTC_USDT": testBar("BTC_USDT", "30000", "30500", "29500", "30000")},
		Timestamp:   testNow(),
	}

	// 0.0666 < min qty 1: skipped
	targets := sizer.SizePositions([]types.Signal{longSignal("BTC_USDT", 0.9)}, cashPortfolio("100000"), market, DefaultConfig())
	assert.Empty(t, targets)
}

func TestCryptoFractionalSizerValidation(t *testing.T) {
	_, err := NewCryptoFractionalSizer(0, d("0.0001"), d("0.0001"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewCryptoFractionalSizer(0.02, decimal.Zero, d("0.0001"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewCryptoFractionalSizer(0.02, d("0.0001"), d("-1"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
