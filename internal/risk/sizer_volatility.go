package risk

import (
	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// VolatilitySizer scales position size inversely with volatility so
// each trade risks approximately the same dollar amount:
//
//	qty = (equity * risk_per_trade) / (price * atr_multiple * atr)
//
// Higher volatility produces a smaller position. Each target carries a
// stop-price hint at price -/+ atr*atr_multiple.
type VolatilitySizer struct {
	// RiskPerTrade overrides cfg.RiskPerTrade when positive.
	RiskPerTrade float64
	// ATRMultiple is the stop-loss distance in ATR multiples.
	ATRMultiple float64
	// UseMidrangePrice selects (high+low)/2 over close for sizing.
	UseMidrangePrice bool
	// MinQuantity is the smallest tradeable quantity; smaller results are skipped.
	MinQuantity decimal.Decimal
	// QuantizeStep quantizes quantities down to a lot step; zero disables.
	QuantizeStep decimal.Decimal
}

// NewVolatilitySizer returns a whole-share sizer for equity markets.
func NewVolatilitySizer() *VolatilitySizer {
	return &VolatilitySizer{
		ATRMultiple:      2.0,
		UseMidrangePrice: true,
		MinQuantity:      decimal.NewFromInt(1),
		QuantizeStep:     decimal.NewFromInt(1),
	}
}

// NewFractionalVolatilitySizer returns a fractional-lot sizer for
// markets like crypto where sub-unit quantities trade.
func NewFractionalVolatilitySizer() *VolatilitySizer {
	step := decimal.RequireFromString("0.0001")
	return &VolatilitySizer{
		ATRMultiple:      2.0,
		UseMidrangePrice: true,
		MinQuantity:      step,
		QuantizeStep:     step,
	}
}

// SizePositions sizes each active signal by volatility-adjusted risk.
// Signals without bars or with zero volatility are skipped.
func (s *VolatilitySizer) SizePositions(signals []types.Signal, portfolio types.PortfolioState, market types.MarketState, cfg Config) []types.TargetPosition {
	equity := portfolio.Equity()

	riskPct := cfg.RiskPerTrade
	if s.RiskPerTrade > 0 {
		riskPct = s.RiskPerTrade
	}

	var targets []types.TargetPosition
	for _, sig := range signals {
		if !sig.IsActive() {
			continue
		}

		bar, ok := market.Bar(sig.Symbol)
		if !ok {
			continue
		}

		vol, ok := market.Volatility[sig.Symbol]
		if !ok || !vol.IsPositive() {
			continue
		}

		price := bar.Close
		if s.UseMidrangePrice {
			price = bar.Midrange()
		}

		riskAmount := equity.Mul(decimal.NewFromFloat(riskPct))
		divisor := price.Mul(decimal.NewFromFloat(s.ATRMultiple)).Mul(vol)
		if !divisor.IsPositive() {
			continue
		}

		qty := riskAmount.Div(divisor)
		if s.QuantizeStep.IsPositive() {
			qty = qty.Div(s.QuantizeStep).Floor().Mul(s.QuantizeStep)
		}
		if qty.LessThan(s.MinQuantity) {
			continue
		}

		target := directionalTarget(sig, qty, portfolio)

		stopDistance := vol.Mul(decimal.NewFromFloat(s.ATRMultiple))
		if target.Direction == types.DirectionLong {
			target.StopPrice = price.Sub(stopDistance)
		} else {
			target.StopPrice = price.Add(stopDistance)
		}

		targets = append(targets, target)
	}

	return targets
}
