package risk

import (
	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// RiskParitySizer sizes positions for equal risk contribution:
//
//	weight_i = (1/vol_i) / sum(1/vol_j)
//	qty_i    = equity * risk_per_trade * weight_i / midrange_i
//
// Higher-volatility assets receive smaller positions; with equal
// volatilities every asset gets the same share count.
type RiskParitySizer struct{}

// NewRiskParitySizer creates a risk parity sizer.
func NewRiskParitySizer() *RiskParitySizer {
	return &RiskParitySizer{}
}

// SizePositions allocates by inverse volatility weight. Signals with
// zero or missing volatility are excluded before weights are computed.
func (s *RiskParitySizer) SizePositions(signals []types.Signal, portfolio types.PortfolioState, market types.MarketState, cfg Config) []types.TargetPosition {
	type candidate struct {
		sig   types.Signal
		vol   decimal.Decimal
		price decimal.Decimal
	}

	var valid []candidate
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

		valid = append(valid, candidate{sig: sig, vol: vol, price: bar.Midrange()})
	}
	if len(valid) == 0 {
		return nil
	}

	one := decimal.NewFromInt(1)
	totalInverseVol := decimal.Zero
	inverseVols := make([]decimal.Decimal, len(valid))
	for i, c := range valid {
		inverseVols[i] = one.Div(c.vol)
		totalInverseVol = totalInverseVol.Add(inverseVols[i])
	}
	if !totalInverseVol.IsPositive() {
		return nil
	}

	totalAllocation := portfolio.Equity().Mul(decimal.NewFromFloat(cfg.RiskPerTrade))

	var targets []types.TargetPosition
	for i, c := range valid {
		weight := inverseVols[i].Div(totalInverseVol)
		allocation := totalAllocation.Mul(weight)

		qty := allocation.Div(c.price).Floor()
		if qty.LessThan(one) {
			continue
		}

		targets = append(targets, directionalTarget(c.sig, qty, portfolio))
	}

	return targets
}
