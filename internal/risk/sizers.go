package risk

import (
	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// Sizer transforms signals into absolute position targets. Sizers are
// pure: they hold no state between calls and never mutate their inputs.
type Sizer interface {
	SizePositions(signals []types.Signal, portfolio types.PortfolioState, market types.MarketState, cfg Config) []types.TargetPosition
}

// directionalTarget builds a TargetPosition from a sized quantity,
// applying the sign convention: positive target for long, negative
// for short. qty must be positive.
func directionalTarget(sig types.Signal, qty decimal.Decimal, portfolio types.PortfolioState) types.TargetPosition {
	target := qty
	direction := types.DirectionLong
	if sig.Direction == types.DirectionShort {
		target = qty.Neg()
		direction = types.DirectionShort
	}

	return types.TargetPosition{
		Symbol:          sig.Symbol,
		TargetQuantity:  target,
		CurrentQuantity: portfolio.PositionQuantity(sig.Symbol),
		Direction:       direction,
		Urgency:         types.UrgencyNormal,
		SignalStrength:  sig.Strength,
	}
}
