package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// FixedFractionalSizer allocates a fixed fraction of equity to each
// position: qty = floor((equity * fraction) / close).
type FixedFractionalSizer struct {
	fraction float64
}

// NewFixedFractionalSizer validates the fraction at construction.
func NewFixedFractionalSizer(fraction float64) (*FixedFractionalSizer, error) {
	if fraction <= 0 || fraction > 1 {
		return nil, fmt.Errorf("%w: fraction must be in (0, 1], got %v", ErrInvalidConfig, fraction)
	}
	return &FixedFractionalSizer{fraction: fraction}, nil
}

// Fraction returns the allocation fraction.
func (s *FixedFractionalSizer) Fraction() float64 {
	return s.fraction
}

// SizePositions sizes each active signal at a fixed fraction of equity,
// rounded down to whole shares.
func (s *FixedFractionalSizer) SizePositions(signals []types.Signal, portfolio types.PortfolioState, market types.MarketState, cfg Config) []types.TargetPosition {
	equity := portfolio.Equity()

	var targets []types.TargetPosition
	for _, sig := range signals {
		if !sig.IsActive() {
			continue
		}

		bar, ok := market.Bar(sig.Symbol)
		if !ok {
			continue
		}

		price := bar.Close
		if !price.IsPositive() {
			continue
		}

		allocation := equity.Mul(decimal.NewFromFloat(s.fraction))
		qty := allocation.Div(price).Floor()
		if qty.LessThan(decimal.NewFromInt(1)) {
			continue
		}

		targets = append(targets, directionalTarget(sig, qty, portfolio))
	}

	return targets
}
