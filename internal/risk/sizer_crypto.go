package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// CryptoFractionalSizer allocates a fraction of equity per position
// with fractional lot support: quantities are quantized to a step size
// instead of whole shares, with a venue minimum below which orders are
// skipped.
type CryptoFractionalSizer struct {
	fraction float64
	minQty   decimal.Decimal
	stepQty  decimal.Decimal
}

// NewCryptoFractionalSizer validates all parameters at construction.
// A zero stepQty quantizes to four decimal places instead.
func NewCryptoFractionalSizer(fraction float64, minQty, stepQty decimal.Decimal) (*CryptoFractionalSizer, error) {
	if fraction <= 0 || fraction > 1 {
		return nil, fmt.Errorf("%w: fraction must be in (0, 1], got %v", ErrInvalidConfig, fraction)
	}
	if !minQty.IsPositive() {
		return nil, fmt.Errorf("%w: min_qty must be positive, got %s", ErrInvalidConfig, minQty)
	}
	if stepQty.IsNegative() {
		return nil, fmt.Errorf("%w: step_qty must be positive if provided, got %s", ErrInvalidConfig, stepQty)
	}
	return &CryptoFractionalSizer{fraction: fraction, minQty: minQty, stepQty: stepQty}, nil
}

// Fraction returns the allocation fraction.
func (s *CryptoFractionalSizer) Fraction() float64 {
	return s.fraction
}

// SizePositions sizes each active signal at a fixed fraction of equity
// quantized to the step size.
func (s *CryptoFractionalSizer) SizePositions(signals []types.Signal, portfolio types.PortfolioState, market types.MarketState, cfg Config) []types.TargetPosition {
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
		qty := allocation.Div(price)

		if s.stepQty.IsPositive() {
			qty = qty.Div(s.stepQty).Floor().Mul(s.stepQty)
		} else {
			qty = qty.Truncate(4)
		}

		if !qty.IsPositive() || qty.LessThan(s.minQty) {
			continue
		}

		targets = append(targets, directionalTarget(sig, qty, portfolio))
	}

	return targets
}
