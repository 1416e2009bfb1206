package types

import "github.com/shopspring/decimal"

// RoundingPolicy holds venue-specific quantity rounding rules.
// A lot size of 1 rounds to whole shares; fractional lot sizes
// (e.g. 0.001 for BTC) support crypto markets.
type RoundingPolicy struct {
	LotSize      decimal.Decimal `json:"lot_size"`
	StepSize     decimal.Decimal `json:"step_size"`
	MinNotional  decimal.Decimal `json:"min_notional"`
	MaxPrecision int             `json:"max_precision"`
}

// DefaultRoundingPolicy returns a whole-share equity policy.
func DefaultRoundingPolicy() RoundingPolicy {
	return RoundingPolicy{
		LotSize:      decimal.NewFromInt(1),
		StepSize:     decimal.NewFromInt(1),
		MinNotional:  decimal.NewFromInt(1),
		MaxPrecision: 8,
	}
}

// RoundQuantity rounds qty to a multiple of the lot size. Zero input and
// zero lot sizes short-circuit without division.
func (r RoundingPolicy) RoundQuantity(qty decimal.Decimal, dir RoundDirection) decimal.Decimal {
	if qty.IsZero() {
		return decimal.Zero
	}
	if r.LotSize.IsZero() {
		return qty
	}

	lots := qty.Div(r.LotSize)

	var rounded decimal.Decimal
	switch dir {
	case RoundUp:
		rounded = lots.Ceil()
	case RoundNearest:
		rounded = lots.Round(0)
	default:
		// Down, and any unrecognized direction: truncate toward zero.
		rounded = lots.Truncate(0)
	}

	return rounded.Mul(r.LotSize)
}
