package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TargetPosition is the execution-agnostic output of a position sizer.
// It expresses where the portfolio should be in a symbol, without
// knowing execution mechanics like order types or time-in-force.
type TargetPosition struct {
	Symbol          string            `json:"symbol"`
	TargetQuantity  decimal.Decimal   `json:"target_quantity"`
	CurrentQuantity decimal.Decimal   `json:"current_quantity"`
	Direction       Direction         `json:"direction"`
	Urgency         Urgency           `json:"urgency,omitempty"`
	StopPrice       decimal.Decimal   `json:"stop_price,omitempty"`
	TakeProfitPrice decimal.Decimal   `json:"take_profit_price,omitempty"`
	SignalStrength  float64           `json:"signal_strength"`
	RiskTags        map[string]string `json:"risk_tags,omitempty"`
}

// DeltaQuantity returns the signed quantity change needed: target - current.
func (t TargetPosition) DeltaQuantity() decimal.Decimal {
	return t.TargetQuantity.Sub(t.CurrentQuantity)
}

// IsRiskIncreasing reports whether reaching the target raises |position|.
func (t TargetPosition) IsRiskIncreasing() bool {
	return t.TargetQuantity.Abs().GreaterThan(t.CurrentQuantity.Abs())
}

// ToOrderIntent converts the target into a market order intent.
// Returns nil when the delta is zero, or when the optional rounding
// policy rounds the delta down to zero.
func (t TargetPosition) ToOrderIntent(timestamp time.Time, rounding *RoundingPolicy) *OrderIntent {
	delta := t.DeltaQuantity()
	if delta.IsZero() {
		return nil
	}

	side := OrderSideBuy
	quantity := delta
	if delta.IsNegative() {
		side = OrderSideSell
		quantity = delta.Abs()
	}

	if rounding != nil {
		quantity = rounding.RoundQuantity(quantity, RoundDown)
		if quantity.IsZero() {
			return nil
		}
	}

	return &OrderIntent{
		ID:         uuid.NewString(),
		Symbol:     t.Symbol,
		Side:       side,
		Type:       OrderTypeMarket,
		Quantity:   quantity,
		Timestamp:  timestamp,
		Confidence: t.SignalStrength,
	}
}
