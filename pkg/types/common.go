package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order sides
const (
	OrderSideBuy  = "BUY"
	OrderSideSell = "SELL"
)

// Order types
const (
	OrderTypeMarket    = "MARKET"
	OrderTypeLimit     = "LIMIT"
	OrderTypeStop      = "STOP"
	OrderTypeStopLimit = "STOP_LIMIT"
)

// Time in force
const (
	TimeInForceDay = "DAY" // Good for the trading day
	TimeInForceGTC = "GTC" // Good Till Cancel
	TimeInForceIOC = "IOC" // Immediate or Cancel
	TimeInForceFOK = "FOK" // Fill or Kill
)

// Signal directions
const (
	DirectionLong  = "long"
	DirectionShort = "short"
	DirectionFlat  = "flat"
)

// Execution urgency for position targets
const (
	UrgencyNormal    = "normal"
	UrgencyUrgent    = "urgent"
	UrgencyImmediate = "immediate"
)

// Type aliases for compatibility
type Side = string
type OrderType = string
type TimeInForce = string
type Direction = string
type Urgency = string

// PriceReference selects which price to use for sizing calculations
type PriceReference string

const (
	PriceReferenceMidrange PriceReference = "midrange"
	PriceReferenceClose    PriceReference = "close"
	PriceReferenceVWAP     PriceReference = "vwap"
)

// SizingMode determines how existing positions are handled when sizing
type SizingMode string

const (
	SizingModeIncremental SizingMode = "incremental"
	SizingModeRebalance   SizingMode = "rebalance"
	SizingModeReplace     SizingMode = "replace"
)

// HaltMode determines which orders are blocked when trading is halted
type HaltMode string

const (
	// HaltBuysOnly blocks new buy intents only. Sells pass.
	HaltBuysOnly HaltMode = "halt_buys_only"
	// HaltAllRiskIncreasing blocks any order that raises |position|.
	HaltAllRiskIncreasing HaltMode = "halt_risk_inc"
	// HaltAllTrades blocks every order.
	HaltAllTrades HaltMode = "halt_all"
)

// RoundDirection controls quantity rounding in RoundingPolicy
type RoundDirection string

const (
	RoundDown    RoundDirection = "down"
	RoundUp      RoundDirection = "up"
	RoundNearest RoundDirection = "nearest"
)

// OrderIntent is a request to change a position, ready for handoff to an
// execution layer. Quantity is always positive; Side determines direction.
type OrderIntent struct {
	ID          string                 `json:"id,omitempty"`
	Symbol      string                 `json:"symbol"`
	Side        Side                   `json:"side"`
	Type        OrderType              `json:"type"`
	Quantity    decimal.Decimal        `json:"quantity"`
	LimitPrice  decimal.Decimal        `json:"limit_price,omitempty"`
	StopPrice   decimal.Decimal        `json:"stop_price,omitempty"`
	TimeInForce TimeInForce            `json:"time_in_force,omitempty"`
	Timestamp   time.Time              `json:"timestamp,omitempty"`
	Confidence  float64                `json:"confidence,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks intent invariants. Quantity must be strictly positive;
// direction is carried by Side, never by a signed quantity.
func (o *OrderIntent) Validate() error {
	if o.Symbol == "" {
		return fmt.Errorf("order intent symbol is required")
	}
	if o.Side != OrderSideBuy && o.Side != OrderSideSell {
		return fmt.Errorf("order intent side must be BUY or SELL, got %q", o.Side)
	}
	if !o.Quantity.IsPositive() {
		return fmt.Errorf("order intent quantity must be positive, got %s", o.Quantity)
	}
	return nil
}

// Notional returns quantity * price for the given reference price.
func (o *OrderIntent) Notional(price decimal.Decimal) decimal.Decimal {
	return o.Quantity.Mul(price)
}

// WithQuantity returns a copy of the intent carrying a new quantity.
// All other fields are preserved, so constraint scaling keeps the
// audit-relevant context (id, confidence, tags) intact.
func (o *OrderIntent) WithQuantity(qty decimal.Decimal) *OrderIntent {
	clone := *o
	clone.Quantity = qty
	return &clone
}
