package risk

import (
	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// RejectedOrder is the audit record for an order a constraint dropped
// or scaled. OriginalQuantity is set only when the order was scaled
// down and re-admitted rather than fully rejected.
type RejectedOrder struct {
	Order            *types.OrderIntent `json:"order"`
	ConstraintName   string             `json:"constraint_name"`
	Reason           string             `json:"reason"`
	OriginalQuantity decimal.Decimal    `json:"original_quantity,omitempty"`
}

// Scaled reports whether the order was scaled down rather than dropped.
// Scaled orders appear in both ConstraintResult.Orders (with the new
// quantity) and Rejected (with this record) to keep the audit trail.
func (r RejectedOrder) Scaled() bool {
	return !r.OriginalQuantity.IsZero()
}

// ConstraintResult is the structured output every constraint returns.
type ConstraintResult struct {
	Orders   []*types.OrderIntent `json:"orders"`
	Rejected []RejectedOrder      `json:"rejected"`
	Warnings []string             `json:"warnings,omitempty"`
}

// Constraint is a risk filter applied to a batch of order intents.
// Constraints run sequentially in declared order; each sees the
// previous constraint's output plus the unchanged snapshots.
type Constraint interface {
	// Name identifies the constraint in logs and audit records.
	Name() string

	// ClassifyRisk reports whether the order increases directional
	// risk for its symbol given the current position.
	ClassifyRisk(order *types.OrderIntent, portfolio types.PortfolioState) bool

	// Apply filters, scales, or passes the orders.
	Apply(orders []*types.OrderIntent, portfolio types.PortfolioState, market types.MarketState, cfg Config) ConstraintResult
}

// classifyRisk implements the shared risk classification rule:
// buying into a flat or long book raises risk, as does selling into a
// flat or short book; the opposite direction unwinds it.
func classifyRisk(order *types.OrderIntent, portfolio types.PortfolioState) bool {
	current := portfolio.PositionQuantity(order.Symbol)
	if order.Side == types.OrderSideBuy {
		return !current.IsNegative()
	}
	return !current.IsPositive()
}

// DefaultChain returns the standard stateless constraint chain. Order
// is part of the contract:
//
//  1. ShortSelling   - filter/trim shorts when disabled (early exit)
//  2. MinPositionValue - drop tiny orders before anything scales
//  3. MaxPosition    - cap individual position size
//  4. MaxPositions   - cap total position count
//  5. BuyingPower    - cap buys at available cash
//  6. GrossLeverage  - cap total exposure
//  7. NetLeverage    - cap signed exposure
func DefaultChain() []Constraint {
	return []Constraint{
		NewShortSellingConstraint(),
		NewMinPositionValueConstraint(),
		NewMaxPositionConstraint(),
		NewMaxPositionsConstraint(),
		NewBuyingPowerConstraint(),
		NewGrossLeverageConstraint(),
		NewNetLeverageConstraint(),
	}
}

// FullChain extends DefaultChain with the optional and stateful
// constraints, in contract order. The caller owns the stateful
// instances so it can feed them fills.
func FullChain(pyramiding *PyramidingConstraint, frequency *FrequencyCapConstraint) []Constraint {
	chain := DefaultChain()
	chain = append(chain,
		NewSectorExposureConstraint(),
		NewCorrelationConstraint(),
	)
	if pyramiding != nil {
		chain = append(chain, pyramiding)
	}
	if frequency != nil {
		chain = append(chain, frequency)
	}
	return chain
}
