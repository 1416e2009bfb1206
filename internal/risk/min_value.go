package risk

import (
	"github.com/liqtrade/riskengine/pkg/types"
)

// MinPositionValueConstraint drops buys whose notional falls below
// cfg.MinPositionValue. Dropped orders produce no rejection record;
// they are simply absent from the output. Sells always pass, and a
// missing bar drops the buy the same silent way.
type MinPositionValueConstraint struct{}

// NewMinPositionValueConstraint creates the constraint.
func NewMinPositionValueConstraint() *MinPositionValueConstraint {
	return &MinPositionValueConstraint{}
}

// Name identifies the constraint in audit records.
func (c *MinPositionValueConstraint) Name() string {
	return "MinPositionValueConstraint"
}

// ClassifyRisk reports whether the order raises directional risk.
func (c *MinPositionValueConstraint) ClassifyRisk(order *types.OrderIntent, portfolio types.PortfolioState) bool {
	return classifyRisk(order, portfolio)
}

// Apply silently removes buys below the minimum notional.
func (c *MinPositionValueConstraint) Apply(orders []*types.OrderIntent, portfolio types.PortfolioState, market types.MarketState, cfg Config) ConstraintResult {
	result := ConstraintResult{}

	for _, order := range orders {
		if order.Side == types.OrderSideSell {
			result.Orders = append(result.Orders, order)
			continue
		}

		bar, ok := market.Bar(order.Symbol)
		if !ok {
			continue
		}

		if order.Notional(bar.Close).GreaterThanOrEqual(cfg.MinPositionValue) {
			result.Orders = append(result.Orders, order)
		}
	}

	return result
}
