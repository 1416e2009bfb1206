package risk

import (
	"fmt"

	"github.com/liqtrade/riskengine/pkg/types"
)

// ShortSellingConstraint blocks sells that would create or extend a
// short position when cfg.AllowShorts is false. Sells against an
// existing long are trimmed to the position size so they cannot cross
// zero. With shorts allowed it is a pass-through.
type ShortSellingConstraint struct{}

// NewShortSellingConstraint creates the constraint.
func NewShortSellingConstraint() *ShortSellingConstraint {
	return &ShortSellingConstraint{}
}

// Name identifies the constraint in audit records.
func (c *ShortSellingConstraint) Name() string {
	return "ShortSellingConstraint"
}

// ClassifyRisk reports whether the order raises directional risk.
func (c *ShortSellingConstraint) ClassifyRisk(order *types.OrderIntent, portfolio types.PortfolioState) bool {
	return classifyRisk(order, portfolio)
}

// Apply filters or trims sell orders per the shorting permission.
func (c *ShortSellingConstraint) Apply(orders []*types.OrderIntent, portfolio types.PortfolioState, market types.MarketState, cfg Config) ConstraintResult {
	result := ConstraintResult{}

	if cfg.AllowShorts {
		result.Orders = append(result.Orders, orders...)
		return result
	}

	for _, order := range orders {
		if order.Side == types.OrderSideBuy {
			result.Orders = append(result.Orders, order)
			continue
		}

		current := portfolio.PositionQuantity(order.Symbol)

		if !current.IsPositive() {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          order,
				ConstraintName: c.Name(),
				Reason:         "Short selling not allowed (allow_shorts=false)",
			})
			continue
		}

		if order.Quantity.GreaterThan(current) {
			trimmed := order.WithQuantity(current)
			result.Orders = append(result.Orders, trimmed)
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          order,
				ConstraintName: c.Name(),
				Reason: fmt.Sprintf("Trimmed from %s to %s to avoid short position (allow_shorts=false)",
					order.Quantity, current),
				OriginalQuantity: order.Quantity,
			})
			continue
		}

		result.Orders = append(result.Orders, order)
	}

	return result
}
