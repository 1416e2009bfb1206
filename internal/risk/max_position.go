package risk

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// MaxPositionConstraint caps a single symbol at cfg.MaxPositionPct of
// equity. Buys into a symbol already at the cap are dropped; buys that
// would overshoot are scaled down to the remaining room. Sells pass.
type MaxPositionConstraint struct{}

// NewMaxPositionConstraint creates the constraint.
func NewMaxPositionConstraint() *MaxPositionConstraint {
	return &MaxPositionConstraint{}
}

// Name identifies the constraint in audit records.
func (c *MaxPositionConstraint) Name() string {
	return "MaxPositionConstraint"
}

// ClassifyRisk reports whether the order raises directional risk.
func (c *MaxPositionConstraint) ClassifyRisk(order *types.OrderIntent, portfolio types.PortfolioState) bool {
	return classifyRisk(order, portfolio)
}

// Apply scales buys down to the per-symbol room. Orders it cannot
// price (missing bar) are dropped without a rejection record.
func (c *MaxPositionConstraint) Apply(orders []*types.OrderIntent, portfolio types.PortfolioState, market types.MarketState, cfg Config) ConstraintResult {
	result := ConstraintResult{}
	maxValue := portfolio.Equity().Mul(decimal.NewFromFloat(cfg.MaxPositionPct))

	for _, order := range orders {
		if order.Side == types.OrderSideSell {
			result.Orders = append(result.Orders, order)
			continue
		}

		bar, ok := market.Bar(order.Symbol)
		if !ok {
			continue
		}
		price := bar.Close

		existingValue := decimal.Zero
		if pos, held := portfolio.Positions[order.Symbol]; held {
			existingValue = pos.MarketValue().Abs()
		}

		remainingRoom := maxValue.Sub(existingValue)
		if !remainingRoom.IsPositive() {
			continue
		}

		if order.Notional(price).LessThanOrEqual(remainingRoom) {
			result.Orders = append(result.Orders, order)
			continue
		}

		scaled := remainingRoom.Div(price).Floor()
		if scaled.LessThan(decimal.NewFromInt(1)) {
			continue
		}

		result.Orders = append(result.Orders, order.WithQuantity(scaled))
		result.Rejected = append(result.Rejected, RejectedOrder{
			Order:          order,
			ConstraintName: c.Name(),
			Reason: fmt.Sprintf("Scaled from %s to %s (max position %.0f%% of equity)",
				order.Quantity, scaled, cfg.MaxPositionPct*100),
			OriginalQuantity: order.Quantity,
		})
	}

	return result
}

// MaxPositionsConstraint caps the total number of concurrent
// positions. Sells and orders on already-held symbols always pass;
// new-symbol buys compete for the remaining slots by confidence.
type MaxPositionsConstraint struct{}

// NewMaxPositionsConstraint creates the constraint.
func NewMaxPositionsConstraint() *MaxPositionsConstraint {
	return &MaxPositionsConstraint{}
}

// Name identifies the constraint in audit records.
func (c *MaxPositionsConstraint) Name() string {
	return "MaxPositionsConstraint"
}

// ClassifyRisk reports whether the order raises directional risk.
func (c *MaxPositionsConstraint) ClassifyRisk(order *types.OrderIntent, portfolio types.PortfolioState) bool {
	return classifyRisk(order, portfolio)
}

// Apply admits the highest-confidence new-symbol buys that fit under
// cfg.MaxPositions.
func (c *MaxPositionsConstraint) Apply(orders []*types.OrderIntent, portfolio types.PortfolioState, market types.MarketState, cfg Config) ConstraintResult {
	result := ConstraintResult{}

	var sells, existing, fresh []*types.OrderIntent
	for _, order := range orders {
		switch {
		case order.Side == types.OrderSideSell:
			sells = append(sells, order)
		default:
			if _, held := portfolio.Positions[order.Symbol]; held {
				existing = append(existing, order)
			} else {
				fresh = append(fresh, order)
			}
		}
	}

	result.Orders = append(result.Orders, sells...)
	result.Orders = append(result.Orders, existing...)

	room := cfg.MaxPositions - len(portfolio.Positions)
	if room <= 0 {
		for _, order := range fresh {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          order,
				ConstraintName: c.Name(),
				Reason:         fmt.Sprintf("Position limit reached (max %d)", cfg.MaxPositions),
			})
		}
		return result
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].Confidence > fresh[j].Confidence
	})

	if len(fresh) > room {
		for _, order := range fresh[room:] {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          order,
				ConstraintName: c.Name(),
				Reason:         fmt.Sprintf("Position limit reached (max %d), lower confidence than admitted orders", cfg.MaxPositions),
			})
		}
		fresh = fresh[:room]
	}

	result.Orders = append(result.Orders, fresh...)
	return result
}
