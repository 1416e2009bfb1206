package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// NetLeverageConstraint caps signed net exposure (longs minus shorts)
// at cfg.MaxNetLeverage * equity. Unlike gross leverage, a balanced
// long/short book can keep adding offsetting positions: only orders
// that push |net exposure| further out are constrained, scaled
// proportionally against the room left in their direction.
type NetLeverageConstraint struct{}

// NewNetLeverageConstraint creates the constraint.
func NewNetLeverageConstraint() *NetLeverageConstraint {
	return &NetLeverageConstraint{}
}

// Name identifies the constraint in audit records.
func (c *NetLeverageConstraint) Name() string {
	return "NetLeverageConstraint"
}

// ClassifyRisk reports whether the order raises directional risk.
func (c *NetLeverageConstraint) ClassifyRisk(order *types.OrderIntent, portfolio types.PortfolioState) bool {
	return classifyRisk(order, portfolio)
}

// Apply passes net-reducing orders and scales net-increasing ones.
func (c *NetLeverageConstraint) Apply(orders []*types.OrderIntent, portfolio types.PortfolioState, market types.MarketState, cfg Config) ConstraintResult {
	result := ConstraintResult{}

	equity := portfolio.Equity()
	maxNet := equity.Mul(decimal.NewFromFloat(cfg.MaxNetLeverage))
	currentNet := portfolio.NetExposure()

	type deltaOrder struct {
		order *types.OrderIntent
		price decimal.Decimal
		delta decimal.Decimal // signed notional change
	}

	var increasing []deltaOrder
	proposedDelta := decimal.Zero

	for _, order := range orders {
		bar, ok := market.Bar(order.Symbol)
		if !ok {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          order,
				ConstraintName: c.Name(),
				Reason:         fmt.Sprintf("No bar data for %s", order.Symbol),
			})
			continue
		}

		delta := order.Notional(bar.Close)
		if order.Side == types.OrderSideSell {
			delta = delta.Neg()
		}

		// Orders pulling |net| toward zero always pass.
		if currentNet.Add(delta).Abs().LessThan(currentNet.Abs()) {
			result.Orders = append(result.Orders, order)
			continue
		}

		increasing = append(increasing, deltaOrder{order: order, price: bar.Close, delta: delta})
		proposedDelta = proposedDelta.Add(delta)
	}

	if len(increasing) == 0 {
		return result
	}

	if currentNet.Add(proposedDelta).Abs().LessThanOrEqual(maxNet) {
		for _, d := range increasing {
			result.Orders = append(result.Orders, d.order)
		}
		return result
	}

	// Room depends on which way the aggregate delta pushes the book.
	var available decimal.Decimal
	if proposedDelta.IsPositive() {
		available = maxNet.Sub(currentNet)
	} else {
		available = maxNet.Add(currentNet)
	}

	if !available.IsPositive() || proposedDelta.IsZero() {
		for _, d := range increasing {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          d.order,
				ConstraintName: c.Name(),
				Reason: fmt.Sprintf("Net leverage at max (%vx), no capacity in this direction",
					cfg.MaxNetLeverage),
			})
		}
		return result
	}

	scaleFactor := available.Div(proposedDelta.Abs())
	for _, d := range increasing {
		scaled := d.delta.Abs().Mul(scaleFactor).Div(d.price).Floor()
		if scaled.LessThan(decimal.NewFromInt(1)) {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          d.order,
				ConstraintName: c.Name(),
				Reason: fmt.Sprintf("Scaled quantity < 1 (net leverage limit %vx)",
					cfg.MaxNetLeverage),
			})
			continue
		}

		result.Orders = append(result.Orders, d.order.WithQuantity(scaled))
		if scaled.LessThan(d.order.Quantity) {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          d.order,
				ConstraintName: c.Name(),
				Reason: fmt.Sprintf("Scaled from %s to %s (net leverage limit %vx)",
					d.order.Quantity, scaled, cfg.MaxNetLeverage),
				OriginalQuantity: d.order.Quantity,
			})
		}
	}

	return result
}
