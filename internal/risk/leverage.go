package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// GrossLeverageConstraint caps total gross exposure (sum of absolute
// position values) at cfg.MaxGrossLeverage * equity. When new buys
// exceed the remaining capacity, every buy is scaled by the same
// factor and floored. Sells reduce exposure and always pass.
type GrossLeverageConstraint struct{}

// NewGrossLeverageConstraint creates the constraint.
func NewGrossLeverageConstraint() *GrossLeverageConstraint {
	return &GrossLeverageConstraint{}
}

// Name identifies the constraint in audit records.
func (c *GrossLeverageConstraint) Name() string {
	return "GrossLeverageConstraint"
}

// ClassifyRisk reports whether the order raises directional risk.
func (c *GrossLeverageConstraint) ClassifyRisk(order *types.OrderIntent, portfolio types.PortfolioState) bool {
	return classifyRisk(order, portfolio)
}

// Apply scales buys to fit within the gross exposure cap.
func (c *GrossLeverageConstraint) Apply(orders []*types.OrderIntent, portfolio types.PortfolioState, market types.MarketState, cfg Config) ConstraintResult {
	result := ConstraintResult{}

	equity := portfolio.Equity()
	maxExposure := equity.Mul(decimal.NewFromFloat(cfg.MaxGrossLeverage))
	currentGross := portfolio.GrossExposure()

	type pricedOrder struct {
		order *types.OrderIntent
		price decimal.Decimal
		value decimal.Decimal
	}

	var buys []pricedOrder
	totalNew := decimal.Zero

	for _, order := range orders {
		if order.Side == types.OrderSideSell {
			result.Orders = append(result.Orders, order)
			continue
		}

		bar, ok := market.Bar(order.Symbol)
		if !ok {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          order,
				ConstraintName: c.Name(),
				Reason:         fmt.Sprintf("No bar data for %s", order.Symbol),
			})
			continue
		}

		value := order.Notional(bar.Close)
		totalNew = totalNew.Add(value)
		buys = append(buys, pricedOrder{order: order, price: bar.Close, value: value})
	}

	if len(buys) == 0 {
		return result
	}

	remaining := maxExposure.Sub(currentGross)
	if !remaining.IsPositive() {
		for _, b := range buys {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          b.order,
				ConstraintName: c.Name(),
				Reason: fmt.Sprintf("Gross leverage at max: exposure %s, limit %s (%vx equity)",
					currentGross, maxExposure, cfg.MaxGrossLeverage),
			})
		}
		return result
	}

	if totalNew.LessThanOrEqual(remaining) {
		for _, b := range buys {
			result.Orders = append(result.Orders, b.order)
		}
		return result
	}

	scaleFactor := remaining.Div(totalNew)
	for _, b := range buys {
		scaled := b.value.Mul(scaleFactor).Div(b.price).Floor()
		if scaled.LessThan(decimal.NewFromInt(1)) {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          b.order,
				ConstraintName: c.Name(),
				Reason: fmt.Sprintf("Scaled quantity < 1 (gross leverage limit %vx)",
					cfg.MaxGrossLeverage),
			})
			continue
		}

		result.Orders = append(result.Orders, b.order.WithQuantity(scaled))
		result.Rejected = append(result.Rejected, RejectedOrder{
			Order:          b.order,
			ConstraintName: c.Name(),
			Reason: fmt.Sprintf("Scaled from %s to %s (gross leverage limit %vx)",
				b.order.Quantity, scaled, cfg.MaxGrossLeverage),
			OriginalQuantity: b.order.Quantity,
		})
	}

	return result
}
