package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// BuyingPowerConstraint caps aggregate buy notional at available cash.
// When demand exceeds cash every buy is scaled proportionally, computed
// once from aggregate demand, then floored per order. Sells pass.
type BuyingPowerConstraint struct{}

// NewBuyingPowerConstraint creates the constraint.
func NewBuyingPowerConstraint() *BuyingPowerConstraint {
	return &BuyingPowerConstraint{}
}

// Name identifies the constraint in audit records.
func (c *BuyingPowerConstraint) Name() string {
	return "BuyingPowerConstraint"
}

// ClassifyRisk reports whether the order raises directional risk.
func (c *BuyingPowerConstraint) ClassifyRisk(order *types.OrderIntent, portfolio types.PortfolioState) bool {
	return classifyRisk(order, portfolio)
}

// Apply scales buys so their total notional fits within cash.
func (c *BuyingPowerConstraint) Apply(orders []*types.OrderIntent, portfolio types.PortfolioState, market types.MarketState, cfg Config) ConstraintResult {
	result := ConstraintResult{}
	cash := portfolio.Cash

	type pricedOrder struct {
		order *types.OrderIntent
		price decimal.Decimal
		value decimal.Decimal
	}

	var buys []pricedOrder
	totalDemand := decimal.Zero

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
		totalDemand = totalDemand.Add(value)
		buys = append(buys, pricedOrder{order: order, price: bar.Close, value: value})
	}

	if len(buys) == 0 {
		return result
	}

	if totalDemand.LessThanOrEqual(cash) {
		for _, b := range buys {
			result.Orders = append(result.Orders, b.order)
		}
		return result
	}

	if !cash.IsPositive() {
		for _, b := range buys {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          b.order,
				ConstraintName: c.Name(),
				Reason: fmt.Sprintf("Insufficient buying power for %s: order value %s, cash available %s",
					b.order.Symbol, b.value, cash),
			})
		}
		return result
	}

	scaleFactor := cash.Div(totalDemand)
	for _, b := range buys {
		scaled := b.value.Mul(scaleFactor).Div(b.price).Floor()
		if scaled.LessThan(decimal.NewFromInt(1)) {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          b.order,
				ConstraintName: c.Name(),
				Reason: fmt.Sprintf("Insufficient buying power for %s: order value %s, cash available %s",
					b.order.Symbol, b.value, cash),
			})
			continue
		}

		result.Orders = append(result.Orders, b.order.WithQuantity(scaled))
		result.Rejected = append(result.Rejected, RejectedOrder{
			Order:          b.order,
			ConstraintName: c.Name(),
			Reason: fmt.Sprintf("Scaled from %s to %s (buy demand %s exceeds cash %s)",
				b.order.Quantity, scaled, totalDemand, cash),
			OriginalQuantity: b.order.Quantity,
		})
	}

	return result
}
