package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// SectorExposureConstraint caps exposure to any single sector at
// cfg.MaxSectorPct of equity, tallying existing positions plus buys
// accepted earlier in the same batch. Without a sector map it is a
// pass-through; symbols with no sector entry pass unclassified.
type SectorExposureConstraint struct{}

// NewSectorExposureConstraint creates the constraint.
func NewSectorExposureConstraint() *SectorExposureConstraint {
	return &SectorExposureConstraint{}
}

// Name identifies the constraint in audit records.
func (c *SectorExposureConstraint) Name() string {
	return "SectorExposureConstraint"
}

// ClassifyRisk reports whether the order raises directional risk.
func (c *SectorExposureConstraint) ClassifyRisk(order *types.OrderIntent, portfolio types.PortfolioState) bool {
	return classifyRisk(order, portfolio)
}

// Apply scales or drops buys that would breach their sector's cap.
func (c *SectorExposureConstraint) Apply(orders []*types.OrderIntent, portfolio types.PortfolioState, market types.MarketState, cfg Config) ConstraintResult {
	result := ConstraintResult{}

	if market.SectorMap == nil {
		result.Orders = append(result.Orders, orders...)
		return result
	}

	maxExposure := portfolio.Equity().Mul(decimal.NewFromFloat(cfg.MaxSectorPct))

	// Seed the tally from existing positions, valued at the current
	// bar when one exists, else at the position's own marks.
	sectorExposure := make(map[string]decimal.Decimal)
	for symbol, pos := range portfolio.Positions {
		sector, ok := market.SectorMap[symbol]
		if !ok {
			continue
		}

		var value decimal.Decimal
		if bar, hasBar := market.Bar(symbol); hasBar {
			value = pos.Quantity.Abs().Mul(bar.Close)
		} else {
			value = pos.MarketValue().Abs()
		}
		sectorExposure[sector] = sectorExposure[sector].Add(value)
	}

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

		sector, ok := market.SectorMap[order.Symbol]
		if !ok {
			result.Orders = append(result.Orders, order)
			continue
		}

		price := bar.Close
		orderValue := order.Notional(price)
		current := sectorExposure[sector]
		remaining := maxExposure.Sub(current)

		if !remaining.IsPositive() {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          order,
				ConstraintName: c.Name(),
				Reason: fmt.Sprintf("Sector %q at max exposure (%.0f%% of equity)",
					sector, cfg.MaxSectorPct*100),
			})
			continue
		}

		if orderValue.LessThanOrEqual(remaining) {
			result.Orders = append(result.Orders, order)
			sectorExposure[sector] = current.Add(orderValue)
			continue
		}

		scaled := remaining.Div(price).Floor()
		if scaled.LessThan(decimal.NewFromInt(1)) {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          order,
				ConstraintName: c.Name(),
				Reason:         fmt.Sprintf("Sector %q at max exposure, scaled quantity < 1", sector),
			})
			continue
		}

		result.Orders = append(result.Orders, order.WithQuantity(scaled))
		sectorExposure[sector] = current.Add(scaled.Mul(price))
		result.Rejected = append(result.Rejected, RejectedOrder{
			Order:          order,
			ConstraintName: c.Name(),
			Reason: fmt.Sprintf("Scaled from %s to %s (sector %q limit %.0f%%)",
				order.Quantity, scaled, sector, cfg.MaxSectorPct*100),
			OriginalQuantity: order.Quantity,
		})
	}

	return result
}
