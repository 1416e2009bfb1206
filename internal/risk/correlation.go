package risk

import (
	"fmt"

	"github.com/liqtrade/riskengine/pkg/types"
)

// CorrelationConstraint rejects buys for symbols highly correlated
// with existing positions or with buys already accepted in the batch.
// Negative correlations always pass (hedging), as do pairs with no
// correlation data. Without a configured limit or correlation matrix
// it is a pass-through.
type CorrelationConstraint struct{}

// NewCorrelationConstraint creates the constraint.
func NewCorrelationConstraint() *CorrelationConstraint {
	return &CorrelationConstraint{}
}

// Name identifies the constraint in audit records.
func (c *CorrelationConstraint) Name() string {
	return "CorrelationConstraint"
}

// ClassifyRisk reports whether the order raises directional risk.
func (c *CorrelationConstraint) ClassifyRisk(order *types.OrderIntent, portfolio types.PortfolioState) bool {
	return classifyRisk(order, portfolio)
}

// Apply filters buys against the pairwise correlation limit.
func (c *CorrelationConstraint) Apply(orders []*types.OrderIntent, portfolio types.PortfolioState, market types.MarketState, cfg Config) ConstraintResult {
	result := ConstraintResult{}

	if !cfg.HasCorrelationLimit() || market.Correlations == nil {
		result.Orders = append(result.Orders, orders...)
		return result
	}

	checkSymbols := make(map[string]struct{}, len(portfolio.Positions))
	for symbol := range portfolio.Positions {
		checkSymbols[symbol] = struct{}{}
	}

	for _, order := range orders {
		if order.Side == types.OrderSideSell {
			result.Orders = append(result.Orders, order)
			continue
		}

		if partner := c.findHighlyCorrelated(order.Symbol, checkSymbols, market, cfg.MaxCorrelation); partner != "" {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          order,
				ConstraintName: c.Name(),
				Reason: fmt.Sprintf("Highly correlated with %s (max correlation %.2f)",
					partner, cfg.MaxCorrelation),
			})
			continue
		}

		result.Orders = append(result.Orders, order)
		checkSymbols[order.Symbol] = struct{}{}
	}

	return result
}

// findHighlyCorrelated returns the first symbol whose correlation with
// the candidate exceeds the limit, or "" when none does.
func (c *CorrelationConstraint) findHighlyCorrelated(symbol string, checkSymbols map[string]struct{}, market types.MarketState, maxCorrelation float64) string {
	for other := range checkSymbols {
		if other == symbol {
			continue
		}

		corr, ok := market.Correlation(symbol, other)
		if !ok {
			continue
		}

		if corr > maxCorrelation {
			return other
		}
	}
	return ""
}
