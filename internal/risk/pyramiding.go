package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// PyramidingState tracks how a position was built up for one symbol.
type PyramidingState struct {
	AddCount        int             `json:"add_count"`
	InitialQuantity decimal.Decimal `json:"initial_quantity"`
	TotalAdded      decimal.Decimal `json:"total_added"`
}

// PyramidingConstraint limits adds to an existing position: at most
// maxPyramidAdds adds per position, each capped at maxAddPct of the
// initial entry. Initial entries and risk-reducing orders pass freely;
// a risk-reducing order that fully closes the position resets its state.
//
// The constraint owns its per-symbol state. Apply never counts adds:
// its only state change is that reset on a closing order. Adds are
// confirmed out-of-band via RecordFill, so unfilled intents do not
// consume the add budget.
type PyramidingConstraint struct {
	maxPyramidAdds int
	maxAddPct      decimal.Decimal
	state          map[string]*PyramidingState
}

// NewPyramidingConstraint validates parameters at construction.
func NewPyramidingConstraint(maxPyramidAdds int, maxAddPct float64) (*PyramidingConstraint, error) {
	if maxPyramidAdds < 0 {
		return nil, fmt.Errorf("%w: max_pyramid_adds must be >= 0, got %d", ErrInvalidConfig, maxPyramidAdds)
	}
	if maxAddPct <= 0 || maxAddPct > 1 {
		return nil, fmt.Errorf("%w: max_add_pct must be in (0, 1], got %v", ErrInvalidConfig, maxAddPct)
	}
	return &PyramidingConstraint{
		maxPyramidAdds: maxPyramidAdds,
		maxAddPct:      decimal.NewFromFloat(maxAddPct),
		state:          make(map[string]*PyramidingState),
	}, nil
}

// Name identifies the constraint in audit records.
func (c *PyramidingConstraint) Name() string {
	return "PyramidingConstraint"
}

// MaxPyramidAdds returns the add-count limit.
func (c *PyramidingConstraint) MaxPyramidAdds() int {
	return c.maxPyramidAdds
}

// State returns the tracked state for a symbol, creating it if absent.
func (c *PyramidingConstraint) State(symbol string) *PyramidingState {
	st, ok := c.state[symbol]
	if !ok {
		st = &PyramidingState{}
		c.state[symbol] = st
	}
	return st
}

// SetState installs state for a symbol, for recovery after restart.
func (c *PyramidingConstraint) SetState(symbol string, st PyramidingState) {
	copied := st
	c.state[symbol] = &copied
}

// ResetState clears tracked state for a symbol (position closed).
func (c *PyramidingConstraint) ResetState(symbol string) {
	delete(c.state, symbol)
}

// Snapshot returns a copy of all per-symbol state for persistence.
func (c *PyramidingConstraint) Snapshot() map[string]PyramidingState {
	out := make(map[string]PyramidingState, len(c.state))
	for symbol, st := range c.state {
		out[symbol] = *st
	}
	return out
}

// ClassifyRisk reports whether the order raises directional risk.
func (c *PyramidingConstraint) ClassifyRisk(order *types.OrderIntent, portfolio types.PortfolioState) bool {
	return classifyRisk(order, portfolio)
}

// Apply limits risk-increasing adds to existing positions.
func (c *PyramidingConstraint) Apply(orders []*types.OrderIntent, portfolio types.PortfolioState, market types.MarketState, cfg Config) ConstraintResult {
	result := ConstraintResult{}
	one := decimal.NewFromInt(1)

	for _, order := range orders {
		current := portfolio.PositionQuantity(order.Symbol)

		if c.isRiskReducing(order, current) {
			result.Orders = append(result.Orders, order)
			if c.wouldClosePosition(order, current) {
				c.ResetState(order.Symbol)
			}
			continue
		}

		// Initial entries pass without counting against the add budget.
		if current.IsZero() {
			result.Orders = append(result.Orders, order)
			continue
		}

		st := c.State(order.Symbol)

		if st.AddCount >= c.maxPyramidAdds {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          order,
				ConstraintName: c.Name(),
				Reason: fmt.Sprintf("Pyramiding limit reached: %d adds (max %d)",
					st.AddCount, c.maxPyramidAdds),
			})
			continue
		}

		baseQty := st.InitialQuantity
		if !baseQty.IsPositive() {
			baseQty = current.Abs()
		}
		maxAddQty := baseQty.Mul(c.maxAddPct)

		if order.Quantity.GreaterThan(maxAddQty) {
			scaled := maxAddQty.Floor()
			if scaled.LessThan(one) {
				result.Rejected = append(result.Rejected, RejectedOrder{
					Order:          order,
					ConstraintName: c.Name(),
					Reason: fmt.Sprintf("Add size %s exceeds max %s (%s%% of initial %s)",
						order.Quantity, maxAddQty, c.maxAddPct.Mul(decimal.NewFromInt(100)), baseQty),
				})
				continue
			}

			result.Orders = append(result.Orders, order.WithQuantity(scaled))
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          order,
				ConstraintName: c.Name(),
				Reason: fmt.Sprintf("Scaled from %s to %s (max add %s%% of initial %s)",
					order.Quantity, scaled, c.maxAddPct.Mul(decimal.NewFromInt(100)), baseQty),
				OriginalQuantity: order.Quantity,
			})
			continue
		}

		result.Orders = append(result.Orders, order)
	}

	return result
}

// RecordFill updates state after a confirmed fill. An initial entry
// resets the counters; an add increments them.
func (c *PyramidingConstraint) RecordFill(symbol string, filledQty decimal.Decimal, isAdd bool) {
	st := c.State(symbol)
	if !isAdd {
		st.InitialQuantity = filledQty
		st.AddCount = 0
		st.TotalAdded = decimal.Zero
		return
	}
	st.AddCount++
	st.TotalAdded = st.TotalAdded.Add(filledQty)
}

func (c *PyramidingConstraint) isRiskReducing(order *types.OrderIntent, current decimal.Decimal) bool {
	if order.Side == types.OrderSideBuy {
		return current.IsNegative()
	}
	return current.IsPositive()
}

func (c *PyramidingConstraint) wouldClosePosition(order *types.OrderIntent, current decimal.Decimal) bool {
	if current.IsZero() {
		return false
	}
	if order.Side == types.OrderSideBuy {
		return current.IsNegative() && order.Quantity.GreaterThanOrEqual(current.Abs())
	}
	return current.IsPositive() && order.Quantity.GreaterThanOrEqual(current)
}
