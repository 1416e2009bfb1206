package risk

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// EqualWeightSizer divides equity equally among active signals. When
// more signals arrive than cfg.MaxPositions, the strongest signals win.
type EqualWeightSizer struct{}

// NewEqualWeightSizer creates an equal weight sizer.
func NewEqualWeightSizer() *EqualWeightSizer {
	return &EqualWeightSizer{}
}

// SizePositions allocates equity/N per signal, whole shares at close.
func (s *EqualWeightSizer) SizePositions(signals []types.Signal, portfolio types.PortfolioState, market types.MarketState, cfg Config) []types.TargetPosition {
	var active []types.Signal
	for _, sig := range signals {
		if sig.IsActive() {
			active = append(active, sig)
		}
	}
	if len(active) == 0 {
		return nil
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Strength > active[j].Strength
	})
	if len(active) > cfg.MaxPositions {
		active = active[:cfg.MaxPositions]
	}

	equity := portfolio.Equity()
	allocation := equity.Div(decimal.NewFromInt(int64(len(active))))

	var targets []types.TargetPosition
	for _, sig := range active {
		bar, ok := market.Bar(sig.Symbol)
		if !ok {
			continue
		}

		price := bar.Close
		if !price.IsPositive() {
			continue
		}

		qty := allocation.Div(price).Floor()
		if qty.LessThan(decimal.NewFromInt(1)) {
			continue
		}

		targets = append(targets, directionalTarget(sig, qty, portfolio))
	}

	return targets
}
