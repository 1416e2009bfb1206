package risk

import (
	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// KellySizer sizes positions by the Kelly criterion, using signal
// strength as the win-probability proxy. Under symmetric returns the
// full Kelly bet is f* = 2p - 1; the configured kelly_fraction scales
// it down for safety (quarter Kelly by default).
type KellySizer struct{}

// NewKellySizer creates a Kelly criterion sizer.
func NewKellySizer() *KellySizer {
	return &KellySizer{}
}

// SizePositions sizes each active signal by fractional Kelly.
// Signals with no edge (strength <= 0.5) are skipped.
func (s *KellySizer) SizePositions(signals []types.Signal, portfolio types.PortfolioState, market types.MarketState, cfg Config) []types.TargetPosition {
	equity := portfolio.Equity()

	var targets []types.TargetPosition
	for _, sig := range signals {
		if !sig.IsActive() {
			continue
		}

		bar, ok := market.Bar(sig.Symbol)
		if !ok {
			continue
		}

		fullKelly := 2*sig.Strength - 1
		if fullKelly <= 0 {
			continue
		}

		fraction := fullKelly * cfg.KellyFraction
		positionValue := equity.Mul(decimal.NewFromFloat(fraction))
		qty := positionValue.Div(bar.Close).Floor()
		if qty.LessThan(decimal.NewFromInt(1)) {
			continue
		}

		targets = append(targets, directionalTarget(sig, qty, portfolio))
	}

	return targets
}
