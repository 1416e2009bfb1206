package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents an OHLCV snapshot of a symbol over a time bucket
type Bar struct {
	Symbol    string          `json:"symbol"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// Midrange returns (high + low) / 2, a stable entry-price estimate.
func (b Bar) Midrange() decimal.Decimal {
	return b.High.Add(b.Low).Div(decimal.NewFromInt(2))
}

// SymbolPair is an ordered pair of symbols used as a correlation key
type SymbolPair struct {
	A string
	B string
}

// MarketState is an immutable snapshot of current market conditions.
// Volatility is typically ATR; Liquidity is average daily volume.
// SectorMap, Correlations, BorrowRates and Regime are optional.
type MarketState struct {
	CurrentBars  map[string]Bar             `json:"current_bars"`
	Volatility   map[string]decimal.Decimal `json:"volatility"`
	Liquidity    map[string]decimal.Decimal `json:"liquidity"`
	SectorMap    map[string]string          `json:"sector_map,omitempty"`
	Correlations map[SymbolPair]float64     `json:"-"`
	BorrowRates  map[string]decimal.Decimal `json:"borrow_rates,omitempty"`
	Regime       string                     `json:"regime,omitempty"`
	Timestamp    time.Time                  `json:"timestamp"`
}

// Validate checks snapshot invariants. The timestamp must carry a real
// instant; a zero timestamp means the caller never stamped the snapshot.
func (m MarketState) Validate() error {
	if m.Timestamp.IsZero() {
		return fmt.Errorf("market state timestamp must be set (UTC expected)")
	}
	return nil
}

// Bar returns the current bar for a symbol, if present.
func (m MarketState) Bar(symbol string) (Bar, bool) {
	bar, ok := m.CurrentBars[symbol]
	return bar, ok
}

// Price returns the price for a symbol using the given reference.
// VWAP falls back to close since bars carry no intrabar volume profile.
// The boolean is false when the symbol has no bar.
func (m MarketState) Price(symbol string, ref PriceReference) (decimal.Decimal, bool) {
	bar, ok := m.CurrentBars[symbol]
	if !ok {
		return decimal.Zero, false
	}
	switch ref {
	case PriceReferenceMidrange:
		return bar.Midrange(), true
	case PriceReferenceClose, PriceReferenceVWAP:
		return bar.Close, true
	default:
		return bar.Close, true
	}
}

// Correlation looks up the pairwise correlation for two symbols,
// trying both orderings of the pair.
func (m MarketState) Correlation(a, b string) (float64, bool) {
	if m.Correlations == nil {
		return 0, false
	}
	if corr, ok := m.Correlations[SymbolPair{A: a, B: b}]; ok {
		return corr, true
	}
	corr, ok := m.Correlations[SymbolPair{A: b, B: a}]
	return corr, ok
}
