package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position represents a currently held stake in a symbol.
// Quantity is signed: positive for long, negative for short.
type Position struct {
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	RealizedPnL  decimal.Decimal `json:"realized_pnl"`
	CurrentPrice decimal.Decimal `json:"current_price,omitempty"`
	Timestamp    time.Time       `json:"timestamp,omitempty"`
}

// MarketValue returns the signed position value using the current price
// when available, falling back to the average entry price.
func (p Position) MarketValue() decimal.Decimal {
	price := p.AveragePrice
	if !p.CurrentPrice.IsZero() {
		price = p.CurrentPrice
	}
	return p.Quantity.Mul(price)
}

// PortfolioState is an immutable snapshot of cash and open positions
type PortfolioState struct {
	Cash      decimal.Decimal     `json:"cash"`
	Positions map[string]Position `json:"positions"`
	Timestamp time.Time           `json:"timestamp"`
}

// Equity returns cash plus the signed sum of position market values.
// The result may be zero or negative when losses exceed cash.
func (p PortfolioState) Equity() decimal.Decimal {
	equity := p.Cash
	for _, pos := range p.Positions {
		equity = equity.Add(pos.MarketValue())
	}
	return equity
}

// PositionQuantity returns the signed quantity held in symbol, zero if none.
func (p PortfolioState) PositionQuantity(symbol string) decimal.Decimal {
	if pos, ok := p.Positions[symbol]; ok {
		return pos.Quantity
	}
	return decimal.Zero
}

// GrossExposure returns the sum of absolute position market values.
func (p PortfolioState) GrossExposure() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range p.Positions {
		total = total.Add(pos.MarketValue().Abs())
	}
	return total
}

// NetExposure returns the signed sum of position market values.
func (p PortfolioState) NetExposure() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range p.Positions {
		total = total.Add(pos.MarketValue())
	}
	return total
}
