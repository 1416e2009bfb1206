package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liqtrade/riskengine/pkg/types"
)

// Timeframe is a window for frequency caps
type Timeframe string

const (
	TimeframeSecond Timeframe = "second"
	TimeframeMinute Timeframe = "minute"
	TimeframeHour   Timeframe = "hour"
	TimeframeDay    Timeframe = "day"
	TimeframeWeek   Timeframe = "week"
	TimeframeMonth  Timeframe = "month" // 30-day approximation
)

// Duration returns the window length of the timeframe.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case TimeframeSecond:
		return time.Second
	case TimeframeMinute:
		return time.Minute
	case TimeframeHour:
		return time.Hour
	case TimeframeDay:
		return 24 * time.Hour
	case TimeframeWeek:
		return 7 * 24 * time.Hour
	case TimeframeMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// ParseTimeframe parses a timeframe from a string, accepting the
// common short forms ("1h", "min", "d", ...).
func ParseTimeframe(s string) (Timeframe, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "second", "sec", "s", "1s":
		return TimeframeSecond, nil
	case "minute", "min", "m", "1m":
		return TimeframeMinute, nil
	case "hour", "hr", "h", "1h":
		return TimeframeHour, nil
	case "day", "d", "1d":
		return TimeframeDay, nil
	case "week", "wk", "w", "1w":
		return TimeframeWeek, nil
	case "month", "mo", "1mo":
		return TimeframeMonth, nil
	}
	return "", fmt.Errorf("%w: unknown timeframe %q (valid: second, minute, hour, day, week, month)", ErrInvalidConfig, s)
}

// FrequencyCapRule is one cap: at most MaxTrades per Timeframe window,
// either per symbol or globally.
type FrequencyCapRule struct {
	MaxTrades int       `mapstructure:"max_trades"`
	Timeframe Timeframe `mapstructure:"timeframe"`
	PerSymbol bool      `mapstructure:"per_symbol"`
}

// TradeRecord is one confirmed trade in the frequency history
type TradeRecord struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Side      types.Side      `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// FrequencyCapConstraint limits trade frequency against a set of cap
// rules. Multiple caps coexist (e.g. 3/minute AND 20/hour per symbol,
// 100/day globally). Risk-reducing orders are not exempt. History is
// fed via RecordTrade after fill confirmation and pruned on each Apply
// to the longest cap window plus a small buffer.
type FrequencyCapConstraint struct {
	caps    []FrequencyCapRule
	history []TradeRecord

	maxHistoryWindow time.Duration
}

// NewFrequencyCapConstraint validates the rules. A nil or empty rule
// set defaults to 10 trades per minute per symbol.
func NewFrequencyCapConstraint(caps []FrequencyCapRule, history []TradeRecord) (*FrequencyCapConstraint, error) {
	if len(caps) == 0 {
		caps = []FrequencyCapRule{{MaxTrades: 10, Timeframe: TimeframeMinute, PerSymbol: true}}
	}

	maxWindow := time.Duration(0)
	for _, rule := range caps {
		if rule.MaxTrades < 1 {
			return nil, fmt.Errorf("%w: max_trades must be >= 1, got %d", ErrInvalidConfig, rule.MaxTrades)
		}
		if rule.Timeframe.Duration() == 0 {
			return nil, fmt.Errorf("%w: unknown timeframe %q", ErrInvalidConfig, rule.Timeframe)
		}
		if rule.Timeframe.Duration() > maxWindow {
			maxWindow = rule.Timeframe.Duration()
		}
	}

	return &FrequencyCapConstraint{
		caps:             caps,
		history:          append([]TradeRecord(nil), history...),
		maxHistoryWindow: maxWindow,
	}, nil
}

// Name identifies the constraint in audit records.
func (c *FrequencyCapConstraint) Name() string {
	return "FrequencyCapConstraint"
}

// Caps returns the active cap rules.
func (c *FrequencyCapConstraint) Caps() []FrequencyCapRule {
	return c.caps
}

// ClassifyRisk reports whether the order raises directional risk.
// Frequency caps apply to every order regardless of classification.
func (c *FrequencyCapConstraint) ClassifyRisk(order *types.OrderIntent, portfolio types.PortfolioState) bool {
	return classifyRisk(order, portfolio)
}

// Apply rejects an order when any cap's window already holds MaxTrades
// trades, counting confirmed history plus orders already accepted in
// this batch.
func (c *FrequencyCapConstraint) Apply(orders []*types.OrderIntent, portfolio types.PortfolioState, market types.MarketState, cfg Config) ConstraintResult {
	result := ConstraintResult{}
	now := market.Timestamp

	c.pruneHistory(now)

	batchBySymbol := make(map[string]int)
	batchGlobal := 0

	for _, order := range orders {
		if reason := c.checkCaps(order, now, batchBySymbol, batchGlobal); reason != "" {
			result.Rejected = append(result.Rejected, RejectedOrder{
				Order:          order,
				ConstraintName: c.Name(),
				Reason:         reason,
			})
			continue
		}

		result.Orders = append(result.Orders, order)
		batchBySymbol[order.Symbol]++
		batchGlobal++
	}

	return result
}

// checkCaps returns a violation reason, or "" when the order fits.
func (c *FrequencyCapConstraint) checkCaps(order *types.OrderIntent, now time.Time, batchBySymbol map[string]int, batchGlobal int) string {
	for _, rule := range c.caps {
		windowStart := now.Add(-rule.Timeframe.Duration())

		if rule.PerSymbol {
			count := batchBySymbol[order.Symbol]
			for _, t := range c.history {
				if t.Symbol == order.Symbol && !t.Timestamp.Before(windowStart) {
					count++
				}
			}
			if count >= rule.MaxTrades {
				return fmt.Sprintf("Frequency cap exceeded for %s: %d trades in %s (max %d)",
					order.Symbol, count, rule.Timeframe, rule.MaxTrades)
			}
			continue
		}

		count := batchGlobal
		for _, t := range c.history {
			if !t.Timestamp.Before(windowStart) {
				count++
			}
		}
		if count >= rule.MaxTrades {
			return fmt.Sprintf("Global frequency cap exceeded: %d trades in %s (max %d)",
				count, rule.Timeframe, rule.MaxTrades)
		}
	}

	return ""
}

// pruneHistory drops records older than the longest window plus a
// one-minute buffer. History is time-ordered, so only the prefix goes.
func (c *FrequencyCapConstraint) pruneHistory(now time.Time) {
	cutoff := now.Add(-c.maxHistoryWindow - time.Minute)
	idx := 0
	for idx < len(c.history) && c.history[idx].Timestamp.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		c.history = append([]TradeRecord(nil), c.history[idx:]...)
	}
}

// RecordTrade appends a confirmed fill to the frequency history.
func (c *FrequencyCapConstraint) RecordTrade(symbol string, timestamp time.Time, side types.Side, quantity decimal.Decimal) {
	c.history = append(c.history, TradeRecord{
		Symbol:    symbol,
		Timestamp: timestamp,
		Side:      side,
		Quantity:  quantity,
	})
}

// TradeCount counts history records, optionally filtered by symbol
// ("" = all) and start time (zero = all).
func (c *FrequencyCapConstraint) TradeCount(symbol string, since time.Time) int {
	count := 0
	for _, t := range c.history {
		if symbol != "" && t.Symbol != symbol {
			continue
		}
		if !since.IsZero() && t.Timestamp.Before(since) {
			continue
		}
		count++
	}
	return count
}

// History returns a copy of the trade history for persistence.
func (c *FrequencyCapConstraint) History() []TradeRecord {
	return append([]TradeRecord(nil), c.history...)
}

// ClearHistory drops all trade history.
func (c *FrequencyCapConstraint) ClearHistory() {
	c.history = nil
}
