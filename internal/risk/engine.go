package risk

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/liqtrade/riskengine/pkg/types"
)

// Halt reasons used as metric labels
const (
	haltReasonEquityFloor = "equity_floor"
	haltReasonDrawdown    = "drawdown"
	haltReasonDailyLoss   = "daily_loss"
)

// EngineResult is the immutable outcome of one batch. The engine
// always returns a fully-formed result, even when halted or when
// every order was rejected; callers inspect the flags.
//
// Scaled-but-accepted orders are double-booked on purpose: they appear
// in Orders with their reduced quantity AND in ConstraintViolations
// with a "scaled from X to Y" entry, so the audit trail preserves the
// original demand.
type EngineResult struct {
	Orders               []*types.OrderIntent       `json:"orders"`
	RejectedSignals      []types.Signal             `json:"rejected_signals"`
	ConstraintViolations map[string][]string        `json:"constraint_violations"`
	StopLosses           map[string]decimal.Decimal `json:"stop_losses"`
	TakeProfits          map[string]decimal.Decimal `json:"take_profits"`
	Halted               bool                       `json:"halted"`
	HaltReason           string                     `json:"halt_reason,omitempty"`
}

// Engine orchestrates the signal-to-order pipeline: kill-switch
// evaluation, sizing, halt gating, the constraint chain, and
// protective price computation. One engine instance with its own
// stateful constraints is single-threaded per batch; independent
// instances may run in parallel.
type Engine struct {
	sizer       Sizer
	constraints []Constraint
	logger      *logrus.Entry
	now         func() time.Time
}

// NewEngine creates an engine. A nil sizer defaults to the whole-share
// VolatilitySizer; nil constraints default to DefaultChain().
func NewEngine(sizer Sizer, constraints []Constraint) *Engine {
	if sizer == nil {
		sizer = NewVolatilitySizer()
	}
	if constraints == nil {
		constraints = DefaultChain()
	}
	return &Engine{
		sizer:       sizer,
		constraints: constraints,
		logger:      logrus.WithField("component", "risk-engine"),
		now:         time.Now,
	}
}

// SetLogger replaces the engine's logger.
func (e *Engine) SetLogger(logger *logrus.Entry) {
	if logger != nil {
		e.logger = logger
	}
}

// ProcessSignals runs one batch through the risk pipeline.
//
// highWaterMark and dayStartEquity are optional reference equities for
// the drawdown and daily-loss kill-switches; pass zero (or negative)
// to skip either check. Configuration problems fail fast with an
// error; per-order problems never do - they land in the result's
// rejection records.
func (e *Engine) ProcessSignals(
	signals []types.Signal,
	portfolio types.PortfolioState,
	market types.MarketState,
	cfg Config,
	highWaterMark decimal.Decimal,
	dayStartEquity decimal.Decimal,
) (*EngineResult, error) {
	warnings, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		e.logger.Warnf("config warning: %s", w)
	}
	if err := market.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	equity := portfolio.Equity()
	mtxEquity.Set(equity.InexactFloat64())
	mtxSignals.Add(float64(len(signals)))

	result := &EngineResult{
		ConstraintViolations: make(map[string][]string),
		StopLosses:           make(map[string]decimal.Decimal),
		TakeProfits:          make(map[string]decimal.Decimal),
	}

	// Kill-switches, first to fire wins.
	result.Halted, result.HaltReason = e.checkKillSwitches(equity, cfg, highWaterMark, dayStartEquity)

	if len(signals) == 0 {
		return result, nil
	}

	// Sizing, then conversion to order intents at the market timestamp.
	targets := e.sizer.SizePositions(signals, portfolio, market, cfg)

	timestamp := market.Timestamp
	if timestamp.IsZero() {
		timestamp = e.now().UTC()
	}

	var orders []*types.OrderIntent
	for _, target := range targets {
		if intent := target.ToOrderIntent(timestamp, nil); intent != nil {
			orders = append(orders, intent)
		}
	}

	if result.Halted {
		orders = e.applyHaltGate(orders, portfolio, cfg)
	}

	// Constraint chain, in declared order. Every constraint sees the
	// previous one's survivors plus the unchanged snapshots.
	for _, constraint := range e.constraints {
		res := constraint.Apply(orders, portfolio, market, cfg)
		orders = res.Orders

		for _, w := range res.Warnings {
			e.logger.Warnf("%s: %s", constraint.Name(), w)
		}
		for _, rejected := range res.Rejected {
			name := constraint.Name()
			result.ConstraintViolations[name] = append(result.ConstraintViolations[name],
				fmt.Sprintf("%s: %s", rejected.Order.Symbol, rejected.Reason))
			mtxRejections.WithLabelValues(name).Inc()
		}
	}

	result.Orders = orders

	finalSymbols := make(map[string]struct{}, len(orders))
	for _, order := range orders {
		finalSymbols[order.Symbol] = struct{}{}
		mtxOrders.WithLabelValues(order.Side).Inc()
	}
	for _, sig := range signals {
		if _, ok := finalSymbols[sig.Symbol]; !ok {
			result.RejectedSignals = append(result.RejectedSignals, sig)
		}
	}

	e.attachProtectivePrices(result, orders, market, cfg)

	e.logger.WithFields(logrus.Fields{
		"signals":  len(signals),
		"orders":   len(orders),
		"rejected": len(result.RejectedSignals),
		"halted":   result.Halted,
	}).Debug("batch processed")

	return result, nil
}

// checkKillSwitches evaluates equity floor, drawdown and daily loss in
// order; the first breach wins.
func (e *Engine) checkKillSwitches(equity decimal.Decimal, cfg Config, highWaterMark, dayStartEquity decimal.Decimal) (bool, string) {
	if !equity.IsPositive() {
		reason := fmt.Sprintf("equity floor breached: equity is %s", equity)
		e.logger.Warnf("HALT: %s", reason)
		mtxHalts.WithLabelValues(haltReasonEquityFloor).Inc()
		return true, reason
	}

	if highWaterMark.IsPositive() {
		drawdown := highWaterMark.Sub(equity).Div(highWaterMark)
		if drawdown.GreaterThanOrEqual(decimal.NewFromFloat(cfg.MaxDrawdownHalt)) {
			reason := fmt.Sprintf("drawdown of %.1f%% exceeds limit of %.1f%%",
				drawdown.InexactFloat64()*100, cfg.MaxDrawdownHalt*100)
			e.logger.Warnf("HALT: %s (hwm=%s, equity=%s)", reason, highWaterMark, equity)
			mtxHalts.WithLabelValues(haltReasonDrawdown).Inc()
			return true, reason
		}
	}

	if cfg.HasDailyLossHalt() && dayStartEquity.IsPositive() {
		dailyLoss := dayStartEquity.Sub(equity).Div(dayStartEquity)
		if dailyLoss.GreaterThanOrEqual(decimal.NewFromFloat(cfg.MaxDailyLossHalt)) {
			reason := fmt.Sprintf("daily loss of %.1f%% exceeds limit of %.1f%%",
				dailyLoss.InexactFloat64()*100, cfg.MaxDailyLossHalt*100)
			e.logger.Warnf("HALT: %s", reason)
			mtxHalts.WithLabelValues(haltReasonDailyLoss).Inc()
			return true, reason
		}
	}

	return false, ""
}

// applyHaltGate drops intents according to the configured halt mode.
func (e *Engine) applyHaltGate(orders []*types.OrderIntent, portfolio types.PortfolioState, cfg Config) []*types.OrderIntent {
	switch cfg.HaltMode {
	case types.HaltAllTrades:
		return nil
	case types.HaltAllRiskIncreasing:
		var kept []*types.OrderIntent
		for _, order := range orders {
			if !classifyRisk(order, portfolio) {
				kept = append(kept, order)
			}
		}
		return kept
	default:
		// HaltBuysOnly: every buy is dropped, short covers included;
		// sells still flow.
		var kept []*types.OrderIntent
		for _, order := range orders {
			if order.Side == types.OrderSideSell {
				kept = append(kept, order)
			}
		}
		return kept
	}
}

// attachProtectivePrices fills the stop-loss and take-profit maps for
// the surviving orders. Orders lacking a bar or volatility are omitted.
func (e *Engine) attachProtectivePrices(result *EngineResult, orders []*types.OrderIntent, market types.MarketState, cfg Config) {
	stopMult := decimal.NewFromFloat(cfg.StopLossATRMult)
	tpMult := decimal.NewFromFloat(cfg.TakeProfitATRMult)

	for _, order := range orders {
		bar, ok := market.Bar(order.Symbol)
		if !ok {
			continue
		}
		atr, ok := market.Volatility[order.Symbol]
		if !ok {
			continue
		}

		midrange := bar.Midrange()

		if order.Side == types.OrderSideBuy {
			result.StopLosses[order.Symbol] = midrange.Sub(atr.Mul(stopMult))
			if cfg.HasTakeProfit() {
				result.TakeProfits[order.Symbol] = midrange.Add(atr.Mul(tpMult))
			}
		} else {
			result.StopLosses[order.Symbol] = midrange.Add(atr.Mul(stopMult))
			if cfg.HasTakeProfit() {
				result.TakeProfits[order.Symbol] = midrange.Sub(atr.Mul(tpMult))
			}
		}
	}
}

// CalculateStopLoss computes a stop price for a single position:
// entry -/+ atr*multiplier for long/short.
func CalculateStopLoss(side types.Side, entryPrice, atr decimal.Decimal, atrMultiplier float64) decimal.Decimal {
	distance := atr.Mul(decimal.NewFromFloat(atrMultiplier))
	if side == types.OrderSideBuy {
		return entryPrice.Sub(distance)
	}
	return entryPrice.Add(distance)
}
