// Package fills bridges fill acknowledgements from the execution
// layer to the engine's stateful constraints. The risk core never
// performs I/O itself; this listener adapts a NATS fill stream to the
// RecordFill / RecordTrade entry points.
package fills

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/liqtrade/riskengine/internal/risk"
	"github.com/liqtrade/riskengine/pkg/types"
)

// DefaultSubject is the wildcard subject fills arrive on.
const DefaultSubject = "fills.>"

// FillEvent is the wire format for one confirmed fill.
type FillEvent struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Side      types.Side      `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	IsAdd     bool            `json:"is_add"`
}

// Listener consumes fill events and feeds the stateful constraints.
// Fills must be routed to the same goroutine that calls the engine's
// ProcessSignals for the constraints sharing that engine; the listener
// itself does no locking.
type Listener struct {
	conn       *nats.Conn
	sub        *nats.Subscription
	logger     *logrus.Entry
	pyramiding *risk.PyramidingConstraint
	frequency  *risk.FrequencyCapConstraint
}

// NewListener connects to NATS and prepares a listener for the given
// constraints. Either constraint may be nil.
func NewListener(url string, pyramiding *risk.PyramidingConstraint, frequency *risk.FrequencyCapConstraint) (*Listener, error) {
	logger := logrus.WithField("component", "fills-listener")

	opts := []nats.Option{
		nats.Name("riskengine-fills"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Errorf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Listener{
		conn:       conn,
		logger:     logger,
		pyramiding: pyramiding,
		frequency:  frequency,
	}, nil
}

// Start subscribes to the subject and begins dispatching fills.
func (l *Listener) Start(subject string) error {
	if subject == "" {
		subject = DefaultSubject
	}

	sub, err := l.conn.Subscribe(subject, func(msg *nats.Msg) {
		var event FillEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			l.logger.Errorf("failed to decode fill event: %v", err)
			return
		}
		l.Dispatch(event)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	l.sub = sub
	l.logger.Infof("listening for fills on %s", subject)
	return nil
}

// Dispatch routes one fill event to the registered constraints.
func (l *Listener) Dispatch(event FillEvent) {
	if event.Symbol == "" || !event.Quantity.IsPositive() {
		l.logger.Warnf("dropping malformed fill event: symbol=%q quantity=%s", event.Symbol, event.Quantity)
		return
	}

	if l.pyramiding != nil {
		l.pyramiding.RecordFill(event.Symbol, event.Quantity, event.IsAdd)
	}
	if l.frequency != nil {
		l.frequency.RecordTrade(event.Symbol, event.Timestamp, event.Side, event.Quantity)
	}

	l.logger.WithFields(logrus.Fields{
		"symbol":   event.Symbol,
		"side":     event.Side,
		"quantity": event.Quantity.String(),
		"is_add":   event.IsAdd,
	}).Debug("fill recorded")
}

// Close unsubscribes and drains the connection.
func (l *Listener) Close() {
	if l.sub != nil {
		_ = l.sub.Unsubscribe()
	}
	if l.conn != nil {
		l.conn.Close()
	}
}
