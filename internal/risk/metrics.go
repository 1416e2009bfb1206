package risk

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics updated by the engine on each batch. Registered
// in init() and served by whatever /metrics handler the embedding
// process runs; the engine itself exposes no HTTP.
var (
	mtxSignals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "risk_signals_total",
			Help: "Signals received for processing",
		},
	)

	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_orders_total",
			Help: "Order intents emitted after constraints",
		},
		[]string{"side"},
	)

	mtxRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_rejections_total",
			Help: "Orders rejected or scaled, by constraint",
		},
		[]string{"constraint"},
	)

	mtxHalts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_halts_total",
			Help: "Batches processed while halted, by kill-switch",
		},
		[]string{"reason"},
	)

	mtxEquity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "risk_equity",
			Help: "Portfolio equity seen on the last batch",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxSignals, mtxOrders, mtxRejections, mtxHalts, mtxEquity)
}
