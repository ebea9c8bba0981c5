package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SignalsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signals_generated_total",
		Help: "Total number of trading signals generated",
	}, []string{"symbol", "direction"})

	OrdersFilled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_filled_total",
		Help: "Total number of simulated orders filled",
	}, []string{"symbol", "side"})

	OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of orders rejected, by reason",
	}, []string{"reason"})

	AlertsTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alerts_triggered_total",
		Help: "Total number of triggered stop/take/price alerts",
	}, []string{"kind"})

	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fetch_errors_total",
		Help: "Total number of upstream data fetch failures",
	}, []string{"source"})

	PortfolioEquity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portfolio_equity",
		Help: "Current portfolio equity (cash plus position market value)",
	})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "signal_cycle_duration_seconds",
		Help: "Duration of one full signal generation cycle",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_total",
		Help: "Total number of active WebSocket connections",
	})
)
