// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tick-backtest/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Run metrics
	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	TicksFed       *prometheus.CounterVec
	StopsTriggered *prometheus.CounterVec

	// Result metrics
	OrdersTotal  *prometheus.CounterVec
	TradesClosed *prometheus.CounterVec
	TradePnLRel  *prometheus.HistogramVec

	// Ingestion metrics
	TicksIngested *prometheus.CounterVec

	// Database metrics
	DBWriteDuration *prometheus.HistogramVec
	DBWriteErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "tick_backtest"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Run metrics
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of backtest runs by strategy and status",
		}, []string{"strategy", "status"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"strategy"}),
		TicksFed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "ticks_fed_total",
			Help:      "Total number of ticks fed to processors",
		}, []string{"strategy"}),
		StopsTriggered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "stops_triggered_total",
			Help:      "Total number of symbols whose trading was stopped, by reason",
		}, []string{"reason"}),

		// Result metrics
		OrdersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "total",
			Help:      "Total number of orders by final client state",
		}, []string{"strategy", "state"}),
		TradesClosed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "closed_total",
			Help:      "Total number of closed trades by side",
		}, []string{"strategy", "side"}),
		TradePnLRel: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "pnl_relative",
			Help:      "Relative PnL of closed trades",
			Buckets:   []float64{-0.1, -0.05, -0.02, -0.01, -0.005, 0, 0.005, 0.01, 0.02, 0.05, 0.1},
		}, []string{"strategy"}),

		// Ingestion metrics
		TicksIngested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "ticks_total",
			Help:      "Total number of ticks written to the tick store",
		}, []string{"symbol"}),

		// Database metrics
		DBWriteDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "write_duration_seconds",
			Help:      "Store write duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store"}),
		DBWriteErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "write_errors_total",
			Help:      "Total number of store write errors",
		}, []string{"store"}),

		// Health metrics
		LastSuccessfulRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful backtest run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(strategy, status string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(strategy, status).Inc()
	m.RunDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	if status == StatusOK {
		m.LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordResult records the orders, trades and stop state of one symbol.
func (m *Metrics) RecordResult(strategy string, r domain.Result) {
	for _, o := range r.Orders {
		m.OrdersTotal.WithLabelValues(strategy, string(o.State)).Inc()
	}
	for _, t := range r.Trades {
		if !t.IsClosed() {
			continue
		}
		m.TradesClosed.WithLabelValues(strategy, string(t.Side)).Inc()
		m.TradePnLRel.WithLabelValues(strategy).Observe(t.PnLRel)
	}
	if r.StopReason != "" {
		m.StopsTriggered.WithLabelValues(r.StopReason).Inc()
	}
}

// RecordStoreWrite records one store write.
func (m *Metrics) RecordStoreWrite(store string, duration time.Duration, err error) {
	m.DBWriteDuration.WithLabelValues(store).Observe(duration.Seconds())
	if err != nil {
		m.DBWriteErrors.WithLabelValues(store).Inc()
	}
}

// Run statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)
