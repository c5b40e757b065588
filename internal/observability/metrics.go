// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ledger metrics
	PoolsCreated   prometheus.Counter
	PurchasesTotal prometheus.Counter
	ClaimsTotal    prometheus.Counter
	TokensSold     prometheus.Counter
	TokensClaimed  prometheus.Counter

	// Supply metrics
	SupplyUtilization *prometheus.GaugeVec

	// Error metrics
	OperationErrors *prometheus.CounterVec

	// Latency metrics
	OperationLatency *prometheus.HistogramVec

	// Audit metrics
	AuditEventsEmitted *prometheus.CounterVec
	AuditSinkErrors    prometheus.Counter

	// Settlement metrics
	SettlementErrors prometheus.Counter

	// Stream metrics
	StreamSubscribers prometheus.Gauge
	StreamDropped     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_ido_ledger"
	}

	return &Metrics{
		// Ledger metrics
		PoolsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "pools_created_total",
			Help:      "Total number of pools created",
		}),
		PurchasesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "purchases_total",
			Help:      "Total number of successful purchases",
		}),
		ClaimsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "claims_total",
			Help:      "Total number of successful claims",
		}),
		TokensSold: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "tokens_sold_total",
			Help:      "Total sale token base units sold across all pools",
		}),
		TokensClaimed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "tokens_claimed_total",
			Help:      "Total sale token base units released to buyers",
		}),

		// Supply metrics
		SupplyUtilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "supply_utilization",
			Help:      "Fraction of pool supply sold, per pool",
		}, []string{"pool_id"}),

		// Error metrics
		OperationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_errors_total",
			Help:      "Total number of rejected operations by operation and error kind",
		}, []string{"operation", "kind"}),

		// Latency metrics
		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_latency_seconds",
			Help:      "Ledger operation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		// Audit metrics
		AuditEventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "events_emitted_total",
			Help:      "Total number of audit events emitted by type",
		}, []string{"event_type"}),
		AuditSinkErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "sink_errors_total",
			Help:      "Total number of audit sink write failures",
		}),

		// Settlement metrics
		SettlementErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "settlement_errors_total",
			Help:      "Total number of transfer settlements that failed after commit",
		}),

		// Stream metrics
		StreamSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Current number of websocket stream subscribers",
		}),
		StreamDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_dropped_total",
			Help:      "Total number of stream messages dropped on slow subscribers",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
