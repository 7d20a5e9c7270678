package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus primitives for the storage gateway.
type Metrics struct {
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	transactions  *prometheus.CounterVec
}

// NewMetrics registers gateway metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	queries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clanbot_gateway_queries_total",
		Help: "Counts storage gateway operations by op, table, and status.",
	}, []string{"op", "table", "status"})

	queryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clanbot_gateway_query_duration_seconds",
		Help:    "Storage gateway operation latency per op/table.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "table"})

	transactions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clanbot_gateway_transactions_total",
		Help: "Counts gateway transactions by status.",
	}, []string{"status"})

	if reg != nil {
		reg.MustRegister(queries, queryDuration, transactions)
	}

	return &Metrics{
		queries:       queries,
		queryDuration: queryDuration,
		transactions:  transactions,
	}
}

// ObserveQuery records a gateway operation and its latency.
func (m *Metrics) ObserveQuery(op, table, status string, duration time.Duration) {
	if m == nil {
		return
	}
	opLabel := sanitizeLabel(op)
	tableLabel := sanitizeLabel(table)
	m.queries.WithLabelValues(opLabel, tableLabel, sanitizeLabel(status)).Inc()
	m.queryDuration.WithLabelValues(opLabel, tableLabel).Observe(duration.Seconds())
}

// ObserveTransaction records a committed or rolled back transaction.
func (m *Metrics) ObserveTransaction(status string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(sanitizeLabel(status)).Inc()
}

func sanitizeLabel(val string) string {
	if val == "" {
		return "unknown"
	}
	return val
}
