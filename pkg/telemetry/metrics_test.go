package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveQueryCountsByStatus(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveQuery("select", "clans", "ok", time.Millisecond)
	m.ObserveQuery("select", "clans", "ok", time.Millisecond)
	m.ObserveQuery("insert", "", "error", time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.queries.WithLabelValues("select", "clans", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.queries.WithLabelValues("insert", "unknown", "error")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveQuery("select", "clans", "ok", time.Millisecond)
	m.ObserveTransaction("commit")
}
