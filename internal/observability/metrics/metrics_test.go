package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("operation", "clan.create"),
		attribute.String("caller_ref", "1234"),
		attribute.String("outcome", "ok"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		assert.NotEqual(t, attribute.Key("caller_ref"), attr.Key)
	}
}

func TestMetricsRecordOnNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordClanOperation(ctx, "clan.create", "ok")
	m.RecordRejectedMembers(ctx, "clan.create", "already_in_clan", 2)
	m.RecordLockWait(ctx, "clan.edit", 3*time.Millisecond)
	m.RecordRateLimited(ctx, "clan.create")

	var nilMetrics *Metrics
	nilMetrics.RecordClanOperation(ctx, "clan.create", "ok")
}

func TestInstrumentsUsePrefixAndLockWaitBuckets(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := New(Config{Prefix: "guildbot_", LockWaitBuckets: []float64{5, 50}}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordClanOperation(ctx, "clan.create", "ok")
	m.RecordLockWait(ctx, "clan.edit", 20*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, item := range rm.ScopeMetrics[0].Metrics {
		byName[item.Name] = item
	}
	require.Contains(t, byName, "guildbot_clan_operations_total")
	require.Contains(t, byName, "guildbot_lock_wait_ms")

	hist, ok := byName["guildbot_lock_wait_ms"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, []float64{5, 50}, hist.DataPoints[0].Bounds)
	assert.Equal(t, []uint64{0, 1, 0}, hist.DataPoints[0].BucketCounts)
}
