package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/clanbot/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("METRICS_PREFIX", "")
	t.Setenv("OTEL_METRIC_EXPORT_INTERVAL_MS", "")
	t.Setenv("METRICS_LOCK_WAIT_BUCKETS_MS", "")

	cfg := LoadConfig(config.Config{AppName: " ", Environment: "production", AppVersion: "1.2.3"})

	assert.Equal(t, "clanbot", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.OtelEnabled)
	assert.False(t, cfg.Debug())
	assert.Equal(t, "clanbot", cfg.MetricPrefix)
	assert.Equal(t, 10*time.Second, cfg.MetricExportInterval)
	assert.Equal(t, defaultLockWaitBucketsMS, cfg.LockWaitBucketsMS)
}

func TestLoadConfigMetricSettings(t *testing.T) {
	t.Setenv("METRICS_PREFIX", " Guildbot_ ")
	t.Setenv("OTEL_METRIC_EXPORT_INTERVAL_MS", "2500")
	t.Setenv("METRICS_LOCK_WAIT_BUCKETS_MS", "1, 10,100")

	cfg := LoadConfig(config.Config{AppName: "clanbot"})
	assert.Equal(t, "guildbot", cfg.MetricPrefix)
	assert.Equal(t, 2500*time.Millisecond, cfg.MetricExportInterval)
	assert.Equal(t, []float64{1, 10, 100}, cfg.LockWaitBucketsMS)

	t.Setenv("METRICS_LOCK_WAIT_BUCKETS_MS", "10,5")
	assert.Equal(t, defaultLockWaitBucketsMS, LoadConfig(config.Config{}).LockWaitBucketsMS)

	t.Setenv("METRICS_LOCK_WAIT_BUCKETS_MS", "1,x")
	assert.Equal(t, defaultLockWaitBucketsMS, LoadConfig(config.Config{}).LockWaitBucketsMS)
}

func TestDebugInDevelopment(t *testing.T) {
	cfg := Config{Environment: "local", LogLevel: "warn"}
	assert.True(t, cfg.Debug())

	cfg = Config{Environment: "production", LogLevel: "DEBUG"}
	assert.True(t, cfg.Debug())
}
