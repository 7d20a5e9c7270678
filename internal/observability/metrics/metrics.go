package metrics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string

	Prefix          string
	ExportInterval  time.Duration
	LockWaitBuckets []float64
}

// Metrics exposes clan domain instruments.
type Metrics struct {
	clanOperations  metric.Int64Counter
	rejectedMembers metric.Int64Counter
	lockWait        metric.Float64Histogram
	rateLimited     metric.Int64Counter
}

// HTTPMetrics exposes transport instruments.
type HTTPMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
			zap.String("prefix", prefix(cfg)),
			zap.Duration("interval", interval),
		)
	}

	return provider, nil
}

// New configures the clan domain instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName(cfg))

	clanOperations, err := meter.Int64Counter(instrumentName(cfg, "clan_operations_total"),
		metric.WithDescription("Clan engine operations by outcome"))
	if err != nil {
		return nil, err
	}
	rejectedMembers, err := meter.Int64Counter(instrumentName(cfg, "clan_rejected_members_total"),
		metric.WithDescription("Members left out of a clan create or edit"))
	if err != nil {
		return nil, err
	}
	lockWaitOpts := []metric.Float64HistogramOption{metric.WithUnit("ms")}
	if len(cfg.LockWaitBuckets) > 0 {
		lockWaitOpts = append(lockWaitOpts, metric.WithExplicitBucketBoundaries(cfg.LockWaitBuckets...))
	}
	lockWait, err := meter.Float64Histogram(instrumentName(cfg, "lock_wait_ms"), lockWaitOpts...)
	if err != nil {
		return nil, err
	}

	rateLimited, err := meter.Int64Counter(instrumentName(cfg, "command_rate_limited_total"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		clanOperations:  clanOperations,
		rejectedMembers: rejectedMembers,
		lockWait:        lockWait,
		rateLimited:     rateLimited,
	}, nil
}

// NewHTTPMetrics configures request instruments.
func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	meter := provider.Meter(meterName(cfg))

	requests, err := meter.Int64Counter(instrumentName(cfg, "http_requests_total"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(instrumentName(cfg, "http_request_duration_ms"), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{requests: requests, duration: duration}, nil
}

// RecordClanOperation counts an engine operation by outcome (ok or an error code).
func (m *Metrics) RecordClanOperation(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.clanOperations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRejectedMembers counts members left out of a create or edit.
func (m *Metrics) RecordRejectedMembers(ctx context.Context, operation, reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rejectedMembers.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordLockWait observes how long an operation waited for its locks.
func (m *Metrics) RecordLockWait(ctx context.Context, operation string, waited time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("operation", strings.TrimSpace(operation)))
	m.lockWait.Record(ctx, float64(waited.Microseconds())/1000, metric.WithAttributes(attrs...))
}

// RecordRateLimited counts command invocations refused by the throttle.
func (m *Metrics) RecordRateLimited(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("operation", strings.TrimSpace(operation)))
	m.rateLimited.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		attrs := FilterAttributes(
			attribute.String("endpoint", route),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)
		ctx := c.Request.Context()
		m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
		m.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, metric.WithAttributes(attrs...))
	}
}

func meterName(cfg Config) string {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "clanbot"
	}
	return name
}

func prefix(cfg Config) string {
	p := strings.Trim(strings.TrimSpace(cfg.Prefix), "_")
	if p == "" {
		p = "clanbot"
	}
	return p
}

func instrumentName(cfg Config, name string) string {
	return prefix(cfg) + "_" + name
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"operation":   {},
	"outcome":     {},
	"reason":      {},
	"endpoint":    {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
