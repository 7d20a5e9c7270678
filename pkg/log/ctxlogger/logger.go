package ctxlogger

import (
	"context"
	"sync/atomic"

	obscontext "github.com/smallbiznis/clanbot/internal/observability/context"
	"github.com/smallbiznis/clanbot/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var serviceName atomic.Pointer[string]

// SetServiceName configures the service name added to every log entry.
func SetServiceName(name string) {
	serviceName.Store(&name)
}

// FromContext returns a logger enriched with tracing and correlation metadata from context.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext enriches the provided logger using metadata in the context.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil {
		return base
	}

	fields := make([]zap.Field, 0, 8)
	fields = append(fields, ExtractCorrelation(ctx))
	fields = append(fields, ExtractTrace(ctx)...)
	fields = append(fields, ExtractInvocation(ctx)...)

	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}

	if namePtr := serviceName.Load(); namePtr != nil {
		fields = append(fields, zap.String("service_name", *namePtr))
	}

	return base.With(fields...)
}

// ExtractCorrelation pulls the correlation ID from the context.
func ExtractCorrelation(ctx context.Context) zap.Field {
	cid := correlation.ExtractCorrelationID(ctx)
	if cid == "" {
		_, cid = correlation.EnsureCorrelationID(ctx)
	}
	return zap.String("correlation_id", cid)
}

// ExtractTrace pulls tracing identifiers from the context span.
func ExtractTrace(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	sc := span.SpanContext()
	if !sc.IsValid() {
		return []zap.Field{zap.String("trace_id", ""), zap.String("span_id", "")}
	}

	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

// ExtractInvocation pulls the chat command invocation from the context.
func ExtractInvocation(ctx context.Context) []zap.Field {
	operation, serverRef, callerRef := obscontext.InvocationFromContext(ctx)
	if operation == "" && serverRef == "" && callerRef == "" {
		return nil
	}
	return []zap.Field{
		zap.String("operation", operation),
		zap.String("server_ref", serverRef),
		zap.String("caller_ref", callerRef),
	}
}
