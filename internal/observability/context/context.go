// Package context carries request-scoped identifiers used by logging and tracing.
package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type invocationKey struct{}

type invocation struct {
	serverRef string
	callerRef string
	operation string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDKey{}).(string); ok {
		return value
	}
	return ""
}

// WithInvocation records who invoked which operation in which chat server.
func WithInvocation(ctx context.Context, operation, serverRef, callerRef string) context.Context {
	return context.WithValue(ctx, invocationKey{}, invocation{
		serverRef: strings.TrimSpace(serverRef),
		callerRef: strings.TrimSpace(callerRef),
		operation: strings.TrimSpace(operation),
	})
}

// InvocationFromContext returns operation, server and caller references.
func InvocationFromContext(ctx context.Context) (string, string, string) {
	if ctx == nil {
		return "", "", ""
	}
	inv, ok := ctx.Value(invocationKey{}).(invocation)
	if !ok {
		return "", "", ""
	}
	return inv.operation, inv.serverRef, inv.callerRef
}
