package logger

import (
	"context"
	"log/slog"
)

// Request middleware stores a logger carrying the request fields on the
// context. Handlers and services read it back with From.

type contextKey struct{}

// With returns ctx carrying the context logger extended with fields.
func With(ctx context.Context, fields ...any) context.Context {
	return context.WithValue(ctx, contextKey{}, From(ctx).With(fields...))
}

// WithTrace tags every later log line of the request with its trace ID.
func WithTrace(ctx context.Context, traceID string) context.Context {
	return With(ctx, "trace_id", traceID)
}

// WithActor tags the request logger with the authenticated user.
func WithActor(ctx context.Context, email, role string) context.Context {
	return With(ctx, "actor", email, "role", role)
}

// From falls back to the process logger outside a request.
func From(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return LoggerWrapper()
	}
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return LoggerWrapper()
}
