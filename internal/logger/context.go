package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	callerKey
)

// WithRequestID stores the request id for RequestID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithCaller stores the authenticated caller label for Caller.
func WithCaller(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, callerKey, label)
}

// RequestID adds request_id to records logged with a request context.
func RequestID(ctx context.Context) (slog.Attr, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	if !ok || id == "" {
		return slog.Attr{}, false
	}
	return slog.String("request_id", id), true
}

// Caller adds caller to records logged with an authenticated context.
func Caller(ctx context.Context) (slog.Attr, bool) {
	label, ok := ctx.Value(callerKey).(string)
	if !ok || label == "" {
		return slog.Attr{}, false
	}
	return slog.String("caller", label), true
}
