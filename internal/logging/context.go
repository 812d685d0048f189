package logging

import (
	"context"

	"github.com/rs/zerolog"

	cbus "github.com/next-trace/scg-product-service/contract/bus"
)

// RequestIDHeader is the HTTP and notification header carrying the request id.
const RequestIDHeader = "X-Request-Id"

type contextKey int

const requestIDKey contextKey = iota

// WithLogger attaches logger to ctx where zerolog.Ctx can find it.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		return ctx
	}

	return logger.WithContext(ctx)
}

// FromContext returns the logger attached to ctx, or fallback when there is none.
func FromContext(ctx context.Context, fallback *zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}

	if fallback == nil {
		return Nop()
	}

	return fallback
}

// WithRequestID stores id on ctx and tags the context logger with it.
func WithRequestID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, id)

	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return ctx
	}

	tagged := l.With().Str("request_id", id).Logger()

	return tagged.WithContext(ctx)
}

// RequestID extracts the request id from ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestIDPropagator copies the request id into outbound notification headers.
var RequestIDPropagator cbus.HeaderPropagator = cbus.PropagatorFunc(func(ctx context.Context, h map[string]string) {
	if id := RequestID(ctx); id != "" {
		h["x-request-id"] = id
	}
})
