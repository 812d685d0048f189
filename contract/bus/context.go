package bus

import "context"

// HeaderPropagator copies request-scoped values from ctx into outbound headers.
// Implementations mutate headers in place and must be safe for concurrent use.
type HeaderPropagator interface {
	Inject(ctx context.Context, headers map[string]string)
}

// NopHeaderPropagator leaves headers untouched.
type NopHeaderPropagator struct{}

func (NopHeaderPropagator) Inject(context.Context, map[string]string) {}

// PropagatorFunc adapts a plain function to HeaderPropagator.
type PropagatorFunc func(ctx context.Context, headers map[string]string)

func (f PropagatorFunc) Inject(ctx context.Context, headers map[string]string) { f(ctx, headers) }
