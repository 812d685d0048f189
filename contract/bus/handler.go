package bus

import "context"

// EventHandler handles events of type E.
// Implementations are invoked synchronously in the publisher's goroutine.
type EventHandler[E Event] interface {
	Handle(ctx context.Context, e E) error
}

// HandlerFunc is the untyped form every subscription is stored as.
type HandlerFunc func(ctx context.Context, e Event) error

// Handle calls f(ctx, e).
func (f HandlerFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }
