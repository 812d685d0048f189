package bus

import "context"

// Dispatcher is the non-generic surface of the in-process event bus.
//
// Typed registration stays available through the generic helpers in the
// servicebus package. Consumers that only publish should depend on this.
type Dispatcher interface {
	SubscribeKind(kind Kind, name string, handler HandlerFunc) error
	Publish(ctx context.Context, event Event) error
	Subscribers(kind Kind) int
	Close() error
}
