package servicebus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	cbus "github.com/next-trace/scg-product-service/contract/bus"
	berr "github.com/next-trace/scg-product-service/contract/errors"
)

// FailurePolicy decides what Publish does when a subscriber fails.
type FailurePolicy int

const (
	// FailureIsolate logs each failing subscriber and keeps dispatching.
	// Failures are aggregated with errors.Join and returned after the last subscriber ran.
	FailureIsolate FailurePolicy = iota
	// FailureAbort stops at the first failing subscriber and returns its error.
	FailureAbort
)

func (p FailurePolicy) String() string {
	switch p {
	case FailureIsolate:
		return "isolate"
	case FailureAbort:
		return "abort"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// ParseFailurePolicy maps "isolate" and "abort" to their policy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "isolate":
		return FailureIsolate, nil
	case "abort":
		return FailureAbort, nil
	default:
		return FailureIsolate, fmt.Errorf("unknown failure policy %q", s)
	}
}

// Middleware wraps a subscriber invocation. Middlewares run in registration order.
type Middleware func(next cbus.HandlerFunc) cbus.HandlerFunc

// Option configures a Bus instance.
type Option func(*Bus)

// WithFailurePolicy selects how subscriber failures are handled.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(b *Bus) { b.policy = p }
}

// WithMiddleware registers middleware applied to every subscriber.
func WithMiddleware(mw ...Middleware) Option {
	return func(b *Bus) { b.mw = append(b.mw, mw...) }
}

// Bus is a synchronous in-process event dispatcher.
// Subscribers are keyed by event kind and invoked in registration order in the
// publisher's goroutine. Bus is safe for concurrent use and holds no global state.
type Bus struct {
	mu     sync.RWMutex
	subs   map[cbus.Kind][]subscription
	closed bool

	mw     []Middleware
	policy FailurePolicy
	logger *zerolog.Logger
}

type subscription struct {
	name string
	call cbus.HandlerFunc
}

var _ cbus.Dispatcher = (*Bus)(nil)

// New constructs a Bus. A nil logger discards dispatcher logs.
func New(logger *zerolog.Logger, opts ...Option) *Bus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	b := &Bus{
		subs:   make(map[cbus.Kind][]subscription),
		logger: logger,
	}
	for _, o := range opts {
		o(b)
	}

	return b
}

// Policy reports the configured failure policy.
func (b *Bus) Policy() FailurePolicy { return b.policy }

// SubscribeKind registers an untyped handler for kind. The same handler may be
// registered more than once; every registration is invoked.
func (b *Bus) SubscribeKind(kind cbus.Kind, name string, handler cbus.HandlerFunc) error {
	if handler == nil {
		return fmt.Errorf("subscribe %s: nil handler", kind)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("subscribe %s: %w", kind, berr.ErrBusClosed)
	}

	if name == "" {
		name = fmt.Sprintf("%s#%d", kind, len(b.subs[kind]))
	}

	b.subs[kind] = append(b.subs[kind], subscription{name: name, call: handler})

	b.logger.Debug().
		Str("kind", string(kind)).
		Str("subscriber", name).
		Int("position", len(b.subs[kind])).
		Msg("subscriber registered")

	return nil
}

// Subscribe registers h for events of type E. The kind is taken from E's zero value.
func Subscribe[E cbus.Event](b *Bus, h cbus.EventHandler[E]) error {
	if h == nil {
		var zero E
		return fmt.Errorf("subscribe %s: nil handler", zero.Kind())
	}

	return SubscribeFunc[E](b, handlerName(h), h.Handle)
}

// SubscribeFunc registers fn for events of type E under the given name.
func SubscribeFunc[E cbus.Event](b *Bus, name string, fn func(ctx context.Context, e E) error) error {
	var zero E

	kind := zero.Kind()
	if fn == nil {
		return fmt.Errorf("subscribe %s: nil handler", kind)
	}

	return b.SubscribeKind(kind, name, func(ctx context.Context, v cbus.Event) error {
		e, ok := v.(E)
		if !ok {
			return fmt.Errorf("publish %s to %T: %w", kind, zero, berr.ErrHandlerTypeMismatch)
		}

		return fn(ctx, e)
	})
}

// Subscribers returns the number of registrations for kind.
func (b *Bus) Subscribers(kind cbus.Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs[kind])
}

// Publish delivers e to every subscriber registered for e.Kind(), in order.
// With no subscribers it is a no-op. It returns once every subscriber has run
// (or, under FailureAbort, once one has failed).
func (b *Bus) Publish(ctx context.Context, e cbus.Event) error {
	if e == nil {
		return fmt.Errorf("publish: nil event: %w", berr.ErrHandlerTypeMismatch)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	kind := e.Kind()

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("publish %s: %w", kind, berr.ErrBusClosed)
	}
	// snapshot so subscribers may publish or subscribe without deadlocking
	entries := append([]subscription(nil), b.subs[kind]...)
	b.mu.RUnlock()

	if len(entries) == 0 {
		return nil
	}

	var errs []error

	for _, sub := range entries {
		err := b.invoke(ctx, sub, e)
		if err == nil {
			continue
		}

		err = fmt.Errorf("%w: %s on %s: %w", berr.ErrSubscriberFailed, sub.name, kind, err)

		if b.policy == FailureAbort {
			b.logger.Error().Err(err).
				Str("kind", string(kind)).
				Str("subscriber", sub.name).
				Msg("subscriber failed, dispatch aborted")

			return err
		}

		b.logger.Warn().Err(err).
			Str("kind", string(kind)).
			Str("subscriber", sub.name).
			Msg("subscriber failed, dispatch continues")

		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (b *Bus) invoke(ctx context.Context, sub subscription, e cbus.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	call := sub.call
	for i := len(b.mw) - 1; i >= 0; i-- {
		call = b.mw[i](call)
	}

	return call(ctx, e)
}

// Close rejects further publishes and subscriptions. It is idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		b.logger.Debug().Msg("dispatcher closed")
	}

	return nil
}

// handlerName resolves a readable subscriber name from the handler's type.
func handlerName(h any) string { return fmt.Sprintf("%T", h) }
