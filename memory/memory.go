// Package memory assembles the in-process product system: store, dispatcher,
// storage handlers and the notification fan-out.
package memory

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/next-trace/scg-product-service/adapters/inmemory"
	cbus "github.com/next-trace/scg-product-service/contract/bus"
	"github.com/next-trace/scg-product-service/product"
	"github.com/next-trace/scg-product-service/servicebus"
)

// System is a wired product service. Recorder is nil unless WithRecorder was given.
type System struct {
	Bus      *servicebus.Bus
	Store    *product.Store
	Service  *product.Service
	Recorder *inmemory.Publisher
}

type settings struct {
	busOpts  []servicebus.Option
	handlers product.HandlerOptions
	notifier product.NotifierOptions
	sinks    []cbus.EventPublisher
	recorder bool
}

// Option configures New.
type Option func(*settings)

// WithFailurePolicy sets the dispatcher failure policy.
func WithFailurePolicy(p servicebus.FailurePolicy) Option {
	return func(s *settings) { s.busOpts = append(s.busOpts, servicebus.WithFailurePolicy(p)) }
}

// WithMiddleware adds dispatcher middleware.
func WithMiddleware(mw ...servicebus.Middleware) Option {
	return func(s *settings) { s.busOpts = append(s.busOpts, servicebus.WithMiddleware(mw...)) }
}

// WithStrict makes updates and deletes of absent products fail with ErrNotFound.
func WithStrict(strict bool) Option {
	return func(s *settings) { s.handlers.Strict = strict }
}

// WithSinks adds notification sinks.
func WithSinks(sinks ...cbus.EventPublisher) Option {
	return func(s *settings) { s.sinks = append(s.sinks, sinks...) }
}

// WithRecorder attaches an in-memory sink exposed as System.Recorder.
func WithRecorder() Option {
	return func(s *settings) { s.recorder = true }
}

// WithTopicPrefix overrides the notification topic prefix.
func WithTopicPrefix(prefix string) Option {
	return func(s *settings) { s.notifier.TopicPrefix = prefix }
}

// WithPropagator sets the header propagator used for notifications.
func WithPropagator(p cbus.HeaderPropagator) Option {
	return func(s *settings) { s.notifier.Propagator = p }
}

// WithNotifyTimeout bounds each sink delivery.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *settings) { s.notifier.Timeout = d }
}

// New wires a System and returns it with a cleanup function that closes the bus.
func New(logger *zerolog.Logger, opts ...Option) (*System, func(), error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	var st settings
	for _, o := range opts {
		o(&st)
	}

	sys := &System{
		Bus:   servicebus.New(logger, st.busOpts...),
		Store: product.NewStore(),
	}

	if st.recorder {
		sys.Recorder = inmemory.New()
		st.sinks = append(st.sinks, sys.Recorder)
	}

	if len(st.sinks) > 0 {
		st.notifier.Logger = logger
		st.handlers.Observers = append(st.handlers.Observers, product.NewNotifier(st.sinks, st.notifier))
	}

	if err := product.RegisterHandlers(sys.Bus, sys.Store, logger, st.handlers); err != nil {
		return nil, nil, fmt.Errorf("memory: %w", err)
	}

	sys.Service = product.NewService(sys.Bus, sys.Store)
	cleanup := func() { _ = sys.Bus.Close() }

	return sys, cleanup, nil
}
