package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/next-trace/scg-product-service/adapters/kafka"
	"github.com/next-trace/scg-product-service/adapters/nats"
	"github.com/next-trace/scg-product-service/adapters/rabbitmq"
	"github.com/next-trace/scg-product-service/adapters/websocket"
	cbus "github.com/next-trace/scg-product-service/contract/bus"
	"github.com/next-trace/scg-product-service/internal/config"
	"github.com/next-trace/scg-product-service/internal/httpapi"
	"github.com/next-trace/scg-product-service/internal/logging"
	"github.com/next-trace/scg-product-service/memory"
	"github.com/next-trace/scg-product-service/servicebus"
)

func newLogger(cfg config.Config, out io.Writer) *zerolog.Logger {
	lc := logging.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.Format = cfg.Log.Format
	lc.Output = out
	lc.Fields = map[string]string{"service": "productsvc"}

	l := logging.New(lc)

	return &l
}

// sinkSet is the notification fan-out built from config, plus what it takes to stop it.
type sinkSet struct {
	publishers []cbus.EventPublisher
	hub        *websocket.Hub
	closers    []func()
}

func (s *sinkSet) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildSinks(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*sinkSet, error) {
	set := &sinkSet{}

	for _, name := range cfg.Notify.Sinks {
		switch name {
		case config.SinkMemory:
			// the recorder is attached by memory.WithRecorder
		case config.SinkNATS:
			ad, cleanup, err := nats.NewWithNATS(nats.Config{URL: cfg.Notify.NATS.URL, Name: "productsvc"})
			if err != nil {
				set.close()
				return nil, fmt.Errorf("nats sink: %w", err)
			}

			set.publishers = append(set.publishers, ad)
			set.closers = append(set.closers, cleanup)
		case config.SinkKafka:
			ad, cleanup, err := kafka.NewWithKgo(kafka.Config{
				Brokers:  cfg.Notify.Kafka.Brokers,
				ClientID: cfg.Notify.Kafka.ClientID,
			})
			if err != nil {
				set.close()
				return nil, fmt.Errorf("kafka sink: %w", err)
			}

			set.publishers = append(set.publishers, ad)
			set.closers = append(set.closers, cleanup)
		case config.SinkRabbitMQ:
			ad, cleanup, err := rabbitmq.NewWithAMQPConn(rabbitmq.Config{
				URL:      cfg.Notify.RabbitMQ.URL,
				Exchange: cfg.Notify.RabbitMQ.Exchange,
			})
			if err != nil {
				set.close()
				return nil, fmt.Errorf("rabbitmq sink: %w", err)
			}

			set.publishers = append(set.publishers, ad)
			set.closers = append(set.closers, cleanup)
		case config.SinkWebSocket:
			hubCtx, cancel := context.WithCancel(ctx)
			set.hub = websocket.NewHub(logger)

			go set.hub.Run(hubCtx)

			set.publishers = append(set.publishers, set.hub)
			set.closers = append(set.closers, cancel)
		default:
			set.close()
			return nil, fmt.Errorf("unknown sink %q", name)
		}

		logger.Info().Str("sink", name).Msg("notification sink enabled")
	}

	return set, nil
}

// serve runs the HTTP API until ctx is done, then drains within cfg.ShutdownTimeout.
// When ready is non-nil it receives the bound address once the listener is up.
func serve(ctx context.Context, cfg config.Config, logger *zerolog.Logger, ready func(addr string)) error {
	sinks, err := buildSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sinks.close()

	opts := []memory.Option{
		memory.WithFailurePolicy(cfg.Bus.FailurePolicy),
		memory.WithStrict(cfg.Bus.StrictMutations),
		memory.WithMiddleware(servicebus.Logging(logger)),
		memory.WithSinks(sinks.publishers...),
		memory.WithTopicPrefix(cfg.Notify.TopicPrefix),
		memory.WithNotifyTimeout(cfg.Notify.Timeout),
		memory.WithPropagator(logging.RequestIDPropagator),
	}
	if cfg.Notify.Enabled(config.SinkMemory) {
		opts = append(opts, memory.WithRecorder())
	}

	sys, cleanup, err := memory.New(logger, opts...)
	if err != nil {
		return err
	}
	defer cleanup()

	app := httpapi.NewApp(sys.Service, logger)
	if sinks.hub != nil {
		app.Stream = sinks.hub
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTP.Addr, err)
	}

	logger.Info().
		Str("addr", ln.Addr().String()).
		Stringer("failure_policy", cfg.Bus.FailurePolicy).
		Bool("strict", cfg.Bus.StrictMutations).
		Strs("sinks", cfg.Notify.Sinks).
		Str("config_file", cfg.ConfigFile).
		Msg("server starting")

	errCh := make(chan error, 1)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	if ready != nil {
		ready(ln.Addr().String())
	}

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutdown signal received")
	app.StartShutdown()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")

	return nil
}
