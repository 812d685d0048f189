package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/next-trace/scg-product-service/internal/config"
)

type cli struct {
	v          *viper.Viper
	configFile string
	envFiles   []string
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "productsvc",
		Short:         "Product catalogue service with an in-process event dispatcher",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			config.LoadEnvFiles(c.envFiles...)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configFile, "config", "", "YAML config file (default ./productsvc.yaml if present)")
	pf.StringSliceVar(&c.envFiles, "env-file", nil, "dotenv files to load (default .env, .env.local)")
	pf.String("log-level", "info", "log level: trace, debug, info, warn, error")
	pf.String("log-format", "auto", "log format: json, console or auto")
	c.bind(root, "log.level", "log-level", true)
	c.bind(root, "log.format", "log-format", true)

	root.AddCommand(c.newServeCmd())

	return root
}

func (c *cli) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Example: `  # Serve on :8080 with defaults
  productsvc serve

  # Strict mutations and a NATS notification feed
  productsvc serve --strict --sinks nats --nats-url nats://localhost:4222`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.v, c.configFile)
			if err != nil {
				return err
			}

			return serve(cmd.Context(), cfg, newLogger(cfg, cmd.ErrOrStderr()), nil)
		},
	}

	f := cmd.Flags()
	f.String("addr", ":8080", "listen address")
	f.Duration("shutdown-timeout", 15*time.Second, "grace period for in-flight requests")
	f.String("failure-policy", "isolate", "subscriber failure policy: isolate or abort")
	f.Bool("strict", false, "answer 404 for updates and deletes of unknown products")
	f.StringSlice("sinks", nil, "notification sinks: memory, nats, kafka, rabbitmq, websocket")
	f.String("topic-prefix", "products", "notification topic prefix")
	f.Duration("notify-timeout", 2*time.Second, "deadline for each notification sink call")
	f.String("nats-url", "", "NATS server URL")
	f.StringSlice("kafka-brokers", nil, "Kafka seed brokers")
	f.String("rabbitmq-url", "", "RabbitMQ AMQP URL")

	c.bind(cmd, "http.addr", "addr", false)
	c.bind(cmd, "shutdown_timeout", "shutdown-timeout", false)
	c.bind(cmd, "bus.failure_policy", "failure-policy", false)
	c.bind(cmd, "bus.strict_mutations", "strict", false)
	c.bind(cmd, "notify.sinks", "sinks", false)
	c.bind(cmd, "notify.topic_prefix", "topic-prefix", false)
	c.bind(cmd, "notify.timeout", "notify-timeout", false)
	c.bind(cmd, "notify.nats.url", "nats-url", false)
	c.bind(cmd, "notify.kafka.brokers", "kafka-brokers", false)
	c.bind(cmd, "notify.rabbitmq.url", "rabbitmq-url", false)

	return cmd
}

// bind makes an explicitly set flag override config file and environment.
func (c *cli) bind(cmd *cobra.Command, key, flag string, persistent bool) {
	fs := cmd.Flags()
	if persistent {
		fs = cmd.PersistentFlags()
	}

	// the flag is registered right above, so Lookup cannot miss
	_ = c.v.BindPFlag(key, fs.Lookup(flag))
}
