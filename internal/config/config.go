// Package config loads service settings from defaults, an optional YAML file,
// .env files and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/next-trace/scg-product-service/servicebus"
)

// Sink names accepted in notify.sinks.
const (
	SinkMemory    = "memory"
	SinkNATS      = "nats"
	SinkKafka     = "kafka"
	SinkRabbitMQ  = "rabbitmq"
	SinkWebSocket = "websocket"
)

var knownSinks = []string{SinkMemory, SinkNATS, SinkKafka, SinkRabbitMQ, SinkWebSocket}

// Config is the fully resolved service configuration.
type Config struct {
	HTTP            HTTP
	ShutdownTimeout time.Duration
	Log             Log
	Bus             Bus
	Notify          Notify

	// ConfigFile is the file viper actually read, if any.
	ConfigFile string
}

type HTTP struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

type Log struct {
	Level  string
	Format string
}

type Bus struct {
	FailurePolicy   servicebus.FailurePolicy
	StrictMutations bool
}

type Notify struct {
	Sinks       []string
	TopicPrefix string
	// Timeout bounds each sink delivery.
	Timeout  time.Duration
	NATS     NATS
	Kafka    Kafka
	RabbitMQ RabbitMQ
}

type NATS struct {
	URL string
}

type Kafka struct {
	Brokers  []string
	ClientID string
}

type RabbitMQ struct {
	URL      string
	Exchange string
}

// Enabled reports whether sink is listed in notify.sinks.
func (n Notify) Enabled(sink string) bool { return slices.Contains(n.Sinks, sink) }

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_header_timeout", 5*time.Second)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("shutdown_timeout", 15*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("bus.failure_policy", "isolate")
	v.SetDefault("bus.strict_mutations", false)
	v.SetDefault("notify.sinks", []string{})
	v.SetDefault("notify.topic_prefix", "products")
	v.SetDefault("notify.timeout", 2*time.Second)
	v.SetDefault("notify.nats.url", "")
	v.SetDefault("notify.kafka.brokers", []string{})
	v.SetDefault("notify.kafka.client_id", "scg-product-service")
	v.SetDefault("notify.rabbitmq.url", "")
	v.SetDefault("notify.rabbitmq.exchange", "products")
}

// LoadEnvFiles loads .env then .env.local into the process environment.
// Variables already set are never overridden; missing files are ignored.
func LoadEnvFiles(files ...string) {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}

	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// Load resolves Config from v. configFile, when set, must exist; otherwise
// ./productsvc.yaml is read if present. Keys map to env vars by upper-casing
// and replacing dots, so http.addr is HTTP_ADDR.
func Load(v *viper.Viper, configFile string) (Config, error) {
	SetDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("productsvc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	policy, err := servicebus.ParseFailurePolicy(strings.ToLower(v.GetString("bus.failure_policy")))
	if err != nil {
		return Config{}, fmt.Errorf("bus.failure_policy: %w", err)
	}

	cfg := Config{
		HTTP: HTTP{
			Addr:              v.GetString("http.addr"),
			ReadHeaderTimeout: v.GetDuration("http.read_header_timeout"),
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
		},
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Bus: Bus{
			FailurePolicy:   policy,
			StrictMutations: v.GetBool("bus.strict_mutations"),
		},
		Notify: Notify{
			Sinks:       list(v.GetStringSlice("notify.sinks"), true),
			TopicPrefix: v.GetString("notify.topic_prefix"),
			Timeout:     v.GetDuration("notify.timeout"),
			NATS:        NATS{URL: v.GetString("notify.nats.url")},
			Kafka: Kafka{
				Brokers:  list(v.GetStringSlice("notify.kafka.brokers"), false),
				ClientID: v.GetString("notify.kafka.client_id"),
			},
			RabbitMQ: RabbitMQ{
				URL:      v.GetString("notify.rabbitmq.url"),
				Exchange: v.GetString("notify.rabbitmq.exchange"),
			},
		},
		ConfigFile: v.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is empty"))
	}

	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}

	if c.Notify.Timeout <= 0 {
		errs = append(errs, errors.New("notify.timeout must be positive"))
	}

	for _, s := range c.Notify.Sinks {
		if !slices.Contains(knownSinks, s) {
			errs = append(errs, fmt.Errorf("notify.sinks: unknown sink %q", s))
		}
	}

	if c.Notify.Enabled(SinkNATS) && c.Notify.NATS.URL == "" {
		errs = append(errs, errors.New("notify.nats.url is required for the nats sink"))
	}

	if c.Notify.Enabled(SinkKafka) && len(c.Notify.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("notify.kafka.brokers is required for the kafka sink"))
	}

	if c.Notify.Enabled(SinkRabbitMQ) && c.Notify.RabbitMQ.URL == "" {
		errs = append(errs, errors.New("notify.rabbitmq.url is required for the rabbitmq sink"))
	}

	return errors.Join(errs...)
}

// list flattens comma separated entries, since env vars arrive as one string.
func list(in []string, lower bool) []string {
	out := make([]string, 0, len(in))

	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if lower {
				part = strings.ToLower(part)
			}

			if part != "" && !slices.Contains(out, part) {
				out = append(out, part)
			}
		}
	}

	return out
}
