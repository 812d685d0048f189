package product

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/rs/zerolog"

	cbus "github.com/next-trace/scg-product-service/contract/bus"
)

// DefaultTopicPrefix prefixes outbound notification topics.
const DefaultTopicPrefix = "products"

// DefaultNotifyTimeout bounds a single sink delivery.
const DefaultNotifyTimeout = 2 * time.Second

// Notification is the outbound form of a product event delivered to sinks.
type Notification struct {
	Event      cbus.Kind `json:"event"`
	ProductID  string    `json:"product_id"`
	Product    *Product  `json:"product,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`

	topic string
}

// Topic implements cbus.IntegrationEvent.
func (n Notification) Topic() string { return n.topic }

// NotifierOptions configures NewNotifier.
type NotifierOptions struct {
	TopicPrefix string
	Propagator  cbus.HeaderPropagator
	Logger      *zerolog.Logger
	Now         func() time.Time
	// Timeout bounds each sink call. Zero means DefaultNotifyTimeout.
	Timeout time.Duration
}

// Notifier mirrors applied product writes to sinks as Notifications.
// Sink failures and timeouts are logged and never fail the write.
type Notifier struct {
	sinks   []cbus.EventPublisher
	prefix  string
	prop    cbus.HeaderPropagator
	logger  *zerolog.Logger
	now     func() time.Time
	timeout time.Duration
}

var _ Observer = (*Notifier)(nil)

// NewNotifier returns a Notifier for sinks. Pass it to RegisterHandlers through
// HandlerOptions.Observers so it only hears about writes the store applied.
func NewNotifier(sinks []cbus.EventPublisher, opts NotifierOptions) *Notifier {
	n := &Notifier{
		sinks:   sinks,
		prefix:  opts.TopicPrefix,
		prop:    opts.Propagator,
		logger:  opts.Logger,
		now:     opts.Now,
		timeout: opts.Timeout,
	}
	if n.prefix == "" {
		n.prefix = DefaultTopicPrefix
	}
	if n.prop == nil {
		n.prop = cbus.NopHeaderPropagator{}
	}
	if n.logger == nil {
		nop := zerolog.Nop()
		n.logger = &nop
	}
	if n.now == nil {
		n.now = time.Now
	}
	if n.timeout <= 0 {
		n.timeout = DefaultNotifyTimeout
	}

	return n
}

// Applied delivers e to every sink, each under its own deadline.
func (n *Notifier) Applied(ctx context.Context, e cbus.Event) {
	if n == nil || len(n.sinks) == 0 {
		return
	}

	msg, ok := n.notification(e)
	if !ok {
		return
	}

	headers := map[string]string{"x-event-kind": string(msg.Event)}
	n.prop.Inject(ctx, headers)

	for _, s := range n.sinks {
		n.deliver(ctx, s, msg, cbus.PublishOptions{Key: msg.ProductID, Headers: maps.Clone(headers)})
	}
}

func (n *Notifier) deliver(ctx context.Context, s cbus.EventPublisher, msg Notification, opts cbus.PublishOptions) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := s.PublishIntegration(ctx, msg, opts); err != nil {
		n.logger.Warn().Err(err).
			Str("topic", msg.topic).
			Str("product_id", msg.ProductID).
			Str("sink", fmt.Sprintf("%T", s)).
			Msg("notification not delivered")
	}
}

func (n *Notifier) notification(e cbus.Event) (Notification, bool) {
	msg := Notification{Event: e.Kind(), OccurredAt: n.now().UTC()}

	switch ev := e.(type) {
	case Created:
		p := ev.Product.clone()
		msg.ProductID, msg.Product, msg.topic = p.ID, &p, n.prefix+".created"
	case Updated:
		p := ev.Product.clone()
		msg.ProductID, msg.Product, msg.topic = p.ID, &p, n.prefix+".updated"
	case Deleted:
		msg.ProductID, msg.topic = ev.ID, n.prefix+".deleted"
	default:
		return Notification{}, false
	}

	return msg, true
}
