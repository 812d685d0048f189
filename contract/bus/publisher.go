package bus

import "context"

// EventPublisher abstracts publishing integration events to a sink.
// Adapters map it to NATS, Kafka, RabbitMQ, WebSocket clients or memory.
type EventPublisher interface {
	PublishIntegration(ctx context.Context, evt IntegrationEvent, opts PublishOptions) error
}
