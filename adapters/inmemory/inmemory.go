// Package inmemory provides a recording notification sink for tests, examples
// and single-process deployments.
package inmemory

import (
	"context"
	"maps"
	"sync"

	cbus "github.com/next-trace/scg-product-service/contract/bus"
)

// Record is a single delivered integration event as seen by the sink.
type Record struct {
	Topic   string
	Key     string
	Event   cbus.IntegrationEvent
	Headers map[string]string
}

// Publisher is a thread-safe in-memory implementation of cbus.EventPublisher.
type Publisher struct {
	mu      sync.Mutex
	records []Record
	err     error
}

var _ cbus.EventPublisher = (*Publisher)(nil)

// New creates a new in-memory publisher.
func New() *Publisher { return &Publisher{} }

func (p *Publisher) PublishIntegration(
	ctx context.Context,
	e cbus.IntegrationEvent,
	opts cbus.PublishOptions,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	topic := opts.TopicOverride
	if topic == "" {
		topic = e.Topic()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.records = append(p.records, Record{
		Topic:   topic,
		Key:     opts.Key,
		Event:   e,
		Headers: maps.Clone(opts.Headers),
	})

	return nil
}

// FailWith makes every subsequent publish return err. Pass nil to recover.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// Records returns a copy of everything published so far, in delivery order.
func (p *Publisher) Records() []Record {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]Record(nil), p.records...)
}

// Len reports how many events were recorded.
func (p *Publisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.records)
}

// Reset discards recorded events.
func (p *Publisher) Reset() {
	p.mu.Lock()
	p.records = nil
	p.mu.Unlock()
}
