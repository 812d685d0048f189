package rabbitmq_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/next-trace/scg-product-service/adapters/rabbitmq"
	cbus "github.com/next-trace/scg-product-service/contract/bus"
	berr "github.com/next-trace/scg-product-service/contract/errors"
)

func TestNewWithAMQPConn_EmptyURL(t *testing.T) {
	_, _, err := rabbitmq.NewWithAMQPConn(rabbitmq.Config{URL: "", ConnTimeout: 0})
	if err == nil {
		t.Fatalf("expected error for empty URL")
	}

	if !errors.Is(err, berr.ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
}

func TestNewWithAMQPConn_DefaultExchange(t *testing.T) {
	// the dial happens in the background; an unreachable broker only fails publishes
	ad, cleanup, err := rabbitmq.NewWithAMQPConn(rabbitmq.Config{URL: "amqp://127.0.0.1:1/"})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}

	cleanup()
	cleanup()

	if ad.Exchange != rabbitmq.DefaultExchange {
		t.Fatalf("exchange: %q", ad.Exchange)
	}
}

func TestNewWithAMQPConn_UnreachableBrokerFailsFast(t *testing.T) {
	ad, cleanup, err := rabbitmq.NewWithAMQPConn(rabbitmq.Config{URL: "amqp://127.0.0.1:1/"})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	defer cleanup()

	start := time.Now()
	err = ad.PublishIntegration(context.Background(), integ{T: "products.created"}, cbus.PublishOptions{Key: "id-1"})

	if !errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("want ErrPublishFailed, got %v", err)
	}

	if d := time.Since(start); d > time.Second {
		t.Fatalf("publish waited %s for a broker", d)
	}

	cleanup()

	err = ad.PublishIntegration(context.Background(), integ{T: "products.created"}, cbus.PublishOptions{})
	if !errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("after close: want ErrPublishFailed, got %v", err)
	}
}
