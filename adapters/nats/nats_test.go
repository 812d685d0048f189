package nats_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/next-trace/scg-product-service/adapters/nats"
	cbus "github.com/next-trace/scg-product-service/contract/bus"
	berr "github.com/next-trace/scg-product-service/contract/errors"
)

type fakeClient struct {
	calls []struct {
		subject string
		data    []byte
		headers map[string]string
	}
	err error
}

func (f *fakeClient) Publish(subject string, data []byte, headers map[string]string) error {
	f.calls = append(f.calls, struct {
		subject string
		data    []byte
		headers map[string]string
	}{subject, data, headers})

	return f.err
}

type integ struct{ T string }

func (i integ) Topic() string { return i.T }

type unencodable struct{ F float64 }

func (unencodable) Topic() string { return "bad" }

func TestNATS_PublishIntegration(t *testing.T) {
	fc := &fakeClient{}
	ad := nats.New(fc)

	if err := ad.PublishIntegration(t.Context(), integ{T: "products.created"}, cbus.PublishOptions{}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(fc.calls) != 1 || fc.calls[0].subject != "products.created" {
		t.Fatalf("subject: %+v", fc.calls)
	}

	if string(fc.calls[0].data) != `{"T":"products.created"}` {
		t.Fatalf("body: %s", fc.calls[0].data)
	}

	po := cbus.PublishOptions{TopicOverride: "orders", Key: "k", Headers: map[string]string{"ph": "pv"}}
	if err := ad.PublishIntegration(t.Context(), integ{T: "unused"}, po); err != nil {
		t.Fatalf("publish: %v", err)
	}

	p := fc.calls[1]
	if p.subject != "orders" {
		t.Fatalf("topic mismatch: %s", p.subject)
	}

	if p.headers["key"] != "k" || p.headers["ph"] != "pv" {
		t.Fatalf("publish headers mismatch: %+v", p.headers)
	}
}

func TestNATS_NilClientError(t *testing.T) {
	ad := nats.New(nil)

	err := ad.PublishIntegration(t.Context(), integ{T: "t"}, cbus.PublishOptions{})
	if !errors.Is(err, berr.ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
}

func TestNATS_Publish_ErrorWrapping_And_ContextCancel(t *testing.T) {
	fc := &fakeClient{err: errors.New("boom")}
	ad := nats.New(fc)

	err := ad.PublishIntegration(t.Context(), integ{T: "t"}, cbus.PublishOptions{})
	if !errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("want ErrPublishFailed, got %v", err)
	}

	fc2 := &fakeClient{err: context.Canceled}
	ad2 := nats.New(fc2)

	err = ad2.PublishIntegration(t.Context(), integ{T: "t"}, cbus.PublishOptions{})
	if !errors.Is(err, context.Canceled) || errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("want bare context.Canceled, got %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if err := ad.PublishIntegration(ctx, integ{T: "t"}, cbus.PublishOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled ctx: %v", err)
	}

	if len(fc.calls) != 1 {
		t.Fatalf("cancelled publish reached client")
	}
}

func TestNATS_SerializationFailure(t *testing.T) {
	fc := &fakeClient{}
	ad := nats.New(fc)

	err := ad.PublishIntegration(t.Context(), unencodable{F: math.NaN()}, cbus.PublishOptions{})
	if !errors.Is(err, berr.ErrSerializationFailed) {
		t.Fatalf("want ErrSerializationFailed, got %v", err)
	}

	if len(fc.calls) != 0 {
		t.Fatalf("client called on serialization failure")
	}
}
