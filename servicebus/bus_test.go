package servicebus_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	cbus "github.com/next-trace/scg-product-service/contract/bus"
	berr "github.com/next-trace/scg-product-service/contract/errors"
	"github.com/next-trace/scg-product-service/servicebus"
)

type created struct{ ID string }

func (created) Kind() cbus.Kind { return "test.created" }

type removed struct{ ID string }

func (removed) Kind() cbus.Kind { return "test.removed" }

// impostor shares the kind of created but is a different type.
type impostor struct{}

func (impostor) Kind() cbus.Kind { return "test.created" }

type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) Handle(ctx context.Context, e created) error {
	r.mu.Lock()
	r.seen = append(r.seen, e.ID)
	r.mu.Unlock()

	return nil
}

func TestPublish_NoSubscribersIsNoop(t *testing.T) {
	b := servicebus.New(nil)

	if err := b.Publish(t.Context(), created{ID: "x"}); err != nil {
		t.Fatalf("publish without subscribers: %v", err)
	}

	if n := b.Subscribers(created{}.Kind()); n != 0 {
		t.Fatalf("subscribers=%d", n)
	}
}

func TestPublish_RegistrationOrder(t *testing.T) {
	b := servicebus.New(nil)

	var order []string

	for _, name := range []string{"first", "second", "third"} {
		n := name
		if err := servicebus.SubscribeFunc(b, n, func(ctx context.Context, e created) error {
			order = append(order, n+":"+e.ID)
			return nil
		}); err != nil {
			t.Fatalf("subscribe %s: %v", n, err)
		}
	}

	if err := b.Publish(t.Context(), created{ID: "1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	want := "first:1,second:1,third:1"
	if got := strings.Join(order, ","); got != want {
		t.Fatalf("order=%s want %s", got, want)
	}
}

func TestSubscribe_SameHandlerTwiceRunsTwice(t *testing.T) {
	b := servicebus.New(nil)
	r := &recorder{}

	if err := servicebus.Subscribe[created](b, r); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := servicebus.Subscribe[created](b, r); err != nil {
		t.Fatalf("subscribe again: %v", err)
	}

	if err := b.Publish(t.Context(), created{ID: "dup"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(r.seen) != 2 {
		t.Fatalf("want 2 deliveries, got %v", r.seen)
	}
}

func TestPublish_ExactKindOnly(t *testing.T) {
	b := servicebus.New(nil)
	r := &recorder{}
	_ = servicebus.Subscribe[created](b, r)

	if err := b.Publish(t.Context(), removed{ID: "r"}); err != nil {
		t.Fatalf("publish removed: %v", err)
	}

	if len(r.seen) != 0 {
		t.Fatalf("created subscriber saw removed event: %v", r.seen)
	}
}

func TestPublish_TypeMismatchIsReported(t *testing.T) {
	b := servicebus.New(nil)
	_ = servicebus.Subscribe[created](b, &recorder{})

	err := b.Publish(t.Context(), impostor{})
	if !errors.Is(err, berr.ErrHandlerTypeMismatch) {
		t.Fatalf("want ErrHandlerTypeMismatch, got %v", err)
	}

	if !errors.Is(err, berr.ErrSubscriberFailed) {
		t.Fatalf("want ErrSubscriberFailed, got %v", err)
	}
}

func TestPublish_IsolatePolicyContinues(t *testing.T) {
	var buf bytes.Buffer

	logger := zerolog.New(&buf)
	b := servicebus.New(&logger)

	boom := errors.New("boom")
	after := 0

	_ = servicebus.SubscribeFunc(b, "fails", func(ctx context.Context, e created) error { return boom })
	_ = servicebus.SubscribeFunc(b, "panics", func(ctx context.Context, e created) error { panic("kaput") })
	_ = servicebus.SubscribeFunc(b, "after", func(ctx context.Context, e created) error {
		after++
		return nil
	})

	err := b.Publish(t.Context(), created{ID: "i"})
	if err == nil {
		t.Fatalf("expected aggregated error")
	}

	if !errors.Is(err, boom) || !errors.Is(err, berr.ErrSubscriberFailed) {
		t.Fatalf("aggregated error lost causes: %v", err)
	}

	if !strings.Contains(err.Error(), "kaput") {
		t.Fatalf("panic not reported: %v", err)
	}

	if after != 1 {
		t.Fatalf("subscriber after failures ran %d times", after)
	}

	if got := strings.Count(buf.String(), "dispatch continues"); got != 2 {
		t.Fatalf("want 2 failure log lines, got %d: %s", got, buf.String())
	}
}

func TestPublish_AbortPolicyStops(t *testing.T) {
	b := servicebus.New(nil, servicebus.WithFailurePolicy(servicebus.FailureAbort))

	boom := errors.New("boom")
	after := 0

	_ = servicebus.SubscribeFunc(b, "fails", func(ctx context.Context, e created) error { return boom })
	_ = servicebus.SubscribeFunc(b, "after", func(ctx context.Context, e created) error {
		after++
		return nil
	})

	if err := b.Publish(t.Context(), created{ID: "a"}); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	if after != 0 {
		t.Fatalf("abort policy still invoked later subscriber")
	}
}

func TestPublish_CancelledContext(t *testing.T) {
	b := servicebus.New(nil)
	called := false
	_ = servicebus.SubscribeFunc(b, "c", func(ctx context.Context, e created) error {
		called = true
		return nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if err := b.Publish(ctx, created{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}

	if called {
		t.Fatalf("subscriber invoked on cancelled context")
	}
}

func TestPublish_NilEvent(t *testing.T) {
	b := servicebus.New(nil)

	if err := b.Publish(t.Context(), nil); err == nil {
		t.Fatalf("expected error for nil event")
	}
}

func TestMiddleware_Order(t *testing.T) {
	var trace []string

	mw := func(tag string) servicebus.Middleware {
		return func(next cbus.HandlerFunc) cbus.HandlerFunc {
			return func(ctx context.Context, e cbus.Event) error {
				trace = append(trace, tag+">")
				err := next(ctx, e)
				trace = append(trace, "<"+tag)

				return err
			}
		}
	}

	b := servicebus.New(nil, servicebus.WithMiddleware(mw("outer"), mw("inner")))
	_ = servicebus.SubscribeFunc(b, "h", func(ctx context.Context, e created) error {
		trace = append(trace, "handler")
		return nil
	})

	if err := b.Publish(t.Context(), created{}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	want := "outer>,inner>,handler,<inner,<outer"
	if got := strings.Join(trace, ","); got != want {
		t.Fatalf("trace=%s want %s", got, want)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer

	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	b := servicebus.New(nil, servicebus.WithMiddleware(servicebus.Logging(&logger)))
	_ = servicebus.SubscribeFunc(b, "h", func(ctx context.Context, e created) error { return nil })

	if err := b.Publish(t.Context(), created{ID: "l"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if !strings.Contains(buf.String(), `"kind":"test.created"`) {
		t.Fatalf("expected delivery log, got %s", buf.String())
	}
}

func TestClose_RejectsPublishAndSubscribe(t *testing.T) {
	b := servicebus.New(nil)
	_ = servicebus.Subscribe[created](b, &recorder{})

	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if err := b.Publish(t.Context(), created{}); !errors.Is(err, berr.ErrBusClosed) {
		t.Fatalf("want ErrBusClosed, got %v", err)
	}

	if err := servicebus.Subscribe[created](b, &recorder{}); !errors.Is(err, berr.ErrBusClosed) {
		t.Fatalf("want ErrBusClosed on subscribe, got %v", err)
	}
}

func TestSubscribe_NilHandler(t *testing.T) {
	b := servicebus.New(nil)

	if err := servicebus.SubscribeFunc[created](b, "nil", nil); err == nil {
		t.Fatalf("expected error for nil func")
	}

	if err := b.SubscribeKind("k", "nil", nil); err == nil {
		t.Fatalf("expected error for nil handler")
	}
}

func TestPublish_ReentrantSubscriber(t *testing.T) {
	b := servicebus.New(nil)
	got := 0

	_ = servicebus.SubscribeFunc(b, "chain", func(ctx context.Context, e created) error {
		return b.Publish(ctx, removed{ID: e.ID})
	})
	_ = servicebus.SubscribeFunc(b, "sink", func(ctx context.Context, e removed) error {
		got++
		return nil
	})

	if err := b.Publish(t.Context(), created{ID: "re"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if got != 1 {
		t.Fatalf("nested publish delivered %d times", got)
	}
}

func TestPublish_ConcurrentPublishAndSubscribe(t *testing.T) {
	b := servicebus.New(nil)

	var delivered atomic.Int64

	_ = servicebus.SubscribeFunc(b, "count", func(ctx context.Context, e created) error {
		delivered.Add(1)
		return nil
	})

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func(i int) {
			defer wg.Done()

			_ = b.Publish(context.Background(), created{ID: fmt.Sprint(i)})
		}(i)

		go func(i int) {
			defer wg.Done()

			_ = b.SubscribeKind(removed{}.Kind(), fmt.Sprint("r", i), func(context.Context, cbus.Event) error { return nil })
		}(i)
	}

	wg.Wait()

	if delivered.Load() != 50 {
		t.Fatalf("delivered=%d", delivered.Load())
	}

	if n := b.Subscribers(removed{}.Kind()); n != 50 {
		t.Fatalf("removed subscribers=%d", n)
	}
}

func TestParseFailurePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want servicebus.FailurePolicy
		err  bool
	}{
		{"", servicebus.FailureIsolate, false},
		{"isolate", servicebus.FailureIsolate, false},
		{"abort", servicebus.FailureAbort, false},
		{"retry", servicebus.FailureIsolate, true},
	}

	for _, tc := range tests {
		got, err := servicebus.ParseFailurePolicy(tc.in)
		if (err != nil) != tc.err || got != tc.want {
			t.Fatalf("ParseFailurePolicy(%q)=%v,%v", tc.in, got, err)
		}
	}

	if servicebus.FailureAbort.String() != "abort" {
		t.Fatalf("String()=%s", servicebus.FailureAbort.String())
	}
}
