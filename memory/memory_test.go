package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/next-trace/scg-product-service/adapters/inmemory"
	cbus "github.com/next-trace/scg-product-service/contract/bus"
	berr "github.com/next-trace/scg-product-service/contract/errors"
	"github.com/next-trace/scg-product-service/product"
	"github.com/next-trace/scg-product-service/servicebus"
)

func TestNew_BasicFlow(t *testing.T) {
	sys, cleanup, err := New(nil, WithRecorder(), WithTopicPrefix("catalog"))
	require.NoError(t, err)
	defer cleanup()

	ctx := context.Background()

	for _, k := range product.Kinds {
		// the notifier rides on the storage handler, not the bus
		assert.Equal(t, 1, sys.Bus.Subscribers(k), "kind %s", k)
	}

	created, err := sys.Service.Create(ctx, product.Product{Name: "Widget"})
	require.NoError(t, err)

	_, err = sys.Service.Update(ctx, created.ID, product.Product{Name: "Gadget"})
	require.NoError(t, err)
	require.NoError(t, sys.Service.Delete(ctx, created.ID))

	assert.Empty(t, sys.Service.List())

	recs := sys.Recorder.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "catalog.created", recs[0].Topic)
	assert.Equal(t, "catalog.updated", recs[1].Topic)
	assert.Equal(t, "catalog.deleted", recs[2].Topic)
	assert.Equal(t, created.ID, recs[2].Key)

	// cleanup closes the bus, later writes are refused
	cleanup()

	_, err = sys.Service.Create(ctx, product.Product{Name: "late"})
	assert.True(t, errors.Is(err, berr.ErrBusClosed), "got %v", err)
}

func TestNew_Options(t *testing.T) {
	extra := inmemory.New()
	extra.FailWith(errors.New("sink down"))

	sys, cleanup, err := New(nil,
		WithStrict(true),
		WithFailurePolicy(servicebus.FailureAbort),
		WithSinks(extra),
	)
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, sys.Recorder)
	assert.Equal(t, servicebus.FailureAbort, sys.Bus.Policy())

	// a failing sink never fails the write
	p, err := sys.Service.Create(context.Background(), product.Product{Name: "Widget"})
	require.NoError(t, err)

	_, ok := sys.Store.Get(p.ID)
	assert.True(t, ok)

	err = sys.Service.Delete(context.Background(), product.NewID())
	assert.ErrorIs(t, err, berr.ErrNotFound)
}

func TestNew_NoSinks(t *testing.T) {
	sys, cleanup, err := New(nil)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, 1, sys.Bus.Subscribers(product.KindCreated))
}

func TestNew_AbsentTargetsAreNotNotified(t *testing.T) {
	sys, cleanup, err := New(nil, WithRecorder())
	require.NoError(t, err)
	defer cleanup()

	ctx := context.Background()
	ghost := product.NewID()

	_, err = sys.Service.Update(ctx, ghost, product.Product{Name: "Ghost"})
	require.NoError(t, err)
	require.NoError(t, sys.Service.Delete(ctx, ghost))

	assert.Equal(t, 0, sys.Store.Len())
	assert.Equal(t, 0, sys.Recorder.Len())
}

func TestNew_StrictFailuresAreNotNotified(t *testing.T) {
	sys, cleanup, err := New(nil, WithRecorder(), WithStrict(true))
	require.NoError(t, err)
	defer cleanup()

	_, err = sys.Service.Update(context.Background(), product.NewID(), product.Product{Name: "Ghost"})
	require.ErrorIs(t, err, berr.ErrNotFound)
	assert.Equal(t, 0, sys.Recorder.Len())
}

// stuckSink blocks until its context ends, like a publisher waiting on a broker that never answers.
type stuckSink struct{ calls chan struct{} }

func (s stuckSink) PublishIntegration(ctx context.Context, _ cbus.IntegrationEvent, _ cbus.PublishOptions) error {
	s.calls <- struct{}{}
	<-ctx.Done()

	return ctx.Err()
}

func TestNew_StuckSinkDoesNotStallWrites(t *testing.T) {
	sink := stuckSink{calls: make(chan struct{}, 1)}

	sys, cleanup, err := New(nil, WithSinks(sink), WithRecorder(), WithNotifyTimeout(20*time.Millisecond))
	require.NoError(t, err)
	defer cleanup()

	done := make(chan error, 1)

	go func() {
		_, err := sys.Service.Create(context.Background(), product.Product{Name: "Widget"})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("create blocked on a stuck sink")
	}

	assert.Len(t, sink.calls, 1)
	assert.Equal(t, 1, sys.Store.Len())
	// sinks after the stuck one still get the notification
	assert.Equal(t, 1, sys.Recorder.Len())
}
