package product

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	cbus "github.com/next-trace/scg-product-service/contract/bus"
	berr "github.com/next-trace/scg-product-service/contract/errors"
	"github.com/next-trace/scg-product-service/servicebus"
)

// Observer hears about each write after the store applied it.
// Writes that were rejected or targeted an absent product are not reported.
type Observer interface {
	Applied(ctx context.Context, e cbus.Event)
}

// HandlerOptions tunes the storage handlers.
type HandlerOptions struct {
	// Strict reports updates and deletes of unknown identities as ErrNotFound
	// instead of treating them as silent no-ops.
	Strict bool
	// Observers run in order, in the publisher's goroutine.
	Observers []Observer
}

type observers []Observer

func (o observers) applied(ctx context.Context, e cbus.Event) {
	for _, obs := range o {
		obs.Applied(ctx, e)
	}
}

// CreatedHandler stores the product carried by Created.
type CreatedHandler struct {
	store *Store
	obs   observers
}

func (h CreatedHandler) Handle(ctx context.Context, e Created) error {
	if err := h.store.Put(e.Product); err != nil {
		return err
	}

	h.obs.applied(ctx, e)

	return nil
}

// UpdatedHandler replaces an existing product with the one carried by Updated.
type UpdatedHandler struct {
	store  *Store
	strict bool
	logger *zerolog.Logger
	obs    observers
}

func (h UpdatedHandler) Handle(ctx context.Context, e Updated) error {
	out, err := h.store.Update(e.Product)
	if err != nil {
		return err
	}

	if out == Applied {
		h.obs.applied(ctx, e)
	}

	return outcome(h.logger, h.strict, "update", e.Product.ID, out)
}

// DeletedHandler removes the product identified by Deleted.
type DeletedHandler struct {
	store  *Store
	strict bool
	logger *zerolog.Logger
	obs    observers
}

func (h DeletedHandler) Handle(ctx context.Context, e Deleted) error {
	out := h.store.Delete(e.ID)
	if out == Applied {
		h.obs.applied(ctx, e)
	}

	return outcome(h.logger, h.strict, "delete", e.ID, out)
}

func outcome(logger *zerolog.Logger, strict bool, op, id string, out Outcome) error {
	if out == Applied {
		return nil
	}

	logger.Debug().
		Str("op", op).
		Str("product_id", id).
		Stringer("outcome", out).
		Bool("strict", strict).
		Msg("mutation targeted unknown product")

	if strict {
		return fmt.Errorf("%s %s: %w", op, id, berr.ErrNotFound)
	}

	return nil
}

// RegisterHandlers subscribes exactly one create, one update and one delete
// handler on b, each writing through to store. Call it once at startup.
func RegisterHandlers(b *servicebus.Bus, store *Store, logger *zerolog.Logger, opts HandlerOptions) error {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	obs := observers(opts.Observers)

	if err := servicebus.Subscribe[Created](b, CreatedHandler{store: store, obs: obs}); err != nil {
		return fmt.Errorf("register create handler: %w", err)
	}

	if err := servicebus.Subscribe[Updated](b, UpdatedHandler{store: store, strict: opts.Strict, logger: logger, obs: obs}); err != nil {
		return fmt.Errorf("register update handler: %w", err)
	}

	if err := servicebus.Subscribe[Deleted](b, DeletedHandler{store: store, strict: opts.Strict, logger: logger, obs: obs}); err != nil {
		return fmt.Errorf("register delete handler: %w", err)
	}

	return nil
}
