package product

import (
	"context"
	"fmt"

	cbus "github.com/next-trace/scg-product-service/contract/bus"
	berr "github.com/next-trace/scg-product-service/contract/errors"
)

// Service is the API surface: it assigns identities, publishes write events
// and serves reads directly from the store.
//
// Write methods return the payload as submitted, not as re-read from the
// store. The returned error is whatever the dispatcher reported.
type Service struct {
	bus   cbus.Dispatcher
	store *Store
}

// NewService returns a Service publishing on bus and reading from store.
func NewService(bus cbus.Dispatcher, store *Store) *Service {
	return &Service{bus: bus, store: store}
}

// Create assigns a fresh identity to p, ignoring any it carried, and publishes Created.
func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	p.ID = NewID()

	if err := s.bus.Publish(ctx, Created{Product: p.clone()}); err != nil {
		return p, fmt.Errorf("create %s: %w", p.ID, err)
	}

	return p, nil
}

// Update publishes Updated for id. The path identity overrides p.ID.
func (s *Service) Update(ctx context.Context, id string, p Product) (Product, error) {
	canonical, err := ParseID(id)
	if err != nil {
		return p, fmt.Errorf("update %q: %w", id, berr.ErrInvalidEntity)
	}

	p.ID = canonical

	if err := s.bus.Publish(ctx, Updated{Product: p.clone()}); err != nil {
		return p, fmt.Errorf("update %s: %w", p.ID, err)
	}

	return p, nil
}

// Delete publishes Deleted for id without checking that it exists.
func (s *Service) Delete(ctx context.Context, id string) error {
	canonical, err := ParseID(id)
	if err != nil {
		return fmt.Errorf("delete %q: %w", id, berr.ErrInvalidEntity)
	}

	if err := s.bus.Publish(ctx, Deleted{ID: canonical}); err != nil {
		return fmt.Errorf("delete %s: %w", canonical, err)
	}

	return nil
}

// Get reads a product straight from the store.
func (s *Service) Get(id string) (Product, bool) {
	canonical, err := ParseID(id)
	if err != nil {
		return Product{}, false
	}

	return s.store.Get(canonical)
}

// List reads every product straight from the store.
func (s *Service) List() []Product { return s.store.List() }
