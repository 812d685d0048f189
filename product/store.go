package product

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	berr "github.com/next-trace/scg-product-service/contract/errors"
)

// Outcome reports what a conditional mutation did.
type Outcome int

const (
	// Applied means the stored entity was replaced or removed.
	Applied Outcome = iota + 1
	// Absent means no entity had the identity; nothing changed.
	Absent
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Absent:
		return "absent"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Store is an in-memory product collection keyed by identity.
// Every operation holds the lock for its whole read-modify-write.
type Store struct {
	mu sync.RWMutex
	m  map[string]Product
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{m: make(map[string]Product)}
}

// Put inserts p or replaces the entity with the same identity.
func (s *Store) Put(p Product) error {
	if p.ID == "" {
		return fmt.Errorf("put: missing identity: %w", berr.ErrInvalidEntity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[p.ID] = p.clone()

	return nil
}

// Update replaces the entity with p's identity if it exists.
// Unknown identities are left alone and reported as Absent.
func (s *Store) Update(p Product) (Outcome, error) {
	if p.ID == "" {
		return Absent, fmt.Errorf("update: missing identity: %w", berr.ErrInvalidEntity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[p.ID]; !ok {
		return Absent, nil
	}

	s.m[p.ID] = p.clone()

	return Applied, nil
}

// Delete removes the entity with id if present.
func (s *Store) Delete(id string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[id]; !ok {
		return Absent
	}

	delete(s.m, id)

	return Applied
}

// Get returns the entity stored under id. The bool is false when none exists.
func (s *Store) Get(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.m[id]
	if !ok {
		return Product{}, false
	}

	return p.clone(), true
}

// List returns every stored entity ordered by identity. It never returns nil.
func (s *Store) List() []Product {
	s.mu.RLock()
	out := make([]Product, 0, len(s.m))
	for _, p := range s.m {
		out = append(out, p.clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Product) int { return strings.Compare(a.ID, b.ID) })

	return out
}

// Len returns the number of stored entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.m)
}
