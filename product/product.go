package product

import (
	"maps"

	"github.com/google/uuid"
)

// Product is the single entity the service manages. Only ID is interpreted by
// the core; the remaining fields travel as an opaque payload.
type Product struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Price       float64        `json:"price,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// clone returns a copy that shares no mutable state with p.
func (p Product) clone() Product {
	if p.Attributes != nil {
		p.Attributes = maps.Clone(p.Attributes)
	}

	return p
}

// NewID returns a fresh product identity.
func NewID() string { return uuid.NewString() }

// ParseID validates id and returns its canonical form.
func ParseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", err
	}

	return u.String(), nil
}
