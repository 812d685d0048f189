package product

import cbus "github.com/next-trace/scg-product-service/contract/bus"

// Event kinds published by the Service.
const (
	KindCreated cbus.Kind = "product.created"
	KindUpdated cbus.Kind = "product.updated"
	KindDeleted cbus.Kind = "product.deleted"
)

// Kinds lists every product event kind in publication order of the lifecycle.
var Kinds = []cbus.Kind{KindCreated, KindUpdated, KindDeleted}

// Created carries a product with its freshly assigned identity.
type Created struct{ Product Product }

func (Created) Kind() cbus.Kind { return KindCreated }

// Updated carries the full replacement payload for an existing product.
type Updated struct{ Product Product }

func (Updated) Kind() cbus.Kind { return KindUpdated }

// Deleted carries only the identity to remove.
type Deleted struct{ ID string }

func (Deleted) Kind() cbus.Kind { return KindDeleted }

var (
	_ cbus.Event = Created{}
	_ cbus.Event = Updated{}
	_ cbus.Event = Deleted{}
)
