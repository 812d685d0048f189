// Package product holds the product entity, its in-memory store, the event
// handlers that translate bus events into store calls, and the Service that
// fronts both for the HTTP layer.
//
// Writes never touch the store directly: Service publishes Created, Updated
// or Deleted on the bus and the handlers registered by RegisterHandlers apply
// them. Reads go straight to the store.
package product
