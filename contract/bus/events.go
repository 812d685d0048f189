package bus

// Kind discriminates event categories. Two events are delivered to the same
// subscribers only when their kinds are equal.
type Kind string

// Event is an immutable in-process message routed by its Kind.
// Concrete events should be value types whose zero value reports the same
// kind as any populated instance; typed subscription relies on it.
type Event interface {
	Kind() Kind
}

// IntegrationEvent represents a notification leaving the process. Topic() guides routing.
type IntegrationEvent interface{ Topic() string }
