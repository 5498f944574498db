// Package bus is the in-process pub/sub bus for input-source lifecycle
// events.
package bus

import "time"

// Well-known event types published by the input system.
const (
	EventSourceAttached = "source.attached"
	EventSourceDetached = "source.detached"
	EventSourceUpdated  = "source.updated"
	EventSessionOpened  = "session.opened"
	EventSessionClosed  = "session.closed"
)

// EventBus is a thread-safe, in-process pub/sub bus.
//
// Delivery is synchronous: Publish calls handlers in the caller
// goroutine and returns their errors joined. Handlers should be quick
// or offload heavy work.
type EventBus interface {
	// Publish delivers the event to all active subscribers of event.Type().
	Publish(event Event) error
	// PublishAsync publishes in a separate goroutine; the returned channel
	// receives the joined delivery error (or nil), then closes.
	PublishAsync(event Event) <-chan error
	// Subscribe registers a handler for an event type and returns a handle
	// used to cancel later.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. Safe to call with nil.
	Unsubscribe(Subscription) error
	// AddObserver registers a delivery observer.
	AddObserver(Observer)
	// RemoveObserver de-registers a delivery observer.
	RemoveObserver(Observer)
	// Metrics returns the delivery counters. They are updated only while
	// at least one observer is registered.
	Metrics() Metrics
}

// Observer is notified about publications and deliveries. Implementations
// can export metrics, tracing, or logs. Observers should return quickly.
type Observer interface {
	OnPublish(eventType string, event Event)
	OnDelivered(eventType string, handlers int, err error, durationMicros int64)
}

// Metrics is a minimal set of delivery counters.
type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}

// Event is an immutable message transported by the bus. Implementations
// treat Event values as read-only.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

// EventHandler is invoked per delivered event. Returned errors are
// aggregated by Publish.
type EventHandler func(event Event) error

// Subscription represents a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}
