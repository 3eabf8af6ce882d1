package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AnyEvent subscribes a handler to every event type.
const AnyEvent EventType = "*"

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher publishes authentication events to subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// DispatcherOption customizes the in-memory dispatcher.
type DispatcherOption func(*inMemoryDispatcher)

// WithEventClock overrides the clock used to stamp events.
func WithEventClock(now func() time.Time) DispatcherOption {
	return func(d *inMemoryDispatcher) { d.now = now }
}

// WithEventIDs overrides the event id generator.
func WithEventIDs(newID func() string) DispatcherOption {
	return func(d *inMemoryDispatcher) { d.newID = newID }
}

type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	now       func() time.Time
	newID     func() string
}

// NewInMemoryDispatcher creates a synchronous dispatcher.
func NewInMemoryDispatcher(opts ...DispatcherOption) Dispatcher {
	d := &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish stamps the event with an id and UTC timestamp when absent, then
// runs typed handlers followed by AnyEvent handlers. Every handler runs;
// failures are joined.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	if event.Type == "" || event.Type == AnyEvent {
		return fmt.Errorf("publish: invalid event type %q", event.Type)
	}
	if event.ID == "" {
		event.ID = d.newID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now().UTC()
	}

	d.mu.RLock()
	handlers := make([]EventHandler, 0, len(d.listeners[event.Type])+len(d.listeners[AnyEvent]))
	handlers = append(handlers, d.listeners[event.Type]...)
	handlers = append(handlers, d.listeners[AnyEvent]...)
	d.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for the given event type, or for every type
// when eventType is AnyEvent.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	if handler == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}
