// Package eventbus provides in-process publish/subscribe of domain events.
package eventbus

import (
	"context"
	"sync"

	"github.com/dukex/ruleforge/pkg/events"
)

// EventHandler reacts to a single event. A returned error stops the fan-out and is
// returned to the publisher.
type EventHandler func(ctx context.Context, event events.DomainEvent) error

type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}

type EventSubscriber interface {
	Subscribe(eventType events.EventType, handler EventHandler) (unsubscribe func())
}

type EventBus interface {
	EventPublisher
	EventSubscriber
}

type subscription struct {
	id      uint64
	handler EventHandler
}

// Bus is a synchronous, non-durable event bus. Handlers registered for an event type run
// one after another in subscription order; events published with no subscriber are lost.
type Bus struct {
	mu            sync.RWMutex
	nextID        uint64
	subscriptions map[events.EventType][]subscription
}

func NewBus() *Bus {
	return &Bus{
		subscriptions: make(map[events.EventType][]subscription),
	}
}

// Subscribe registers handler for eventType and returns a function removing it again.
// Calling the returned function more than once is a no-op.
func (b *Bus) Subscribe(eventType events.EventType, handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subscriptions[eventType] = append(b.subscriptions[eventType], subscription{id: id, handler: handler})

	var once sync.Once

	return func() {
		once.Do(func() {
			b.unsubscribe(eventType, id)
		})
	}
}

func (b *Bus) unsubscribe(eventType events.EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.subscriptions[eventType]
	remaining := make([]subscription, 0, len(current))

	for _, sub := range current {
		if sub.id != id {
			remaining = append(remaining, sub)
		}
	}

	if len(remaining) == 0 {
		delete(b.subscriptions, eventType)

		return
	}

	b.subscriptions[eventType] = remaining
}

// Publish invokes every handler for event.Type and returns once all of them finished,
// or with the first handler error.
func (b *Bus) Publish(ctx context.Context, event events.DomainEvent) error {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subscriptions[event.Type]))

	for _, sub := range b.subscriptions[event.Type] {
		handlers = append(handlers, sub.handler)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		err := handler(ctx, event)
		if err != nil {
			return err
		}
	}

	return nil
}

// SubscriberCount returns the number of handlers registered for eventType.
func (b *Bus) SubscriberCount(eventType events.EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscriptions[eventType])
}
