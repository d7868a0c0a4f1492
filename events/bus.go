// Package events provides a lightweight pub/sub event bus for run observability.
//
// The bus is a broadcast: multiple observers may subscribe to the same run
// without affecting execution. Delivery is synchronous and in publish order;
// listeners must not block. A panicking listener never aborts the publisher.
package events

import (
	"sync"
	"time"
)

// Listener is a function that handles events.
type Listener func(*Event)

// Bus manages event distribution to listeners.
type Bus struct {
	mu              sync.RWMutex
	listeners       map[EventType][]Listener
	globalListeners []Listener
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		listeners: make(map[EventType][]Listener),
	}
}

// Subscribe registers a listener for a specific event type.
func (b *Bus) Subscribe(eventType EventType, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventType] = append(b.listeners[eventType], listener)
}

// SubscribeAll registers a listener for all event types.
func (b *Bus) SubscribeAll(listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.globalListeners = append(b.globalListeners, listener)
}

// Publish delivers an event to all registered listeners in subscription order.
func (b *Bus) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	typeListeners := b.listeners[event.Type]

	specificListeners := make([]Listener, len(typeListeners))
	copy(specificListeners, typeListeners)

	globalListeners := make([]Listener, len(b.globalListeners))
	copy(globalListeners, b.globalListeners)
	b.mu.RUnlock()

	for _, listener := range specificListeners {
		safeInvoke(listener, event)
	}
	for _, listener := range globalListeners {
		safeInvoke(listener, event)
	}
}

// Clear removes all listeners (primarily for tests).
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = make(map[EventType][]Listener)
	b.globalListeners = nil
}

func safeInvoke(listener Listener, event *Event) {
	defer func() { _ = recover() }()
	listener(event)
}
