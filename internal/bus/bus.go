package bus

import (
	"strings"
	"sync"
)

// Bus is an in-process publish/subscribe event bus with namespace filtering.
// Components subscribe to a kind prefix (e.g. "backend.") and receive every
// event whose Kind starts with it.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*Subscription
	next int
}

// Subscription is the handle returned by Subscribe. The subscribing
// component owns it and releases it deterministically via Close.
type Subscription struct {
	bus       *Bus
	id        int
	namespace string
	ch        chan Event

	closeOnce sync.Once
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]*Subscription),
	}
}

// Publish sends an event to all subscribers whose namespace is a prefix of
// event.Kind. Delivery is non-blocking: events are dropped for subscribers
// whose buffer is full.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if strings.HasPrefix(evt.Kind, sub.namespace) {
			select {
			case sub.ch <- evt:
			default:
			}
		}
	}
}

// Subscribe registers a subscriber for the given namespace prefix. bufSize
// controls the delivery channel buffer.
func (b *Bus) Subscribe(namespace string, bufSize int) *Subscription {
	sub := &Subscription{
		bus:       b,
		namespace: namespace,
		ch:        make(chan Event, bufSize),
	}
	b.mu.Lock()
	sub.id = b.next
	b.next++
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub
}

// C returns the channel events are delivered on.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close removes the subscription from the bus. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()
	})
}
