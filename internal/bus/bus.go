// Package bus provides a small in-process typed pub/sub.
package bus

import "sync"

// Bus fans events of type T out to subscribers. Publish never blocks the
// publisher on a slow subscriber: each subscriber has a buffered channel and
// events are dropped when it is full.
type Bus[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan T
	buffer int
}

// New creates a bus whose subscriber channels hold up to buffer events.
func New[T any](buffer int) *Bus[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus[T]{
		subs:   make(map[int]chan T),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. Unsubscribing closes the channel; calling the
// function more than once is safe.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan T, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}

	return ch, cancel
}

// Publish delivers an event to every subscriber that has room for it.
func (b *Bus[T]) Publish(event T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Subscriber is not keeping up; drop rather than stall.
		}
	}
}

// Len returns the current subscriber count.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
