// ABOUTME: Typed event bus fanning each published event into per-subscriber queues
// ABOUTME: Publication order is preserved per subscriber; publishers never block on readers

package eventbus

import "sync"

// Bus delivers every published event to each subscriber's queue.
type Bus[T any] struct {
	mu     sync.Mutex
	subs   map[int]*Queue[T]
	order  []int
	nextID int
	limit  int
}

// New creates a bus whose subscriber queues grow without bound.
func New[T any]() *Bus[T] {
	return NewBounded[T](0)
}

// NewBounded creates a bus whose subscriber queues hold at most limit events,
// dropping the oldest on overflow.
func NewBounded[T any](limit int) *Bus[T] {
	return &Bus[T]{
		subs:  make(map[int]*Queue[T]),
		limit: limit,
	}
}

// Subscribe registers a new queue and returns it with an unsubscribe function.
// The queue only receives events published after Subscribe returns.
// Unsubscribing closes the queue; events already queued remain readable.
func (b *Bus[T]) Subscribe() (*Queue[T], func()) {
	q := NewQueue[T](b.limit)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = q
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return q, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
			q.Close()
		})
	}
}

// Publish pushes event onto every subscriber queue in subscription order.
// Concurrent publishers are serialized so all queues see the same order.
func (b *Bus[T]) Publish(event T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range b.order {
		b.subs[id].Push(event)
	}
}

// Count returns the number of registered subscribers.
func (b *Bus[T]) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close unsubscribes everyone, closing their queues.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[int]*Queue[T])
	b.order = nil
	b.mu.Unlock()

	for _, q := range subs {
		q.Close()
	}
}
