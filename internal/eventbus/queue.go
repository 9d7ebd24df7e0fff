// ABOUTME: Goroutine-safe FIFO queue whose writers never block; readers block until data or close
// ABOUTME: Optional limit drops the oldest entry on overflow and counts the drops

package eventbus

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by reads on a closed, empty queue.
var ErrClosed = errors.New("queue closed")

// Queue is a FIFO with non-blocking Push and blocking Pop/Drain.
// A zero limit means the queue grows without bound.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	limit   int
	dropped uint64
	closed  bool
	notify  chan struct{}
	done    chan struct{}
}

// NewQueue creates a queue. limit <= 0 means unbounded.
func NewQueue[T any](limit int) *Queue[T] {
	return &Queue[T]{
		limit:  max(limit, 0),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends v. It never blocks. Returns false if the queue is closed.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if q.limit > 0 && len(q.items) >= q.limit {
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		q.dropped++
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default: // reader already signalled
	}
	return true
}

// Pop removes the oldest entry, blocking until one exists, the queue is
// closed and empty (ErrClosed), or ctx is done.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			q.mu.Unlock()
			return v, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			var zero T
			return zero, ErrClosed
		}
		if err := q.wait(ctx); err != nil {
			var zero T
			return zero, err
		}
	}
}

// Drain blocks like Pop, then returns every queued entry in order.
func (q *Queue[T]) Drain(ctx context.Context) ([]T, error) {
	for {
		if batch := q.TryDrain(); len(batch) > 0 {
			return batch, nil
		}
		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}
		if err := q.wait(ctx); err != nil {
			return nil, err
		}
	}
}

// TryDrain returns every queued entry without blocking.
func (q *Queue[T]) TryDrain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	batch := q.items
	q.items = nil
	return batch
}

// Ready signals after a Push. It is meant for a single reader that waits on
// several queues at once and follows each signal with TryDrain.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.notify
}

func (q *Queue[T]) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.notify:
		return nil
	case <-q.done:
		return nil
	}
}

// Close stops further pushes. Entries already queued can still be read.
// Safe to call multiple times.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Len returns the number of queued entries.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many entries were discarded on overflow.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
