// ABOUTME: Subscriptions deliver ChangeEvents to one consumer in emission order
// ABOUTME: Queues grow instead of blocking the manager; SubscribeFunc runs a callback goroutine

package grid

import (
	"context"
	"errors"
	"sync"

	"github.com/mauromedda/punchcard-go/internal/eventbus"
)

// ErrClosed is returned by reads on a closed subscription once it is drained.
var ErrClosed = eventbus.ErrClosed

// Subscription is one consumer's ordered view of the change log.
type Subscription struct {
	q     *eventbus.Queue[ChangeEvent]
	unsub func()
}

// Subscribe registers a consumer. It receives only events emitted after it
// subscribes; there is no backlog replay.
func (m *Manager) Subscribe() *Subscription {
	q, unsub := m.bus.Subscribe()
	return &Subscription{q: q, unsub: unsub}
}

// Next blocks until the next event, ctx is done, or the subscription is
// closed and drained.
func (s *Subscription) Next(ctx context.Context) (ChangeEvent, error) {
	return s.q.Pop(ctx)
}

// Drain blocks until at least one event is available and returns all pending events.
func (s *Subscription) Drain(ctx context.Context) ([]ChangeEvent, error) {
	return s.q.Drain(ctx)
}

// TryDrain returns all pending events without blocking.
func (s *Subscription) TryDrain() []ChangeEvent {
	return s.q.TryDrain()
}

// Ready signals when new events may be pending; follow it with TryDrain.
func (s *Subscription) Ready() <-chan struct{} {
	return s.q.Ready()
}

// Pending returns the number of undelivered events.
func (s *Subscription) Pending() int {
	return s.q.Len()
}

// Close unsubscribes. Pending events stay readable. Safe to call multiple times.
func (s *Subscription) Close() {
	s.unsub()
}

// SubscribeFunc calls fn for every event, in order, on a dedicated goroutine.
// The returned stop function unsubscribes, lets fn finish the events already
// queued, and waits for the goroutine to exit.
func (m *Manager) SubscribeFunc(ctx context.Context, fn func(ChangeEvent)) (stop func()) {
	sub := m.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			ev, err := sub.Next(ctx)
			if err != nil {
				if !errors.Is(err, ErrClosed) {
					sub.Close()
				}
				return
			}
			fn(ev)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.Close()
			<-done
		})
	}
}
