// ABOUTME: Tests for the typed event bus and its subscriber queues
// ABOUTME: Covers ordering, unsubscribe, late subscribers, overflow, and blocking reads

package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	t.Parallel()

	bus := New[string]()
	q, _ := bus.Subscribe()

	bus.Publish("hello")

	got, err := q.Pop(context.Background())
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if got != "hello" {
		t.Errorf("received = %q, want %q", got, "hello")
	}
}

func TestBus_MultipleSubscribersSeeSameOrder(t *testing.T) {
	t.Parallel()

	bus := New[int]()
	queues := make([]*Queue[int], 3)
	for i := range queues {
		queues[i], _ = bus.Subscribe()
	}

	for i := range 100 {
		bus.Publish(i)
	}

	for qi, q := range queues {
		batch := q.TryDrain()
		if len(batch) != 100 {
			t.Fatalf("queue %d: got %d events, want 100", qi, len(batch))
		}
		for i, v := range batch {
			if v != i {
				t.Fatalf("queue %d: event %d = %d", qi, i, v)
			}
		}
	}
}

func TestBus_LateSubscriberGetsNoBacklog(t *testing.T) {
	t.Parallel()

	bus := New[int]()
	for i := range 5 {
		bus.Publish(i)
	}

	q, _ := bus.Subscribe()
	bus.Publish(99)

	batch := q.TryDrain()
	if len(batch) != 1 || batch[0] != 99 {
		t.Errorf("batch = %v, want [99]", batch)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	t.Parallel()

	bus := New[string]()
	q, unsub := bus.Subscribe()

	unsub()
	unsub() // idempotent
	bus.Publish("test")

	if q.Len() != 0 {
		t.Error("queue should not receive after unsubscribe")
	}
	if _, err := q.Pop(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Pop after unsubscribe = %v, want ErrClosed", err)
	}
}

func TestBus_Count(t *testing.T) {
	t.Parallel()

	bus := New[int]()

	_, unsub1 := bus.Subscribe()
	bus.Subscribe()

	if bus.Count() != 2 {
		t.Errorf("Count() = %d, want 2", bus.Count())
	}

	unsub1()
	if bus.Count() != 1 {
		t.Errorf("Count() = %d, want 1", bus.Count())
	}

	bus.Close()
	if bus.Count() != 0 {
		t.Errorf("Count() after Close = %d, want 0", bus.Count())
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	t.Parallel()

	bus := New[int]()
	a, _ := bus.Subscribe()
	b, _ := bus.Subscribe()

	var wg sync.WaitGroup
	for g := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				bus.Publish(g*1000 + i)
			}
		}()
	}
	wg.Wait()

	ea, eb := a.TryDrain(), b.TryDrain()
	if len(ea) != 200 || len(eb) != 200 {
		t.Fatalf("lengths = %d, %d; want 200", len(ea), len(eb))
	}
	for i := range ea {
		if ea[i] != eb[i] {
			t.Fatalf("subscribers diverge at %d: %d vs %d", i, ea[i], eb[i])
		}
	}
}

func TestQueue_BoundedDropsOldest(t *testing.T) {
	t.Parallel()

	q := NewQueue[int](3)
	for i := range 5 {
		q.Push(i)
	}

	batch := q.TryDrain()
	want := []int{2, 3, 4}
	if len(batch) != len(want) {
		t.Fatalf("batch = %v, want %v", batch, want)
	}
	for i := range want {
		if batch[i] != want[i] {
			t.Errorf("batch[%d] = %d, want %d", i, batch[i], want[i])
		}
	}
	if q.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", q.Dropped())
	}
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	t.Parallel()

	q := NewQueue[string](0)
	done := make(chan string)
	go func() {
		v, _ := q.Pop(context.Background())
		done <- v
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push("late")

	select {
	case v := <-done:
		if v != "late" {
			t.Errorf("Pop = %q, want %q", v, "late")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake up")
	}
}

func TestQueue_ContextCancel(t *testing.T) {
	t.Parallel()

	q := NewQueue[int](0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := q.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Drain = %v, want DeadlineExceeded", err)
	}
}

func TestQueue_CloseKeepsQueuedEntries(t *testing.T) {
	t.Parallel()

	q := NewQueue[int](0)
	q.Push(1)
	q.Close()

	if q.Push(2) {
		t.Error("Push after Close = true, want false")
	}
	v, err := q.Pop(context.Background())
	if err != nil || v != 1 {
		t.Errorf("Pop = %d, %v; want 1, nil", v, err)
	}
	if _, err := q.Pop(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Pop = %v, want ErrClosed", err)
	}
}

func TestQueue_ReadySignalsPush(t *testing.T) {
	t.Parallel()

	q := NewQueue[int](0)
	select {
	case <-q.Ready():
		t.Fatal("Ready fired on an empty queue")
	default:
	}

	q.Push(1)
	q.Push(2)
	select {
	case <-q.Ready():
	case <-time.After(time.Second):
		t.Fatal("Ready did not fire after Push")
	}
	if got := q.TryDrain(); len(got) != 2 {
		t.Errorf("TryDrain() = %v, want 2 items", got)
	}
}
