// ABOUTME: Runner feeds a grid subscription into a backend on its own goroutine
// ABOUTME: It degrades to a simulated backend on ErrUnavailable and retries the hardware periodically

package hardware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mauromedda/punchcard-go/internal/grid"
	"github.com/mauromedda/punchcard-go/internal/log"
)

// StatusFunc receives human-readable hardware status changes. It must not block.
type StatusFunc func(msg string)

// Runner owns one backend's lifecycle and its event stream.
type Runner struct {
	primary  Backend
	fallback *Simulated
	m        *grid.Manager
	sub      *grid.Subscription
	status   StatusFunc
	retry    time.Duration

	reconnect chan struct{}

	mu       sync.Mutex
	active   Backend
	degraded bool
	applied  uint64
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithStatus installs a status callback.
func WithStatus(fn StatusFunc) RunnerOption {
	return func(r *Runner) { r.status = fn }
}

// WithReconnectInterval retries a lost backend every d. Zero disables retries.
func WithReconnectInterval(d time.Duration) RunnerOption {
	return func(r *Runner) { r.retry = d }
}

// WithFallback sets the simulated backend used after hardware loss.
func WithFallback(s *Simulated) RunnerOption {
	return func(r *Runner) { r.fallback = s }
}

// NewRunner subscribes to m immediately so no event between construction and
// Run is lost.
func NewRunner(primary Backend, m *grid.Manager, opts ...RunnerOption) *Runner {
	r := &Runner{
		primary:   primary,
		m:         m,
		sub:       m.Subscribe(),
		reconnect: make(chan struct{}, 1),
		status:    func(string) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fallback == nil {
		r.fallback = NewSimulated()
	}
	return r
}

// Active returns the backend currently receiving updates.
func (r *Runner) Active() Backend {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Degraded reports whether the runner is on the fallback after hardware loss.
func (r *Runner) Degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

// Fallback returns the simulated backend used while degraded.
func (r *Runner) Fallback() *Simulated {
	return r.fallback
}

// Reconnect asks a running Runner to retry the primary backend now.
func (r *Runner) Reconnect() {
	select {
	case r.reconnect <- struct{}{}:
	default:
	}
}

// Close releases the subscription of a Runner that will never Run.
func (r *Runner) Close() {
	r.sub.Close()
}

// Run connects the backend and forwards events until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	defer r.sub.Close()

	r.bringUp()
	defer r.shutdown()

	batches := make(chan []grid.ChangeEvent)
	pumpCtx, cancel := context.WithCancel(ctx)
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		for {
			evs, err := r.sub.Drain(pumpCtx)
			if err != nil {
				return
			}
			select {
			case batches <- evs:
			case <-pumpCtx.Done():
				return
			}
		}
	}()
	defer func() {
		cancel()
		<-pumpDone
	}()

	var tick <-chan time.Time
	if r.retry > 0 {
		t := time.NewTicker(r.retry)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evs := <-batches:
			r.apply(evs)
		case <-tick:
			r.tryReconnect()
		case <-r.reconnect:
			r.tryReconnect()
		}
	}
}

func (r *Runner) bringUp() {
	if err := r.primary.Connect(); err != nil {
		log.Warn("hardware %s unavailable: %v", r.primary.Kind(), err)
		r.status("hardware unavailable, using simulation")
		r.switchToFallback()
		return
	}
	if err := r.primary.Start(); err != nil {
		log.Warn("hardware %s start: %v", r.primary.Kind(), err)
		_ = r.primary.Disconnect()
		r.status("hardware failed to start, using simulation")
		r.switchToFallback()
		return
	}

	r.mu.Lock()
	r.active = r.primary
	r.mu.Unlock()
	r.status("hardware " + r.primary.Kind().String() + " connected")

	if err := r.replay(r.primary); err != nil {
		r.lose(err)
	}
}

func (r *Runner) shutdown() {
	active := r.Active()
	if active == nil {
		return
	}
	if err := active.Stop(); err != nil {
		log.Debug("hardware stop: %v", err)
	}
	if err := active.Disconnect(); err != nil {
		log.Debug("hardware disconnect: %v", err)
	}
}

// replay pushes the manager's current state as one full event.
func (r *Runner) replay(b Backend) error {
	g, seq := r.m.SnapshotSeq()
	ev := grid.ChangeEvent{Seq: seq, Scope: grid.ScopeFull, Grid: &g, Time: time.Now()}
	if err := b.PushUpdate(ev); err != nil {
		return err
	}
	r.mu.Lock()
	r.applied = seq
	r.mu.Unlock()
	return nil
}

func (r *Runner) apply(evs []grid.ChangeEvent) {
	for _, ev := range evs {
		r.mu.Lock()
		active, applied := r.active, r.applied
		r.mu.Unlock()

		// Events already covered by a replayed snapshot would move the
		// mirror backwards.
		if ev.Seq <= applied {
			continue
		}
		if err := active.PushUpdate(ev); err != nil {
			if errors.Is(err, ErrUnavailable) && active != Backend(r.fallback) {
				r.lose(err)
				continue
			}
			log.Warn("hardware update #%d: %v", ev.Seq, err)
			continue
		}
		r.mu.Lock()
		r.applied = ev.Seq
		r.mu.Unlock()
	}
}

func (r *Runner) lose(err error) {
	log.Warn("hardware %s lost: %v", r.primary.Kind(), err)
	_ = r.primary.Stop()
	_ = r.primary.Disconnect()
	r.status("hardware disconnected, using simulation")
	r.switchToFallback()
}

func (r *Runner) switchToFallback() {
	_ = r.fallback.Connect()
	_ = r.fallback.Start()

	r.mu.Lock()
	r.active = r.fallback
	r.degraded = true
	r.mu.Unlock()

	if err := r.replay(r.fallback); err != nil {
		log.Warn("simulated replay: %v", err)
	}
}

func (r *Runner) tryReconnect() {
	if !r.Degraded() || r.primary.Kind() == KindSimulated {
		return
	}
	if err := r.primary.Connect(); err != nil {
		log.Debug("hardware reconnect: %v", err)
		return
	}
	if err := r.primary.Start(); err != nil {
		log.Debug("hardware restart: %v", err)
		_ = r.primary.Disconnect()
		return
	}
	if err := r.replay(r.primary); err != nil {
		log.Debug("hardware replay: %v", err)
		_ = r.primary.Stop()
		_ = r.primary.Disconnect()
		return
	}

	r.mu.Lock()
	r.active = r.primary
	r.degraded = false
	r.mu.Unlock()

	log.Info("hardware %s reconnected", r.primary.Kind())
	r.status("hardware reconnected")
}
