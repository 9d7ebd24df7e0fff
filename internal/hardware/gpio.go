// ABOUTME: GPIO backend: batches grid changes into a physical frame and flushes it at a fixed rate
// ABOUTME: Full-grid events flush immediately; driver failures surface as ErrUnavailable

package hardware

import (
	"fmt"
	"sync"
	"time"

	"github.com/mauromedda/punchcard-go/internal/grid"
	"github.com/mauromedda/punchcard-go/internal/log"
	"github.com/mauromedda/punchcard-go/pkg/card"
)

// Driver writes frames to physical outputs. Frame index i is chain position i.
type Driver interface {
	Open() error
	Write(frame []bool) error
	SetBrightness(b float64) error
	Close() error
}

// GPIO drives an LED panel through a Driver.
type GPIO struct {
	cfg    Config
	driver Driver

	mu        sync.Mutex
	mirror    card.Grid
	frame     []bool
	dirty     bool
	connected bool
	lastErr   error
	flushes   int

	stop chan struct{}
	done chan struct{}
}

// NewGPIO returns a disconnected GPIO backend. cfg must already be valid.
func NewGPIO(cfg Config, d Driver) *GPIO {
	cfg = cfg.withDefaults()
	return &GPIO{
		cfg:    cfg,
		driver: d,
		frame:  make([]bool, card.Rows*cfg.Width),
	}
}

func (g *GPIO) Kind() Kind { return KindGPIO }

// Config returns the backend's config.
func (g *GPIO) Config() Config { return g.cfg }

// Connect opens the driver and applies brightness. Failures wrap ErrUnavailable.
func (g *GPIO) Connect() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.connected {
		return nil
	}
	if err := g.driver.Open(); err != nil {
		return fmt.Errorf("%w: open gpio: %v", ErrUnavailable, err)
	}
	if err := g.driver.SetBrightness(g.cfg.Brightness); err != nil {
		_ = g.driver.Close()
		return fmt.Errorf("%w: set brightness: %v", ErrUnavailable, err)
	}
	g.connected = true
	g.lastErr = nil
	g.dirty = true
	return nil
}

// Disconnect stops flushing, blanks the panel, and closes the driver.
func (g *GPIO) Disconnect() error {
	_ = g.Stop()

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return nil
	}
	g.connected = false
	if g.lastErr == nil {
		_ = g.driver.Write(make([]bool, len(g.frame)))
	}
	return g.driver.Close()
}

// Start begins periodic flushing. Calling Start twice is a no-op.
func (g *GPIO) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return ErrNotConnected
	}
	if g.stop != nil {
		return nil
	}
	g.stop = make(chan struct{})
	g.done = make(chan struct{})
	go g.loop(g.stop, g.done)
	return nil
}

// Stop ends periodic flushing after writing any pending frame.
func (g *GPIO) Stop() error {
	g.mu.Lock()
	stop, done := g.stop, g.done
	g.stop, g.done = nil, nil
	g.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.connected && g.dirty && g.lastErr == nil {
		g.flushLocked()
	}
	return g.lastErr
}

func (g *GPIO) loop(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(g.cfg.UpdateRate)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.mu.Lock()
			if g.connected && g.dirty && g.lastErr == nil {
				g.flushLocked()
			}
			g.mu.Unlock()
		}
	}
}

// PushUpdate folds ev into the frame. A driver error from an earlier flush
// is reported here, once, as ErrUnavailable and the backend disconnects.
func (g *GPIO) PushUpdate(ev grid.ChangeEvent) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.lastErr; err != nil {
		g.lastErr = nil
		g.connected = false
		_ = g.driver.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !g.connected {
		return fmt.Errorf("%w: gpio not connected", ErrUnavailable)
	}

	ev.Apply(&g.mirror)
	if ev.Scope == grid.ScopeCell {
		idx, _ := card.IndexOf(ev.Row)
		g.setPixelLocked(idx, ev.Column-1)
	} else {
		g.rebuildLocked()
	}
	g.dirty = true

	if ev.Scope == grid.ScopeFull || g.stop == nil {
		if err := g.flushLocked(); err != nil {
			g.lastErr = nil
			g.connected = false
			_ = g.driver.Close()
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return nil
}

// Flushes returns how many frames have been written.
func (g *GPIO) Flushes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.flushes
}

func (g *GPIO) setPixelLocked(row, col int) {
	if col < 0 || col >= g.cfg.Width {
		return
	}
	g.frame[g.cfg.Layout.Index(row, col, g.cfg.Width)] = g.mirror[row][col]
}

func (g *GPIO) rebuildLocked() {
	for r := range card.Rows {
		for c := range g.cfg.Width {
			g.setPixelLocked(r, c)
		}
	}
}

func (g *GPIO) flushLocked() error {
	if err := g.driver.Write(g.frame); err != nil {
		log.Warn("gpio flush failed: %v", err)
		g.lastErr = err
		return err
	}
	g.dirty = false
	g.flushes++
	return nil
}
