// ABOUTME: Tests for the GPIO backend's frame batching and failure reporting
// ABOUTME: A fake driver records frames and can fail opens or writes on demand

package hardware

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mauromedda/punchcard-go/internal/grid"
	"github.com/mauromedda/punchcard-go/pkg/card"
)

type fakeDriver struct {
	mu         sync.Mutex
	openErr    error
	writeErr   error
	frames     [][]bool
	brightness float64
	opens      int
	closes     int
}

func (d *fakeDriver) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return d.openErr
	}
	d.opens++
	return nil
}

func (d *fakeDriver) Write(frame []bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writeErr != nil {
		return d.writeErr
	}
	d.frames = append(d.frames, append([]bool(nil), frame...))
	return nil
}

func (d *fakeDriver) SetBrightness(b float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.brightness = b
	return nil
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

func (d *fakeDriver) fail(open, write error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openErr, d.writeErr = open, write
}

func (d *fakeDriver) lastFrame() []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.frames) == 0 {
		return nil
	}
	return d.frames[len(d.frames)-1]
}

func (d *fakeDriver) frameCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.frames)
}

func gpioConfig(width int, layout Layout, rate time.Duration) Config {
	cfg := DefaultConfig()
	cfg.Kind = KindGPIO
	cfg.Width = width
	cfg.Layout = layout
	cfg.UpdateRate = rate
	cfg.Brightness = 0.5
	return cfg
}

func TestGPIO_ConnectUnavailable(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{openErr: errors.New("no /dev/gpiomem")}
	g := NewGPIO(gpioConfig(8, LayoutRowMajor, time.Hour), d)

	err := g.Connect()
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, g.Start(), ErrNotConnected)
	require.ErrorIs(t, g.PushUpdate(grid.ChangeEvent{Scope: grid.ScopeFull}), ErrUnavailable)
}

func TestGPIO_SerpentineFrame(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{}
	g := NewGPIO(gpioConfig(8, LayoutSerpentine, time.Hour), d)
	require.NoError(t, g.Connect())
	require.Equal(t, 0.5, d.brightness)

	// Not started: every update flushes directly.
	require.NoError(t, g.PushUpdate(grid.ChangeEvent{Seq: 1, Scope: grid.ScopeCell, Row: 11, Column: 1, Value: true}))
	frame := d.lastFrame()
	require.Len(t, frame, card.Rows*8)
	require.True(t, frame[15])
	require.False(t, frame[8])

	// Columns past the panel width are tracked but not drawn.
	require.NoError(t, g.PushUpdate(grid.ChangeEvent{Seq: 2, Scope: grid.ScopeCell, Row: 12, Column: 9, Value: true}))
	require.Equal(t, 1, countTrue(d.lastFrame()))

	require.NoError(t, g.Disconnect())
	require.Equal(t, 1, d.closes)
	require.Zero(t, countTrue(d.lastFrame()))
}

func TestGPIO_BatchesUntilTick(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{}
	g := NewGPIO(gpioConfig(card.Columns, LayoutRowMajor, 20*time.Millisecond), d)
	require.NoError(t, g.Connect())
	require.NoError(t, g.Start())
	defer func() { require.NoError(t, g.Disconnect()) }()

	// Connect marks the frame dirty; wait for the initial blank flush.
	require.Eventually(t, func() bool { return d.frameCount() >= 1 }, time.Second, 5*time.Millisecond)
	before := d.frameCount()

	for c := 1; c <= 10; c++ {
		require.NoError(t, g.PushUpdate(grid.ChangeEvent{Seq: uint64(c), Scope: grid.ScopeColumn, Column: c, Rows: card.NewRowSet(0)}))
	}
	require.Eventually(t, func() bool {
		f := d.lastFrame()
		return countTrue(f) == 10
	}, time.Second, 5*time.Millisecond)
	require.Less(t, d.frameCount()-before, 10, "cell updates should be batched")

	full := card.Grid{}
	full[0][0] = true
	n := d.frameCount()
	require.NoError(t, g.PushUpdate(grid.ChangeEvent{Seq: 11, Scope: grid.ScopeFull, Grid: &full}))
	require.Greater(t, d.frameCount(), n, "full event flushes immediately")
	require.Equal(t, 1, countTrue(d.lastFrame()))
}

func TestGPIO_WriteFailureSurfacesOnNextPush(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{}
	g := NewGPIO(gpioConfig(8, LayoutRowMajor, time.Hour), d)
	require.NoError(t, g.Connect())

	d.fail(nil, errors.New("i/o error"))
	err := g.PushUpdate(grid.ChangeEvent{Seq: 1, Scope: grid.ScopeFull, Grid: &card.Grid{}})
	require.ErrorIs(t, err, ErrUnavailable)

	err = g.PushUpdate(grid.ChangeEvent{Seq: 2, Scope: grid.ScopeRow, Row: 1, Value: true})
	require.ErrorIs(t, err, ErrUnavailable)

	d.fail(nil, nil)
	require.NoError(t, g.Connect())
	require.NoError(t, g.PushUpdate(grid.ChangeEvent{Seq: 3, Scope: grid.ScopeRow, Row: 1, Value: true}))
	require.Equal(t, 2, d.opens)
	require.Equal(t, 8, countTrue(d.lastFrame()))
}

func countTrue(frame []bool) int {
	n := 0
	for _, v := range frame {
		if v {
			n++
		}
	}
	return n
}
