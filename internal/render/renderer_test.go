// ABOUTME: Tests for the renderer lifecycle: mode choice, one-way downgrade, coalescing, restore
// ABOUTME: A fake Bubble Tea program stands in for the interactive view

package render

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/mauromedda/punchcard-go/internal/grid"
	"github.com/mauromedda/punchcard-go/internal/log"
	"github.com/mauromedda/punchcard-go/pkg/card"
	"github.com/mauromedda/punchcard-go/pkg/tui/terminal"
)

type fakeProgram struct {
	ctx    context.Context
	runErr error

	mu   sync.Mutex
	msgs []tea.Msg
}

func (p *fakeProgram) Run() (tea.Model, error) {
	if p.runErr != nil {
		return nil, p.runErr
	}
	<-p.ctx.Done()
	return nil, tea.ErrProgramKilled
}

func (p *fakeProgram) Send(msg tea.Msg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

func (p *fakeProgram) leds() []grid.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var evs []grid.ChangeEvent
	for _, m := range p.msgs {
		if lm, ok := m.(ledMsg); ok {
			evs = append(evs, lm.events...)
		}
	}
	return evs
}

type programRecorder struct {
	mu       sync.Mutex
	programs []*fakeProgram
	runErr   error
}

func (f *programRecorder) factory(ctx context.Context, _ tea.Model, _ terminal.Terminal) Program {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &fakeProgram{ctx: ctx, runErr: f.runErr}
	f.programs = append(f.programs, p)
	return p
}

func (f *programRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.programs)
}

func (f *programRecorder) first() *fakeProgram {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.programs[0]
}

func asciiConfig() DisplayConfig {
	cfg := DefaultDisplayConfig()
	cfg.Charset = CharsetASCII
	cfg.CoalesceWindow = 20 * time.Millisecond
	return cfg
}

func TestRenderer_SmallTerminalSelectsFallback(t *testing.T) {
	t.Parallel()

	m := grid.NewManager()
	vt := terminal.NewVirtualTerminal(20, 5)
	var rec programRecorder

	r, err := New(m, vt, asciiConfig(), WithProgramFactory(rec.factory))
	require.NoError(t, err)
	r.Start(context.Background())

	require.Eventually(t, func() bool { return strings.Contains(vt.Output(), "status:") }, time.Second, 5*time.Millisecond)
	require.NoError(t, r.Stop())

	require.Equal(t, ModeFallback, r.Mode())
	require.False(t, r.Downgraded())
	require.Zero(t, rec.count(), "interactive program must not be built")
	require.Zero(t, vt.EnterCount())
	require.Zero(t, m.Subscribers())
}

func TestRenderer_InteractiveForwardsQueues(t *testing.T) {
	t.Parallel()

	m := grid.NewManager()
	vt := terminal.NewVirtualTerminal(100, 30)
	var rec programRecorder

	r, err := New(m, vt, asciiConfig(), WithProgramFactory(rec.factory))
	require.NoError(t, err)
	r.Start(context.Background())
	r.Start(context.Background())

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, vt.IsRawMode, time.Second, 5*time.Millisecond)

	require.NoError(t, m.SetColumn(1, card.NewRowSet(12, 8)))
	require.NoError(t, m.SetColumn(2, card.NewRowSet(12, 9)))
	require.Eventually(t, func() bool { return len(rec.first().leds()) == 2 }, time.Second, 5*time.Millisecond)

	evs := rec.first().leds()
	require.Equal(t, uint64(1), evs[0].Seq)
	require.Equal(t, uint64(2), evs[1].Seq)

	require.NoError(t, r.Stop())
	require.NoError(t, r.Stop())
	require.Equal(t, ModeInteractive, r.Mode())
	require.False(t, vt.IsRawMode(), "terminal must be restored")
	require.Equal(t, 1, vt.ExitCount())
}

func TestRenderer_DowngradesOnProgramError(t *testing.T) {
	t.Parallel()

	m := grid.NewManager()
	vt := terminal.NewVirtualTerminal(100, 30)
	vt.SetTTY(false)
	rec := programRecorder{runErr: errors.New("could not open a new TTY")}

	r, err := New(m, vt, asciiConfig(), WithProgramFactory(rec.factory))
	require.NoError(t, err)
	r.Start(context.Background())

	require.Eventually(t, func() bool {
		return strings.Contains(vt.Output(), "interactive view unavailable")
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.SetCell(9, 3, true))
	require.Eventually(t, func() bool {
		return strings.Contains(vt.Output(), " 9 |..#")
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Stop())
	require.Equal(t, ModeFallback, r.Mode())
	require.True(t, r.Downgraded())
	require.Equal(t, 1, rec.count(), "no re-promotion attempt")
	require.False(t, vt.IsRawMode())
}

func TestRenderer_DowngradesOnRawModeFailure(t *testing.T) {
	t.Parallel()

	vt := terminal.NewVirtualTerminal(100, 30)
	vt.FailRawMode(errors.New("inappropriate ioctl for device"))
	var rec programRecorder

	r, err := New(grid.NewManager(), vt, asciiConfig(), WithProgramFactory(rec.factory))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()

	require.Eventually(t, r.Downgraded, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errc)
	require.Zero(t, rec.count())
}

func TestRenderer_FallbackCoalescesBursts(t *testing.T) {
	t.Parallel()

	m := grid.NewManager()
	vt := terminal.NewVirtualTerminal(120, 40)
	vt.SetTTY(false)
	cfg := asciiConfig()
	cfg.ForceFallback = true
	cfg.CoalesceWindow = 100 * time.Millisecond

	r, err := New(m, vt, cfg)
	require.NoError(t, err)
	r.Start(context.Background())
	defer func() { require.NoError(t, r.Stop()) }()

	require.Eventually(t, func() bool { return strings.Count(vt.Output(), "status:") >= 1 }, time.Second, 5*time.Millisecond)
	// Let the startup log line's redraw settle.
	time.Sleep(2 * cfg.CoalesceWindow)
	before := strings.Count(vt.Output(), "status:")

	for c := 1; c <= 20; c++ {
		require.NoError(t, m.SetCell(0, c, true))
	}
	require.Eventually(t, func() bool { return strings.Contains(vt.Output(), "(#20)") }, time.Second, 5*time.Millisecond)

	frames := strings.Count(vt.Output(), "status:") - before
	require.LessOrEqual(t, frames, 2, "20 updates should coalesce into one or two frames")
}

func TestRenderer_StatusAndVerboseDebug(t *testing.T) {
	t.Parallel()

	vt := terminal.NewVirtualTerminal(120, 40)
	vt.SetTTY(false)
	cfg := asciiConfig()
	cfg.ForceFallback = true
	cfg.Verbose = true

	r, err := New(grid.NewManager(), vt, cfg)
	require.NoError(t, err)
	r.Start(context.Background())
	defer func() { require.NoError(t, r.Stop()) }()

	r.SetStatus("hardware simulated connected")
	r.Debugf("encoded %d columns", 2)

	require.Eventually(t, func() bool {
		out := vt.Output()
		return strings.Contains(out, "status: hardware simulated connected") &&
			strings.Contains(out, "encoded 2 columns")
	}, time.Second, 5*time.Millisecond)
}

func TestRenderer_ConfigErrors(t *testing.T) {
	t.Parallel()

	vt := terminal.NewVirtualTerminal(80, 24)
	bad := DefaultDisplayConfig()
	bad.Charset = Charset(7)
	_, err := New(grid.NewManager(), vt, bad)
	require.ErrorIs(t, err, ErrUnknownCharset)

	m := grid.NewManager()
	cfg := asciiConfig()
	cfg.ForceFallback = true
	r, err := New(m, vt, cfg)
	require.NoError(t, err)
	require.ErrorIs(t, r.UpdateDisplay(bad), ErrUnknownCharset)

	next := DefaultDisplayConfig()
	next.Charset = CharsetStar
	require.NoError(t, r.UpdateDisplay(next))
	require.Equal(t, CharsetStar, r.Config().Charset)
	require.True(t, r.Config().ForceFallback, "mode settings are fixed for the session")

	require.NoError(t, r.Stop())
	require.Zero(t, m.Subscribers())
}

func TestRenderer_DebugQueueBounded(t *testing.T) {
	t.Parallel()

	cfg := asciiConfig()
	cfg.DebugHistory = 3
	r, err := New(grid.NewManager(), terminal.NewVirtualTerminal(80, 24), cfg)
	require.NoError(t, err)
	defer r.Stop()

	for i := range 5 {
		r.Debugf("line %d", i)
	}
	require.Equal(t, uint64(2), r.DroppedDebug())
}

func TestRenderer_FallbackRedrawsOnResize(t *testing.T) {
	t.Parallel()

	m := grid.NewManager()
	require.NoError(t, m.SetCell(0, 80, true))
	vt := terminal.NewVirtualTerminal(120, 40)
	vt.SetTTY(false)
	cfg := asciiConfig()
	cfg.ForceFallback = true

	r, err := New(m, vt, cfg)
	require.NoError(t, err)
	r.Start(context.Background())
	defer func() { require.NoError(t, r.Stop()) }()

	banded := strings.Join(DrawCard(m.Snapshot(), CharsetASCII, 50), "\n")
	require.Eventually(t, func() bool { return strings.Contains(vt.Output(), "status:") }, time.Second, 5*time.Millisecond)
	require.NotContains(t, vt.Output(), banded)

	vt.SetSize(50, 40)
	require.Eventually(t, func() bool { return strings.Contains(vt.Output(), banded) }, time.Second, 5*time.Millisecond)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Mutates the global logger, so it does not run in parallel.
func TestRenderer_FallbackMutesConsole(t *testing.T) {
	var console lockedBuffer
	log.SetOutput(&console)
	defer log.SetOutput(os.Stderr)

	vt := terminal.NewVirtualTerminal(120, 40)
	vt.SetTTY(false)
	cfg := asciiConfig()
	cfg.ForceFallback = true

	r, err := New(grid.NewManager(), vt, cfg)
	require.NoError(t, err)
	r.Start(context.Background())

	require.Eventually(t, func() bool { return strings.Contains(vt.Output(), "status:") }, time.Second, 5*time.Millisecond)
	log.Warn("hardware gpio lost: %s", "bus error")
	require.Eventually(t, func() bool {
		return strings.Contains(vt.Output(), "log: ") && strings.Contains(vt.Output(), "hardware gpio lost: bus error")
	}, time.Second, 5*time.Millisecond)
	require.NotContains(t, console.String(), "hardware gpio lost")
	require.NotContains(t, vt.Output(), "debug: ", "debug lines need Verbose")

	require.NoError(t, r.Stop())
	log.Warn("after stop")
	require.Contains(t, console.String(), "after stop")
}
