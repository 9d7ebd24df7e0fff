// ABOUTME: End-to-end session tests: message display through to backend and terminal, hardware loss, recording
// ABOUTME: Sessions run headless or on a virtual terminal with a simulated or fake GPIO backend

package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/mauromedda/punchcard-go/internal/config"
	"github.com/mauromedda/punchcard-go/internal/grid"
	"github.com/mauromedda/punchcard-go/internal/hardware"
	"github.com/mauromedda/punchcard-go/internal/log"
	"github.com/mauromedda/punchcard-go/internal/render"
	"github.com/mauromedda/punchcard-go/internal/tape"
	"github.com/mauromedda/punchcard-go/pkg/card"
	"github.com/mauromedda/punchcard-go/pkg/hollerith"
	"github.com/mauromedda/punchcard-go/pkg/tui/terminal"
)

func runtimeFor(t *testing.T, mutate func(*config.Settings)) *config.Runtime {
	t.Helper()
	s := config.Defaults()
	s.Animations.Enabled = false
	s.Hardware.ReconnectInterval = 0
	if mutate != nil {
		mutate(&s)
	}
	rt, err := s.Resolve()
	require.NoError(t, err)
	return rt
}

// start runs s in the background; the returned func cancels and waits.
func start(t *testing.T, s *Session) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	return func() error {
		cancel()
		select {
		case err := <-errCh:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("session did not stop")
			return nil
		}
	}
}

func hiGrid() card.Grid {
	var g card.Grid
	for _, l := range []card.RowLabel{12, 8} {
		i, _ := card.IndexOf(l)
		g[i][0] = true
	}
	for _, l := range []card.RowLabel{12, 9} {
		i, _ := card.IndexOf(l)
		g[i][1] = true
	}
	return g
}

func simulatedMirror(t *testing.T, s *Session) card.Grid {
	t.Helper()
	sim, ok := s.Runner().Active().(*hardware.Simulated)
	if !ok {
		return card.Grid{}
	}
	g, _ := sim.Snapshot()
	return g
}

func TestDisplay_HIReachesBackend(t *testing.T) {
	t.Parallel()

	s, err := New(runtimeFor(t, nil))
	require.NoError(t, err)
	stop := start(t, s)

	res, err := s.Display(t.Context(), "hi")
	require.NoError(t, err)
	require.Equal(t, "HI", res.Text)
	require.Len(t, res.Columns, 2)
	require.Equal(t, card.NewRowSet(12, 8), res.Columns[0].Rows)
	require.Equal(t, card.NewRowSet(12, 9), res.Columns[1].Rows)

	require.Equal(t, hiGrid(), s.Grid().Snapshot())
	require.Eventually(t, func() bool { return simulatedMirror(t, s) == hiGrid() }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, stop())
	require.True(t, s.Grid().Snapshot().IsBlank(), "grid cleared on shutdown")
	require.ErrorIs(t, s.Run(t.Context()), ErrAlreadyRun)
}

func TestDisplay_ClearsBetweenMessages(t *testing.T) {
	t.Parallel()

	s, err := New(runtimeFor(t, nil))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Display(t.Context(), "ABCDEFGH")
	require.NoError(t, err)
	_, err = s.Display(t.Context(), "HI")
	require.NoError(t, err)
	require.Equal(t, hiGrid(), s.Grid().Snapshot())
}

func TestDisplay_EncodingErrorLeavesGrid(t *testing.T) {
	t.Parallel()

	s, err := New(runtimeFor(t, nil))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Display(t.Context(), "HI")
	require.NoError(t, err)
	seq := s.Grid().Sequence()

	_, err = s.Display(t.Context(), "H~I")
	require.ErrorIs(t, err, hollerith.ErrUnsupportedCharacter)
	require.Equal(t, hiGrid(), s.Grid().Snapshot())
	require.Equal(t, seq, s.Grid().Sequence())
}

func TestDisplay_SubstitutePolicy(t *testing.T) {
	t.Parallel()

	s, err := New(runtimeFor(t, func(st *config.Settings) {
		st.Encoding.Unknown = "substitute"
		st.Encoding.Substitute = "?"
	}))
	require.NoError(t, err)
	defer s.Close()

	res, err := s.Display(t.Context(), "A~")
	require.NoError(t, err)
	require.True(t, res.Columns[1].Substituted)
	q, _ := hollerith.Encode('?', hollerith.MustLookup("ibm029"))
	require.Equal(t, q, s.Grid().Snapshot().Column(2))
}

func TestDisplay_Animated(t *testing.T) {
	t.Parallel()

	s, err := New(runtimeFor(t, func(st *config.Settings) {
		st.Animations.Enabled = true
		st.Animations.FrameDelay = time.Millisecond
	}))
	require.NoError(t, err)
	defer s.Close()

	before := s.Grid().Sequence()
	_, err = s.Display(t.Context(), "HI")
	require.NoError(t, err)
	require.Equal(t, hiGrid(), s.Grid().Snapshot())
	require.Greater(t, s.Grid().Sequence()-before, uint64(2), "revealed over several frames")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = s.Display(ctx, "HI")
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, hiGrid(), s.Grid().Snapshot(), "cancelled reveal still shows the message")
}

func TestAnimate(t *testing.T) {
	t.Parallel()

	s, err := New(runtimeFor(t, func(st *config.Settings) { st.Animations.FrameDelay = 0 }))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Animate(t.Context(), "checkerboard", 2))
	require.True(t, s.Grid().Snapshot().IsBlank())
	require.Error(t, s.Animate(t.Context(), "fireworks", 1))
}

func TestRun_FallbackTerminalShowsMessage(t *testing.T) {
	t.Parallel()

	vt := terminal.NewVirtualTerminal(20, 5)
	s, err := New(runtimeFor(t, func(st *config.Settings) {
		st.Display.Charset = "ascii"
		st.Display.Coalesce = 5 * time.Millisecond
	}), WithTerminal(vt))
	require.NoError(t, err)
	stop := start(t, s)

	_, err = s.Display(t.Context(), "HI")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(vt.Output()), []byte("12 |##"))
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, render.ModeFallback, s.Renderer().Mode())

	require.NoError(t, stop())
	require.False(t, vt.IsRawMode())
}

type quitProgram struct{}

func (quitProgram) Run() (tea.Model, error) { return nil, nil }
func (quitProgram) Send(tea.Msg)            {}

func TestRun_RendererQuitEndsSession(t *testing.T) {
	t.Parallel()

	vt := terminal.NewVirtualTerminal(100, 30)
	factory := func(context.Context, tea.Model, terminal.Terminal) render.Program { return quitProgram{} }
	s, err := New(runtimeFor(t, nil), WithTerminal(vt), WithRenderOptions(render.WithProgramFactory(factory)))
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(t.Context()) }()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session still running after renderer quit")
	}
	<-s.Done()
	require.False(t, vt.IsRawMode())
}

// heldProgram stands in for Bubble Tea: it runs until its context ends and
// keeps everything the bridge sends.
type heldProgram struct {
	ctx context.Context

	mu   sync.Mutex
	sent []string
}

func (p *heldProgram) Run() (tea.Model, error) {
	<-p.ctx.Done()
	return nil, nil
}

func (p *heldProgram) Send(msg tea.Msg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, fmt.Sprint(msg))
}

func (p *heldProgram) received(substr string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.sent {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
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
func TestRun_InteractiveKeepsConsoleSilent(t *testing.T) {
	saved := log.GetLevel()
	defer log.SetLevel(saved)
	log.SetLevel(log.LevelDebug)

	var console lockedBuffer
	log.SetOutput(&console)
	defer log.SetOutput(os.Stderr)

	programs := make(chan *heldProgram, 1)
	factory := func(ctx context.Context, _ tea.Model, _ terminal.Terminal) render.Program {
		p := &heldProgram{ctx: ctx}
		programs <- p
		return p
	}
	vt := terminal.NewVirtualTerminal(100, 30)
	s, err := New(runtimeFor(t, nil), WithTerminal(vt), WithRenderOptions(render.WithProgramFactory(factory)))
	require.NoError(t, err)
	stop := start(t, s)

	var p *heldProgram
	select {
	case p = <-programs:
	case <-time.After(5 * time.Second):
		t.Fatal("interactive program never started")
	}
	require.Equal(t, render.ModeInteractive, s.Renderer().Mode())

	_, err = s.Display(t.Context(), "HI")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return p.received("grid event") }, 2*time.Second, 5*time.Millisecond)

	require.NotContains(t, console.String(), "grid event")
	require.NoError(t, stop())
}

type flakyDriver struct {
	failing atomic.Bool

	mu     sync.Mutex
	writes int
}

var errPanelGone = errors.New("panel gone")

func (d *flakyDriver) Open() error {
	if d.failing.Load() {
		return errPanelGone
	}
	return nil
}

func (d *flakyDriver) Write([]bool) error {
	if d.failing.Load() {
		return errPanelGone
	}
	d.mu.Lock()
	d.writes++
	d.mu.Unlock()
	return nil
}

func (d *flakyDriver) SetBrightness(float64) error { return nil }
func (d *flakyDriver) Close() error                { return nil }

func TestRun_HardwareLossDegradesAndKeepsState(t *testing.T) {
	t.Parallel()

	drv := &flakyDriver{}
	cfg := hardware.DefaultConfig()
	cfg.Kind = hardware.KindGPIO
	cfg.UpdateRate = 5 * time.Millisecond
	gpio := hardware.NewGPIO(cfg, drv)

	vt := terminal.NewVirtualTerminal(20, 5)
	s, err := New(runtimeFor(t, func(st *config.Settings) { st.Display.Coalesce = 5 * time.Millisecond }),
		WithBackend(gpio), WithTerminal(vt))
	require.NoError(t, err)
	stop := start(t, s)

	require.Eventually(t, func() bool { return s.Runner().Active() == hardware.Backend(gpio) }, 2*time.Second, 5*time.Millisecond)

	drv.failing.Store(true)
	_, err = s.Display(t.Context(), "HI")
	require.NoError(t, err)
	require.NoError(t, s.Grid().SetCell(0, 3, true))

	want := s.Grid().Snapshot()
	require.Eventually(t, s.Runner().Degraded, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return simulatedMirror(t, s) == want }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(vt.Output()), []byte("hardware disconnected"))
	}, 2*time.Second, 5*time.Millisecond)

	drv.failing.Store(false)
	s.Reconnect()
	require.Eventually(t, func() bool { return !s.Runner().Degraded() }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, stop())
}

func TestRun_RecordsTape(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rec, err := tape.NewRecorder(&buf, "ibm029")
	require.NoError(t, err)

	s, err := New(runtimeFor(t, nil), WithRecorder(rec))
	require.NoError(t, err)
	require.Equal(t, rec.Header().SessionID, s.ID)
	stop := start(t, s)

	_, err = s.Display(t.Context(), "HI")
	require.NoError(t, err)
	require.NoError(t, stop())

	r, err := tape.NewReader(&buf)
	require.NoError(t, err)

	m := grid.NewManager()
	var scopes []grid.Scope
	stopWatch := m.SubscribeFunc(t.Context(), func(ev grid.ChangeEvent) { scopes = append(scopes, ev.Scope) })
	n, err := tape.Replay(t.Context(), r, m, 0)
	stopWatch()
	require.NoError(t, err)
	require.Equal(t, 4, n, "clear, two columns, shutdown clear")
	require.Equal(t, []grid.Scope{grid.ScopeFull, grid.ScopeColumn, grid.ScopeColumn, grid.ScopeFull}, scopes)
	require.True(t, m.Snapshot().IsBlank())
}

func TestReload_UpdatesDisplayAndEncoding(t *testing.T) {
	t.Parallel()

	vt := terminal.NewVirtualTerminal(20, 5)
	s, err := New(runtimeFor(t, nil), WithTerminal(vt))
	require.NoError(t, err)
	defer s.Close()

	next := runtimeFor(t, func(st *config.Settings) {
		st.Display.Charset = "star"
		st.Encoding.Unknown = "skip"
	})
	require.NoError(t, s.Reload(next))
	require.Equal(t, render.CharsetStar, s.Renderer().Config().Charset)

	res, err := s.Display(t.Context(), "A~")
	require.NoError(t, err)
	require.True(t, res.Columns[1].Skipped)
}
