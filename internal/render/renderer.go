// ABOUTME: Terminal renderer: picks a mode, feeds it from the LED, debug, and status queues
// ABOUTME: Interactive failures downgrade once to the ASCII fallback; the terminal is always restored

package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mauromedda/punchcard-go/internal/eventbus"
	"github.com/mauromedda/punchcard-go/internal/grid"
	"github.com/mauromedda/punchcard-go/internal/log"
	"github.com/mauromedda/punchcard-go/pkg/tui/terminal"
)

// ErrInteractiveInit wraps any failure to bring up the interactive view.
var ErrInteractiveInit = errors.New("interactive terminal init failed")

// Program is the part of *tea.Program the renderer drives.
type Program interface {
	Run() (tea.Model, error)
	Send(msg tea.Msg)
}

// ProgramFactory builds the interactive program for a model.
type ProgramFactory func(ctx context.Context, m tea.Model, t terminal.Terminal) Program

// Option customizes a Renderer.
type Option func(*Renderer)

// WithProgramFactory replaces the Bubble Tea program constructor.
func WithProgramFactory(f ProgramFactory) Option {
	return func(r *Renderer) { r.newProgram = f }
}

// Renderer draws one grid on one terminal.
type Renderer struct {
	m    *grid.Manager
	term terminal.Terminal

	leds   *grid.Subscription
	debug   *eventbus.Queue[string]
	status  *eventbus.Queue[string]
	notices *eventbus.Queue[string]
	wake   chan struct{}

	newProgram ProgramFactory

	mu         sync.Mutex
	cfg        DisplayConfig
	mode       Mode
	downgraded bool
	cancel     context.CancelFunc
	done       chan struct{}
	runErr     error
}

// New validates cfg and subscribes to m. Configuration errors, such as an
// unknown character set, are returned here rather than at render time.
func New(m *grid.Manager, t terminal.Terminal, cfg DisplayConfig, opts ...Option) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("display config: %w", err)
	}
	cfg = cfg.withDefaults()

	r := &Renderer{
		m:          m,
		term:       t,
		cfg:        cfg,
		leds:       m.Subscribe(),
		debug:      eventbus.NewQueue[string](cfg.DebugHistory),
		status:     eventbus.NewQueue[string](statusHistory),
		notices:    eventbus.NewQueue[string](fallbackDebugLn),
		wake:       make(chan struct{}, 1),
		newProgram: defaultProgram,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func defaultProgram(ctx context.Context, m tea.Model, t terminal.Terminal) Program {
	opts := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	}
	if f, ok := t.(interface {
		InputFile() *os.File
		File() *os.File
	}); ok {
		opts = append(opts, tea.WithInput(f.InputFile()), tea.WithOutput(f.File()))
	} else {
		opts = append(opts, tea.WithInput(t), tea.WithOutput(t))
	}
	return tea.NewProgram(m, opts...)
}

// Debugf queues a line for the debug panel. It never blocks.
func (r *Renderer) Debugf(format string, args ...any) {
	r.debug.Push(time.Now().Format("15:04:05 ") + fmt.Sprintf(format, args...))
}

// SetStatus replaces the status line. It never blocks.
func (r *Renderer) SetStatus(msg string) {
	r.status.Push(msg)
}

// UpdateDisplay swaps the display config. The mode never changes.
func (r *Renderer) UpdateDisplay(cfg DisplayConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("display config: %w", err)
	}
	r.mu.Lock()
	cfg = cfg.withDefaults()
	cfg.ForceFallback = r.cfg.ForceFallback
	r.cfg = cfg
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return nil
}

// Config returns the current display config.
func (r *Renderer) Config() DisplayConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// Mode returns the active drawing mode.
func (r *Renderer) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// Downgraded reports whether interactive mode failed and fallback took over.
func (r *Renderer) Downgraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.downgraded
}

// DroppedDebug returns how many debug lines overflowed the history.
func (r *Renderer) DroppedDebug() uint64 {
	return r.debug.Dropped()
}

// Start runs the renderer on its own goroutine. Calling it again is a no-op.
func (r *Renderer) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		defer terminal.RecoverGoroutine(r.term, func(p any) {
			r.setRunErr(fmt.Errorf("renderer panic: %v", p))
		})
		r.setRunErr(r.Run(ctx))
	}(r.done)
}

// Done is closed when a started renderer exits. It is nil before Start.
func (r *Renderer) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Stop cancels a started renderer and waits for it to finish its current
// frame and restore the terminal. It is safe to call more than once.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if done == nil {
		r.leds.Close()
		return nil
	}
	cancel()
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runErr
}

func (r *Renderer) setRunErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runErr == nil {
		r.runErr = err
	}
}

// Run draws until ctx is done or the user quits the interactive view.
// A Renderer runs once.
func (r *Renderer) Run(ctx context.Context) error {
	defer r.leds.Close()

	detach := log.Attach(log.NewFuncHandler(func(e log.Entry) {
		line := e.String()
		r.debug.Push(line)
		if e.Level >= log.LevelWarn {
			r.notices.Push(line)
		}
	}))
	defer detach()

	w, h, sizeErr := r.term.Size()
	mode, reason := SelectMode(r.Config(), w, h, sizeErr)
	r.setMode(mode, false)

	if mode == ModeInteractive {
		err := r.runInteractive(ctx)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		log.Warn("interactive view failed, switching to ASCII fallback: %v", err)
		r.SetStatus("terminal: interactive view unavailable, using ASCII fallback")
		r.setMode(ModeFallback, true)
	} else {
		log.Info("using ASCII fallback: %s", reason)
	}

	if err := r.runFallback(ctx); err != nil {
		return fmt.Errorf("fallback renderer: %w", err)
	}
	return nil
}

func (r *Renderer) setMode(m Mode, downgraded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = m
	r.downgraded = r.downgraded || downgraded
}

func (r *Renderer) runInteractive(ctx context.Context) error {
	scope, err := terminal.Acquire(r.term)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInteractiveInit, err)
	}
	defer scope.Release()
	defer scope.RestoreOnPanic()

	log.MuteConsole(true)
	defer log.MuteConsole(false)

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	g, seq := r.m.SnapshotSeq()
	w, h, _ := r.term.Size()
	cfg := r.Config()
	if cfg.Width > 0 {
		w = cfg.Width
	}
	if cfg.Height > 0 {
		h = cfg.Height
	}
	p := r.newProgram(ctx, newModel(cfg, g, seq, w, h), r.term)

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.bridge(ctx, p)
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("%w: %v", ErrInteractiveInit, err)
	}
	return nil
}

// bridge forwards queue contents to the program until ctx is done.
func (r *Renderer) bridge(ctx context.Context, p Program) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.leds.Ready():
			if evs := r.leds.TryDrain(); len(evs) > 0 {
				p.Send(ledMsg{events: evs})
			}
		case <-r.debug.Ready():
			if lines := r.debug.TryDrain(); len(lines) > 0 {
				p.Send(debugMsg{lines: lines})
			}
		case <-r.status.Ready():
			if msgs := r.status.TryDrain(); len(msgs) > 0 {
				p.Send(statusMsg{text: msgs[len(msgs)-1]})
			}
		case <-r.wake:
			p.Send(displayMsg{cfg: r.Config()})
		}
	}
}
