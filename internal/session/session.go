// ABOUTME: Session owns one grid and the consumers fed from it: hardware runner, renderer, recorder, log observer
// ABOUTME: Run supervises them with errgroup; Display encodes a message and punches it into the grid

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mauromedda/punchcard-go/internal/animation"
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

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("session already run")

// Session is one punch-card simulation from start to shutdown.
type Session struct {
	ID string

	grid     *grid.Manager
	runner   *hardware.Runner
	renderer *render.Renderer
	recorder *tape.Recorder

	term          terminal.Terminal
	backend       hardware.Backend
	renderOptions []render.Option
	stops         []func()

	mu      sync.Mutex
	rt      *config.Runtime
	started bool
	done    chan struct{}
}

// Option customizes New.
type Option func(*Session)

// WithTerminal draws the grid on t. Without it the session is headless.
func WithTerminal(t terminal.Terminal) Option {
	return func(s *Session) { s.term = t }
}

// WithBackend replaces the backend built from the hardware config.
func WithBackend(b hardware.Backend) Option {
	return func(s *Session) { s.backend = b }
}

// WithRenderOptions passes options through to render.New.
func WithRenderOptions(opts ...render.Option) Option {
	return func(s *Session) { s.renderOptions = append(s.renderOptions, opts...) }
}

// WithRecorder records every grid event to rec. The session closes it.
func WithRecorder(rec *tape.Recorder) Option {
	return func(s *Session) { s.recorder = rec }
}

// New builds every component from rt. A recorder is opened at rt.RecordPath
// unless WithRecorder supplied one.
func New(rt *config.Runtime, opts ...Option) (*Session, error) {
	s := &Session{
		grid: grid.NewManager(),
		rt:   rt,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.backend == nil {
		b, err := hardware.New(rt.Hardware)
		if err != nil {
			return nil, fmt.Errorf("hardware: %w", err)
		}
		s.backend = b
	}

	if s.recorder == nil && rt.RecordPath != "" {
		rec, err := tape.Create(rt.RecordPath, tableName(rt))
		if err != nil {
			return nil, err
		}
		s.recorder = rec
	}
	if s.recorder != nil {
		s.ID = s.recorder.Header().SessionID
	} else {
		s.ID = uuid.New().String()
	}

	if s.term != nil {
		r, err := render.New(s.grid, s.term, rt.Display, s.renderOptions...)
		if err != nil {
			s.closeRecorder()
			return nil, err
		}
		s.renderer = r
	}

	s.runner = hardware.NewRunner(s.backend, s.grid,
		hardware.WithStatus(s.hardwareStatus),
		hardware.WithReconnectInterval(rt.Hardware.ReconnectInterval),
	)
	s.observe()
	return s, nil
}

// observe subscribes the log observer and the recorder. They run until
// stopObservers, which drains what they have queued, so the shutdown Clear
// is seen as well.
func (s *Session) observe() {
	logger := log.With("session", s.ID)
	bg := context.Background()
	s.stops = append(s.stops, s.grid.SubscribeFunc(bg, func(ev grid.ChangeEvent) {
		logger.Debug("grid event", "event", ev.String())
	}))
	if s.recorder != nil {
		s.stops = append(s.stops, s.recorder.Follow(bg, s.grid))
	}
}

func (s *Session) stopObservers() {
	for _, stop := range s.stops {
		stop()
	}
	s.closeRecorder()
}

func tableName(rt *config.Runtime) string {
	if rt.Table == nil {
		return ""
	}
	return rt.Table.Name()
}

// Grid returns the session's grid manager.
func (s *Session) Grid() *grid.Manager { return s.grid }

// Runner returns the hardware runner.
func (s *Session) Runner() *hardware.Runner { return s.runner }

// Renderer returns the terminal renderer, or nil for a headless session.
func (s *Session) Renderer() *render.Renderer { return s.renderer }

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

// Run starts every consumer and blocks until ctx is done or the user quits
// the renderer. On return the hardware is disconnected, the terminal
// restored, and the grid cleared.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyRun
	}
	s.started = true
	s.mu.Unlock()
	defer close(s.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := log.With("session", s.ID)
	logger.Info("session started", "hardware", s.backend.Kind().String(), "table", tableName(s.currentRuntime()))
	defer s.stopObservers()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.runner.Run(gctx)
	})

	if s.renderer != nil {
		g.Go(func() error {
			s.renderer.Start(gctx)
			<-s.renderer.Done()
			cancel()
			return s.renderer.Stop()
		})
	}

	err := g.Wait()
	s.grid.Clear()
	logger.Info("session stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close releases a session that will never Run.
func (s *Session) Close() {
	s.mu.Lock()
	started := s.started
	s.started = true
	s.mu.Unlock()
	if started {
		return
	}
	s.runner.Close()
	if s.renderer != nil {
		_ = s.renderer.Stop()
	}
	s.stopObservers()
	close(s.done)
}

func (s *Session) closeRecorder() {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Close(); err != nil {
		log.Warn("closing tape: %v", err)
	}
}

func (s *Session) hardwareStatus(msg string) {
	log.Warn("%s", msg)
	if s.renderer != nil {
		s.renderer.SetStatus(msg)
	}
}

// Status shows msg on the renderer status line and logs it.
func (s *Session) Status(msg string) {
	log.Info("%s", msg)
	if s.renderer != nil {
		s.renderer.SetStatus(msg)
	}
}

// Reconnect asks the runner to retry the configured hardware now.
func (s *Session) Reconnect() {
	s.runner.Reconnect()
}

func (s *Session) currentRuntime() *config.Runtime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rt
}

// Reload applies settings that can change while running: display, encoding,
// and animation settings. Hardware changes need a new session.
func (s *Session) Reload(rt *config.Runtime) error {
	if s.renderer != nil {
		if err := s.renderer.UpdateDisplay(rt.Display); err != nil {
			return err
		}
	}
	log.SetLevel(rt.LogLevel)

	s.mu.Lock()
	prev := s.rt
	s.rt = rt
	s.mu.Unlock()

	if prev.Hardware != rt.Hardware {
		log.Warn("hardware settings changed; restart to apply them")
	}
	return nil
}

// Result describes one displayed message.
type Result struct {
	Text      string
	Columns   []hollerith.Column
	Truncated bool
}

// Display clears the card and punches text into it. Encoding errors leave
// the grid untouched. With animations enabled the message is revealed
// column by column; cancelling ctx stops the animation, and the full
// message is then loaded at once.
func (s *Session) Display(ctx context.Context, text string) (Result, error) {
	rt := s.currentRuntime()

	normalized := hollerith.Normalize(text, rt.Table)
	cols, err := hollerith.EncodeMessage(normalized, rt.Table, rt.EncodeOptions...)
	if err != nil {
		return Result{}, err
	}
	res := Result{Text: normalized, Columns: cols, Truncated: hollerith.Truncated(normalized)}

	var final card.Grid
	for _, c := range cols {
		for i := range card.Rows {
			final[i][c.Index-1] = c.Rows.HasIndex(i)
		}
		if c.Substituted || c.Skipped {
			log.Debug("column %d: %q not in table %s", c.Index, c.Char, rt.Table.Name())
		}
	}

	s.grid.Clear()
	if rt.Animations && rt.FrameDelay > 0 {
		if err := animation.Play(ctx, s.grid, animation.Reveal(final), rt.FrameDelay, 1); err != nil {
			s.grid.Load(final)
			return res, err
		}
		return res, nil
	}
	for _, c := range cols {
		if c.Rows.IsEmpty() {
			continue
		}
		if err := s.grid.SetColumn(c.Index, c.Rows); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Animate plays a named effect repeat times, then clears the card.
func (s *Session) Animate(ctx context.Context, name string, repeat int) error {
	frames, ok := animation.ByName(name)
	if !ok {
		return fmt.Errorf("unknown animation %q (available: %v)", name, animation.Names())
	}
	delay := s.currentRuntime().FrameDelay
	defer s.grid.Clear()
	return animation.Play(ctx, s.grid, frames, delay, repeat)
}

// Clear blanks the card.
func (s *Session) Clear() {
	s.grid.Clear()
}
