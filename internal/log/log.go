// ABOUTME: Leveled logging over slog, fanned out to the console and attached sinks via slog-multi
// ABOUTME: The renderer attaches a sink and mutes the console while it owns the screen

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	slogmulti "github.com/samber/slog-multi"
)

// Level constants matching slog levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var level = new(slog.LevelVar)

var (
	mu          sync.Mutex
	console     io.Writer = os.Stderr
	consoleMute int
	sinks       = map[int]slog.Handler{}
	nextSink    int
	current     atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(LevelInfo)
	rebuildLocked()
}

// SetLevel sets the global log level.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// ParseLevel accepts debug, info, warn, and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// GetLevel returns the current log level.
func GetLevel() slog.Level {
	return level.Level()
}

// Leveler exposes the shared level for handlers built outside this package.
func Leveler() slog.Leveler {
	return level
}

// SetOutput redirects console output (stderr by default).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	console = w
	rebuildLocked()
}

// MuteConsole stops (or resumes) console output; attached sinks keep receiving.
// Calls nest: the console resumes once every mute has been undone.
func MuteConsole(mute bool) {
	mu.Lock()
	defer mu.Unlock()
	if mute {
		consoleMute++
	} else if consoleMute > 0 {
		consoleMute--
	}
	rebuildLocked()
}

// Attach adds a handler to the fan-out and returns a function removing it.
func Attach(h slog.Handler) (detach func()) {
	mu.Lock()
	id := nextSink
	nextSink++
	sinks[id] = h
	rebuildLocked()
	mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			delete(sinks, id)
			rebuildLocked()
			mu.Unlock()
		})
	}
}

func rebuildLocked() {
	handlers := make([]slog.Handler, 0, len(sinks)+1)
	if consoleMute == 0 && console != nil {
		handlers = append(handlers, slog.NewTextHandler(console, &slog.HandlerOptions{Level: level}))
	}
	for _, h := range sinks {
		handlers = append(handlers, h)
	}
	current.Store(slog.New(slogmulti.Fanout(handlers...)))
}

// Logger returns the structured logger backing the printf helpers.
func Logger() *slog.Logger {
	return current.Load()
}

// With returns a structured logger carrying the given attributes. It follows
// later SetOutput, MuteConsole, and Attach calls, so it may be kept for the
// lifetime of its owner.
func With(args ...any) *slog.Logger {
	return slog.New(liveHandler{}).With(args...)
}

// liveHandler resolves the current fan-out on every record.
type liveHandler struct {
	attrs  []slog.Attr
	groups []string
}

func (h liveHandler) resolve() slog.Handler {
	out := Logger().Handler()
	if len(h.attrs) > 0 {
		out = out.WithAttrs(h.attrs)
	}
	for _, g := range h.groups {
		out = out.WithGroup(g)
	}
	return out
}

func (h liveHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return Logger().Handler().Enabled(ctx, l)
}

func (h liveHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h liveHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(h.groups) > 0 {
		// Attributes added after a group belong inside it; resolve now.
		return h.resolve().WithAttrs(attrs)
	}
	h.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return h
}

func (h liveHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h.groups = append(append([]string(nil), h.groups...), name)
	return h
}

func logf(l slog.Level, format string, args ...any) {
	lg := Logger()
	if !lg.Enabled(context.Background(), l) {
		return
	}
	lg.Log(context.Background(), l, fmt.Sprintf(format, args...))
}

// Debug logs a debug message if the level allows it.
func Debug(format string, args ...any) {
	logf(LevelDebug, format, args...)
}

// Info logs an info message if the level allows it.
func Info(format string, args ...any) {
	logf(LevelInfo, format, args...)
}

// Warn logs a warning message if the level allows it.
func Warn(format string, args ...any) {
	logf(LevelWarn, format, args...)
}

// Error logs an error message.
func Error(format string, args ...any) {
	logf(LevelError, format, args...)
}
