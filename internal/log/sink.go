// ABOUTME: FuncHandler turns slog records into flat Entry values for in-process sinks
// ABOUTME: Used to route log lines into the renderer's debug panel queue

package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Entry is one formatted log record.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
}

// String renders the entry as "15:04:05 LEVEL message".
func (e Entry) String() string {
	return fmt.Sprintf("%s %-5s %s", e.Time.Format("15:04:05"), e.Level.String(), e.Message)
}

// FuncHandler is an slog.Handler that calls fn with each formatted record.
// fn must not block.
type FuncHandler struct {
	fn     func(Entry)
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

// NewFuncHandler creates a handler filtered by the shared log level.
func NewFuncHandler(fn func(Entry)) *FuncHandler {
	return &FuncHandler{fn: fn, level: level}
}

// Enabled implements slog.Handler.
func (h *FuncHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *FuncHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, h.prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})
	h.fn(Entry{Time: r.Time, Level: r.Level, Message: b.String()})
	return nil
}

// WithAttrs implements slog.Handler.
func (h *FuncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &c
}

// WithGroup implements slog.Handler.
func (h *FuncHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(a.Value.String())
}
