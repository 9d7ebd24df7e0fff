// ABOUTME: ASCII fallback loop: redraws the bordered card, coalescing bursts into one frame
// ABOUTME: Write errors here are fatal because there is no further mode to fall back to

package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mauromedda/punchcard-go/internal/log"
	"github.com/mauromedda/punchcard-go/pkg/card"
)

const (
	clearScreen     = "\x1b[H\x1b[2J"
	fallbackDebugLn = 5
)

type fallbackState struct {
	grid   card.Grid
	seq    uint64
	status  string
	debug   []string
	notices []string
	frames  int
}

func (r *Renderer) runFallback(ctx context.Context) error {
	// Log lines reach the frame through the debug and notice queues; the
	// console would write between frames on the same screen.
	log.MuteConsole(true)
	defer log.MuteConsole(false)

	r.term.OnResize(func(int, int) {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	})
	defer r.term.OnResize(nil)

	var st fallbackState
	st.grid, st.seq = r.m.SnapshotSeq()
	st.status = "ascii fallback"
	r.collect(&st)
	if err := r.drawFallback(&st); err != nil {
		return err
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		pending := false
		select {
		case <-ctx.Done():
			return nil
		case <-r.leds.Ready():
			pending = true
		case <-r.debug.Ready():
			pending = true
		case <-r.status.Ready():
			pending = true
		case <-r.notices.Ready():
			pending = true
		case <-r.wake:
			pending = true
		case <-fire:
			fire = nil
			r.collect(&st)
			if err := r.drawFallback(&st); err != nil {
				return err
			}
			continue
		}

		if !pending || fire != nil {
			continue
		}
		window := r.Config().CoalesceWindow
		if window <= 0 {
			r.collect(&st)
			if err := r.drawFallback(&st); err != nil {
				return err
			}
			continue
		}
		if timer == nil {
			timer = time.NewTimer(window)
		} else {
			timer.Reset(window)
		}
		fire = timer.C
	}
}

// collect folds everything queued since the last frame into st.
func (r *Renderer) collect(st *fallbackState) {
	for _, ev := range r.leds.TryDrain() {
		if ev.Seq <= st.seq {
			continue
		}
		ev.Apply(&st.grid)
		st.seq = ev.Seq
	}
	if msgs := r.status.TryDrain(); len(msgs) > 0 {
		st.status = msgs[len(msgs)-1]
	}
	st.debug = append(st.debug, r.debug.TryDrain()...)
	if over := len(st.debug) - fallbackDebugLn; over > 0 {
		st.debug = append([]string(nil), st.debug[over:]...)
	}
	st.notices = append(st.notices, r.notices.TryDrain()...)
	if over := len(st.notices) - fallbackDebugLn; over > 0 {
		st.notices = append([]string(nil), st.notices[over:]...)
	}
}

func (r *Renderer) drawFallback(st *fallbackState) error {
	cfg := r.Config()
	width := cfg.Width
	if width == 0 {
		if w, _, err := r.term.Size(); err == nil {
			width = w
		}
	}

	var b strings.Builder
	if r.term.IsTerminal() {
		b.WriteString(clearScreen)
	} else if st.frames > 0 {
		b.WriteString("\n")
	}
	for _, line := range DrawCard(st.grid, cfg.Charset, width) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "status: %s (#%d)\n", st.status, st.seq)
	if cfg.Verbose {
		for _, line := range st.debug {
			fmt.Fprintf(&b, "debug: %s\n", line)
		}
	} else {
		for _, line := range st.notices {
			fmt.Fprintf(&b, "log: %s\n", line)
		}
	}

	if _, err := io.WriteString(r.term, b.String()); err != nil {
		return err
	}
	st.frames++
	return nil
}
