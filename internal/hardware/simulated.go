// ABOUTME: Simulated backend: keeps an in-memory mirror of the card instead of driving LEDs
// ABOUTME: Used when no hardware is configured and as the fallback after hardware loss

package hardware

import (
	"strings"
	"sync"

	"github.com/mauromedda/punchcard-go/internal/grid"
	"github.com/mauromedda/punchcard-go/pkg/card"
)

// Simulated mirrors every update it receives. Safe for concurrent use.
type Simulated struct {
	mu        sync.Mutex
	mirror    card.Grid
	lastSeq   uint64
	updates   int
	connected bool
	running   bool
}

// NewSimulated returns a disconnected simulated backend.
func NewSimulated() *Simulated {
	return &Simulated{}
}

func (s *Simulated) Kind() Kind { return KindSimulated }

// Connect always succeeds.
func (s *Simulated) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *Simulated) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.running = false
	return nil
}

func (s *Simulated) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	s.running = true
	return nil
}

func (s *Simulated) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// PushUpdate folds ev into the mirror. It accepts updates in any lifecycle
// state so the mirror stays usable for inspection.
func (s *Simulated) PushUpdate(ev grid.ChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.Apply(&s.mirror)
	s.lastSeq = ev.Seq
	s.updates++
	return nil
}

// Snapshot returns the mirrored grid and the sequence of the last update.
func (s *Simulated) Snapshot() (card.Grid, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirror, s.lastSeq
}

// Updates returns how many events have been applied.
func (s *Simulated) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// Render draws the mirror as one string per row, top row (12) first.
func (s *Simulated) Render(on, off string) []string {
	g, _ := s.Snapshot()
	lines := make([]string, card.Rows)
	var b strings.Builder
	for i := range card.Rows {
		b.Reset()
		for c := range card.Columns {
			if g[i][c] {
				b.WriteString(on)
			} else {
				b.WriteString(off)
			}
		}
		lines[i] = b.String()
	}
	return lines
}
