// ABOUTME: Grid state manager: the single owner of the 12x80 hole matrix and its change log
// ABOUTME: Every mutation takes the lock, bumps the sequence, and publishes one ChangeEvent

package grid

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mauromedda/punchcard-go/internal/eventbus"
	"github.com/mauromedda/punchcard-go/pkg/card"
)

// ErrIndexOutOfRange matches every *IndexOutOfRangeError.
var ErrIndexOutOfRange = errors.New("index out of range")

// IndexOutOfRangeError reports a row label or column outside the card.
type IndexOutOfRangeError struct {
	Row    card.RowLabel
	Column int
}

func (e *IndexOutOfRangeError) Error() string {
	if !card.ValidLabel(e.Row) {
		return fmt.Sprintf("row label %d is not a card row", e.Row)
	}
	return fmt.Sprintf("column %d outside 1..%d", e.Column, card.Columns)
}

// Is lets errors.Is match ErrIndexOutOfRange.
func (e *IndexOutOfRangeError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// State is the manager's lifecycle state.
type State int

const (
	StateZeroed State = iota
	StatePopulated
)

// String returns the state name.
func (s State) String() string {
	if s == StatePopulated {
		return "populated"
	}
	return "zeroed"
}

// Manager owns one card grid. All methods are safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	cells card.Grid
	seq   uint64
	state State
	bus   *eventbus.Bus[ChangeEvent]
	now   func() time.Time
}

// NewManager returns a manager holding a zeroed grid.
func NewManager() *Manager {
	return &Manager{
		bus: eventbus.New[ChangeEvent](),
		now: time.Now,
	}
}

// SetCell sets one cell. Setting a cell to its current value still emits an event.
func (m *Manager) SetCell(row card.RowLabel, col int, value bool) error {
	idx, ok := card.IndexOf(row)
	if !ok || !card.ValidColumn(col) {
		return &IndexOutOfRangeError{Row: row, Column: col}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cells[idx][col-1] = value
	m.emitLocked(ChangeEvent{Scope: ScopeCell, Row: row, Column: col, Value: value})
	return nil
}

// SetColumn clears column col and punches exactly rows.
func (m *Manager) SetColumn(col int, rows card.RowSet) error {
	if !card.ValidColumn(col) {
		return &IndexOutOfRangeError{Row: card.Labels[0], Column: col}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range card.Rows {
		m.cells[i][col-1] = rows.HasIndex(i)
	}
	m.emitLocked(ChangeEvent{Scope: ScopeColumn, Column: col, Rows: rows})
	return nil
}

// SetRow sets every cell of one row.
func (m *Manager) SetRow(row card.RowLabel, value bool) error {
	idx, ok := card.IndexOf(row)
	if !ok {
		return &IndexOutOfRangeError{Row: row, Column: 1}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for c := range card.Columns {
		m.cells[idx][c] = value
	}
	m.emitLocked(ChangeEvent{Scope: ScopeRow, Row: row, Value: value})
	return nil
}

// Load replaces the whole grid and emits one full-grid event.
func (m *Manager) Load(g card.Grid) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cells = g
	m.emitFullLocked()
}

// Clear resets every cell and emits one full-grid event.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cells = card.Grid{}
	m.emitFullLocked()
	m.state = StateZeroed
}

// Snapshot returns a copy of the current grid.
func (m *Manager) Snapshot() card.Grid {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cells
}

// SnapshotSeq returns a copy of the grid with the sequence number it reflects.
func (m *Manager) SnapshotSeq() (card.Grid, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cells, m.seq
}

// Sequence returns the sequence number of the last emitted event (0 if none).
func (m *Manager) Sequence() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}

// State reports whether the grid is zeroed or populated.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribers returns the number of live subscriptions.
func (m *Manager) Subscribers() int {
	return m.bus.Count()
}

func (m *Manager) emitFullLocked() {
	g := m.cells
	m.emitLocked(ChangeEvent{Scope: ScopeFull, Grid: &g})
}

// emitLocked publishes while m.mu is held so queue order equals sequence order.
func (m *Manager) emitLocked(ev ChangeEvent) {
	m.seq++
	ev.Seq = m.seq
	ev.Time = m.now()
	m.state = StatePopulated
	m.bus.Publish(ev)
}
