// ABOUTME: ChangeEvent is the immutable message describing one grid mutation
// ABOUTME: Consumers fold events into their own mirror buffers with Apply

package grid

import (
	"fmt"
	"time"

	"github.com/mauromedda/punchcard-go/pkg/card"
)

// Scope identifies which cells a ChangeEvent covers.
type Scope uint8

const (
	ScopeCell Scope = iota + 1
	ScopeRow
	ScopeColumn
	ScopeFull
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeCell:
		return "cell"
	case ScopeRow:
		return "row"
	case ScopeColumn:
		return "column"
	case ScopeFull:
		return "full"
	default:
		return "unknown"
	}
}

// ChangeEvent describes one mutation. Fields not relevant to Scope are zero.
// Grid is shared between subscribers and must not be modified.
type ChangeEvent struct {
	Seq    uint64
	Scope  Scope
	Row    card.RowLabel // cell, row
	Column int           // cell, column (1..80)
	Value  bool          // cell, row
	Rows   card.RowSet   // column: exactly these rows are punched
	Grid   *card.Grid    // full: complete new state
	Time   time.Time
}

// Apply folds the event into g.
func (e ChangeEvent) Apply(g *card.Grid) {
	switch e.Scope {
	case ScopeCell:
		if idx, ok := card.IndexOf(e.Row); ok && card.ValidColumn(e.Column) {
			g[idx][e.Column-1] = e.Value
		}
	case ScopeRow:
		if idx, ok := card.IndexOf(e.Row); ok {
			for c := range card.Columns {
				g[idx][c] = e.Value
			}
		}
	case ScopeColumn:
		if card.ValidColumn(e.Column) {
			for i := range card.Rows {
				g[i][e.Column-1] = e.Rows.HasIndex(i)
			}
		}
	case ScopeFull:
		if e.Grid != nil {
			*g = *e.Grid
		} else {
			*g = card.Grid{}
		}
	}
}

// String summarizes the event for logs.
func (e ChangeEvent) String() string {
	switch e.Scope {
	case ScopeCell:
		return fmt.Sprintf("#%d cell row=%s col=%d value=%v", e.Seq, e.Row, e.Column, e.Value)
	case ScopeRow:
		return fmt.Sprintf("#%d row row=%s value=%v", e.Seq, e.Row, e.Value)
	case ScopeColumn:
		return fmt.Sprintf("#%d column col=%d rows=%q", e.Seq, e.Column, e.Rows.String())
	case ScopeFull:
		n := 0
		if e.Grid != nil {
			n = e.Grid.Count()
		}
		return fmt.Sprintf("#%d full holes=%d", e.Seq, n)
	default:
		return fmt.Sprintf("#%d %s", e.Seq, e.Scope)
	}
}
