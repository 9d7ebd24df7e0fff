// ABOUTME: CBOR encoding modes and wire records for change-event tapes
// ABOUTME: Integer keys keep records compact; full grids travel as 80 column row sets

package tape

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/mauromedda/punchcard-go/internal/grid"
	"github.com/mauromedda/punchcard-go/pkg/card"
)

// Version is the tape format written by this package.
const Version = 1

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("tape: cbor encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("tape: cbor decoder mode: %v", err))
	}
}

func newEncoder(w io.Writer) *cbor.Encoder { return encMode.NewEncoder(w) }
func newDecoder(r io.Reader) *cbor.Decoder { return decMode.NewDecoder(r) }

// Header opens every tape.
type Header struct {
	Version   int       `cbor:"1,keyasint"`
	SessionID string    `cbor:"2,keyasint"`
	Started   time.Time `cbor:"3,keyasint"`
	Table     string    `cbor:"4,keyasint,omitempty"`
}

// Record is one change event on the wire.
type Record struct {
	Seq    uint64    `cbor:"1,keyasint"`
	Time   time.Time `cbor:"2,keyasint"`
	Scope  uint8     `cbor:"3,keyasint"`
	Row    int8      `cbor:"4,keyasint,omitempty"`
	Column int       `cbor:"5,keyasint,omitempty"`
	Value  bool      `cbor:"6,keyasint,omitempty"`
	Rows   uint16    `cbor:"7,keyasint,omitempty"`
	Grid   []uint16  `cbor:"8,keyasint,omitempty"`
}

func toRecord(ev grid.ChangeEvent) Record {
	rec := Record{
		Seq:    ev.Seq,
		Time:   ev.Time,
		Scope:  uint8(ev.Scope),
		Row:    int8(ev.Row),
		Column: ev.Column,
		Value:  ev.Value,
		Rows:   uint16(ev.Rows),
	}
	if ev.Scope == grid.ScopeFull {
		rec.Grid = make([]uint16, card.Columns)
		if ev.Grid != nil {
			for c := 1; c <= card.Columns; c++ {
				rec.Grid[c-1] = uint16(ev.Grid.Column(c))
			}
		}
	}
	return rec
}

func (rec Record) event() (grid.ChangeEvent, error) {
	ev := grid.ChangeEvent{
		Seq:    rec.Seq,
		Time:   rec.Time,
		Scope:  grid.Scope(rec.Scope),
		Row:    card.RowLabel(rec.Row),
		Column: rec.Column,
		Value:  rec.Value,
		Rows:   card.RowSet(rec.Rows),
	}
	switch ev.Scope {
	case grid.ScopeCell:
		if !card.ValidLabel(ev.Row) || !card.ValidColumn(ev.Column) {
			return ev, fmt.Errorf("%w: record #%d cell %s/%d out of range", ErrBadTape, rec.Seq, ev.Row, ev.Column)
		}
	case grid.ScopeRow:
		if !card.ValidLabel(ev.Row) {
			return ev, fmt.Errorf("%w: record #%d row %s out of range", ErrBadTape, rec.Seq, ev.Row)
		}
	case grid.ScopeColumn:
		if !card.ValidColumn(ev.Column) {
			return ev, fmt.Errorf("%w: record #%d column %d out of range", ErrBadTape, rec.Seq, ev.Column)
		}
	case grid.ScopeFull:
		if len(rec.Grid) != card.Columns {
			return ev, fmt.Errorf("%w: record #%d full grid has %d columns", ErrBadTape, rec.Seq, len(rec.Grid))
		}
		var g card.Grid
		for c, bits := range rec.Grid {
			rows := card.RowSet(bits)
			for i := range card.Rows {
				g[i][c] = rows.HasIndex(i)
			}
		}
		ev.Grid = &g
	default:
		return ev, fmt.Errorf("%w: record #%d unknown scope %d", ErrBadTape, rec.Seq, rec.Scope)
	}
	return ev, nil
}
