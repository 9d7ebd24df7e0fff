// ABOUTME: JSON capture format for grid snapshots, marshaled with easyjson writer/lexer
// ABOUTME: One string per row in card order; 'X' is a hole, '.' is blank

package grid

import (
	"fmt"
	"strings"

	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
	"github.com/mauromedda/punchcard-go/pkg/card"
)

const (
	holeMark  = 'X'
	blankMark = '.'
)

// SnapshotRow is one card row in a snapshot document.
type SnapshotRow struct {
	Label int    `json:"label"`
	Holes string `json:"holes"`
}

// SnapshotDocument is the persisted form of a grid snapshot.
type SnapshotDocument struct {
	Seq  uint64        `json:"seq"`
	Rows []SnapshotRow `json:"rows"`
}

// NewSnapshotDocument converts a grid to its document form.
func NewSnapshotDocument(seq uint64, g card.Grid) SnapshotDocument {
	doc := SnapshotDocument{Seq: seq, Rows: make([]SnapshotRow, card.Rows)}
	for i, label := range card.Labels {
		var b strings.Builder
		b.Grow(card.Columns)
		for c := range card.Columns {
			if g[i][c] {
				b.WriteByte(holeMark)
			} else {
				b.WriteByte(blankMark)
			}
		}
		doc.Rows[i] = SnapshotRow{Label: int(label), Holes: b.String()}
	}
	return doc
}

// Grid rebuilds the grid. Rows may appear in any order; missing rows are blank.
func (d SnapshotDocument) Grid() (card.Grid, error) {
	var g card.Grid
	for _, row := range d.Rows {
		idx, ok := card.IndexOf(card.RowLabel(row.Label))
		if !ok || row.Label < 0 || row.Label > 12 {
			return card.Grid{}, fmt.Errorf("snapshot row label %d is not a card row", row.Label)
		}
		if len(row.Holes) != card.Columns {
			return card.Grid{}, fmt.Errorf("snapshot row %d has %d columns, want %d", row.Label, len(row.Holes), card.Columns)
		}
		for c := range card.Columns {
			switch row.Holes[c] {
			case holeMark:
				g[idx][c] = true
			case blankMark:
			default:
				return card.Grid{}, fmt.Errorf("snapshot row %d column %d: unexpected %q", row.Label, c+1, row.Holes[c])
			}
		}
	}
	return g, nil
}

// MarshalSnapshot encodes a grid as a JSON snapshot document.
func MarshalSnapshot(seq uint64, g card.Grid) ([]byte, error) {
	return easyjson.Marshal(NewSnapshotDocument(seq, g))
}

// UnmarshalSnapshot decodes a JSON snapshot document.
func UnmarshalSnapshot(data []byte) (uint64, card.Grid, error) {
	var doc SnapshotDocument
	if err := easyjson.Unmarshal(data, &doc); err != nil {
		return 0, card.Grid{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	g, err := doc.Grid()
	if err != nil {
		return 0, card.Grid{}, err
	}
	return doc.Seq, g, nil
}

// MarshalEasyJSON implements easyjson.Marshaler.
func (r SnapshotRow) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`{"label":`)
	w.Int(r.Label)
	w.RawString(`,"holes":`)
	w.String(r.Holes)
	w.RawByte('}')
}

// UnmarshalEasyJSON implements easyjson.Unmarshaler.
func (r *SnapshotRow) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "label":
			r.Label = in.Int()
		case "holes":
			r.Holes = in.String()
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

// MarshalEasyJSON implements easyjson.Marshaler.
func (d SnapshotDocument) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`{"seq":`)
	w.Uint64(d.Seq)
	w.RawString(`,"rows":`)
	if d.Rows == nil {
		w.RawString("null")
	} else {
		w.RawByte('[')
		for i, row := range d.Rows {
			if i > 0 {
				w.RawByte(',')
			}
			row.MarshalEasyJSON(w)
		}
		w.RawByte(']')
	}
	w.RawByte('}')
}

// UnmarshalEasyJSON implements easyjson.Unmarshaler.
func (d *SnapshotDocument) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "seq":
			d.Seq = in.Uint64()
		case "rows":
			in.Delim('[')
			d.Rows = d.Rows[:0]
			for !in.IsDelim(']') {
				var row SnapshotRow
				row.UnmarshalEasyJSON(in)
				d.Rows = append(d.Rows, row)
				in.WantComma()
			}
			in.Delim(']')
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

// MarshalJSON lets encoding/json callers use the same format.
func (d SnapshotDocument) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	d.MarshalEasyJSON(&w)
	return w.Buffer.BuildBytes(), w.Error
}

// UnmarshalJSON lets encoding/json callers use the same format.
func (d *SnapshotDocument) UnmarshalJSON(data []byte) error {
	l := jlexer.Lexer{Data: data}
	d.UnmarshalEasyJSON(&l)
	return l.Error()
}
