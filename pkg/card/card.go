// ABOUTME: Physical layout of an 80-column card: row labels, row sets, and the 12x80 hole grid
// ABOUTME: Row labels follow card order 12, 11, 0, 1..9; conversion is by lookup table only

package card

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Rows is the number of punch rows on a card.
	Rows = 12
	// Columns is the number of character columns on a card.
	Columns = 80
)

// RowLabel is the printed label of a punch row: 12, 11, 0, 1, ..., 9.
// A label is never an array index; use IndexOf to convert.
type RowLabel int8

// Labels maps array index to row label, top of the card first.
var Labels = [Rows]RowLabel{12, 11, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

// IndexOf returns the array index for a row label.
func IndexOf(label RowLabel) (int, bool) {
	for i, l := range Labels {
		if l == label {
			return i, true
		}
	}
	return 0, false
}

// ValidLabel reports whether label is one of the twelve card rows.
func ValidLabel(label RowLabel) bool {
	_, ok := IndexOf(label)
	return ok
}

// ValidColumn reports whether col is within 1..80.
func ValidColumn(col int) bool {
	return col >= 1 && col <= Columns
}

// IsZone reports whether the row is a zone row (12, 11 or 0).
func (l RowLabel) IsZone() bool {
	return l == 12 || l == 11 || l == 0
}

// String returns the label as printed on the card.
func (l RowLabel) String() string {
	return strconv.Itoa(int(l))
}

// ParseLabel parses "12", "11", "0".."9".
func ParseLabel(s string) (RowLabel, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parsing row label %q: %w", s, err)
	}
	l := RowLabel(n)
	if n < 0 || n > 12 || !ValidLabel(l) {
		return 0, fmt.Errorf("row label %q is not a card row", s)
	}
	return l, nil
}

// RowSet is the set of rows punched in one column, stored by row index.
type RowSet uint16

const allRows RowSet = 1<<Rows - 1

// NewRowSet builds a set from labels. Invalid labels are ignored.
func NewRowSet(labels ...RowLabel) RowSet {
	var s RowSet
	for _, l := range labels {
		s = s.With(l)
	}
	return s
}

// With returns the set with label added.
func (s RowSet) With(label RowLabel) RowSet {
	idx, ok := IndexOf(label)
	if !ok {
		return s
	}
	return s | 1<<idx
}

// Without returns the set with label removed.
func (s RowSet) Without(label RowLabel) RowSet {
	idx, ok := IndexOf(label)
	if !ok {
		return s
	}
	return s &^ (1 << idx)
}

// Has reports whether label is in the set.
func (s RowSet) Has(label RowLabel) bool {
	idx, ok := IndexOf(label)
	return ok && s&(1<<idx) != 0
}

// HasIndex reports whether the row at array index idx is in the set.
func (s RowSet) HasIndex(idx int) bool {
	return idx >= 0 && idx < Rows && s&(1<<idx) != 0
}

// Len returns the number of punched rows.
func (s RowSet) Len() int {
	n := 0
	for v := s & allRows; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// IsEmpty reports whether no row is punched.
func (s RowSet) IsEmpty() bool {
	return s&allRows == 0
}

// Labels returns the punched rows in card order (12, 11, 0, 1..9).
func (s RowSet) Labels() []RowLabel {
	out := make([]RowLabel, 0, s.Len())
	for i, l := range Labels {
		if s.HasIndex(i) {
			out = append(out, l)
		}
	}
	return out
}

// String renders the set the way keypunch charts do, e.g. "12-8". Empty sets render as "".
func (s RowSet) String() string {
	labels := s.Labels()
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.String()
	}
	return strings.Join(parts, "-")
}

// ParseRowSet parses the "12-8" notation. The empty string is the empty set.
func ParseRowSet(s string) (RowSet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	var set RowSet
	for part := range strings.SplitSeq(s, "-") {
		l, err := ParseLabel(part)
		if err != nil {
			return 0, err
		}
		set = set.With(l)
	}
	return set, nil
}

// Grid is the full hole state of a card, indexed [row index][column-1].
// It is a value type; copies are independent.
type Grid [Rows][Columns]bool

// Get returns the cell at (label, col). Out-of-range positions read as false.
func (g Grid) Get(label RowLabel, col int) bool {
	idx, ok := IndexOf(label)
	if !ok || !ValidColumn(col) {
		return false
	}
	return g[idx][col-1]
}

// Column returns the punched rows of column col.
func (g Grid) Column(col int) RowSet {
	var s RowSet
	if !ValidColumn(col) {
		return s
	}
	for i := range Rows {
		if g[i][col-1] {
			s |= 1 << i
		}
	}
	return s
}

// Count returns the number of punched cells.
func (g Grid) Count() int {
	n := 0
	for i := range Rows {
		for j := range Columns {
			if g[i][j] {
				n++
			}
		}
	}
	return n
}

// IsBlank reports whether no cell is punched.
func (g Grid) IsBlank() bool {
	return g.Count() == 0
}
