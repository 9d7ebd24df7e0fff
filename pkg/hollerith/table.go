// ABOUTME: Named, immutable Hollerith code tables mapping characters to punched row sets
// ABOUTME: Built-ins cover IBM 029, IBM 026 FORTRAN/commercial, EBCDIC and an ASCII extension

package hollerith

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mauromedda/punchcard-go/pkg/card"
	"github.com/sahilm/fuzzy"
)

// ErrUnknownTable is returned by Lookup for names outside the built-in set.
var ErrUnknownTable = errors.New("unknown code table")

// DefaultTable is the table used when configuration names none.
const DefaultTable = "ibm029"

// Table maps characters to row sets. A Table is immutable after construction.
type Table struct {
	name        string
	description string
	codes       map[rune]card.RowSet
	chars       map[card.RowSet]rune
	lowercase   bool
}

// NewTable validates codes and builds a Table. Every character except space
// must map to a non-empty row set, space must map to the empty set, and no
// two characters may share a pattern.
func NewTable(name, description string, codes map[rune]card.RowSet) (*Table, error) {
	t := &Table{
		name:        name,
		description: description,
		codes:       make(map[rune]card.RowSet, len(codes)+1),
		chars:       make(map[card.RowSet]rune, len(codes)+1),
	}
	t.codes[' '] = 0
	t.chars[0] = ' '

	for r, rows := range codes {
		if r == ' ' {
			if !rows.IsEmpty() {
				return nil, fmt.Errorf("table %s: space must be unpunched, got %s", name, rows)
			}
			continue
		}
		if rows.IsEmpty() {
			return nil, fmt.Errorf("table %s: %q maps to no rows", name, r)
		}
		if other, dup := t.chars[rows]; dup {
			return nil, fmt.Errorf("table %s: %q and %q share pattern %s", name, r, other, rows)
		}
		t.codes[r] = rows
		t.chars[rows] = r
		if r >= 'a' && r <= 'z' {
			t.lowercase = true
		}
	}
	return t, nil
}

// Name returns the table's lookup name.
func (t *Table) Name() string { return t.name }

// Description returns a one-line human description.
func (t *Table) Description() string { return t.description }

// HasLowercase reports whether lowercase letters have their own codes.
func (t *Table) HasLowercase() bool { return t.lowercase }

// Len returns the number of characters in the table, space included.
func (t *Table) Len() int { return len(t.codes) }

// Contains reports whether r is in the table's domain.
func (t *Table) Contains(r rune) bool {
	_, ok := t.codes[r]
	return ok
}

// Chars returns the table's domain in code point order.
func (t *Table) Chars() []rune {
	out := make([]rune, 0, len(t.codes))
	for r := range t.codes {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

func (t *Table) lookup(r rune) (card.RowSet, bool) {
	rows, ok := t.codes[r]
	return rows, ok
}

// builtin holds the immutable built-in tables keyed by name.
var builtin = map[string]*Table{}

// builtinOrder preserves registration order for listings.
var builtinOrder []string

func register(t *Table, err error) {
	if err != nil {
		panic(fmt.Sprintf("hollerith: invalid built-in table: %v", err))
	}
	builtin[t.name] = t
	builtinOrder = append(builtinOrder, t.name)
}

// Lookup returns the built-in table with the given name (case-insensitive).
func Lookup(name string) (*Table, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultTable
	}
	if t, ok := builtin[key]; ok {
		return t, nil
	}
	if m := fuzzy.Find(key, builtinOrder); len(m) > 0 {
		return nil, fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownTable, name, m[0].Str)
	}
	return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownTable, name, strings.Join(builtinOrder, ", "))
}

// MustLookup is Lookup for names known at compile time.
func MustLookup(name string) *Table {
	t, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return t
}

// Names returns the built-in table names in registration order.
func Names() []string {
	return slices.Clone(builtinOrder)
}
