// ABOUTME: Pure encoder from characters and messages to per-column punched row sets
// ABOUTME: Unknown characters abort by default; skip and substitute policies flag the column

package hollerith

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/mauromedda/punchcard-go/pkg/card"
)

// ErrUnsupportedCharacter matches every *UnsupportedCharacterError.
var ErrUnsupportedCharacter = errors.New("unsupported character")

// UnsupportedCharacterError reports a character outside the active table.
// Column is 1-based, or 0 when the character was encoded on its own.
type UnsupportedCharacterError struct {
	Char   rune
	Column int
	Table  string
}

func (e *UnsupportedCharacterError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("column %d: character %q not in table %s", e.Column, e.Char, e.Table)
	}
	return fmt.Sprintf("character %q not in table %s", e.Char, e.Table)
}

// Is lets errors.Is match ErrUnsupportedCharacter.
func (e *UnsupportedCharacterError) Is(target error) bool {
	return target == ErrUnsupportedCharacter
}

// Encode returns the rows punched for r. Space returns the empty set.
func Encode(r rune, t *Table) (card.RowSet, error) {
	rows, ok := t.lookup(r)
	if !ok {
		return 0, &UnsupportedCharacterError{Char: r, Table: t.name}
	}
	return rows, nil
}

// Decode returns the character punched as rows, if the table has one.
func Decode(rows card.RowSet, t *Table) (rune, bool) {
	r, ok := t.chars[rows]
	return r, ok
}

// Column is one encoded card column.
type Column struct {
	Index       int // 1..80
	Char        rune
	Rows        card.RowSet
	Substituted bool // Char was not in the table; Rows encode the substitute
	Skipped     bool // Char was not in the table; column left blank
}

type unknownPolicy int

const (
	policyAbort unknownPolicy = iota
	policySkip
	policySubstitute
)

type encodeOptions struct {
	policy     unknownPolicy
	substitute rune
}

// Option configures EncodeMessage.
type Option func(*encodeOptions)

// WithSubstitute encodes unknown characters as r and flags the column.
func WithSubstitute(r rune) Option {
	return func(o *encodeOptions) {
		o.policy = policySubstitute
		o.substitute = r
	}
}

// WithSkip leaves unknown characters' columns blank and flags them.
func WithSkip() Option {
	return func(o *encodeOptions) {
		o.policy = policySkip
	}
}

// EncodeMessage encodes text into columns 1..min(80, rune count). Text past
// column 80 is not wrapped; callers page with Pages. Without options the first
// unsupported character aborts with an *UnsupportedCharacterError.
func EncodeMessage(text string, t *Table, opts ...Option) ([]Column, error) {
	var o encodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	var subRows card.RowSet
	if o.policy == policySubstitute {
		rows, err := Encode(o.substitute, t)
		if err != nil {
			return nil, fmt.Errorf("substitute character: %w", err)
		}
		subRows = rows
	}

	cols := make([]Column, 0, min(card.Columns, utf8.RuneCountInString(text)))
	idx := 0
	for _, r := range text {
		idx++
		if idx > card.Columns {
			break
		}
		col := Column{Index: idx, Char: r}
		rows, ok := t.lookup(r)
		switch {
		case ok:
			col.Rows = rows
		case o.policy == policySubstitute:
			col.Rows = subRows
			col.Substituted = true
		case o.policy == policySkip:
			col.Skipped = true
		default:
			return nil, &UnsupportedCharacterError{Char: r, Column: idx, Table: t.name}
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// Validate returns every unsupported character in the first 80 columns of text,
// joined; nil when the message encodes cleanly.
func Validate(text string, t *Table) error {
	var errs []error
	idx := 0
	for _, r := range text {
		idx++
		if idx > card.Columns {
			break
		}
		if !t.Contains(r) {
			errs = append(errs, &UnsupportedCharacterError{Char: r, Column: idx, Table: t.name})
		}
	}
	return errors.Join(errs...)
}

// Truncated reports whether text has more runes than fit on one card.
func Truncated(text string) bool {
	return utf8.RuneCountInString(text) > card.Columns
}

// Pages splits text into card-sized pieces of at most 80 runes.
func Pages(text string) []string {
	if text == "" {
		return nil
	}
	var pages []string
	runes := []rune(text)
	for len(runes) > 0 {
		n := min(card.Columns, len(runes))
		pages = append(pages, string(runes[:n]))
		runes = runes[n:]
	}
	return pages
}
