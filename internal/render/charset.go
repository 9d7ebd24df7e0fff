// ABOUTME: Closed set of on/off glyph pairs used to draw punched and blank cells
// ABOUTME: Unknown names fail at configuration time with a fuzzy "did you mean" hint

package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
	"github.com/sahilm/fuzzy"
)

// ErrUnknownCharset matches every *UnknownCharsetError.
var ErrUnknownCharset = errors.New("unknown character set")

// Charset selects the glyph pair for cells.
type Charset int

const (
	CharsetBlock Charset = iota
	CharsetCircle
	CharsetStar
	CharsetASCII
)

type glyphPair struct {
	name    string
	on, off string
}

var glyphs = [...]glyphPair{
	CharsetBlock:  {"block", "█", "·"},
	CharsetCircle: {"circle", "●", "○"},
	CharsetStar:   {"star", "★", "☆"},
	CharsetASCII:  {"ascii", "#", "."},
}

// Charsets lists every character set in display order.
func Charsets() []Charset {
	return []Charset{CharsetBlock, CharsetCircle, CharsetStar, CharsetASCII}
}

// CharsetNames lists every character set name.
func CharsetNames() []string {
	names := make([]string, len(glyphs))
	for i, g := range glyphs {
		names[i] = g.name
	}
	return names
}

// Valid reports whether c is a member of the enumeration.
func (c Charset) Valid() bool {
	return c >= 0 && int(c) < len(glyphs)
}

// String returns the config name.
func (c Charset) String() string {
	if !c.Valid() {
		return fmt.Sprintf("charset(%d)", int(c))
	}
	return glyphs[c].name
}

// Glyphs returns the punched and blank glyphs.
func (c Charset) Glyphs() (on, off string) {
	if !c.Valid() {
		c = CharsetASCII
	}
	return glyphs[c].on, glyphs[c].off
}

// Glyph returns the glyph for one cell.
func (c Charset) Glyph(punched bool) string {
	on, off := c.Glyphs()
	if punched {
		return on
	}
	return off
}

// CellWidth is the number of terminal cells one glyph occupies.
func (c Charset) CellWidth() int {
	on, off := c.Glyphs()
	return max(cellWidth(on), cellWidth(off), 1)
}

// UnknownCharsetError reports a character set name outside the enumeration.
type UnknownCharsetError struct {
	Name       string
	Suggestion string
}

func (e *UnknownCharsetError) Error() string {
	msg := fmt.Sprintf("unknown character set %q (available: %s)", e.Name, strings.Join(CharsetNames(), ", "))
	if e.Suggestion != "" {
		msg += fmt.Sprintf("; did you mean %q?", e.Suggestion)
	}
	return msg
}

// Is lets errors.Is match ErrUnknownCharset.
func (e *UnknownCharsetError) Is(target error) bool {
	return target == ErrUnknownCharset
}

// ParseCharset resolves a name case-insensitively. Empty selects block.
func ParseCharset(name string) (Charset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return CharsetBlock, nil
	}
	for i, g := range glyphs {
		if g.name == key {
			return Charset(i), nil
		}
	}
	err := &UnknownCharsetError{Name: name}
	if matches := fuzzy.Find(key, CharsetNames()); len(matches) > 0 {
		err.Suggestion = matches[0].Str
	}
	return CharsetBlock, err
}

// cellWidth measures s by grapheme cluster so combining marks and wide
// glyphs are counted the way the terminal draws them.
func cellWidth(s string) int {
	w := 0
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		w += runewidth.StringWidth(cluster)
	}
	return w
}
