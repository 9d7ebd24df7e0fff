// ABOUTME: Plain-text card drawing for the ASCII fallback: row labels, column ruler, border
// ABOUTME: Cards wider than the terminal are split into stacked column bands

package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mauromedda/punchcard-go/pkg/card"
)

// gutter is the row-label column: "12 " plus the left border.
const gutter = 3

// BandColumns returns how many card columns fit on one line of width cells.
// A width of 0 or less means unknown and yields all 80.
func BandColumns(width int, cs Charset) int {
	if width <= 0 {
		return card.Columns
	}
	n := (width - gutter - 2) / cs.CellWidth()
	return min(max(n, 1), card.Columns)
}

// DrawCard renders g as bordered bands of at most BandColumns(width) columns.
func DrawCard(g card.Grid, cs Charset, width int) []string {
	per := BandColumns(width, cs)
	var lines []string
	for first := 1; first <= card.Columns; first += per {
		last := min(first+per-1, card.Columns)
		lines = append(lines, drawBand(g, cs, first, last)...)
	}
	return lines
}

func drawBand(g card.Grid, cs Charset, first, last int) []string {
	cw := cs.CellWidth()
	n := last - first + 1
	border := strings.Repeat(" ", gutter) + "+" + strings.Repeat("-", n*cw) + "+"

	lines := make([]string, 0, card.Rows+3)
	lines = append(lines, strings.Repeat(" ", gutter+1)+ruler(first, last, cw), border)

	var b strings.Builder
	for i, label := range card.Labels {
		b.Reset()
		fmt.Fprintf(&b, "%2s |", label.String())
		for c := first; c <= last; c++ {
			glyph := cs.Glyph(g[i][c-1])
			b.WriteString(glyph)
			if pad := cw - cellWidth(glyph); pad > 0 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		b.WriteByte('|')
		lines = append(lines, b.String())
	}
	return append(lines, border)
}

// ruler numbers the first column of the band and every tenth column,
// skipping numbers that would collide with the previous one.
func ruler(first, last, cw int) string {
	line := []byte(strings.Repeat(" ", (last-first+1)*cw))
	next := 0
	for c := first; c <= last; c++ {
		if c != first && c%10 != 0 {
			continue
		}
		pos := (c - first) * cw
		num := strconv.Itoa(c)
		if pos < next || pos+len(num) > len(line) {
			continue
		}
		copy(line[pos:], num)
		next = pos + len(num) + 1
	}
	return strings.TrimRight(string(line), " ")
}
