// ABOUTME: Physical LED layouts mapping (row, column) to a position in the output chain
// ABOUTME: Row-major wires every row left to right; serpentine reverses odd rows

package hardware

import (
	"fmt"
	"strings"
)

// Layout maps grid coordinates to chain positions.
type Layout int

const (
	LayoutRowMajor Layout = iota
	LayoutSerpentine
)

// String returns the config name of the layout.
func (l Layout) String() string {
	if l == LayoutSerpentine {
		return "serpentine"
	}
	return "row-major"
}

// ParseLayout accepts "row-major" (or "rows", "linear") and "serpentine" (or "zigzag").
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "row-major", "rowmajor", "rows", "linear":
		return LayoutRowMajor, nil
	case "serpentine", "zigzag", "snake":
		return LayoutSerpentine, nil
	default:
		return LayoutRowMajor, fmt.Errorf("%w: unknown layout %q (want row-major, serpentine)", ErrInvalidConfig, s)
	}
}

// Index returns the chain position of the LED at zero-based (row, col) on a
// panel width LEDs wide. Even rows run left to right; in serpentine layout
// odd rows run right to left.
func (l Layout) Index(row, col, width int) int {
	if l == LayoutSerpentine && row%2 == 1 {
		return row*width + (width - 1 - col)
	}
	return row*width + col
}
