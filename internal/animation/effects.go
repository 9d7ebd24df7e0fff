// ABOUTME: Built-in frame generators: splash sweep, wipe, checkerboard, message reveal, lamp test
// ABOUTME: Every generator returns fresh grid values; callers may modify them freely

package animation

import (
	"github.com/mauromedda/punchcard-go/pkg/card"
)

// Splash sweeps a lit column across the card and back.
func Splash() []card.Grid {
	frames := make([]card.Grid, 0, 2*card.Columns-2)
	for c := range card.Columns {
		frames = append(frames, litColumn(c))
	}
	for c := card.Columns - 2; c > 0; c-- {
		frames = append(frames, litColumn(c))
	}
	return frames
}

func litColumn(c int) card.Grid {
	var g card.Grid
	for r := range card.Rows {
		g[r][c] = true
	}
	return g
}

// Wipe fills the card left to right in steps of step columns, then empties it.
func Wipe(step int) []card.Grid {
	step = max(step, 1)
	var frames []card.Grid
	var g card.Grid
	for c := 0; c < card.Columns; c += step {
		for cc := c; cc < min(c+step, card.Columns); cc++ {
			for r := range card.Rows {
				g[r][cc] = true
			}
		}
		frames = append(frames, g)
	}
	return append(frames, card.Grid{})
}

// Checkerboard alternates two inverted checker patterns.
func Checkerboard() []card.Grid {
	var a, b card.Grid
	for r := range card.Rows {
		for c := range card.Columns {
			a[r][c] = (r+c)%2 == 0
			b[r][c] = !a[r][c]
		}
	}
	return []card.Grid{a, b}
}

// Reveal shows a finished card one column at a time. Blank columns are
// skipped so every frame adds visible holes.
func Reveal(final card.Grid) []card.Grid {
	var frames []card.Grid
	var g card.Grid
	for c := range card.Columns {
		lit := false
		for r := range card.Rows {
			if final[r][c] {
				g[r][c] = true
				lit = true
			}
		}
		if lit {
			frames = append(frames, g)
		}
	}
	return frames
}

// TestPattern lights each row in card order (12, 11, 0, 1 … 9), then the
// whole card, then clears it.
func TestPattern() []card.Grid {
	frames := make([]card.Grid, 0, card.Rows+2)
	for _, label := range card.Labels {
		var g card.Grid
		idx, _ := card.IndexOf(label)
		for c := range card.Columns {
			g[idx][c] = true
		}
		frames = append(frames, g)
	}
	var all card.Grid
	for r := range card.Rows {
		for c := range card.Columns {
			all[r][c] = true
		}
	}
	return append(frames, all, card.Grid{})
}

// ByName returns a built-in effect by name for configuration and the CLI.
func ByName(name string) ([]card.Grid, bool) {
	switch name {
	case "splash":
		return Splash(), true
	case "wipe":
		return Wipe(4), true
	case "checkerboard":
		return Checkerboard(), true
	case "test-pattern", "testpattern":
		return TestPattern(), true
	default:
		return nil, false
	}
}

// Names lists the effects ByName accepts.
func Names() []string {
	return []string{"splash", "wipe", "checkerboard", "test-pattern"}
}
