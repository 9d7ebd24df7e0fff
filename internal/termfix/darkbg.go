// ABOUTME: Fixes the lipgloss background to dark before Bubble Tea initializes
// ABOUTME: Import with _ ahead of anything that pulls in bubbletea

package termfix

import "github.com/charmbracelet/lipgloss"

func init() {
	// With the background set explicitly, Bubble Tea's init skips the
	// OSC 10/11 color query whose late reply would land in the input
	// stream as stray keys. This package must not import bubbletea.
	lipgloss.SetHasDarkBackground(true)
}
