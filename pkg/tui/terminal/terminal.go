// ABOUTME: Terminal interface for raw mode, size queries, keyboard input, and screen output
// ABOUTME: Implemented by ProcessTerminal (a real TTY) and VirtualTerminal (tests)

package terminal

import "io"

// Terminal abstracts the screen a renderer draws on.
type Terminal interface {
	io.ReadWriter
	EnterRawMode() error
	ExitRawMode() error
	Size() (width, height int, err error)
	IsTerminal() bool
	OnResize(fn func(width, height int))
}

// Control sequences written when handing the screen back.
const (
	showCursor    = "\x1b[?25h"
	exitAltScreen = "\x1b[?1049l"
	resetAttrs    = "\x1b[0m"
	restoreScreen = resetAttrs + showCursor + exitAltScreen
)
