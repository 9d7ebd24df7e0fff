// ABOUTME: Windows stub for ProcessTerminal resize handling
// ABOUTME: Windows has no SIGWINCH; the renderer re-reads the size on each frame instead

//go:build windows

package terminal

func (t *ProcessTerminal) startResizeListener() (stop func()) {
	return func() {}
}
