// ABOUTME: Unix SIGWINCH handling for ProcessTerminal resize events
// ABOUTME: The listener goroutine exits when the returned stop function is called

//go:build unix

package terminal

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

func (t *ProcessTerminal) startResizeListener() (stop func()) {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	exited := make(chan struct{})
	signal.Notify(sigCh, syscall.SIGWINCH)

	go func() {
		defer close(exited)
		for {
			select {
			case <-done:
				return
			case <-sigCh:
				t.notifyResize()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
			<-exited
		})
	}
}
