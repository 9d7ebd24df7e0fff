// ABOUTME: Scope guarantees the terminal is restored on every exit path, including panics
// ABOUTME: RecoverGoroutine restores the screen for panicking background goroutines

package terminal

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync"
)

// Scope is an acquired terminal. Release is idempotent and safe to defer
// alongside explicit calls.
type Scope struct {
	t    Terminal
	once sync.Once
	err  error
}

// Acquire puts t in raw mode and returns the scope that undoes it.
func Acquire(t Terminal) (*Scope, error) {
	if err := t.EnterRawMode(); err != nil {
		return nil, err
	}
	return &Scope{t: t}, nil
}

// Release shows the cursor, leaves the alternate screen, and exits raw mode.
func (s *Scope) Release() error {
	s.once.Do(func() {
		_, _ = s.t.Write([]byte(restoreScreen))
		s.t.OnResize(nil)
		s.err = s.t.ExitRawMode()
	})
	return s.err
}

// RestoreOnPanic should be deferred by the goroutine that owns the scope,
// after its deferred Release. On panic it releases the terminal and panics
// again with the same value so outer recovery still runs.
func (s *Scope) RestoreOnPanic() {
	r := recover()
	if r == nil {
		return
	}
	_ = s.Release()
	panic(r)
}

// RecoverGoroutine should be deferred at the top of background goroutines
// that draw on t. It restores the screen but does not exit, leaving
// shutdown to the owner. onPanic, when non-nil, receives the panic value.
func RecoverGoroutine(t Terminal, onPanic func(any)) {
	r := recover()
	if r == nil {
		return
	}
	_, _ = t.Write([]byte(restoreScreen))
	_ = t.ExitRawMode()

	fmt.Fprintf(os.Stderr, "\ngoroutine panic: %v\n\n%s\n", r, debug.Stack())
	if onPanic != nil {
		onPanic(r)
	}
}
