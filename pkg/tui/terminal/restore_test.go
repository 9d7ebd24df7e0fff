// ABOUTME: Tests for Scope release and goroutine panic recovery
// ABOUTME: Verifies the screen is handed back exactly once on every exit path

package terminal

import (
	"errors"
	"strings"
	"testing"
)

func TestAcquire_ReleaseIdempotent(t *testing.T) {
	t.Parallel()
	vt := NewVirtualTerminal(80, 24)

	s, err := Acquire(vt)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !vt.IsRawMode() {
		t.Fatal("expected raw mode after Acquire")
	}

	for range 3 {
		if err := s.Release(); err != nil {
			t.Fatalf("Release: %v", err)
		}
	}
	if vt.IsRawMode() {
		t.Error("raw mode still on after Release")
	}
	if vt.ExitCount() != 1 {
		t.Errorf("ExitCount() = %d, want 1", vt.ExitCount())
	}
	if got := strings.Count(vt.Output(), showCursor); got != 1 {
		t.Errorf("cursor restored %d times, want 1", got)
	}
}

func TestAcquire_Fails(t *testing.T) {
	t.Parallel()
	vt := NewVirtualTerminal(80, 24)
	vt.FailRawMode(errors.New("inappropriate ioctl"))

	if _, err := Acquire(vt); err == nil {
		t.Fatal("Acquire succeeded, want error")
	}
}

func TestRecoverGoroutine_CatchesPanic(t *testing.T) {
	t.Parallel()

	vt := NewVirtualTerminal(80, 24)
	_ = vt.EnterRawMode()
	done := make(chan struct{})
	var got any

	go func() {
		defer close(done)
		defer RecoverGoroutine(vt, func(r any) { got = r })
		panic("render loop")
	}()
	<-done

	if vt.IsRawMode() {
		t.Error("expected raw mode to be restored on goroutine panic")
	}
	if got != "render loop" {
		t.Errorf("onPanic got %v, want %q", got, "render loop")
	}
	if !strings.Contains(vt.Output(), showCursor) {
		t.Error("cursor not restored")
	}
}

func TestRecoverGoroutine_NoPanic(t *testing.T) {
	t.Parallel()

	vt := NewVirtualTerminal(80, 24)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer RecoverGoroutine(vt, nil)
	}()
	<-done

	if vt.ExitCount() != 0 || vt.Output() != "" {
		t.Error("terminal touched although no panic occurred")
	}
}

func TestRestoreOnPanic_ReleasesAndRepanics(t *testing.T) {
	t.Parallel()

	vt := NewVirtualTerminal(80, 24)
	s, err := Acquire(vt)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	vt.OnResize(func(int, int) { t.Error("resize callback survived release") })

	var got any
	func() {
		defer func() { got = recover() }()
		defer s.Release()
		defer s.RestoreOnPanic()
		panic("draw")
	}()

	if got != "draw" {
		t.Errorf("outer recover got %v, want %q", got, "draw")
	}
	if vt.IsRawMode() {
		t.Error("raw mode still on after panic")
	}
	if vt.ExitCount() != 1 {
		t.Errorf("ExitCount() = %d, want 1", vt.ExitCount())
	}
	vt.SetSize(100, 30)
}

func TestRestoreOnPanic_NoPanic(t *testing.T) {
	t.Parallel()

	vt := NewVirtualTerminal(80, 24)
	s, err := Acquire(vt)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	func() {
		defer s.RestoreOnPanic()
	}()

	if !vt.IsRawMode() {
		t.Error("scope released although no panic occurred")
	}
	_ = s.Release()
}
