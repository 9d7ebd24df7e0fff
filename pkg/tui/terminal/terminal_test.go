// ABOUTME: Tests for VirtualTerminal: raw mode tracking, output capture, queued input, and resize
// ABOUTME: Table-driven and parallel, mirroring how the renderer drives a terminal

package terminal

import (
	"errors"
	"io"
	"sync"
	"testing"
)

var _ Terminal = (*VirtualTerminal)(nil)

func TestVirtualTerminal_Size(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		width, height int
	}{
		{name: "standard 80x24", width: 80, height: 24},
		{name: "too small for split screen", width: 20, height: 5},
		{name: "zero dimensions", width: 0, height: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			vt := NewVirtualTerminal(tt.width, tt.height)

			w, h, err := vt.Size()
			if err != nil {
				t.Fatalf("Size() unexpected error: %v", err)
			}
			if w != tt.width || h != tt.height {
				t.Errorf("Size() = (%d, %d), want (%d, %d)", w, h, tt.width, tt.height)
			}
		})
	}
}

func TestVirtualTerminal_RawMode(t *testing.T) {
	t.Parallel()
	vt := NewVirtualTerminal(80, 24)

	for i := range 3 {
		if err := vt.EnterRawMode(); err != nil {
			t.Fatalf("iteration %d: EnterRawMode() error: %v", i, err)
		}
		if !vt.IsRawMode() {
			t.Fatalf("iteration %d: raw mode off after EnterRawMode", i)
		}
		if err := vt.ExitRawMode(); err != nil {
			t.Fatalf("iteration %d: ExitRawMode() error: %v", i, err)
		}
	}

	if vt.EnterCount() != 3 || vt.ExitCount() != 3 {
		t.Errorf("counts = (%d, %d), want (3, 3)", vt.EnterCount(), vt.ExitCount())
	}
}

func TestVirtualTerminal_FailRawMode(t *testing.T) {
	t.Parallel()
	vt := NewVirtualTerminal(80, 24)
	boom := errors.New("not a tty")
	vt.FailRawMode(boom)

	if err := vt.EnterRawMode(); !errors.Is(err, boom) {
		t.Fatalf("EnterRawMode() = %v, want %v", err, boom)
	}
	if vt.IsRawMode() || vt.EnterCount() != 0 {
		t.Error("failed EnterRawMode should not change state")
	}
}

func TestVirtualTerminal_WriteAndReset(t *testing.T) {
	t.Parallel()
	vt := NewVirtualTerminal(80, 24)

	for _, s := range []string{"one", "two"} {
		if _, err := vt.Write([]byte(s)); err != nil {
			t.Fatal(err)
		}
	}
	if got := vt.Output(); got != "onetwo" {
		t.Errorf("Output() = %q, want %q", got, "onetwo")
	}

	vt.Reset()
	if got := vt.Output(); got != "" {
		t.Errorf("Output() after Reset = %q, want empty", got)
	}
}

func TestVirtualTerminal_Read(t *testing.T) {
	t.Parallel()
	vt := NewVirtualTerminal(80, 24)
	vt.Type("q")

	got, err := io.ReadAll(vt)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "q" {
		t.Errorf("read %q, want %q", got, "q")
	}
}

func TestVirtualTerminal_OnResize(t *testing.T) {
	t.Parallel()
	vt := NewVirtualTerminal(80, 24)

	// No callback registered yet.
	vt.SetSize(100, 50)

	var gotWidth, gotHeight int
	vt.OnResize(func(w, h int) {
		gotWidth = w
		gotHeight = h
	})
	vt.SetSize(30, 10)

	if gotWidth != 30 || gotHeight != 10 {
		t.Errorf("resize callback got (%d, %d), want (30, 10)", gotWidth, gotHeight)
	}
	if w, h, _ := vt.Size(); w != 30 || h != 10 {
		t.Errorf("Size() after SetSize = (%d, %d), want (30, 10)", w, h)
	}
}

func TestVirtualTerminal_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	vt := NewVirtualTerminal(80, 24)

	var wg sync.WaitGroup
	const goroutines = 10

	wg.Add(goroutines * 2)
	for range goroutines {
		go func() {
			defer wg.Done()
			_, _ = vt.Write([]byte("x"))
			_, _, _ = vt.Size()
		}()
		go func() {
			defer wg.Done()
			_ = vt.EnterRawMode()
			_ = vt.ExitRawMode()
		}()
	}
	wg.Wait()

	if len(vt.Output()) != goroutines {
		t.Errorf("Output length = %d, want %d", len(vt.Output()), goroutines)
	}
}
