// ABOUTME: Package test entry point for hardware
// ABOUTME: Fails the run if any test leaves a goroutine behind

package hardware

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
