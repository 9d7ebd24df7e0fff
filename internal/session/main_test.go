// ABOUTME: Package test entry point for session
// ABOUTME: Fails the run if any test leaves a goroutine behind

package session

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
