// ABOUTME: Frame playback on top of the grid manager: each frame is a full-grid Load
// ABOUTME: Cancellation is checked at frame boundaries so playback never blocks shutdown

package animation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mauromedda/punchcard-go/internal/grid"
	"github.com/mauromedda/punchcard-go/pkg/card"
)

// Forever repeats playback until the context is cancelled.
const Forever = -1

// ErrInvalidRepeat is returned for repeat counts below Forever.
var ErrInvalidRepeat = errors.New("invalid repeat count")

// Target receives frames. *grid.Manager satisfies it.
type Target interface {
	Load(g card.Grid)
}

var _ Target = (*grid.Manager)(nil)

// Play loads frames into t in order, waiting delay after each, repeat times.
// repeat 0 plays nothing. It returns ctx.Err() when cancelled; the frame
// being loaded always completes first.
func Play(ctx context.Context, t Target, frames []card.Grid, delay time.Duration, repeat int) error {
	if repeat < Forever {
		return fmt.Errorf("%w: %d", ErrInvalidRepeat, repeat)
	}
	if len(frames) == 0 || repeat == 0 {
		return nil
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for pass := 0; repeat == Forever || pass < repeat; pass++ {
		for _, f := range frames {
			if err := ctx.Err(); err != nil {
				return err
			}
			t.Load(f)

			if delay <= 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return nil
}

// Sequence concatenates effects into one frame list.
func Sequence(parts ...[]card.Grid) []card.Grid {
	var out []card.Grid
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
