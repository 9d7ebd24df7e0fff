// ABOUTME: replay command: plays a recorded tape into a live session on the terminal
// ABOUTME: Speed scales the recorded gaps; zero replays as fast as possible

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mauromedda/punchcard-go/internal/log"
	"github.com/mauromedda/punchcard-go/internal/session"
	"github.com/mauromedda/punchcard-go/internal/tape"
	"github.com/mauromedda/punchcard-go/pkg/tui/terminal"
)

func newReplayCmd(rf *rootFlags) *cobra.Command {
	var (
		speed float64
		exit  bool
	)
	cmd := &cobra.Command{
		Use:   "replay <tape>",
		Short: "Play back a recorded tape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rf.runtime(cmd)
			if err != nil {
				return err
			}
			rt.RecordPath = ""

			r, err := tape.Open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			h := r.Header()

			s, err := session.New(rt, session.WithTerminal(terminal.NewProcessTerminal()))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			errCh := make(chan error, 1)
			go func() { errCh <- s.Run(ctx) }()

			s.Status(fmt.Sprintf("replaying session %s from %s", h.SessionID, h.Started.Local().Format("2006-01-02 15:04:05")))
			n, err := tape.Replay(ctx, r, s.Grid(), speed)
			switch {
			case err != nil && !errors.Is(err, context.Canceled):
				log.Error("replay stopped after %d events: %v", n, err)
				s.Status(fmt.Sprintf("replay stopped: %v", err))
			default:
				s.Status(fmt.Sprintf("replayed %d events", n))
			}

			if !exit {
				select {
				case <-ctx.Done():
				case <-s.Done():
				}
			}
			cancel()
			return <-errCh
		},
	}
	cmd.Flags().Float64Var(&speed, "speed", 1, "Playback speed multiplier (0 = no delays)")
	cmd.Flags().BoolVar(&exit, "exit", false, "Exit when the tape ends")
	return cmd
}
