// ABOUTME: display command: runs a full session on the terminal and punches messages into it
// ABOUTME: Messages come from arguments or, when stdin is piped, one per input line

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mauromedda/punchcard-go/internal/animation"
	"github.com/mauromedda/punchcard-go/internal/config"
	"github.com/mauromedda/punchcard-go/internal/log"
	"github.com/mauromedda/punchcard-go/internal/session"
	"github.com/mauromedda/punchcard-go/pkg/hollerith"
	"github.com/mauromedda/punchcard-go/pkg/tui/terminal"
)

const defaultPageDelay = 3 * time.Second

type displayFlags struct {
	hold      time.Duration
	pageDelay time.Duration
	animation string
	watch     bool
}

func newDisplayCmd(rf *rootFlags) *cobra.Command {
	df := &displayFlags{}
	cmd := &cobra.Command{
		Use:   "display [message...]",
		Short: "Show messages on the card (default command)",
		Long: `Run the simulator on this terminal. Each message is encoded and punched
into a fresh card; messages longer than 80 columns are shown page by page.
With no arguments and a piped stdin, each input line is one message.
Press q to quit the interactive view.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisplay(cmd, rf, df, args)
		},
	}
	cmd.Flags().DurationVar(&df.hold, "hold", 0, "Exit this long after the last message (0 waits for quit)")
	cmd.Flags().DurationVar(&df.pageDelay, "page-delay", defaultPageDelay, "Time each page of a long message stays up")
	cmd.Flags().StringVar(&df.animation, "animation", "", "Play an effect before the first message: "+strings.Join(animation.Names(), ", "))
	cmd.Flags().BoolVar(&df.watch, "watch", true, "Reload display settings when config files change")
	return cmd
}

func runDisplay(cmd *cobra.Command, rf *rootFlags, df *displayFlags, args []string) error {
	rt, err := rf.runtime(cmd)
	if err != nil {
		return err
	}

	piped := len(args) == 0 && !term.IsTerminal(int(os.Stdin.Fd()))
	if piped {
		// Keys cannot be read from a pipe carrying messages.
		rt.Display.ForceFallback = true
	}

	s, err := session.New(rt, session.WithTerminal(terminal.NewProcessTerminal()))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	if df.watch {
		if w := watchConfig(ctx, rf, cmd, s); w != nil {
			defer w.Stop()
		}
	}

	if err := feed(ctx, s, rf, df, args, piped); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("%v", err)
	}

	switch {
	case df.hold > 0:
		select {
		case <-time.After(df.hold):
		case <-ctx.Done():
		case <-s.Done():
		}
	default:
		select {
		case <-ctx.Done():
		case <-s.Done():
		}
	}
	cancel()
	return <-errCh
}

// feed shows the startup effects and every message, page by page.
func feed(ctx context.Context, s *session.Session, rf *rootFlags, df *displayFlags, args []string, piped bool) error {
	if rf.testMode {
		if err := s.Animate(ctx, "test-pattern", 1); err != nil {
			return err
		}
	}
	if df.animation != "" {
		if err := s.Animate(ctx, df.animation, 1); err != nil {
			return err
		}
	}

	pageDelay := df.pageDelay
	if pageDelay <= 0 {
		pageDelay = defaultPageDelay
	}

	var messages []string
	if len(args) > 0 {
		messages = append(messages, strings.Join(args, " "))
	}
	for _, msg := range messages {
		if err := showPages(ctx, s, msg, pageDelay); err != nil {
			return err
		}
	}
	if !piped {
		return nil
	}

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if err := showPages(ctx, s, sc.Text(), pageDelay); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading stdin: %w", err)
	}
	return nil
}

func showPages(ctx context.Context, s *session.Session, msg string, pageDelay time.Duration) error {
	pages := hollerith.Pages(msg)
	for i, page := range pages {
		if _, err := s.Display(ctx, page); err != nil {
			if errors.Is(err, hollerith.ErrUnsupportedCharacter) {
				s.Status(err.Error())
				continue
			}
			return err
		}
		if len(pages) > 1 {
			s.Status(fmt.Sprintf("page %d/%d", i+1, len(pages)))
		}
		if i < len(pages)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.Done():
				return context.Canceled
			case <-time.After(pageDelay):
			}
		}
	}
	return nil
}

// watchConfig reloads display and encoding settings when a config layer changes.
func watchConfig(ctx context.Context, rf *rootFlags, cmd *cobra.Command, s *session.Session) *config.Watcher {
	w, err := config.NewWatcher(rf.configFiles(), func() {
		rt, err := rf.runtime(cmd)
		if err != nil {
			s.Status(fmt.Sprintf("config not reloaded: %v", err))
			return
		}
		if err := s.Reload(rt); err != nil {
			s.Status(fmt.Sprintf("config not reloaded: %v", err))
			return
		}
		s.Status("config reloaded")
	})
	if err != nil {
		log.Debug("config watcher unavailable: %v", err)
		return nil
	}
	w.Start(ctx)
	return w
}
