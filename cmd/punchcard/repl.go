// ABOUTME: repl command: line-editing prompt driving a headless session
// ABOUTME: Plain lines are displayed as messages; lines starting with ':' are commands

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/mauromedda/punchcard-go/internal/animation"
	"github.com/mauromedda/punchcard-go/internal/config"
	"github.com/mauromedda/punchcard-go/internal/grid"
	"github.com/mauromedda/punchcard-go/internal/render"
	"github.com/mauromedda/punchcard-go/internal/session"
	"github.com/mauromedda/punchcard-go/pkg/card"
	"github.com/mauromedda/punchcard-go/pkg/hollerith"
)

const replHelp = `Type text to punch it into a fresh card. Commands:
  :clear                  blank the card
  :show                   decode the card back to text
  :cell <row> <col> on|off
  :row <row> on|off
  :col <col> <rows>       e.g. :col 5 12-3-8
  :anim <name> [repeat]   ` + "%s" + `
  :table <name>           switch code table
  :png <path>             save the card as PNG
  :json                   print the card as JSON
  :reconnect              retry the hardware backend
  :help                   this text
  :quit                   leave`

func newReplCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive prompt for punching messages and cells",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(cmd, rf)
		},
	}
}

func runRepl(cmd *cobra.Command, rf *rootFlags) error {
	rt, err := rf.runtime(cmd)
	if err != nil {
		return err
	}
	s, err := session.New(rt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	historyDir := config.GlobalDir()
	_ = config.EnsureDir(historyDir)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "punchcard> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		HistoryFile:     filepath.Join(historyDir, "history"),
	})
	if err != nil {
		cancel()
		<-errCh
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	r := &repl{s: s, rt: rt, out: rl.Stdout()}
	fmt.Fprintf(r.out, "punchcard %s, table %s. :help for commands.\n", version, rt.Table.Name())

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) && line != "" {
				continue
			}
			break
		}
		quit, err := r.exec(ctx, line)
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
		if quit || ctx.Err() != nil {
			break
		}
	}

	cancel()
	return <-errCh
}

type repl struct {
	s   *session.Session
	rt  *config.Runtime
	out io.Writer
}

// exec runs one input line.
func (r *repl) exec(ctx context.Context, line string) (quit bool, err error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false, nil
	}
	if !strings.HasPrefix(trimmed, ":") {
		res, err := r.s.Display(ctx, line)
		if err != nil {
			return false, err
		}
		r.drawCard()
		if res.Truncated {
			fmt.Fprintf(r.out, "(truncated at %d columns)\n", card.Columns)
		}
		return false, nil
	}

	fields := strings.Fields(trimmed[1:])
	if len(fields) == 0 {
		return false, nil
	}
	m := r.s.Grid()
	switch name, args := fields[0], fields[1:]; name {
	case "q", "quit", "exit":
		return true, nil
	case "h", "help":
		fmt.Fprintf(r.out, replHelp+"\n", strings.Join(animation.Names(), ", "))
	case "clear":
		r.s.Clear()
	case "show":
		fmt.Fprintf(r.out, "%q\n", decodeCard(m.Snapshot(), r.rt.Table))
	case "cell":
		if len(args) != 3 {
			return false, errors.New("usage: :cell <row> <col> on|off")
		}
		row, err := card.ParseLabel(args[0])
		if err != nil {
			return false, err
		}
		col, err := strconv.Atoi(args[1])
		if err != nil {
			return false, fmt.Errorf("column %q: %w", args[1], err)
		}
		on, err := parseSwitch(args[2])
		if err != nil {
			return false, err
		}
		if err := m.SetCell(row, col, on); err != nil {
			return false, err
		}
		r.drawCard()
	case "row":
		if len(args) != 2 {
			return false, errors.New("usage: :row <row> on|off")
		}
		row, err := card.ParseLabel(args[0])
		if err != nil {
			return false, err
		}
		on, err := parseSwitch(args[1])
		if err != nil {
			return false, err
		}
		if err := m.SetRow(row, on); err != nil {
			return false, err
		}
		r.drawCard()
	case "col":
		if len(args) < 1 || len(args) > 2 {
			return false, errors.New("usage: :col <col> <rows>")
		}
		col, err := strconv.Atoi(args[0])
		if err != nil {
			return false, fmt.Errorf("column %q: %w", args[0], err)
		}
		var rows card.RowSet
		if len(args) == 2 {
			if rows, err = card.ParseRowSet(args[1]); err != nil {
				return false, err
			}
		}
		if err := m.SetColumn(col, rows); err != nil {
			return false, err
		}
		r.drawCard()
	case "anim":
		if len(args) < 1 {
			return false, errors.New("usage: :anim <name> [repeat]")
		}
		repeat := 1
		if len(args) > 1 {
			if repeat, err = strconv.Atoi(args[1]); err != nil {
				return false, fmt.Errorf("repeat %q: %w", args[1], err)
			}
		}
		if err := r.s.Animate(ctx, args[0], repeat); err != nil && !errors.Is(err, context.Canceled) {
			return false, err
		}
	case "table":
		if len(args) != 1 {
			return false, errors.New("usage: :table <name>")
		}
		t, err := hollerith.Lookup(args[0])
		if err != nil {
			return false, err
		}
		next := *r.rt
		next.Table = t
		if err := r.s.Reload(&next); err != nil {
			return false, err
		}
		r.rt = &next
		fmt.Fprintf(r.out, "table %s\n", t.Name())
	case "png":
		if len(args) != 1 {
			return false, errors.New("usage: :png <path>")
		}
		snap := m.Snapshot()
		if err := writePNG(args[0], snap, decodeCard(snap, r.rt.Table), 2); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "wrote %s\n", args[0])
	case "json":
		snap, seq := m.SnapshotSeq()
		data, err := grid.MarshalSnapshot(seq, snap)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, string(data))
	case "reconnect":
		r.s.Reconnect()
	default:
		return false, fmt.Errorf("unknown command :%s (try :help)", name)
	}
	return false, nil
}

func (r *repl) drawCard() {
	for _, line := range render.DrawCard(r.s.Grid().Snapshot(), r.rt.Display.Charset, r.rt.Display.Width) {
		fmt.Fprintln(r.out, line)
	}
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true", "punch":
		return true, nil
	case "off", "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("want on or off, got %q", s)
	}
}

// decodeCard reads the card back as text. Columns with no matching
// character read as '?'; trailing blanks are dropped.
func decodeCard(g card.Grid, t *hollerith.Table) string {
	var b strings.Builder
	for c := 1; c <= card.Columns; c++ {
		rows := g.Column(c)
		if rows.IsEmpty() {
			b.WriteByte(' ')
			continue
		}
		r, ok := hollerith.Decode(rows, t)
		if !ok {
			r = '?'
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}
