// ABOUTME: encode command: prints the punch pattern of a message without running a session
// ABOUTME: Output as a column table, an easyjson snapshot document, a PNG image, or a terminal preview

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mauromedda/punchcard-go/internal/cardimage"
	"github.com/mauromedda/punchcard-go/internal/grid"
	"github.com/mauromedda/punchcard-go/internal/render"
	"github.com/mauromedda/punchcard-go/pkg/card"
	"github.com/mauromedda/punchcard-go/pkg/hollerith"
)

type encodeFlags struct {
	json    bool
	png     string
	scale   int
	preview bool
	card    bool
}

func newEncodeCmd(rf *rootFlags) *cobra.Command {
	ef := &encodeFlags{}
	cmd := &cobra.Command{
		Use:   "encode <message>",
		Short: "Print the holes punched for a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd, rf, ef, strings.Join(args, " "))
		},
	}
	cmd.Flags().BoolVar(&ef.json, "json", false, "Print the card as a JSON snapshot document")
	cmd.Flags().StringVar(&ef.png, "png", "", "Write the card as a PNG image to this path")
	cmd.Flags().IntVar(&ef.scale, "scale", 2, "PNG scale factor")
	cmd.Flags().BoolVar(&ef.preview, "preview", false, "Show a true-color image preview")
	cmd.Flags().BoolVar(&ef.card, "card", false, "Draw the card with the configured glyphs")
	return cmd
}

func runEncode(cmd *cobra.Command, rf *rootFlags, ef *encodeFlags, text string) error {
	rt, err := rf.runtime(cmd)
	if err != nil {
		return err
	}

	text = hollerith.Normalize(text, rt.Table)
	cols, err := hollerith.EncodeMessage(text, rt.Table, rt.EncodeOptions...)
	if err != nil {
		return err
	}
	var g card.Grid
	for _, c := range cols {
		for i := range card.Rows {
			g[i][c.Index-1] = c.Rows.HasIndex(i)
		}
	}

	out := cmd.OutOrStdout()
	if ef.png != "" {
		if err := writePNG(ef.png, g, text, ef.scale); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", ef.png)
	}

	switch {
	case ef.json:
		data, err := grid.MarshalSnapshot(0, g)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case ef.preview:
		img := cardimage.Render(g, cardimage.Options{Text: text})
		for _, line := range cardimage.HalfBlock(img, card.Columns+8) {
			fmt.Fprintln(out, line)
		}
		return nil
	case ef.card:
		for _, line := range render.DrawCard(g, rt.Display.Charset, rt.Display.Width) {
			fmt.Fprintln(out, line)
		}
		return nil
	case ef.png != "":
		return nil
	}

	writeColumns(out, cols, rt.Table.Name())
	if hollerith.Truncated(text) {
		fmt.Fprintf(out, "(truncated at %d columns)\n", card.Columns)
	}
	return nil
}

func writeColumns(w io.Writer, cols []hollerith.Column, table string) {
	fmt.Fprintf(w, "table %s\n", table)
	for _, c := range cols {
		note := ""
		switch {
		case c.Substituted:
			note = "  (substituted)"
		case c.Skipped:
			note = "  (skipped)"
		}
		rows := c.Rows.String()
		if rows == "" {
			rows = "-"
		}
		fmt.Fprintf(w, "%2d  %q  %s%s\n", c.Index, c.Char, rows, note)
	}
}

func writePNG(path string, g card.Grid, text string, scale int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := cardimage.EncodePNG(f, g, cardimage.Options{Text: text, Scale: scale}); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
