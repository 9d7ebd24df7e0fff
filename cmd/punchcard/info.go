// ABOUTME: Informational commands: charsets, tables, and config
// ABOUTME: They print static data or the effective settings and never touch hardware

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mauromedda/punchcard-go/internal/config"
	"github.com/mauromedda/punchcard-go/internal/render"
	"github.com/mauromedda/punchcard-go/pkg/hollerith"
)

func newCharsetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "charsets",
		Short: "List the terminal character sets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			for _, cs := range render.Charsets() {
				on, off := cs.Glyphs()
				fmt.Fprintf(out, "%-7s %s%s%s%s\n", cs, on, off, on, off)
			}
		},
	}
}

func tableNames() string {
	return strings.Join(hollerith.Names(), ", ")
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables [name]",
		Short: "List code tables, or print one table's codes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range hollerith.Names() {
					t := hollerith.MustLookup(name)
					fmt.Fprintf(out, "%-10s %3d chars  %s\n", name, t.Len(), t.Description())
				}
				return nil
			}
			t, err := hollerith.Lookup(args[0])
			if err != nil {
				return err
			}
			for _, r := range t.Chars() {
				rows, _ := hollerith.Encode(r, t)
				code := rows.String()
				if code == "" {
					code = "(none)"
				}
				fmt.Fprintf(out, "%q  %s\n", r, code)
			}
			return nil
		},
	}
}

func newConfigCmd(rf *rootFlags) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := rf.settings(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asYAML {
				data, err := config.Marshal(s)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}
			fmt.Fprint(out, config.Explain(s))
			if _, err := s.Resolve(); err != nil {
				fmt.Fprintf(out, "invalid: %v\n", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print as YAML")
	return cmd
}
