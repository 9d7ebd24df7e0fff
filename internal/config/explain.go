// ABOUTME: Human-readable rendering of effective configuration
// ABOUTME: Used by the "config" CLI subcommand to show merged settings

package config

import (
	"fmt"
	"strings"
)

// Explain renders a human-readable summary of the effective settings,
// grouped by section. Unset optional values are left out.
func Explain(s *Settings) string {
	if s == nil {
		d := Defaults()
		s = &d
	}

	var b strings.Builder

	b.WriteString("=== Hardware ===\n")
	fmt.Fprintf(&b, "  Type:              %s\n", s.Hardware.Type)
	fmt.Fprintf(&b, "  Brightness:        %.2f\n", s.Hardware.Brightness)
	fmt.Fprintf(&b, "  Layout:            %s\n", s.Hardware.Layout)
	fmt.Fprintf(&b, "  Width:             %d\n", s.Hardware.Width)
	fmt.Fprintf(&b, "  UpdateRate:        %s\n", s.Hardware.UpdateRate)
	fmt.Fprintf(&b, "  ReconnectInterval: %s\n", s.Hardware.ReconnectInterval)
	p := s.Hardware.Pins
	if p.Data != "" || p.Clock != "" || p.Latch != "" {
		fmt.Fprintf(&b, "  Pins:              data=%s clock=%s latch=%s", p.Data, p.Clock, p.Latch)
		if p.Enable != "" {
			fmt.Fprintf(&b, " enable=%s", p.Enable)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("=== Display ===\n")
	fmt.Fprintf(&b, "  Charset:       %s\n", s.Display.Charset)
	if s.Display.Verbose {
		b.WriteString("  Verbose:       true\n")
	}
	if w := firstNonZero(s.Display.Width, s.Display.Columns); w != 0 {
		fmt.Fprintf(&b, "  Width:         %d\n", w)
	}
	if h := firstNonZero(s.Display.Height, s.Display.Rows); h != 0 {
		fmt.Fprintf(&b, "  Height:        %d\n", h)
	}
	if s.Display.ForceFallback {
		b.WriteString("  ForceFallback: true\n")
	}
	if s.Display.Coalesce != 0 {
		fmt.Fprintf(&b, "  Coalesce:      %s\n", s.Display.Coalesce)
	}
	b.WriteString("\n")

	b.WriteString("=== Encoding ===\n")
	fmt.Fprintf(&b, "  Table:   %s\n", s.Encoding.Table)
	fmt.Fprintf(&b, "  Unknown: %s", s.Encoding.Unknown)
	if strings.EqualFold(s.Encoding.Unknown, "substitute") {
		fmt.Fprintf(&b, " (%q)", s.Encoding.Substitute)
	}
	b.WriteString("\n\n")

	b.WriteString("=== Animations ===\n")
	fmt.Fprintf(&b, "  Enabled:    %v\n", s.Animations.Enabled)
	fmt.Fprintf(&b, "  FrameDelay: %s\n", s.Animations.FrameDelay)
	b.WriteString("\n")

	if s.Record.Path != "" {
		b.WriteString("=== Record ===\n")
		fmt.Fprintf(&b, "  Path: %s\n\n", s.Record.Path)
	}

	return b.String()
}
