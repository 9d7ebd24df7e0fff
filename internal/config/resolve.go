// ABOUTME: Validation turning loaded Settings into the typed configs each component takes
// ABOUTME: Every rejected value is reported, joined into one ErrInvalidConfig error

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mauromedda/punchcard-go/internal/hardware"
	"github.com/mauromedda/punchcard-go/internal/log"
	"github.com/mauromedda/punchcard-go/internal/render"
	"github.com/mauromedda/punchcard-go/pkg/hollerith"
)

// Runtime is validated, typed configuration ready for a session.
type Runtime struct {
	Hardware      hardware.Config
	Display       render.DisplayConfig
	Table         *hollerith.Table
	EncodeOptions []hollerith.Option
	Unknown       string
	Animations    bool
	FrameDelay    time.Duration
	RecordPath    string
	LogLevel      slog.Level
}

// Resolve validates s and builds the component configs.
func (s *Settings) Resolve() (*Runtime, error) {
	var errs []error
	fail := func(err error) { errs = append(errs, err) }

	rt := &Runtime{
		Animations: s.Animations.Enabled,
		FrameDelay: s.Animations.FrameDelay,
		RecordPath: s.Record.Path,
		Unknown:    strings.ToLower(strings.TrimSpace(s.Encoding.Unknown)),
	}

	hw := hardware.Config{
		Brightness:        s.Hardware.Brightness,
		Width:             s.Hardware.Width,
		UpdateRate:        s.Hardware.UpdateRate,
		ReconnectInterval: s.Hardware.ReconnectInterval,
		Pins: hardware.Pins{
			Data:   s.Hardware.Pins.Data,
			Clock:  s.Hardware.Pins.Clock,
			Latch:  s.Hardware.Pins.Latch,
			Enable: s.Hardware.Pins.Enable,
		},
	}
	var err error
	if hw.Kind, err = hardware.ParseKind(s.Hardware.Type); err != nil {
		fail(err)
	}
	if hw.Layout, err = hardware.ParseLayout(s.Hardware.Layout); err != nil {
		fail(err)
	}
	if len(errs) == 0 {
		if err := hw.Validate(); err != nil {
			fail(err)
		}
	}
	rt.Hardware = hw

	disp := render.DefaultDisplayConfig()
	if disp.Charset, err = render.ParseCharset(s.Display.Charset); err != nil {
		fail(err)
	}
	disp.Verbose = s.Display.Verbose
	disp.ForceFallback = s.Display.ForceFallback
	disp.Width = firstNonZero(s.Display.Width, s.Display.Columns)
	disp.Height = firstNonZero(s.Display.Height, s.Display.Rows)
	if s.Display.Coalesce != 0 {
		disp.CoalesceWindow = s.Display.Coalesce
	}
	if s.Display.DebugHistory != 0 {
		disp.DebugHistory = s.Display.DebugHistory
	}
	if err := disp.Validate(); err != nil {
		fail(err)
	}
	rt.Display = disp

	if rt.Table, err = hollerith.Lookup(s.Encoding.Table); err != nil {
		fail(err)
	}
	switch rt.Unknown {
	case "", "abort":
		rt.Unknown = "abort"
	case "skip":
		rt.EncodeOptions = append(rt.EncodeOptions, hollerith.WithSkip())
	case "substitute":
		r, err := substituteRune(s.Encoding.Substitute)
		if err != nil {
			fail(err)
			break
		}
		if rt.Table != nil && !rt.Table.Contains(r) {
			fail(fmt.Errorf("substitute %q is not in table %s", r, rt.Table.Name()))
			break
		}
		rt.EncodeOptions = append(rt.EncodeOptions, hollerith.WithSubstitute(r))
	default:
		fail(fmt.Errorf("unknown character policy %q (want abort, skip, substitute)", s.Encoding.Unknown))
	}

	if s.Animations.FrameDelay < 0 {
		fail(fmt.Errorf("animation frame delay %s is negative", s.Animations.FrameDelay))
	}

	if rt.LogLevel, err = log.ParseLevel(s.LogLevel); err != nil {
		fail(err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return rt, nil
}

func substituteRune(s string) (rune, error) {
	if s == "" {
		return ' ', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("substitute %q must be a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
