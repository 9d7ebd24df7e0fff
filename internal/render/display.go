// ABOUTME: DisplayConfig and the rule choosing interactive or ASCII fallback mode
// ABOUTME: Fallback is forced below 40x12, when the size is unknown, or on request

package render

import (
	"fmt"
	"time"
)

// Minimum terminal size for the interactive split-screen view.
const (
	MinWidth  = 40
	MinHeight = 12
)

const (
	defaultCoalesce     = 50 * time.Millisecond
	defaultDebugHistory = 200
	statusHistory       = 16
)

// DisplayConfig affects rendering only, never grid state.
type DisplayConfig struct {
	Charset        Charset
	Verbose        bool
	Width          int // override of the reported width; 0 uses the terminal's
	Height         int // override of the reported height; 0 uses the terminal's
	ForceFallback  bool
	CoalesceWindow time.Duration
	DebugHistory   int
}

// DefaultDisplayConfig returns block glyphs with default queue sizes.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		Charset:        CharsetBlock,
		CoalesceWindow: defaultCoalesce,
		DebugHistory:   defaultDebugHistory,
	}
}

// Validate rejects values no renderer can honor.
func (c DisplayConfig) Validate() error {
	if !c.Charset.Valid() {
		return &UnknownCharsetError{Name: c.Charset.String()}
	}
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("display size override %dx%d is negative", c.Width, c.Height)
	}
	if c.CoalesceWindow < 0 {
		return fmt.Errorf("coalesce window %s is negative", c.CoalesceWindow)
	}
	return nil
}

func (c DisplayConfig) withDefaults() DisplayConfig {
	if c.DebugHistory <= 0 {
		c.DebugHistory = defaultDebugHistory
	}
	return c
}

// Mode is the renderer's drawing mode.
type Mode int

const (
	ModeInteractive Mode = iota
	ModeFallback
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeFallback {
		return "fallback"
	}
	return "interactive"
}

// SelectMode picks the starting mode. reason explains a fallback choice.
func SelectMode(cfg DisplayConfig, reportedWidth, reportedHeight int, sizeErr error) (mode Mode, reason string) {
	if cfg.ForceFallback {
		return ModeFallback, "fallback requested"
	}

	w, h := cfg.Width, cfg.Height
	if w == 0 || h == 0 {
		if sizeErr != nil {
			return ModeFallback, fmt.Sprintf("terminal size unknown: %v", sizeErr)
		}
		if w == 0 {
			w = reportedWidth
		}
		if h == 0 {
			h = reportedHeight
		}
	}

	if w < MinWidth || h < MinHeight {
		return ModeFallback, fmt.Sprintf("terminal %dx%d is below the %dx%d minimum", w, h, MinWidth, MinHeight)
	}
	return ModeInteractive, ""
}
