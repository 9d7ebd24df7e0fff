// ABOUTME: Hardware backend capability interface, backend kinds, and immutable backend config
// ABOUTME: New builds the tagged variant (none, simulated, gpio) from a validated Config

package hardware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mauromedda/punchcard-go/internal/grid"
	"github.com/mauromedda/punchcard-go/pkg/card"
)

var (
	// ErrUnavailable marks recoverable hardware absence or loss.
	ErrUnavailable = errors.New("hardware unavailable")
	// ErrInvalidConfig marks configuration that cannot build a backend.
	ErrInvalidConfig = errors.New("invalid hardware config")
	// ErrNotConnected is returned by Start on a backend that is not connected.
	ErrNotConnected = errors.New("backend not connected")
)

// Kind selects a backend variant.
type Kind int

const (
	KindNone Kind = iota
	KindSimulated
	KindGPIO
)

// String returns the config name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSimulated:
		return "simulated"
	case KindGPIO:
		return "gpio"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind accepts "none", "simulated" (or "sim"), and "gpio" (or "rpi").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return KindNone, nil
	case "simulated", "sim", "simulation":
		return KindSimulated, nil
	case "gpio", "rpi":
		return KindGPIO, nil
	default:
		return KindNone, fmt.Errorf("%w: unknown hardware type %q (want none, simulated, gpio)", ErrInvalidConfig, s)
	}
}

// Backend is the capability set every hardware variant implements.
// Connect fails softly: an error wrapping ErrUnavailable means the caller
// should fall back to simulation.
type Backend interface {
	Kind() Kind
	Connect() error
	Disconnect() error
	Start() error
	Stop() error
	PushUpdate(ev grid.ChangeEvent) error
}

// Pins names the GPIO lines driving a shift-register chain.
type Pins struct {
	Data   string
	Clock  string
	Latch  string
	Enable string // optional, active-low output enable used for brightness
}

// Config is fixed when a backend is built; changing it means building a new backend.
type Config struct {
	Kind              Kind
	Brightness        float64
	Layout            Layout
	Width             int // physical columns per row; defaults to 80
	Pins              Pins
	UpdateRate        time.Duration // GPIO flush interval
	ReconnectInterval time.Duration // 0 disables automatic retries
}

// DefaultConfig returns a simulated backend config at full brightness.
func DefaultConfig() Config {
	return Config{
		Kind:       KindSimulated,
		Brightness: 1.0,
		Layout:     LayoutRowMajor,
		Width:      card.Columns,
		UpdateRate: 50 * time.Millisecond,
	}
}

// Validate checks ranges and required fields for the selected kind.
func (c Config) Validate() error {
	if c.Brightness < 0 || c.Brightness > 1 {
		return fmt.Errorf("%w: brightness %.2f outside [0,1]", ErrInvalidConfig, c.Brightness)
	}
	if c.Width < 0 || c.Width > card.Columns {
		return fmt.Errorf("%w: width %d outside 1..%d", ErrInvalidConfig, c.Width, card.Columns)
	}
	if c.UpdateRate < 0 || c.ReconnectInterval < 0 {
		return fmt.Errorf("%w: negative interval", ErrInvalidConfig)
	}
	if c.Kind == KindGPIO && c.driverless() {
		return fmt.Errorf("%w: gpio backend needs data, clock and latch pins", ErrInvalidConfig)
	}
	return nil
}

func (c Config) driverless() bool {
	return c.Pins.Data == "" || c.Pins.Clock == "" || c.Pins.Latch == ""
}

func (c Config) withDefaults() Config {
	if c.Width == 0 {
		c.Width = card.Columns
	}
	if c.UpdateRate == 0 {
		c.UpdateRate = 50 * time.Millisecond
	}
	return c
}

type options struct {
	driver Driver
}

// Option customizes New.
type Option func(*options)

// WithDriver supplies the GPIO output driver instead of the pin-based shift register.
func WithDriver(d Driver) Option {
	return func(o *options) { o.driver = d }
}

// New builds the backend selected by cfg.Kind. The config is copied.
func New(cfg Config, opts ...Option) (Backend, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil && !(cfg.Kind == KindGPIO && o.driver != nil && cfg.driverless()) {
		return nil, err
	}
	cfg = cfg.withDefaults()

	switch cfg.Kind {
	case KindNone:
		return None{}, nil
	case KindSimulated:
		return NewSimulated(), nil
	case KindGPIO:
		d := o.driver
		if d == nil {
			d = NewShiftRegister(cfg.Pins)
		}
		return NewGPIO(cfg, d), nil
	default:
		return nil, fmt.Errorf("%w: kind %s", ErrInvalidConfig, cfg.Kind)
	}
}

// None is the "no hardware" backend; every call succeeds and does nothing.
type None struct{}

func (None) Kind() Kind                        { return KindNone }
func (None) Connect() error                    { return nil }
func (None) Disconnect() error                 { return nil }
func (None) Start() error                      { return nil }
func (None) Stop() error                       { return nil }
func (None) PushUpdate(grid.ChangeEvent) error { return nil }
