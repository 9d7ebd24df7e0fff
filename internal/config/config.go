// ABOUTME: Settings loading with global + project YAML layered over built-in defaults
// ABOUTME: Later layers only override the keys they set; CLI overrides apply last

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig marks settings that cannot start a session.
var ErrInvalidConfig = errors.New("invalid configuration")

// Settings holds the merged configuration.
type Settings struct {
	Hardware   HardwareSettings  `yaml:"hardware"`
	Display    DisplaySettings   `yaml:"display"`
	Encoding   EncodingSettings  `yaml:"encoding"`
	Animations AnimationSettings `yaml:"animations"`
	Record     RecordSettings    `yaml:"record"`
	LogLevel   string            `yaml:"log_level,omitempty"`
}

// HardwareSettings selects and tunes the LED backend.
type HardwareSettings struct {
	Type              string        `yaml:"type"`
	Brightness        float64       `yaml:"brightness"`
	Layout            string        `yaml:"layout"`
	Width             int           `yaml:"width"`
	UpdateRate        time.Duration `yaml:"update_rate"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	Pins              PinSettings   `yaml:"pins"`
}

// PinSettings names GPIO lines, e.g. "GPIO17".
type PinSettings struct {
	Data   string `yaml:"data,omitempty"`
	Clock  string `yaml:"clock,omitempty"`
	Latch  string `yaml:"latch,omitempty"`
	Enable string `yaml:"enable,omitempty"`
}

// DisplaySettings configure the terminal renderer. Rows and Columns are
// older spellings of Height and Width; Height and Width win when both are set.
type DisplaySettings struct {
	Charset       string        `yaml:"charset"`
	Verbose       bool          `yaml:"verbose"`
	Width         int           `yaml:"width,omitempty"`
	Height        int           `yaml:"height,omitempty"`
	Columns       int           `yaml:"columns,omitempty"`
	Rows          int           `yaml:"rows,omitempty"`
	ForceFallback bool          `yaml:"force_fallback"`
	Coalesce      time.Duration `yaml:"coalesce,omitempty"`
	DebugHistory  int           `yaml:"debug_history,omitempty"`
}

// EncodingSettings choose the code table and the unknown-character policy.
type EncodingSettings struct {
	Table      string `yaml:"table"`
	Unknown    string `yaml:"unknown"`
	Substitute string `yaml:"substitute,omitempty"`
}

// AnimationSettings toggle message animations.
type AnimationSettings struct {
	Enabled    bool          `yaml:"enabled"`
	FrameDelay time.Duration `yaml:"frame_delay"`
}

// RecordSettings enable the change-event tape.
type RecordSettings struct {
	Path string `yaml:"path,omitempty"`
}

// Defaults returns the settings used when no file sets a key.
func Defaults() Settings {
	return Settings{
		Hardware: HardwareSettings{
			Type:              "simulated",
			Brightness:        1.0,
			Layout:            "row-major",
			Width:             80,
			UpdateRate:        50 * time.Millisecond,
			ReconnectInterval: 5 * time.Second,
		},
		Display: DisplaySettings{
			Charset: "block",
		},
		Encoding: EncodingSettings{
			Table:   "ibm029",
			Unknown: "abort",
		},
		Animations: AnimationSettings{
			Enabled:    true,
			FrameDelay: 40 * time.Millisecond,
		},
		LogLevel: "info",
	}
}

// Load reads and merges global and project-local settings over Defaults.
// Project settings override global settings. Missing files are skipped.
func Load(projectRoot string) (*Settings, error) {
	return LoadFiles(GlobalConfigFile(), ProjectConfigFile(projectRoot))
}

// LoadFiles layers each existing file, in order, over Defaults and expands
// ${VAR} references.
func LoadFiles(paths ...string) (*Settings, error) {
	s := Defaults()
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := decodeFile(&s, path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
	}
	ResolveEnvVars(&s)
	return &s, nil
}

// decodeFile unmarshals path onto s. Keys absent from the file keep their
// current value, which is what makes layering a deep merge.
func decodeFile(s *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := decode(s, data); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func decode(s *Settings, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Marshal renders s as YAML, the format Load reads.
func Marshal(s *Settings) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Overrides carries command-line values; nil fields leave settings alone.
type Overrides struct {
	Hardware      *string
	Charset       *string
	Width         *int
	Height        *int
	Verbose       *bool
	ForceFallback *bool
	Table         *string
	RecordPath    *string
	LogLevel      *string
}

// Apply copies every set override into s.
func (o Overrides) Apply(s *Settings) {
	if o.Hardware != nil {
		s.Hardware.Type = *o.Hardware
	}
	if o.Charset != nil {
		s.Display.Charset = *o.Charset
	}
	if o.Width != nil {
		s.Display.Width = *o.Width
	}
	if o.Height != nil {
		s.Display.Height = *o.Height
	}
	if o.Verbose != nil {
		s.Display.Verbose = *o.Verbose
	}
	if o.ForceFallback != nil {
		s.Display.ForceFallback = *o.ForceFallback
	}
	if o.Table != nil {
		s.Encoding.Table = *o.Table
	}
	if o.RecordPath != nil {
		s.Record.Path = *o.RecordPath
	}
	if o.LogLevel != nil {
		s.LogLevel = *o.LogLevel
	}
}
