// ABOUTME: Environment variable expansion in config string fields
// ABOUTME: Replaces ${VAR} patterns with os.Getenv values; unset vars become empty

package config

import (
	"os"
	"regexp"
)

var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// ResolveEnvVars expands ${VAR} patterns in string fields of Settings.
func ResolveEnvVars(s *Settings) {
	s.Hardware.Type = expandEnv(s.Hardware.Type)
	s.Hardware.Layout = expandEnv(s.Hardware.Layout)
	s.Hardware.Pins.Data = expandEnv(s.Hardware.Pins.Data)
	s.Hardware.Pins.Clock = expandEnv(s.Hardware.Pins.Clock)
	s.Hardware.Pins.Latch = expandEnv(s.Hardware.Pins.Latch)
	s.Hardware.Pins.Enable = expandEnv(s.Hardware.Pins.Enable)
	s.Display.Charset = expandEnv(s.Display.Charset)
	s.Encoding.Table = expandEnv(s.Encoding.Table)
	s.Encoding.Unknown = expandEnv(s.Encoding.Unknown)
	s.Encoding.Substitute = expandEnv(s.Encoding.Substitute)
	s.Record.Path = expandEnv(s.Record.Path)
	s.LogLevel = expandEnv(s.LogLevel)
}

// expandEnv replaces ${VAR} with os.Getenv(VAR). Unset vars become "".
func expandEnv(s string) string {
	if s == "" {
		return s
	}
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
