// ABOUTME: Root cobra command, persistent flags, and runtime config assembly
// ABOUTME: Flags override YAML settings only when given on the command line

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mauromedda/punchcard-go/internal/config"
	"github.com/mauromedda/punchcard-go/internal/log"
)

type rootFlags struct {
	testMode      bool
	hardware      string
	charset       string
	width         int
	height        int
	verbose       bool
	forceFallback bool
	configPath    string
	table         string
	record        string
	logLevel      string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	root := &cobra.Command{
		Use:   "punchcard",
		Short: "IBM 80-column punch card simulator",
		Long: `Encode text into Hollerith hole patterns and show the card in the
terminal, on a simulated LED panel, or on GPIO-driven LED hardware.

Settings are read from ~/.punchcard/config.yaml, then .punchcard/config.yaml,
then --config, then command-line flags.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisplay(cmd, f, &displayFlags{}, args)
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVar(&f.testMode, "test-mode", false, "Simulated hardware, no animations, lamp test at start")
	pf.StringVar(&f.hardware, "hardware", "", "Hardware backend: none, simulated, gpio (or rpi)")
	pf.StringVar(&f.charset, "charset", "", "Terminal glyphs: block, circle, star, ascii")
	pf.IntVar(&f.width, "width", 0, "Override terminal width")
	pf.IntVar(&f.height, "height", 0, "Override terminal height")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "Show debug output")
	pf.BoolVar(&f.forceFallback, "fallback", false, "Always use the ASCII fallback view")
	pf.StringVar(&f.configPath, "config", "", "Extra config file layered over the defaults")
	pf.StringVar(&f.table, "table", "", "Code table: "+tableNames())
	pf.StringVar(&f.record, "record", "", "Record grid events to a tape file")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newDisplayCmd(f),
		newEncodeCmd(f),
		newReplCmd(f),
		newReplayCmd(f),
		newCharsetsCmd(),
		newTablesCmd(),
		newConfigCmd(f),
	)
	return root
}

// configFiles lists the YAML layers in load order.
func (f *rootFlags) configFiles() []string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	files := []string{config.GlobalConfigFile(), config.ProjectConfigFile(cwd)}
	if f.configPath != "" {
		files = append(files, f.configPath)
	}
	return files
}

// settings loads the YAML layers and applies the flags the user set.
func (f *rootFlags) settings(cmd *cobra.Command) (*config.Settings, error) {
	if f.configPath != "" {
		if _, err := os.Stat(f.configPath); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}
	s, err := config.LoadFiles(f.configFiles()...)
	if err != nil {
		return nil, err
	}

	var o config.Overrides
	flags := cmd.Flags()
	if flags.Changed("hardware") {
		o.Hardware = &f.hardware
	}
	if flags.Changed("charset") {
		o.Charset = &f.charset
	}
	if flags.Changed("width") {
		o.Width = &f.width
	}
	if flags.Changed("height") {
		o.Height = &f.height
	}
	if flags.Changed("verbose") {
		o.Verbose = &f.verbose
		if f.verbose && !flags.Changed("log-level") {
			debug := "debug"
			o.LogLevel = &debug
		}
	}
	if flags.Changed("fallback") {
		o.ForceFallback = &f.forceFallback
	}
	if flags.Changed("table") {
		o.Table = &f.table
	}
	if flags.Changed("record") {
		o.RecordPath = &f.record
	}
	if flags.Changed("log-level") {
		o.LogLevel = &f.logLevel
	}
	o.Apply(s)

	if f.testMode {
		s.Animations.Enabled = false
		if !flags.Changed("hardware") {
			s.Hardware.Type = "simulated"
		}
	}
	return s, nil
}

// runtime resolves settings into component configs and sets the log level.
func (f *rootFlags) runtime(cmd *cobra.Command) (*config.Runtime, error) {
	s, err := f.settings(cmd)
	if err != nil {
		return nil, err
	}
	rt, err := s.Resolve()
	if err != nil {
		return nil, err
	}
	log.SetLevel(rt.LogLevel)
	return rt, nil
}
