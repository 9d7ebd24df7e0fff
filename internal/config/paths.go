// ABOUTME: Standard filesystem paths for punchcard configuration and tapes
// ABOUTME: Resolves ~/.punchcard/ for global and .punchcard/ for project-local paths

package config

import (
	"os"
	"path/filepath"
)

const (
	globalDirName  = ".punchcard"
	projectDirName = ".punchcard"
	configFileName = "config.yaml"
)

// GlobalDir returns the user-global config directory (~/.punchcard/).
func GlobalDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", globalDirName)
	}
	return filepath.Join(home, globalDirName)
}

// ProjectDir returns the project-local config directory (.punchcard/ in projectRoot).
func ProjectDir(projectRoot string) string {
	return filepath.Join(projectRoot, projectDirName)
}

// GlobalConfigFile returns the path to the global config file.
func GlobalConfigFile() string {
	return filepath.Join(GlobalDir(), configFileName)
}

// ProjectConfigFile returns the path to the project-local config file.
func ProjectConfigFile(projectRoot string) string {
	return filepath.Join(ProjectDir(projectRoot), configFileName)
}

// TapesDir returns the default directory for recorded tapes.
func TapesDir() string {
	return filepath.Join(GlobalDir(), "tapes")
}

// EnsureDir creates a directory and all parents if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
