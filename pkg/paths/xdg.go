// Package paths provides XDG-compliant path resolution for hermes.
//
// Resolution order:
// 1. HERMES_HOME (portable root) → $HERMES_HOME/{config,state}
// 2. XDG env vars → $XDG_*_HOME/hermes
// 3. Platform defaults → ~/.config/hermes, ~/.local/state/hermes
package paths

import (
	"os"
	"path/filepath"
)

const appName = "hermes"

// resolve picks the base directory for one XDG category.
func resolve(portableSub, xdgEnv string, homeDefault ...string) string {
	if home := os.Getenv("HERMES_HOME"); home != "" {
		return filepath.Join(home, portableSub)
	}
	if dir := os.Getenv(xdgEnv); dir != "" {
		return filepath.Join(dir, appName)
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append(append([]string{homeDir}, homeDefault...), appName)...)
	}
	return ""
}

// ConfigDir returns the hermes configuration directory.
func ConfigDir() string {
	return resolve("config", "XDG_CONFIG_HOME", ".config")
}

// StateDir returns the hermes state directory.
// Used for logs.
func StateDir() string {
	return resolve("state", "XDG_STATE_HOME", ".local", "state")
}

// LogDir returns the default directory for log files.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// GlobalConfigFile returns the user-wide config file path.
func GlobalConfigFile() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "hermes.yml")
}

// EnsureDirs creates the hermes directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), LogDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
