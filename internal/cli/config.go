package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/hugr-lab/lakeview"
)

// fileConfig is the TOML layout of the config file. Workspace fields sit at
// the top level next to the CLI-only ones.
type fileConfig struct {
	lakeview.Config

	Level   string `toml:"log_level"`
	Session string `toml:"session"`
}

// DefaultConfigPath returns ~/.config/lakeview/config.toml, or "" when the
// home directory is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "lakeview", "config.toml")
}

// loadConfig reads path. An empty path falls back to DefaultConfigPath, and
// a missing default file yields an empty config.
func loadConfig(path string) (*fileConfig, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if path == "" {
		return &fileConfig{}, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) && !explicit {
		return &fileConfig{}, nil
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if fc.Level != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(fc.Level)); err != nil {
			return nil, fmt.Errorf("config %s: log_level: %w", path, err)
		}
		fc.LogLevel = &level
	}
	return &fc, nil
}
