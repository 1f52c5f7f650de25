package config

import (
	"os"
	"path/filepath"
)

// defaultHistoryPath returns the default run-history database path.
//
// Returns: ~/.config/when-changed/history.db.
func defaultHistoryPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./history.db"
	}

	return filepath.Join(homeDir, ".config", "when-changed", "history.db")
}

// defaultConfigPath returns the default configuration file path.
//
// Returns: ~/.config/when-changed/config.yaml.
func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}

	return filepath.Join(homeDir, ".config", "when-changed", "config.yaml")
}
