// Package config provides configuration management for when-changed.
//
// Configuration is loaded from multiple sources with the following
// precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("excludes: %v\n", cfg.Excludes)
package config

import (
	"time"

	"github.com/google/shlex"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Watcher.DebounceInterval must be > 0
// - History.MaxRecords must be >= 0
// - Logging.Level and Logging.Format must be recognized values.
type Config struct {
	// Exclusion regexes applied to raw event paths. A non-empty list
	// replaces the built-in defaults.
	Excludes []string `yaml:"excludes"`

	// Glob patterns (doublestar syntax) with the same effect as
	// Excludes, e.g. "**/*.tmp".
	IgnoreGlobs []string `yaml:"ignore_globs"`

	// Watcher settings
	Watcher WatcherConfig `yaml:"watcher"`

	// Command settings
	Command CommandConfig `yaml:"command"`

	// Run-history settings
	History HistoryConfig `yaml:"history"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// WatcherConfig contains notification-backend settings.
type WatcherConfig struct {
	// How long to coalesce rapid events for the same path
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// CommandConfig contains command-execution settings.
type CommandConfig struct {
	// Split tokenizes single command strings into an argv vector
	// (shell-style quoting, no shell interpretation) instead of
	// running them through the shell.
	Split bool `yaml:"split"`
}

// HistoryConfig contains run-history settings.
type HistoryConfig struct {
	// Enabled persists last-run timestamps and the run log to disk
	Enabled bool `yaml:"enabled"`

	// Path to the BoltDB history file
	DBPath string `yaml:"db_path"`

	// Bound on the persisted run log
	MaxRecords int `yaml:"max_records"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json, or auto to pick by terminal detection)
	Format string `yaml:"format"`
}

// Tokens converts a single command string into the command template.
//
// With Split enabled the string is tokenized with shell-style quoting
// rules, producing an argv vector that is executed directly. Otherwise
// the whole string stays one token, which the runner hands to the
// shell.
func (c CommandConfig) Tokens(command string) ([]string, error) {
	if !c.Split {
		return []string{command}, nil
	}

	tokens, err := shlex.Split(command)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, ErrEmptyCommand
	}
	return tokens, nil
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if c.Watcher.DebounceInterval <= 0 {
		return ErrInvalidDebounce
	}

	if c.History.MaxRecords < 0 {
		return ErrInvalidMaxRecords
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"auto": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Excludes:    nil, // filter falls back to its built-in list
		IgnoreGlobs: nil,
		Watcher: WatcherConfig{
			DebounceInterval: 100 * time.Millisecond,
		},
		Command: CommandConfig{
			Split: false,
		},
		History: HistoryConfig{
			Enabled:    false,
			DBPath:     defaultHistoryPath(),
			MaxRecords: 500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "auto",
		},
	}
}
