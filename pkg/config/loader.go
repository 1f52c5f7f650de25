package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile loads configuration from a specific file.
	LoadFromFile(path string) (*Config, error)
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, searches for a config file in:
// 1. ./when-changed.yaml (current directory)
// 2. ~/.config/when-changed/config.yaml.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	cfg := Default()

	configPath := l.configPath
	if configPath == "" {
		configPath = l.findConfigFile()
	}

	if configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			// An explicitly requested file must load; an implicitly
			// discovered one falls back to defaults.
			if l.configPath != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		} else {
			cfg = l.mergeConfigs(cfg, fileCfg)
		}
	}

	cfg = l.applyEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}

// findConfigFile searches for a config file in standard locations.
//
// Returns empty string if no config file is found.
func (l *loader) findConfigFile() string {
	candidates := []string{
		"./when-changed.yaml",
		defaultConfigPath(),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// mergeConfigs merges file configuration into default configuration.
//
// File values override defaults, but only if they are non-zero.
func (l *loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	if len(override.Excludes) > 0 {
		result.Excludes = override.Excludes
	}
	if len(override.IgnoreGlobs) > 0 {
		result.IgnoreGlobs = override.IgnoreGlobs
	}

	if override.Watcher.DebounceInterval > 0 {
		result.Watcher.DebounceInterval = override.Watcher.DebounceInterval
	}

	// Split is a bool, so we always take the override value.
	result.Command.Split = override.Command.Split

	result.History.Enabled = override.History.Enabled
	if override.History.DBPath != "" {
		result.History.DBPath = override.History.DBPath
	}
	if override.History.MaxRecords > 0 {
		result.History.MaxRecords = override.History.MaxRecords
	}

	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Output != "" {
		result.Logging.Output = override.Logging.Output
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	return &result
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - WHEN_CHANGED_HISTORY_DB: Path to the history database
//   - WHEN_CHANGED_LOG_LEVEL: Log level
//   - WHEN_CHANGED_DEBOUNCE: Debounce interval (Go duration syntax)
func (l *loader) applyEnvVars(cfg *Config) *Config {
	result := *cfg

	if dbPath := os.Getenv("WHEN_CHANGED_HISTORY_DB"); dbPath != "" {
		result.History.DBPath = dbPath
		result.History.Enabled = true
	}

	if logLevel := os.Getenv("WHEN_CHANGED_LOG_LEVEL"); logLevel != "" {
		result.Logging.Level = strings.ToLower(logLevel)
	}

	if debounce := os.Getenv("WHEN_CHANGED_DEBOUNCE"); debounce != "" {
		if d, err := time.ParseDuration(debounce); err == nil && d > 0 {
			result.Watcher.DebounceInterval = d
		}
	}

	return &result
}

// Load is a convenience function that creates a loader and loads
// configuration.
//
// Equivalent to:
//
//	loader := NewLoader("")
//	return loader.Load()
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile is a convenience function that loads configuration
// from a file.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}
