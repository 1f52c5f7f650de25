package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}

	if cfg.Watcher.DebounceInterval != 100*time.Millisecond {
		t.Errorf("DebounceInterval = %v, want 100ms", cfg.Watcher.DebounceInterval)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %s, want info", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) {},
			wantErr: nil,
		},
		{
			name:    "zero debounce",
			mutate:  func(c *Config) { c.Watcher.DebounceInterval = 0 },
			wantErr: ErrInvalidDebounce,
		},
		{
			name:    "negative max records",
			mutate:  func(c *Config) { c.History.MaxRecords = -1 },
			wantErr: ErrInvalidMaxRecords,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: ErrInvalidLogFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	yaml := `
excludes:
  - 'node_modules/?'
ignore_globs:
  - '**/*.tmp'
watcher:
  debounce_interval: 250ms
command:
  split: true
history:
  enabled: true
  db_path: /tmp/wc-history.db
  max_records: 42
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(configFile, []byte(yaml), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadFromFile(configFile)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if len(cfg.Excludes) != 1 || cfg.Excludes[0] != "node_modules/?" {
		t.Errorf("Excludes = %v", cfg.Excludes)
	}
	if len(cfg.IgnoreGlobs) != 1 || cfg.IgnoreGlobs[0] != "**/*.tmp" {
		t.Errorf("IgnoreGlobs = %v", cfg.IgnoreGlobs)
	}
	if cfg.Watcher.DebounceInterval != 250*time.Millisecond {
		t.Errorf("DebounceInterval = %v, want 250ms", cfg.Watcher.DebounceInterval)
	}
	if !cfg.Command.Split {
		t.Error("Command.Split = false, want true")
	}
	if !cfg.History.Enabled || cfg.History.DBPath != "/tmp/wc-history.db" || cfg.History.MaxRecords != 42 {
		t.Errorf("History = %+v", cfg.History)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}

	// Defaults survive where the file is silent.
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Logging.Output = %s, want stderr default", cfg.Logging.Output)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadFromFile() error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoadFromFileBadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("watcher: [broken"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := LoadFromFile(configFile)
	if !errors.Is(err, ErrInvalidYAML) {
		t.Errorf("LoadFromFile() error = %v, want ErrInvalidYAML", err)
	}
}

func TestEnvVarOverrides(t *testing.T) {
	t.Setenv("WHEN_CHANGED_HISTORY_DB", "/tmp/env-history.db")
	t.Setenv("WHEN_CHANGED_LOG_LEVEL", "DEBUG")
	t.Setenv("WHEN_CHANGED_DEBOUNCE", "1s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.History.DBPath != "/tmp/env-history.db" {
		t.Errorf("History.DBPath = %s, want /tmp/env-history.db", cfg.History.DBPath)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true when db path set via env")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Watcher.DebounceInterval != time.Second {
		t.Errorf("DebounceInterval = %v, want 1s", cfg.Watcher.DebounceInterval)
	}
}

func TestCommandTokensShellMode(t *testing.T) {
	c := CommandConfig{Split: false}

	tokens, err := c.Tokens(`make test | tee out.log`)
	if err != nil {
		t.Fatalf("Tokens() error = %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("Tokens() len = %d, want 1 (whole string for the shell)", len(tokens))
	}
}

func TestCommandTokensSplitMode(t *testing.T) {
	c := CommandConfig{Split: true}

	tokens, err := c.Tokens(`grep -F "a phrase" %f`)
	if err != nil {
		t.Fatalf("Tokens() error = %v", err)
	}

	want := []string{"grep", "-F", "a phrase", "%f"}
	if len(tokens) != len(want) {
		t.Fatalf("Tokens() = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("Tokens()[%d] = %q, want %q", i, tokens[i], want[i])
		}
	}
}

func TestCommandTokensEmpty(t *testing.T) {
	c := CommandConfig{Split: true}

	_, err := c.Tokens("   ")
	if !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Tokens() error = %v, want ErrEmptyCommand", err)
	}
}
