package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrInvalidDebounce is returned when the debounce interval is <= 0.
	ErrInvalidDebounce = errors.New("invalid debounce interval: must be > 0")

	// ErrInvalidMaxRecords is returned when the history bound is negative.
	ErrInvalidMaxRecords = errors.New("invalid history max records: must be >= 0")

	// ErrInvalidLogLevel is returned when the log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when the log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text, json, or auto")

	// ErrConfigNotFound is returned when the config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when the config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")

	// ErrEmptyCommand is returned when a command string tokenizes to
	// nothing.
	ErrEmptyCommand = errors.New("command is empty")
)
