package runner

import "errors"

// Common errors returned by the runner.
var (
	// ErrEmptyTemplate is returned when no command tokens are given.
	ErrEmptyTemplate = errors.New("empty command template")

	// ErrSpawn is returned when the child process cannot be launched.
	ErrSpawn = errors.New("failed to spawn command")
)
