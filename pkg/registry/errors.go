package registry

import "errors"

// Common errors returned by the registry.
var (
	// ErrNoTargets is returned when registration is attempted with no paths.
	ErrNoTargets = errors.New("no watch targets specified")

	// ErrUnresolvable is returned when a path cannot be resolved to a
	// real filesystem location.
	ErrUnresolvable = errors.New("watch target cannot be resolved")
)
