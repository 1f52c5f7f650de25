package filter

import "errors"

// Common errors returned by the filter.
var (
	// ErrBadPattern is returned when an exclude expression or ignore
	// glob cannot be compiled.
	ErrBadPattern = errors.New("invalid exclusion pattern")
)
