package watch

import "errors"

// Common errors returned by the session.
var (
	// ErrSessionActive is returned when Run is called on a session
	// that already ran or is running.
	ErrSessionActive = errors.New("session already started")
)
