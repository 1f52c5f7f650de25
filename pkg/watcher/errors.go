package watcher

import "errors"

// Common errors returned by the watcher.
var (
	// ErrWatcherClosed is returned when attempting to use a closed watcher.
	ErrWatcherClosed = errors.New("watcher is closed")

	// ErrAlreadyStarted is returned when Start is called on a running watcher.
	ErrAlreadyStarted = errors.New("watcher already started")

	// ErrNotStarted is returned when Stop is called on a non-running watcher.
	ErrNotStarted = errors.New("watcher not started")

	// ErrSubscription is returned when a path cannot be subscribed.
	ErrSubscription = errors.New("failed to subscribe to path")

	// ErrNoSubscriptions is returned when no watch path could be
	// subscribed at all.
	ErrNoSubscriptions = errors.New("no watch paths could be subscribed")
)
