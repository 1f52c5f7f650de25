// Package watch orchestrates one watch session: it wires the
// notification backend to the filter, gate and runner, and owns the
// session lifecycle.
//
// Events are processed strictly one at a time. The command execution
// blocks the delivering loop, so a burst of events arriving while a
// command runs queues behind it in the backend's buffer; no two runs
// ever overlap.
package watch

// State is the lifecycle phase of a session.
type State int32

// Session lifecycle states. Transitions only move forward:
// Idle -> Starting -> Watching -> Stopping -> Stopped.
const (
	StateIdle State = iota
	StateStarting
	StateWatching
	StateStopping
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateWatching:
		return "watching"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config contains session configuration.
type Config struct {
	// RunOnce suppresses runs for changes already accounted for by
	// mtime comparison.
	RunOnce bool

	// RunAtStart executes the command once, with a synthetic trigger,
	// before the watch begins.
	RunAtStart bool

	// SessionKey identifies this session in the run-history store.
	SessionKey string

	// RestoreLastRun seeds the last-run timestamp from the history
	// store, so run-once suppression carries across restarts.
	RestoreLastRun bool
}
