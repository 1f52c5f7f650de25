// Package history persists run state across watch sessions.
//
// Two things are stored: the completion time of the last run per
// session key, which lets run-once suppression carry across process
// restarts, and a bounded log of recent command runs for inspection.
//
// The BoltDB implementation is the default; the in-memory
// implementation backs sessions that opt out of persistence and is
// also used in tests.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Record describes one completed command run.
type Record struct {
	// SessionKey identifies the watch session (targets + command).
	SessionKey string `json:"session_key"`

	// Path is the triggering file.
	Path string `json:"path"`

	// Event is the normalized event name (file_modified, ...).
	Event string `json:"event"`

	// Argv is the concrete command after placeholder expansion.
	Argv []string `json:"argv"`

	// ExitCode is the child's exit status.
	ExitCode int `json:"exit_code"`

	// StartedAt is when the command was spawned.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the command exited.
	FinishedAt time.Time `json:"finished_at"`
}

// Store persists last-run timestamps and the run log.
type Store interface {
	// LastRun returns the persisted completion time of the previous
	// run for the given session key. The zero time means no run has
	// been recorded.
	LastRun(sessionKey string) (time.Time, error)

	// SetLastRun records the completion time of a run.
	SetLastRun(sessionKey string, t time.Time) error

	// Append adds a record to the run log, evicting the oldest
	// entries beyond the configured bound.
	Append(rec Record) error

	// Recent returns up to n records, newest first.
	Recent(n int) ([]Record, error)

	// Close releases store resources.
	Close() error
}

// SessionKey derives a stable identity for a watch session from its
// canonical target paths and command template.
//
// The same targets and command always produce the same key, so a
// restarted session finds its previous last-run timestamp.
func SessionKey(targets []string, command []string) string {
	sorted := append([]string{}, targets...)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(strings.Join(sorted, "\x00")))
	h.Write([]byte{0xff})
	h.Write([]byte(strings.Join(command, "\x00")))

	return hex.EncodeToString(h.Sum(nil))[:16]
}
