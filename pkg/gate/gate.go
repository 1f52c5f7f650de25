// Package gate decides whether an interesting event should actually
// re-run the command.
//
// In run-once mode a burst of notifications for a single logical edit
// is collapsed by comparing the file's modification time against the
// completion time of the previous run, rather than by debouncing in
// wall-clock time. Outside run-once mode every interesting event runs
// the command.
package gate

import (
	"os"
	"time"

	"github.com/0xmhha/when-changed/pkg/logger"
)

// Gate applies run-once suppression to triggered runs.
type Gate struct {
	runOnce bool
	logger  logger.Logger
}

// New creates a gate.
//
// Parameters:
//   - runOnce: Suppress events already accounted for by mtime comparison
//   - log: Logger instance
func New(runOnce bool, log logger.Logger) *Gate {
	return &Gate{
		runOnce: runOnce,
		logger:  log,
	}
}

// ShouldRun reports whether a command invocation for triggerPath
// should proceed, given the completion time of the previous run.
//
// The decision is total: it never returns an error. A stat failure in
// run-once mode counts as "file gone", which suppresses the run.
func (g *Gate) ShouldRun(triggerPath string, lastRun time.Time) bool {
	if !g.runOnce {
		return true
	}

	info, err := os.Stat(triggerPath)
	if err != nil {
		// Deleted (or unreadable) before the gate could act.
		g.logger.Debug("trigger file gone, suppressing run",
			"path", triggerPath)
		return false
	}

	if info.ModTime().Before(lastRun) {
		g.logger.Info("change already accounted for, suppressing run",
			"path", triggerPath,
			"mtime", info.ModTime(),
			"last_run", lastRun)
		return false
	}

	return true
}
