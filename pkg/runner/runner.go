// Package runner builds and executes the user command for a
// triggering event.
//
// Every occurrence of the %f placeholder in the command template is
// replaced with the triggering path, and the child process sees two
// extra environment variables describing the event. A single-token
// command runs through the shell so that pipes and redirections work;
// a multi-token command is executed directly as an argv vector, which
// keeps filenames with shell metacharacters safe.
//
// Execution is synchronous: Run blocks until the child exits. The
// event context travels with each call instead of being written into
// the ambient process environment, so runs never share mutable state.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/0xmhha/when-changed/pkg/logger"
)

// Environment variables exposed to the child process.
const (
	// EnvEvent carries the event kind (file_created, file_modified,
	// file_moved, file_deleted).
	EnvEvent = "WHEN_CHANGED_EVENT"

	// EnvFile carries the full path of the triggering file.
	EnvFile = "WHEN_CHANGED_FILE"
)

// Placeholder is the command-template token replaced with the
// triggering path.
const Placeholder = "%f"

// Trigger is the per-execution event context.
type Trigger struct {
	// Path is the file that generated the event.
	Path string

	// Event is the normalized event name set in EnvEvent.
	Event string
}

// Result describes a completed command execution.
type Result struct {
	// Argv is the concrete argument list after placeholder expansion.
	Argv []string

	// ExitCode is the child's exit status. Zero on success.
	ExitCode int

	// StartedAt is when the child was spawned.
	StartedAt time.Time

	// FinishedAt is when the child exited. Callers use this as the
	// new last-run timestamp.
	FinishedAt time.Time
}

// Config contains runner configuration.
type Config struct {
	// Template is the command line as given by the user, one token
	// per element. A single-token template runs through the shell.
	Template []string

	// Quiet discards the child's standard output. Standard error is
	// never discarded.
	Quiet bool

	// Env is the base environment for the child. Nil means the
	// current process environment.
	Env []string
}

// Runner executes the configured command for triggering events.
type Runner struct {
	config Config
	logger logger.Logger
}

// New creates a runner.
//
// Returns ErrEmptyTemplate if the command template has no tokens.
func New(cfg Config, log logger.Logger) (*Runner, error) {
	if len(cfg.Template) == 0 {
		return nil, ErrEmptyTemplate
	}
	if cfg.Env == nil {
		cfg.Env = os.Environ()
	}

	return &Runner{
		config: cfg,
		logger: log,
	}, nil
}

// Run executes the command for the given trigger and blocks until
// the child exits.
//
// A non-zero exit status is reported through Result.ExitCode, not as
// an error; only a spawn failure (missing executable, permissions)
// returns an error, wrapping ErrSpawn.
func (r *Runner) Run(ctx context.Context, trigger Trigger) (Result, error) {
	argv := r.expand(trigger.Path)

	cmd := r.build(ctx, argv)
	cmd.Env = append(append([]string{}, r.config.Env...),
		EnvEvent+"="+trigger.Event,
		EnvFile+"="+trigger.Path,
	)

	if r.config.Quiet {
		cmd.Stdout = io.Discard
	} else {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	result := Result{
		Argv:      argv,
		StartedAt: time.Now(),
	}

	r.logger.Debug("running command",
		"argv", strings.Join(argv, " "),
		"event", trigger.Event,
		"path", trigger.Path)

	err := cmd.Run()
	result.FinishedAt = time.Now()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The command ran and failed; that is a result, not a
			// spawn error.
			result.ExitCode = exitErr.ExitCode()
			r.logger.Warn("command exited non-zero",
				"exit_code", result.ExitCode,
				"path", trigger.Path)
			return result, nil
		}
		return result, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	return result, nil
}

// expand substitutes the trigger path into the command template.
func (r *Runner) expand(path string) []string {
	argv := make([]string, len(r.config.Template))
	for i, token := range r.config.Template {
		argv[i] = strings.ReplaceAll(token, Placeholder, path)
	}
	return argv
}

// build constructs the exec.Cmd for the expanded argument list.
//
// One token means the user gave a whole command string; it goes
// through the shell so operators like pipes keep working.
func (r *Runner) build(ctx context.Context, argv []string) *exec.Cmd {
	if len(argv) == 1 {
		return exec.CommandContext(ctx, "sh", "-c", argv[0])
	}
	return exec.CommandContext(ctx, argv[0], argv[1:]...) // nolint:gosec
}
