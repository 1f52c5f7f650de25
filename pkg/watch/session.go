package watch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/0xmhha/when-changed/pkg/filter"
	"github.com/0xmhha/when-changed/pkg/gate"
	"github.com/0xmhha/when-changed/pkg/history"
	"github.com/0xmhha/when-changed/pkg/logger"
	"github.com/0xmhha/when-changed/pkg/registry"
	"github.com/0xmhha/when-changed/pkg/runner"
	"github.com/0xmhha/when-changed/pkg/watcher"
)

// Session runs one watch loop from start to clean shutdown.
type Session struct {
	config Config
	logger logger.Logger

	watcher watcher.Watcher
	filter  *filter.Filter
	gate    *gate.Gate
	runner  *runner.Runner
	store   history.Store

	mu      sync.Mutex
	state   State
	lastRun time.Time
}

// New creates a session from its collaborators.
//
// Parameters:
//   - cfg: Session configuration
//   - w: Notification backend
//   - f: Event filter
//   - g: Run gate
//   - r: Command runner
//   - store: Run-history store; may be nil to disable recording
//   - log: Logger instance
func New(cfg Config, w watcher.Watcher, f *filter.Filter, g *gate.Gate, r *runner.Runner, store history.Store, log logger.Logger) *Session {
	return &Session{
		config:  cfg,
		logger:  log,
		watcher: w,
		filter:  f,
		gate:    g,
		runner:  r,
		store:   store,
		state:   StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run starts the watch and blocks until ctx is cancelled.
//
// Cancellation is the normal way to end a session and returns nil; an
// execution in flight when cancellation arrives is allowed to finish.
// Run can be called once per session.
func (s *Session) Run(ctx context.Context, specs []registry.Spec) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrSessionActive
	}
	s.state = StateStarting
	s.mu.Unlock()

	defer s.setState(StateStopped)

	if s.config.RestoreLastRun && s.store != nil {
		last, err := s.store.LastRun(s.config.SessionKey)
		if err != nil {
			s.logger.Warn("failed to restore last-run timestamp", "error", err)
		} else if !last.IsZero() {
			s.lastRun = last
			s.logger.Debug("restored last-run timestamp", "last_run", last)
		}
	}

	if s.config.RunAtStart {
		// Synthetic trigger: there is no real file behind the first run.
		s.execute(ctx, runner.Trigger{
			Path:  os.DevNull,
			Event: watcher.KindModified.EnvValue(),
		})
	}

	if err := s.watcher.Start(ctx, specs); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	s.setState(StateWatching)
	s.logger.Info("watching for changes", "subscriptions", len(specs))

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil

		case event, ok := <-s.watcher.Events():
			if !ok {
				s.logger.Info("watcher events channel closed")
				s.shutdown()
				return nil
			}
			s.handleEvent(ctx, event)

		case err, ok := <-s.watcher.Errors():
			if !ok {
				s.logger.Info("watcher errors channel closed")
				s.shutdown()
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// handleEvent runs one event through the filter/gate/runner pipeline.
//
// Delivery is sequential: the command execution blocks this loop, so
// runs never overlap.
func (s *Session) handleEvent(ctx context.Context, event watcher.Event) {
	if event.IsDir {
		return
	}

	if !s.filter.Interested(event.Path) {
		s.logger.Debug("event not interesting",
			"path", event.Path,
			"kind", event.Kind)
		return
	}

	s.mu.Lock()
	lastRun := s.lastRun
	s.mu.Unlock()

	if !s.gate.ShouldRun(event.Path, lastRun) {
		return
	}

	s.logger.Info("change detected",
		"path", event.Path,
		"event", event.Kind.String())

	s.execute(ctx, runner.Trigger{
		Path:  event.Path,
		Event: event.Kind.EnvValue(),
	})
}

// execute runs the command and records the outcome.
//
// A spawn failure is logged and leaves the session eligible for the
// next event; it never terminates the watch.
func (s *Session) execute(ctx context.Context, trigger runner.Trigger) {
	result, err := s.runner.Run(ctx, trigger)
	if err != nil {
		s.logger.Error("failed to run command",
			"error", err,
			"path", trigger.Path)
		return
	}

	s.mu.Lock()
	s.lastRun = result.FinishedAt
	s.mu.Unlock()

	s.logger.Info("command finished",
		"exit_code", result.ExitCode,
		"duration", result.FinishedAt.Sub(result.StartedAt),
		"path", trigger.Path)

	if s.store == nil {
		return
	}

	if err := s.store.SetLastRun(s.config.SessionKey, result.FinishedAt); err != nil {
		s.logger.Warn("failed to persist last-run timestamp", "error", err)
	}
	if err := s.store.Append(history.Record{
		SessionKey: s.config.SessionKey,
		Path:       trigger.Path,
		Event:      trigger.Event,
		Argv:       result.Argv,
		ExitCode:   result.ExitCode,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}); err != nil {
		s.logger.Warn("failed to record run", "error", err)
	}
}

// shutdown releases the subscriptions. Idempotent through the
// watcher's own stop handling.
func (s *Session) shutdown() {
	s.setState(StateStopping)

	if err := s.watcher.Stop(); err != nil {
		s.logger.Debug("watcher stop", "error", err)
	}

	s.logger.Info("watch session stopped")
}

// setState records a lifecycle transition.
func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == state {
		return
	}
	s.logger.Debug("session state change",
		"from", s.state.String(),
		"to", state.String())
	s.state = state
}
