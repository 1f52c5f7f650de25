// Package watcher adapts fsnotify to the event model consumed by the
// watch session.
//
// It owns the OS-level subscriptions, translates raw notifications
// into created/modified/moved/deleted events, debounces rapid
// per-path bursts, and papers over backend quirks (inotify emits a
// spurious modified notification after every create, so create
// events are coalesced into the write that follows).
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{
//	    DebounceInterval: 100 * time.Millisecond,
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	if err := w.Start(ctx, reg.Specs()); err != nil {
//	    log.Fatal(err)
//	}
//	for {
//	    select {
//	    case event := <-w.Events():
//	        fmt.Printf("%s: %s\n", event.Kind, event.Path)
//	    case <-ctx.Done():
//	        return
//	    }
//	}
package watcher

import (
	"context"
	"time"

	"github.com/0xmhha/when-changed/pkg/registry"
)

// Kind is the category of filesystem change.
type Kind uint8

// Event kinds.
const (
	KindCreated Kind = iota + 1
	KindModified
	KindMoved
	KindDeleted
)

// String returns the short kind name.
func (k Kind) String() string {
	switch k {
	case KindCreated:
		return "created"
	case KindModified:
		return "modified"
	case KindMoved:
		return "moved"
	case KindDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// EnvValue returns the kind in the vocabulary exposed to child
// processes: file_created, file_modified, file_moved, file_deleted.
func (k Kind) EnvValue() string {
	return "file_" + k.String()
}

// Event is a single filesystem change delivered to the session.
type Event struct {
	// Kind is the change category.
	Kind Kind

	// Path is the affected file. For moves this is the source path;
	// fsnotify does not report the destination.
	Path string

	// IsDir reports whether the path is a directory. Only reliable
	// for created and modified events; a removed path cannot be
	// inspected anymore.
	IsDir bool

	// Timestamp is when the event was observed.
	Timestamp time.Time
}

// Watcher owns the OS notification subscriptions for one session.
type Watcher interface {
	// Start subscribes to the given specs and begins delivering
	// events. Subscriptions that fail are logged and dropped; Start
	// only errors when no subscription could be established.
	Start(ctx context.Context, specs []registry.Spec) error

	// Stop gracefully shuts down event delivery.
	Stop() error

	// Events returns the channel of debounced filesystem events.
	// The channel stays open for the watcher's lifetime; consumers
	// terminate on their own context.
	Events() <-chan Event

	// Errors returns the channel of non-fatal watcher errors. Open
	// for the watcher's lifetime, like Events.
	Errors() <-chan error

	// Close releases all resources. Idempotent.
	Close() error
}

// Config contains watcher configuration.
type Config struct {
	// DebounceInterval is the time to wait before emitting an event.
	// Multiple events for the same path within this interval are
	// coalesced. Default: 100ms.
	DebounceInterval time.Duration
}
