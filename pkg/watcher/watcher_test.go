package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/0xmhha/when-changed/pkg/logger"
	"github.com/0xmhha/when-changed/pkg/registry"
)

func newStarted(t *testing.T, specs []registry.Spec) (Watcher, context.CancelFunc) {
	t.Helper()

	w, err := New(Config{
		DebounceInterval: 50 * time.Millisecond,
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	if startErr := w.Start(ctx, specs); startErr != nil {
		cancel()
		t.Fatalf("Start() error = %v", startErr)
	}

	// Give the backend time to settle.
	time.Sleep(100 * time.Millisecond)

	t.Cleanup(func() {
		cancel()
		if closeErr := w.Close(); closeErr != nil {
			t.Logf("Close() error = %v", closeErr)
		}
	})

	return w, cancel
}

func TestNew(t *testing.T) {
	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if w == nil {
		t.Fatal("New() returned nil watcher")
	}
	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("Close() error = %v", closeErr)
	}
}

func TestStartNoUsableSubscriptions(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")

	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil {
			t.Logf("Close() error = %v", closeErr)
		}
	}()

	startErr := w.Start(context.Background(), []registry.Spec{{Path: missing}})
	if !errors.Is(startErr, ErrNoSubscriptions) {
		t.Errorf("Start() error = %v, want ErrNoSubscriptions", startErr)
	}
}

func TestStartDropsBadTargetKeepsGood(t *testing.T) {
	tmpDir := t.TempDir()
	missing := filepath.Join(tmpDir, "gone")

	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil {
			t.Logf("Close() error = %v", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	specs := []registry.Spec{{Path: missing}, {Path: tmpDir}}
	if startErr := w.Start(ctx, specs); startErr != nil {
		t.Fatalf("Start() error = %v, want nil when one target survives", startErr)
	}

	// The failed subscription is reported on the errors channel.
	select {
	case subErr := <-w.Errors():
		if !errors.Is(subErr, ErrSubscription) {
			t.Errorf("Errors() delivered %v, want ErrSubscription", subErr)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for subscription error")
	}
}

func TestStartAlreadyStarted(t *testing.T) {
	tmpDir := t.TempDir()

	w, _ := newStarted(t, []registry.Spec{{Path: tmpDir}})

	startErr := w.Start(context.Background(), []registry.Spec{{Path: tmpDir}})
	if !errors.Is(startErr, ErrAlreadyStarted) {
		t.Errorf("Start() error = %v, want ErrAlreadyStarted", startErr)
	}
}

func TestFileCreate(t *testing.T) {
	tmpDir := t.TempDir()

	w, _ := newStarted(t, []registry.Spec{{Path: tmpDir}})

	testFile := filepath.Join(tmpDir, "test.txt")
	if writeErr := os.WriteFile(testFile, []byte("test"), 0600); writeErr != nil {
		t.Fatalf("Failed to create test file: %v", writeErr)
	}

	select {
	case event := <-w.Events():
		if event.Path != testFile {
			t.Errorf("Event path = %s, want %s", event.Path, testFile)
		}
		// A creation with content surfaces as created or, where the
		// backend coalesces, as the modified event that follows.
		if event.Kind != KindCreated && event.Kind != KindModified {
			t.Errorf("Event kind = %s, want created or modified", event.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Error("Timeout waiting for file create event")
	}
}

func TestFileModify(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("initial"), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	w, _ := newStarted(t, []registry.Spec{{Path: tmpDir}})

	if writeErr := os.WriteFile(testFile, []byte("modified"), 0600); writeErr != nil {
		t.Fatalf("Failed to modify test file: %v", writeErr)
	}

	select {
	case event := <-w.Events():
		if event.Path != testFile {
			t.Errorf("Event path = %s, want %s", event.Path, testFile)
		}
		if event.Kind != KindModified {
			t.Errorf("Event kind = %s, want modified", event.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Error("Timeout waiting for file modify event")
	}
}

func TestFileDelete(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test"), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	w, _ := newStarted(t, []registry.Spec{{Path: tmpDir}})

	if removeErr := os.Remove(testFile); removeErr != nil {
		t.Fatalf("Failed to delete test file: %v", removeErr)
	}

	select {
	case event := <-w.Events():
		if event.Path != testFile {
			t.Errorf("Event path = %s, want %s", event.Path, testFile)
		}
		if event.Kind != KindDeleted {
			t.Errorf("Event kind = %s, want deleted", event.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Error("Timeout waiting for file delete event")
	}
}

func TestDebouncing(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("initial"), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	w, err := New(Config{
		DebounceInterval: 200 * time.Millisecond,
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil {
			t.Logf("Close() error = %v", closeErr)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if startErr := w.Start(ctx, []registry.Spec{{Path: tmpDir}}); startErr != nil {
		t.Fatalf("Start() error = %v", startErr)
	}
	time.Sleep(100 * time.Millisecond)

	// Rapid writes within the debounce window.
	for i := 0; i < 5; i++ {
		if writeErr := os.WriteFile(testFile, []byte("content"), 0600); writeErr != nil {
			t.Fatalf("Failed to write test file: %v", writeErr)
		}
		time.Sleep(30 * time.Millisecond)
	}

	eventCount := 0
	timeout := time.After(time.Second)
loop:
	for {
		select {
		case <-w.Events():
			eventCount++
		case <-timeout:
			break loop
		}
	}

	if eventCount == 0 {
		t.Error("No events received")
	}
	if eventCount >= 5 {
		t.Errorf("Received %d events for 5 rapid writes, debouncing not working", eventCount)
	}
}

func TestRecursiveSubdirectory(t *testing.T) {
	tmpDir := t.TempDir()

	subDir := filepath.Join(tmpDir, "subdir")
	if err := os.MkdirAll(subDir, 0700); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}

	w, _ := newStarted(t, []registry.Spec{{Path: tmpDir, Recursive: true}})

	testFile := filepath.Join(subDir, "test.txt")
	if writeErr := os.WriteFile(testFile, []byte("test"), 0600); writeErr != nil {
		t.Fatalf("Failed to create test file: %v", writeErr)
	}

	select {
	case event := <-w.Events():
		if event.Path != testFile {
			t.Errorf("Event path = %s, want %s", event.Path, testFile)
		}
	case <-time.After(2 * time.Second):
		t.Error("Timeout waiting for subdirectory file event")
	}
}

func TestRecursiveNewDirectoryPickup(t *testing.T) {
	tmpDir := t.TempDir()

	w, _ := newStarted(t, []registry.Spec{{Path: tmpDir, Recursive: true}})

	// Create a directory after the watch started, then a file inside
	// it. The new directory must have been picked up.
	newDir := filepath.Join(tmpDir, "later")
	if err := os.Mkdir(newDir, 0700); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	testFile := filepath.Join(newDir, "test.txt")
	if writeErr := os.WriteFile(testFile, []byte("test"), 0600); writeErr != nil {
		t.Fatalf("Failed to create test file: %v", writeErr)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-w.Events():
			if event.Path == testFile {
				return
			}
			// Skip the directory-creation event itself.
		case <-deadline:
			t.Fatal("Timeout waiting for event from new directory")
		}
	}
}

func TestStopWithFullEventBuffer(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := New(Config{
		DebounceInterval: 10 * time.Millisecond,
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if closeErr := w.Close(); closeErr != nil {
			t.Logf("Close() error = %v", closeErr)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if startErr := w.Start(ctx, []registry.Spec{{Path: tmpDir}}); startErr != nil {
		t.Fatalf("Start() error = %v", startErr)
	}
	time.Sleep(100 * time.Millisecond)

	// More distinct paths than the event channel buffers, with
	// nothing draining Events(). The overflow leaves debounce
	// goroutines blocked mid-send.
	for i := 0; i < 130; i++ {
		name := filepath.Join(tmpDir, fmt.Sprintf("f%03d.txt", i))
		if writeErr := os.WriteFile(name, []byte("x"), 0600); writeErr != nil {
			t.Fatalf("Failed to write test file: %v", writeErr)
		}
	}

	// Let the debounce timers fire.
	time.Sleep(500 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- w.Stop()
	}()

	select {
	case stopErr := <-done:
		if stopErr != nil {
			t.Errorf("Stop() error = %v", stopErr)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Stop() did not return while the event buffer was full")
	}

	// Close must not hang on the same blocked senders either.
	closeDone := make(chan error, 1)
	go func() {
		closeDone <- w.Close()
	}()

	select {
	case closeErr := <-closeDone:
		if closeErr != nil {
			t.Errorf("Close() error = %v", closeErr)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Close() did not return while the event buffer was full")
	}
}

func TestKindStrings(t *testing.T) {
	tests := []struct {
		kind Kind
		str  string
		env  string
	}{
		{KindCreated, "created", "file_created"},
		{KindModified, "modified", "file_modified"},
		{KindMoved, "moved", "file_moved"},
		{KindDeleted, "deleted", "file_deleted"},
		{Kind(99), "unknown", "file_unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.str {
			t.Errorf("Kind.String() = %s, want %s", got, tt.str)
		}
		if got := tt.kind.EnvValue(); got != tt.env {
			t.Errorf("Kind.EnvValue() = %s, want %s", got, tt.env)
		}
	}
}

func TestStopNotStarted(t *testing.T) {
	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil {
			t.Logf("Close() error = %v", closeErr)
		}
	}()

	if stopErr := w.Stop(); !errors.Is(stopErr, ErrNotStarted) {
		t.Errorf("Stop() error = %v, want ErrNotStarted", stopErr)
	}
}

func TestCloseTwice(t *testing.T) {
	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("First Close() error = %v", closeErr)
	}
	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("Second Close() error = %v", closeErr)
	}
}

func TestStartAfterClose(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("Close() error = %v", closeErr)
	}

	startErr := w.Start(context.Background(), []registry.Spec{{Path: tmpDir}})
	if !errors.Is(startErr, ErrWatcherClosed) {
		t.Errorf("Start() error = %v, want ErrWatcherClosed", startErr)
	}
}
