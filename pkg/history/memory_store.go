package history

import (
	"sync"
	"time"
)

// memoryStore implements Store using in-memory maps.
//
// Useful for testing and for sessions that opt out of persistence.
type memoryStore struct {
	mu         sync.RWMutex
	lastRuns   map[string]time.Time
	records    []Record
	maxRecords int
}

// NewMemoryStore creates an in-memory store.
//
// maxRecords bounds the run log; 0 means DefaultMaxRecords.
func NewMemoryStore(maxRecords int) Store {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &memoryStore{
		lastRuns:   make(map[string]time.Time),
		maxRecords: maxRecords,
	}
}

// LastRun implements Store.LastRun.
func (s *memoryStore) LastRun(sessionKey string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastRuns[sessionKey], nil
}

// SetLastRun implements Store.SetLastRun.
func (s *memoryStore) SetLastRun(sessionKey string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastRuns[sessionKey] = t
	return nil
}

// Append implements Store.Append.
func (s *memoryStore) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	if len(s.records) > s.maxRecords {
		s.records = s.records[len(s.records)-s.maxRecords:]
	}
	return nil
}

// Recent implements Store.Recent.
func (s *memoryStore) Recent(n int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.records) {
		n = len(s.records)
	}

	// Newest first.
	out := make([]Record, 0, n)
	for i := len(s.records) - 1; i >= len(s.records)-n; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Close implements Store.Close.
func (s *memoryStore) Close() error {
	return nil
}
