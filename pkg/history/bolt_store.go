package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketLastRuns = []byte("last_runs") // SessionKey -> RFC3339Nano timestamp
	bucketRuns     = []byte("runs")      // big-endian sequence -> Record JSON
)

// boltStore implements Store using BoltDB.
type boltStore struct {
	db         *bolt.DB
	maxRecords int
	mu         sync.RWMutex
}

// NewBoltStore opens (or creates) a BoltDB-backed store at path.
//
// Parameters:
//   - path: Database file location; parent directories are created
//   - maxRecords: Bound on the run log; 0 means DefaultMaxRecords
//
// Returns:
//   - Configured Store
//   - Error if the database cannot be opened or initialized
func NewBoltStore(path string, maxRecords int) (Store, error) {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, createErr := tx.CreateBucketIfNotExists(bucketLastRuns); createErr != nil {
			return createErr
		}
		_, createErr := tx.CreateBucketIfNotExists(bucketRuns)
		return createErr
	}); err != nil {
		_ = db.Close() // nolint:errcheck
		return nil, fmt.Errorf("failed to create history buckets: %w", err)
	}

	return &boltStore{
		db:         db,
		maxRecords: maxRecords,
	}, nil
}

// DefaultMaxRecords is the run-log bound when none is configured.
const DefaultMaxRecords = 500

// LastRun implements Store.LastRun.
func (s *boltStore) LastRun(sessionKey string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last time.Time

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketLastRuns).Get([]byte(sessionKey))
		if data == nil {
			return nil
		}

		parsed, parseErr := time.Parse(time.RFC3339Nano, string(data))
		if parseErr != nil {
			return fmt.Errorf("failed to parse last-run timestamp: %w", parseErr)
		}
		last = parsed
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}

	return last, nil
}

// SetLastRun implements Store.SetLastRun.
func (s *boltStore) SetLastRun(sessionKey string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		value := []byte(t.Format(time.RFC3339Nano))
		if putErr := tx.Bucket(bucketLastRuns).Put([]byte(sessionKey), value); putErr != nil {
			return fmt.Errorf("failed to store last run: %w", putErr)
		}
		return nil
	})
}

// Append implements Store.Append.
func (s *boltStore) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)

		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal run record: %w", err)
		}

		if putErr := b.Put(seqKey(seq), data); putErr != nil {
			return fmt.Errorf("failed to store run record: %w", putErr)
		}

		// Evict the oldest entries beyond the bound. Stats are not
		// updated inside a write transaction, so count by iterating.
		count := 0
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			count++
		}
		for count > s.maxRecords {
			k, _ := b.Cursor().First()
			if k == nil {
				break
			}
			if delErr := b.Delete(k); delErr != nil {
				return fmt.Errorf("failed to trim run log: %w", delErr)
			}
			count--
		}

		return nil
	})
}

// Recent implements Store.Recent.
func (s *boltStore) Recent(n int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		n = DefaultMaxRecords
	}

	var records []Record

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()

		for k, v := c.Last(); k != nil && len(records) < n; k, v = c.Prev() {
			var rec Record
			if unmarshalErr := json.Unmarshal(v, &rec); unmarshalErr != nil {
				return fmt.Errorf("failed to unmarshal run record: %w", unmarshalErr)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Close implements Store.Close.
func (s *boltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}

// seqKey encodes a bucket sequence number as a sortable key.
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
