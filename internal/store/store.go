package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aleics/gql-dyn/internal/ir"
)

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("store: closed")

// ErrDuplicateID is returned when an appended record reuses a stored id.
var ErrDuplicateID = errors.New("store: duplicate record id")

// RecordStore is the in-memory record store queries resolve against.
//
// Readers take a shared lock just long enough to capture a snapshot;
// writers take the exclusive lock only for the append itself. A pending
// writer blocks new readers (sync.RWMutex semantics), so a steady stream
// of queries cannot starve ingestion.
//
// Records are immutable once stored. Snapshots are capacity-capped views of
// the backing slice, so later appends never show up in an earlier snapshot.
type RecordStore struct {
	mu      sync.RWMutex
	records []ir.Record
	ids     map[string]struct{}
	closed  bool
}

// New creates an empty store.
func New() *RecordStore {
	return &RecordStore{ids: make(map[string]struct{})}
}

// Append stores records in order. The batch is all-or-nothing: if any id is
// already stored or repeated within the batch, nothing is appended.
//
// Append does not check records against a kind catalog; callers validate
// at ingestion with ir.ValidateRecord.
func (s *RecordStore) Append(records ...ir.Record) error {
	if len(records) == 0 {
		return nil
	}

	// Copy outside the lock so the exclusive section stays short.
	batch := make([]ir.Record, len(records))
	for i, rec := range records {
		batch[i] = rec.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	seen := make(map[string]struct{}, len(batch))
	for _, rec := range batch {
		if _, dup := s.ids[rec.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateID, rec.ID)
		}
		if _, dup := seen[rec.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateID, rec.ID)
		}
		seen[rec.ID] = struct{}{}
	}

	for _, rec := range batch {
		s.ids[rec.ID] = struct{}{}
	}
	s.records = append(s.records, batch...)
	return nil
}

// Snapshot returns the stored records in insertion order. The returned
// slice must be treated as read-only.
func (s *RecordStore) Snapshot() ([]ir.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	n := len(s.records)
	if n == 0 {
		return []ir.Record{}, nil
	}
	return s.records[:n:n], nil
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close releases the records. Snapshots taken earlier stay readable.
func (s *RecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	s.ids = nil
	return nil
}
