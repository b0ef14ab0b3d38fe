// Package history keeps the bounded, newest-first log of generated QR
// payloads and persists it through a kv.Store.
//
// Persistence is best effort. A failed write is logged and counted but the
// in-memory log stays authoritative for the rest of the session, and a
// missing or unparsable persisted value loads as an empty log.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/kingfisher/internal/kv"
	"github.com/wolfeidau/kingfisher/internal/telemetry"
)

const (
	// StorageKey is the kv key holding the persisted JSON array.
	StorageKey = "qr-history"

	// MaxHistory is the maximum number of entries kept.
	MaxHistory = 10
)

// ErrEntryNotFound is returned by Get for an index outside the log.
var ErrEntryNotFound = errors.New("history entry not found")

// Observer is notified after the log changes. Calls are made without any
// store lock held.
type Observer interface {
	HistoryChanged(entries []Entry)
	HistoryCleared()
}

// Store owns the history log.
type Store struct {
	mu       sync.RWMutex
	kv       kv.Store
	entries  []Entry
	now      func() time.Time
	observer Observer
	metrics  *telemetry.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for new entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithObserver registers an observer for history changes.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// New creates an empty store persisting through store. Call Load to read
// the persisted log.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:      store,
		entries: []Entry{},
		now:     time.Now,
		metrics: telemetry.GetMetrics(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetObserver replaces the observer.
func (s *Store) SetObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// Load replaces the in-memory log with the persisted one. A missing,
// unreadable or malformed value results in an empty log.
func (s *Store) Load(ctx context.Context) {
	entries := s.readPersisted(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = bound(entries)
	log.Debug().Int("count", len(s.entries)).Msg("history loaded")
}

// Record inserts text at the head of the log with the current time, evicts
// entries beyond MaxHistory and persists the result.
func (s *Store) Record(ctx context.Context, text string) Entry {
	s.mu.Lock()
	// persisted timestamps carry millisecond precision, keep memory identical
	entry := Entry{Text: text, CreatedAt: s.now().UTC().Truncate(time.Millisecond)}

	entries := make([]Entry, 0, MaxHistory+1)
	entries = append(entries, entry)
	entries = append(entries, s.entries...)
	s.entries = bound(entries)

	s.persistLocked(ctx)
	snapshot := s.snapshotLocked()
	observer := s.observer
	s.mu.Unlock()

	s.metrics.HistoryRecordsTotal.Add(ctx, 1)

	if observer != nil {
		observer.HistoryChanged(snapshot)
	}

	return entry
}

// List returns a copy of the log, most recent first.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get returns the entry at index, 0 being the most recent.
func (s *Store) Get(index int) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.entries) {
		return Entry{}, fmt.Errorf("%w: index %d", ErrEntryNotFound, index)
	}
	return s.entries[index], nil
}

// Clear empties the log and persists the empty state. Confirmation is the
// caller's concern.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.entries = []Entry{}
	s.persistLocked(ctx)
	observer := s.observer
	s.mu.Unlock()

	log.Info().Msg("history cleared")

	if observer != nil {
		observer.HistoryCleared()
	}
}

func (s *Store) readPersisted(ctx context.Context) []Entry {
	data, err := s.kv.Get(ctx, StorageKey)
	if errors.Is(err, kv.ErrNotFound) {
		return []Entry{}
	}
	if err != nil {
		s.metrics.PersistenceFailuresTotal.Add(ctx, 1)
		log.Warn().Err(err).Str("key", StorageKey).Msg("Could not load history")
		return []Entry{}
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		log.Warn().Err(err).Str("key", StorageKey).Msg("Persisted history is malformed, starting empty")
		return []Entry{}
	}

	// a damaged entry is dropped, the rest of the log survives
	entries := make([]Entry, 0, len(records))
	for i, rec := range records {
		var e Entry
		if err := json.Unmarshal(rec, &e); err != nil {
			log.Warn().Err(err).Str("key", StorageKey).Int("index", i).Msg("Skipping malformed history entry")
			continue
		}
		entries = append(entries, e)
	}

	return entries
}

// persistLocked must be called with the lock held. Failures leave the
// in-memory log as is.
func (s *Store) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.entries)
	if err != nil {
		log.Error().Err(err).Msg("Could not encode history")
		return
	}

	if err := s.kv.Set(ctx, StorageKey, data); err != nil {
		s.metrics.PersistenceFailuresTotal.Add(ctx, 1)
		log.Warn().Err(err).Str("key", StorageKey).Msg("Could not save history")
	}
}

func (s *Store) snapshotLocked() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// bound enforces the length invariant. Order is kept as given, newest first.
func bound(entries []Entry) []Entry {
	if len(entries) > MaxHistory {
		return entries[:MaxHistory:MaxHistory]
	}
	return entries
}
