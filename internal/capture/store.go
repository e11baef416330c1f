// Package capture buffers the live session's transcript and chat entries,
// deduplicated by (speaker, text), and mirrors the full sequence to the
// durable local store after every mutation.
package capture

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Anvita004/transcriptpro/internal/infrastructure/cache"
)

// Keyed is an entry with a capture-store uniqueness key.
type Keyed interface {
	DedupKey() string
}

// Store is an append-only-per-session, deduplicated entry list. Every
// successful append schedules a debounced overwrite of the full sequence to
// the durable store; after the last mutation in a burst the durable copy
// converges to the in-memory copy.
type Store[E Keyed] struct {
	mu         sync.Mutex
	entries    []E
	seen       map[string]struct{}
	storageKey string
	kv         cache.Store
	debounce   time.Duration
	flushTimer *time.Timer
	logger     *zap.Logger
}

// NewStore creates a capture store mirrored to kv under storageKey.
func NewStore[E Keyed](kv cache.Store, storageKey string, debounce time.Duration, logger *zap.Logger) *Store[E] {
	return &Store[E]{
		seen:       make(map[string]struct{}),
		storageKey: storageKey,
		kv:         kv,
		debounce:   debounce,
		logger:     logger,
	}
}

// TryAppend appends entry if its (speaker, text) key is new and reports
// whether it was added. A successful append schedules a durable flush.
func (s *Store[E]) TryAppend(entry E) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entry.DedupKey()
	if _, dup := s.seen[key]; dup {
		return false
	}
	s.seen[key] = struct{}{}
	s.entries = append(s.entries, entry)
	s.scheduleFlushLocked()
	return true
}

// All returns a copy of the entries in insertion order.
func (s *Store[E]) All() []E {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]E, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of stored entries.
func (s *Store[E]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Seed replaces the store contents without flushing, used when re-adopting
// entries recovered from the durable store.
func (s *Store[E]) Seed(entries []E) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make([]E, 0, len(entries))
	s.seen = make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		key := entry.DedupKey()
		if _, dup := s.seen[key]; dup {
			continue
		}
		s.seen[key] = struct{}{}
		s.entries = append(s.entries, entry)
	}
}

// Reset drops the in-memory entries and any pending flush without touching
// the durable copy. Used when a session dies and another component owns what
// happens to the already-persisted state.
func (s *Store[E]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.seen = make(map[string]struct{})
	s.stopTimerLocked()
}

// Clear empties the store and overwrites the durable copy with an empty
// sequence.
func (s *Store[E]) Clear(ctx context.Context) {
	s.mu.Lock()
	s.entries = nil
	s.seen = make(map[string]struct{})
	s.stopTimerLocked()
	s.mu.Unlock()

	s.writeSnapshot(ctx, []E{})
}

// Flush writes the current sequence durably right away, cancelling any
// pending debounced write. Used at session end.
func (s *Store[E]) Flush(ctx context.Context) {
	s.mu.Lock()
	s.stopTimerLocked()
	snapshot := make([]E, len(s.entries))
	copy(snapshot, s.entries)
	s.mu.Unlock()

	s.writeSnapshot(ctx, snapshot)
}

func (s *Store[E]) scheduleFlushLocked() {
	if s.debounce <= 0 {
		snapshot := make([]E, len(s.entries))
		copy(snapshot, s.entries)
		go s.writeSnapshot(context.Background(), snapshot)
		return
	}
	if s.flushTimer != nil {
		s.flushTimer.Stop()
	}
	s.flushTimer = time.AfterFunc(s.debounce, func() {
		s.Flush(context.Background())
	})
}

func (s *Store[E]) stopTimerLocked() {
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
}

func (s *Store[E]) writeSnapshot(ctx context.Context, snapshot []E) {
	if err := cache.SetJSON(ctx, s.kv, s.storageKey, snapshot); err != nil {
		s.logger.Error("failed to mirror capture store",
			zap.String("key", s.storageKey),
			zap.Error(err),
		)
	}
}
