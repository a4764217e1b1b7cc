package state

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"github.com/maruel/inkzone/internal/metrics"
	"github.com/maruel/inkzone/internal/storage"
)

// Cloner is implemented by records that can deep copy themselves.
type Cloner[T any] interface {
	Clone() T
}

// Synced is one collection kept in memory and mirrored to the store.
type Synced[T Cloner[T]] struct {
	coll *storage.Collection[T]

	mu   sync.Mutex
	rows []T
	raw  []byte // canonical encoding of rows
	gen  uint64 // incremented every time rows is replaced
}

// loadSynced reads the collection, falling back as described by
// storage.Collection.Load, and writes the result back so the store holds a
// valid value.
func loadSynced[T Cloner[T]](ctx context.Context, coll *storage.Collection[T], fallback func() []T) *Synced[T] {
	rows := coll.Load(ctx, fallback)
	raw, err := storage.Encode(rows)
	if err != nil {
		// Records are plain structs; this only happens on programming errors.
		panic(err)
	}
	s := &Synced[T]{coll: coll, rows: rows, raw: raw}
	metrics.ReconcilesTotal.WithLabelValues(coll.Key(), "load", "replaced").Inc()
	if _, err := coll.WriteRaw(ctx, raw); err != nil {
		slog.WarnContext(ctx, "Failed to persist initial collection", "key", coll.Key(), "err", err)
	}
	return s
}

// Key returns the store key of the collection.
func (s *Synced[T]) Key() string {
	return s.coll.Key()
}

// Snapshot returns a deep copy of the current rows.
func (s *Synced[T]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.rows)
}

// Len returns the number of rows.
func (s *Synced[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Synced[T]) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// reconcile replaces the in-memory rows with the decoded data when it differs
// structurally. It is the single entry point for notifications and polling.
//
// gen is the generation observed before data was read from the store. If the
// rows were replaced since, data may predate this context's own write and is
// dropped; the next poll reads again. It reports whether the rows were
// replaced.
func (s *Synced[T]) reconcile(ctx context.Context, source string, gen uint64, data []byte) bool {
	key := s.coll.Key()
	rows, err := storage.Decode[T](data)
	if err != nil {
		metrics.ReconcilesTotal.WithLabelValues(key, source, "invalid").Inc()
		slog.DebugContext(ctx, "Ignoring undecodable collection", "key", key, "source", source, "err", err)
		return false
	}
	canon, err := storage.Encode(rows)
	if err != nil {
		metrics.ReconcilesTotal.WithLabelValues(key, source, "invalid").Inc()
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		metrics.ReconcilesTotal.WithLabelValues(key, source, "stale").Inc()
		slog.DebugContext(ctx, "Dropping stale read", "key", key, "source", source)
		return false
	}
	if bytes.Equal(canon, s.raw) {
		metrics.ReconcilesTotal.WithLabelValues(key, source, "unchanged").Inc()
		return false
	}
	s.rows = rows
	s.raw = canon
	s.gen++
	metrics.ReconcilesTotal.WithLabelValues(key, source, "replaced").Inc()
	slog.DebugContext(ctx, "Reconciled collection", "key", key, "source", source, "rows", len(rows))
	return true
}

// mutate applies fn to a copy of the rows, installs the result and writes it
// to the store while holding the lock, so writes from one context are
// ordered. A result equal to the current rows is a no-op. Write failures are
// logged and the in-memory result is kept.
func (s *Synced[T]) mutate(ctx context.Context, op string, fn func([]T) ([]T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(cloneAll(s.rows))
	if err != nil {
		return err
	}
	canon, err := storage.Encode(next)
	if err != nil {
		return err
	}
	if bytes.Equal(canon, s.raw) {
		return nil
	}
	if next == nil {
		next = []T{}
	}
	s.rows = next
	s.raw = canon
	s.gen++
	metrics.MutationsTotal.WithLabelValues(op).Inc()

	if _, err := s.coll.WriteRaw(ctx, canon); err != nil {
		slog.WarnContext(ctx, "Failed to persist collection; keeping in-memory state", "key", s.coll.Key(), "op", op, "err", err)
	}
	return nil
}

func cloneAll[T Cloner[T]](rows []T) []T {
	out := make([]T, len(rows))
	for i := range rows {
		out[i] = rows[i].Clone()
	}
	return out
}
