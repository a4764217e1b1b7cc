// Package storage persists the inkzone collections as JSON documents in a
// shared key-value backend.
//
// Each collection is stored whole under a single key; a write replaces the
// entire value. Writes whose encoding is byte-identical to the stored value
// are skipped, so re-persisting an unchanged collection never produces a
// change notification in other contexts.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maruel/inkzone/internal/kv"
	"github.com/maruel/inkzone/internal/metrics"
)

// Keys of the persisted collections.
const (
	KeyProducts = "inkzone_products"
	KeyQuotes   = "inkzone_quotes"
	KeyMessages = "inkzone_messages"
)

var errNullCollection = errors.New("collection is null")

// Encode serializes rows. A nil slice encodes as an empty list.
func Encode[T any](rows []T) ([]byte, error) {
	if rows == nil {
		rows = []T{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal collection: %w", err)
	}
	return data, nil
}

// Decode parses a serialized collection.
func Decode[T any](data []byte) ([]T, error) {
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal collection: %w", err)
	}
	if rows == nil {
		return nil, errNullCollection
	}
	return rows, nil
}

// Collection is a typed view of one key.
type Collection[T any] struct {
	backend kv.Backend
	key     string
}

// NewCollection returns a view of key in b.
func NewCollection[T any](b kv.Backend, key string) *Collection[T] {
	return &Collection[T]{backend: b, key: key}
}

// Key returns the backend key.
func (c *Collection[T]) Key() string {
	return c.key
}

// Read returns the stored rows. It returns kv.ErrNotFound if the key was
// never written and a decode error if the value is corrupt.
func (c *Collection[T]) Read(ctx context.Context) ([]T, error) {
	data, err := c.backend.Get(ctx, c.key)
	if err != nil {
		return nil, err
	}
	rows, err := Decode[T](data)
	if err != nil {
		metrics.StoreDecodeErrorsTotal.WithLabelValues(c.key).Inc()
		return nil, fmt.Errorf("%s: %w", c.key, err)
	}
	return rows, nil
}

// Write replaces the stored rows. It reports whether the backend was written.
func (c *Collection[T]) Write(ctx context.Context, rows []T) (bool, error) {
	data, err := Encode(rows)
	if err != nil {
		return false, err
	}
	return c.WriteRaw(ctx, data)
}

// WriteRaw stores an already encoded collection, skipping identical values.
func (c *Collection[T]) WriteRaw(ctx context.Context, data []byte) (bool, error) {
	current, err := c.backend.Get(ctx, c.key)
	if err == nil && bytes.Equal(current, data) {
		metrics.StoreWritesSkippedTotal.WithLabelValues(c.key).Inc()
		return false, nil
	}
	if err := c.backend.Set(ctx, c.key, data); err != nil {
		metrics.StoreWriteErrorsTotal.WithLabelValues(c.key).Inc()
		return false, err
	}
	metrics.StoreWritesTotal.WithLabelValues(c.key).Inc()
	return true, nil
}

// Load returns the stored rows, or fallback() when the key is absent or the
// value cannot be read or decoded. It never fails.
func (c *Collection[T]) Load(ctx context.Context, fallback func() []T) []T {
	rows, err := c.Read(ctx)
	if err == nil {
		return rows
	}
	if !errors.Is(err, kv.ErrNotFound) {
		slog.WarnContext(ctx, "Ignoring unreadable collection", "key", c.key, "err", err)
	}
	return fallback()
}

// Empty is a Load fallback returning an empty collection.
func Empty[T any]() []T {
	return []T{}
}
