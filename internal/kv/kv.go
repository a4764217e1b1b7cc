// Package kv provides the shared key-value substrates that inkzone contexts
// synchronize through.
//
// A Backend handle represents one context's view of the substrate. Values are
// opaque bytes; the typed layer lives in the storage package. Every backend
// delivers change notifications only for writes made through other handles,
// so a context never observes its own writes as remote changes.
//
// Writes are not transactional across handles: the last Set for a key wins.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Change is a write observed from another handle.
type Change struct {
	Key   string
	Value []byte
}

// Backend is one handle on a shared key-value substrate.
type Backend interface {
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored for key.
	Set(ctx context.Context, key string, value []byte) error
	// Watch calls fn for every write made by another handle until ctx is
	// cancelled. Delivery is best effort: a slow consumer may miss changes.
	Watch(ctx context.Context, fn func(Change)) error
	// Close releases the handle's resources.
	Close() error
}
