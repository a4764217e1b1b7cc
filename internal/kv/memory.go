// In-process backend shared by several handles through a Hub.

package kv

import (
	"context"
	"slices"
	"sync"
)

// subscriberBuffer bounds the number of undelivered changes per handle.
// Changes beyond it are dropped; the poll loop catches up.
const subscriberBuffer = 64

// Hub is an in-process substrate. Each handle opened from it behaves like a
// separate browsing context over the same origin storage.
type Hub struct {
	mu   sync.RWMutex
	data map[string][]byte
	subs map[*Memory]chan Change
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		data: make(map[string][]byte),
		subs: make(map[*Memory]chan Change),
	}
}

// Open returns a new handle on the hub. Changes made by other handles are
// queued from this point on, whether or not Watch is running yet.
func (h *Hub) Open() *Memory {
	m := &Memory{hub: h, changes: make(chan Change, subscriberBuffer)}
	h.mu.Lock()
	h.subs[m] = m.changes
	h.mu.Unlock()
	return m
}

// Memory is a handle on a Hub.
type Memory struct {
	hub     *Hub
	changes chan Change
}

// Get implements Backend.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.hub.mu.RLock()
	defer m.hub.mu.RUnlock()
	v, ok := m.hub.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

// Set implements Backend.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	m.hub.data[key] = slices.Clone(value)
	for sub, ch := range m.hub.subs {
		if sub == m {
			continue
		}
		select {
		case ch <- Change{Key: key, Value: slices.Clone(value)}:
		default:
			// Subscriber is behind.
		}
	}
	return nil
}

// Watch implements Backend.
func (m *Memory) Watch(ctx context.Context, fn func(Change)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-m.changes:
			fn(c)
		}
	}
}

// Close implements Backend. The handle stops receiving changes.
func (m *Memory) Close() error {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	delete(m.hub.subs, m)
	return nil
}
