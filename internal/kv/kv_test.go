package kv

import (
	"context"
	"strconv"
	"testing"
	"time"
)

const probeKey = "probe"

// collect runs Watch in the background and returns the delivered changes.
func collect(t *testing.T, b Backend) <-chan Change {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Change, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Watch(ctx, func(c Change) {
			select {
			case out <- c:
			case <-ctx.Done():
			}
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return out
}

func expectChange(t *testing.T, ch <-chan Change, key, value string) {
	t.Helper()
	select {
	case c := <-ch:
		if c.Key != key || string(c.Value) != value {
			t.Errorf("got change %s=%q, want %s=%q", c.Key, c.Value, key, value)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no change delivered for %s", key)
	}
}

func expectNoChange(t *testing.T, ch <-chan Change) {
	t.Helper()
	select {
	case c := <-ch:
		t.Errorf("unexpected change %s=%q", c.Key, c.Value)
	case <-time.After(100 * time.Millisecond):
	}
}

// waitWatching blocks until cb observes a write made through a, which means
// the watcher feeding cb is registered.
func waitWatching(t *testing.T, a Backend, cb <-chan Change) {
	t.Helper()
	ctx := context.Background()
	for i := range 100 {
		if err := a.Set(ctx, probeKey, []byte(strconv.Itoa(i))); err != nil {
			t.Fatal(err)
		}
		select {
		case <-cb:
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
	t.Fatal("watcher never became ready")
}

// expectKey waits for a change of key, skipping probe changes.
func expectKey(t *testing.T, ch <-chan Change, key, value string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-ch:
			if c.Key == probeKey {
				continue
			}
			if c.Key != key || string(c.Value) != value {
				t.Errorf("got change %s=%q, want %s=%q", c.Key, c.Value, key, value)
			}
			return
		case <-deadline:
			t.Fatalf("no change delivered for %s", key)
		}
	}
}

func expectNoKey(t *testing.T, ch <-chan Change, key string) {
	t.Helper()
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case c := <-ch:
			if c.Key == key {
				t.Errorf("unexpected change %s=%q", c.Key, c.Value)
			}
		case <-deadline:
			return
		}
	}
}

// waitValue waits until key is delivered with value, skipping other changes.
// Backends may report one write more than once.
func waitValue(t *testing.T, ch <-chan Change, key, value string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-ch:
			if c.Key == key && string(c.Value) == value {
				return
			}
		case <-deadline:
			t.Fatalf("%s=%q never delivered", key, value)
		}
	}
}
