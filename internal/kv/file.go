// File backend: one JSON file per key, change notification via fsnotify.

package kv

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const fileExt = ".json"

// File is a handle on a directory shared by several processes. Each key is
// stored in <dir>/<key>.json and replaced atomically with a rename.
type File struct {
	dir string

	mu   sync.Mutex
	last map[string][]byte // last value written through this handle
}

// OpenFile opens a handle on dir, creating it if needed.
func OpenFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}
	return &File{dir: dir, last: make(map[string][]byte)}, nil
}

// Dir returns the directory backing the handle.
func (f *File) Dir() string {
	return f.dir
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key+fileExt)
}

// Get implements Backend.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Set implements Backend.
func (f *File) Set(_ context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(f.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", key, err)
	}
	// Record before the rename so the resulting event is recognized as ours.
	f.mu.Lock()
	f.last[key] = bytes.Clone(value)
	f.mu.Unlock()
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}

// Watch implements Backend.
func (f *File) Watch(ctx context.Context, fn func(Change)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(f.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", f.dir, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			key, ok := f.keyOf(event.Name)
			if !ok {
				continue
			}
			data, err := os.ReadFile(f.path(key))
			if err != nil {
				// Replaced again or removed; a later event or the poll covers it.
				continue
			}
			if f.isOwn(key, data) {
				continue
			}
			fn(Change{Key: key, Value: data})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "Error watching store directory", "dir", f.dir, "err", err)
		}
	}
}

// Close implements Backend.
func (f *File) Close() error {
	return nil
}

func (f *File) keyOf(name string) (string, bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, fileExt) {
		return "", false
	}
	return strings.TrimSuffix(base, fileExt), true
}

// isOwn reports whether data is the value this handle last wrote for key.
// Once another handle's value is observed, the record is forgotten: from then
// on the same bytes can only come from someone else.
func (f *File) isOwn(key string, data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	last, ok := f.last[key]
	if !ok {
		return false
	}
	if bytes.Equal(last, data) {
		return true
	}
	delete(f.last, key)
	return false
}
