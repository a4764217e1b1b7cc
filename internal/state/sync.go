package state

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maruel/inkzone/internal/kv"
	"golang.org/x/sync/errgroup"
)

// syncer is the part of Synced[T] the sync loops need.
type syncer interface {
	Key() string
	generation() uint64
	reconcile(ctx context.Context, source string, gen uint64, data []byte) bool
}

func (s *State) syncers() []syncer {
	return []syncer{s.products, s.quotes, s.messages}
}

// Run keeps the collections in sync with the store until ctx is cancelled.
// It starts the change watcher (unless disabled) and the poll loop. A failing
// watcher is logged and polling continues alone.
//
// A change notification only names the key to re-read: the value it carries
// may have been read before this context's latest write.
func (s *State) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	if !s.opts.DisableWatch {
		eg.Go(func() error {
			err := s.backend.Watch(ctx, func(c kv.Change) { s.onChange(ctx, c.Key) })
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.WarnContext(ctx, "Change watcher stopped; relying on polling", "err", err)
			}
			return nil
		})
	}
	eg.Go(func() error {
		t := time.NewTicker(s.opts.PollInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				s.Refresh(ctx)
			}
		}
	})
	return eg.Wait()
}

// Refresh re-reads every collection from the store and reconciles it. It is
// what the poll loop runs on every tick.
func (s *State) Refresh(ctx context.Context) {
	for _, c := range s.syncers() {
		s.sync(ctx, "poll", c)
	}
}

// onChange re-reads the collection stored at key. Unknown keys are ignored.
func (s *State) onChange(ctx context.Context, key string) {
	for _, c := range s.syncers() {
		if c.Key() == key {
			s.sync(ctx, "notify", c)
			return
		}
	}
}

// sync reads c's key and reconciles it. The generation is captured before the
// read so that a mutation racing with it wins over the value read. Read
// errors, missing keys and empty values are no-ops.
func (s *State) sync(ctx context.Context, source string, c syncer) {
	gen := c.generation()
	data, err := s.backend.Get(ctx, c.Key())
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) && ctx.Err() == nil {
			slog.DebugContext(ctx, "Store read failed", "key", c.Key(), "source", source, "err", err)
		}
		return
	}
	if len(data) == 0 {
		return
	}
	c.reconcile(ctx, source, gen, data)
}
