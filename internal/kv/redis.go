// Redis backend: string keys plus a pub/sub channel announcing writes.

package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisOptions configures a Redis handle.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces both the keys and the change channel.
	Prefix string
}

// Redis is a handle on a Redis server. Handles are distinguished by a random
// origin so that a handle ignores the announcements of its own writes.
type Redis struct {
	rdb     *redis.Client
	prefix  string
	channel string
	origin  string
}

type redisChange struct {
	Origin string `json:"origin"`
	Key    string `json:"key"`
	Value  []byte `json:"value"`
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Redis{
		rdb:     rdb,
		prefix:  opts.Prefix,
		channel: opts.Prefix + "changes",
		origin:  uuid.NewString(),
	}, nil
}

// Get implements Backend.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, nil
}

// Set implements Backend.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	msg, err := json.Marshal(redisChange{Origin: r.origin, Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.prefix+key, value, 0)
	pipe.Publish(ctx, r.channel, msg)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Watch implements Backend.
func (r *Redis) Watch(ctx context.Context, fn func(Change)) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer func() { _ = sub.Close() }()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var c redisChange
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				slog.DebugContext(ctx, "Ignoring malformed change", "channel", r.channel, "err", err)
				continue
			}
			if c.Origin == r.origin {
				continue
			}
			fn(Change{Key: c.Key, Value: c.Value})
		}
	}
}

// Close implements Backend.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
