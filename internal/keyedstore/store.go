// Package keyedstore wraps the keyed in-memory store the core requires
// (§6): counters, the device hash/set, the hostname cache, and the
// publish/subscribe channel. Backed by Redis via go-redis, the same
// client library netflow pipelines in the wild (akvorado) use for this
// role.
package keyedstore

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store is a thin, typed façade over the Redis operations §6 lists as the
// keyed store's required interface. Keeping it narrow makes the core
// testable against miniredis without dragging go-redis into every package.
type Store struct {
	client *redis.Client
}

// New dials Redis at the given URL (e.g. "redis://redis:6379"). It does not
// block on connectivity; callers should Ping during startup if a fail-fast
// bind check is desired.
func New(url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Store{client: redis.NewClient(opts)}, nil
}

// NewFromClient wraps an existing client, mainly so tests can point the
// store at a miniredis instance.
func NewFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Ping verifies connectivity, used at startup (a failed store connection is
// a fatal startup error per §7).
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Get returns the string value of key, or "" if it does not exist.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

// SetWithTTL sets key to value with the given expiry, used by the hostname
// cache (§4.F) with ttl = 1 hour.
func (s *Store) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// IncrBy atomically adds delta to the integer at key, creating it at 0 if
// absent. Used for the monotonic stats:* counters (§4.H).
func (s *Store) IncrBy(ctx context.Context, key string, delta int64) error {
	return s.client.IncrBy(ctx, key, delta).Err()
}

// HIncrBy atomically adds delta to hash field `field` of key.
func (s *Store) HIncrBy(ctx context.Context, key, field string, delta int64) error {
	return s.client.HIncrBy(ctx, key, field, delta).Err()
}

// HSet sets a single hash field, used for device:<ip>.last_seen (§4.H).
func (s *Store) HSet(ctx context.Context, key, field, value string) error {
	return s.client.HSet(ctx, key, field, value).Err()
}

// HGet returns a hash field's value, or "" if absent.
func (s *Store) HGet(ctx context.Context, key, field string) (string, error) {
	v, err := s.client.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

// SAdd adds members to the set at key (used for the `devices` set).
func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	vals := make([]interface{}, len(members))
	for i, m := range members {
		vals[i] = m
	}
	return s.client.SAdd(ctx, key, vals...).Err()
}

// SCard returns the cardinality of the set at key.
func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	return s.client.SCard(ctx, key).Result()
}

// SIsMember reports whether member is in the set at key.
func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return s.client.SIsMember(ctx, key, member).Result()
}

// Publish sends message on channel. Delivery is best-effort; a channel with
// no subscribers simply drops the message, matching the lossy design (§1).
func (s *Store) Publish(ctx context.Context, channel, message string) error {
	return s.client.Publish(ctx, channel, message).Err()
}

// Subscribe returns a PubSub handle for channel; callers read from
// Channel() until the context is cancelled.
func (s *Store) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return s.client.Subscribe(ctx, channel)
}
