// Package redisbackend stores persisted values in Redis.
package redisbackend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is prepended to every key unless WithPrefix is given.
const DefaultPrefix = "vstore:"

// Backend is a persist.Backend on top of a go-redis client.
// Keys are stored as "<prefix><key>"; Clear only touches keys with the prefix.
type Backend struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	batch  int64
	owned  bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithPrefix sets the key prefix. Default: "vstore:".
func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		b.prefix = prefix
	}
}

// WithTTL expires every written key after d. Zero means no expiry.
func WithTTL(d time.Duration) Option {
	return func(b *Backend) {
		b.ttl = d
	}
}

// DefaultScanCount is the SCAN batch hint Clear uses unless
// WithScanCount overrides it.
const DefaultScanCount = 100

// WithScanCount sets the SCAN batch hint Clear uses. Values below 1 fall
// back to DefaultScanCount.
func WithScanCount(n int64) Option {
	return func(b *Backend) {
		b.batch = n
	}
}

// New wraps an existing client. Close does not close it.
func New(client redis.UniversalClient, opts ...Option) *Backend {
	b := &Backend{
		client: client,
		prefix: DefaultPrefix,
		batch:  DefaultScanCount,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.batch < 1 {
		b.batch = DefaultScanCount
	}
	return b
}

// Dial connects to the Redis server at url (redis://host:port/db) and
// verifies the connection with PING. Close closes the client.
func Dial(ctx context.Context, url string, opts ...Option) (*Backend, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	b := New(client, opts...)
	b.owned = true
	return b, nil
}

// GetItem returns the value stored under key.
func (b *Backend) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return data, true, nil
}

// SetItem stores data under key.
func (b *Backend) SetItem(ctx context.Context, key string, data []byte) error {
	if err := b.client.Set(ctx, b.prefix+key, data, b.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key.
func (b *Backend) RemoveItem(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// Clear deletes every key under the prefix. With an empty prefix that is
// every key in the selected database.
func (b *Backend) Clear(ctx context.Context) error {
	iter := b.client.Scan(ctx, 0, escapeGlob(b.prefix)+"*", b.batch).Iterator()

	keys := make([]string, 0, b.batch)
	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		if err := b.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis clear: %w", err)
		}
		keys = keys[:0]
		return nil
	}

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if int64(len(keys)) >= b.batch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return flush()
}

// Keys returns the stored keys without the prefix.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, escapeGlob(b.prefix)+"*", b.batch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), b.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}

// Close closes the client if the backend created it with Dial.
func (b *Backend) Close() error {
	if !b.owned {
		return nil
	}
	return b.client.Close()
}

// escapeGlob escapes Redis MATCH metacharacters in s.
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
