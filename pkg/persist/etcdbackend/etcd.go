// Package etcdbackend stores persisted values as etcd keys.
package etcdbackend

import (
	"context"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// KV is the subset of clientv3.KV the backend uses. *clientv3.Client
// satisfies it.
type KV interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
}

// Backend is a persist.Backend storing "<prefix><key>" in etcd.
type Backend struct {
	kv     KV
	prefix string
	closer func() error
}

// Option configures a Backend.
type Option func(*Backend)

// WithPrefix sets the key prefix. Default: "/vstore/".
func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		b.prefix = prefix
	}
}

// New wraps kv. Close does not close it.
func New(kv KV, opts ...Option) *Backend {
	b := &Backend{kv: kv, prefix: "/vstore/"}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dial connects to the etcd cluster at endpoints and checks that it
// answers. Close closes the client.
func Dial(ctx context.Context, endpoints []string, opts ...Option) (*Backend, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("etcd endpoints cannot be empty")
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := cli.Get(checkCtx, "health-check"); err != nil {
		cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	b := New(cli, opts...)
	b.closer = cli.Close
	return b, nil
}

// GetItem returns the value stored under key.
func (b *Backend) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	resp, err := b.kv.Get(ctx, b.prefix+key)
	if err != nil {
		return nil, false, fmt.Errorf("etcd get %q: %w", key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, false, nil
	}
	return resp.Kvs[0].Value, true, nil
}

// SetItem stores data under key.
func (b *Backend) SetItem(ctx context.Context, key string, data []byte) error {
	if _, err := b.kv.Put(ctx, b.prefix+key, string(data)); err != nil {
		return fmt.Errorf("etcd put %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key.
func (b *Backend) RemoveItem(ctx context.Context, key string) error {
	if _, err := b.kv.Delete(ctx, b.prefix+key); err != nil {
		return fmt.Errorf("etcd delete %q: %w", key, err)
	}
	return nil
}

// Clear deletes every key under the prefix in one request.
func (b *Backend) Clear(ctx context.Context) error {
	if _, err := b.kv.Delete(ctx, b.prefix, clientv3.WithPrefix()); err != nil {
		return fmt.Errorf("etcd clear: %w", err)
	}
	return nil
}

// Keys returns the stored keys without the prefix, in etcd key order.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	resp, err := b.kv.Get(ctx, b.prefix, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, fmt.Errorf("etcd keys: %w", err)
	}
	keys := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		keys = append(keys, strings.TrimPrefix(string(kv.Key), b.prefix))
	}
	return keys, nil
}

// Close closes the client if the backend created it with Dial.
func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}
