// Package cache stores opaque byte values with a TTL.
package cache

import (
	"context"
	"errors"
	"time"
)

// Provider defines the minimal cache operations used by teamflow.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	Close() error
}

// ErrCacheMiss signals that a cache key was not found.
var ErrCacheMiss = errors.New("cache miss")

// NoopProvider implements Provider but never stores data.
type NoopProvider struct{}

func (NoopProvider) Get(context.Context, string) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (NoopProvider) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return true, nil
}

func (NoopProvider) Del(context.Context, string) error { return nil }

func (NoopProvider) Close() error { return nil }

type prefixedProvider struct {
	next   Provider
	prefix string
}

// WithPrefix namespaces every key of next under prefix. Close is a no-op so
// many namespaces can share one store.
func WithPrefix(next Provider, prefix string) Provider {
	return prefixedProvider{next: next, prefix: prefix}
}

func (p prefixedProvider) Get(ctx context.Context, key string) ([]byte, error) {
	return p.next.Get(ctx, p.prefix+key)
}

func (p prefixedProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.next.Set(ctx, p.prefix+key, value, ttl)
}

func (p prefixedProvider) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return p.next.SetNX(ctx, p.prefix+key, value, ttl)
}

func (p prefixedProvider) Del(ctx context.Context, key string) error {
	return p.next.Del(ctx, p.prefix+key)
}

func (prefixedProvider) Close() error { return nil }
