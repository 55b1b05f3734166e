// Package redisstore is the persistent workspace backed by redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/geostrata/categorize/internal/observability"
	"github.com/geostrata/categorize/internal/store"
)

const keyPrefix = "cat:ds:"

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.WriteTimeout = d }
}

type Store struct {
	rdb      *redis.Client
	location string
}

// New connects to redis and verifies it with a ping. location is the logical
// workspace location the store represents; it feeds field-name capability
// checks, not key layout.
func New(ctx context.Context, addr, location string, opts ...Option) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	if strings.TrimSpace(location) == "" {
		return nil, errors.New("workspace location is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     32,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	observability.ObserveStoreOp("ping", err, time.Since(start).Seconds())
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb, location: location}, nil
}

func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	b, err := s.rdb.Get(ctx, keyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveStoreOp("get", nil, time.Since(start).Seconds())
		return nil, store.ErrNotFound
	}
	observability.ObserveStoreOp("get", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("redis GET %q: %w", name, err)
	}
	return b, nil
}

func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	start := time.Now()
	err := s.rdb.Set(ctx, keyPrefix+name, data, 0).Err()
	observability.ObserveStoreOp("put", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis SET %q: %w", name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	start := time.Now()
	err := s.rdb.Del(ctx, keyPrefix+name).Err()
	observability.ObserveStoreOp("delete", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis DEL %q: %w", name, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	start := time.Now()
	n, err := s.rdb.Exists(ctx, keyPrefix+name).Result()
	observability.ObserveStoreOp("exists", err, time.Since(start).Seconds())
	if err != nil {
		return false, fmt.Errorf("redis EXISTS %q: %w", name, err)
	}
	return n > 0, nil
}

// List enumerates dataset names matching pattern via SCAN. Only artifacts
// under this store's key prefix are visible.
func (s *Store) List(ctx context.Context, pattern string) ([]string, error) {
	start := time.Now()
	var (
		out    []string
		cursor uint64
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, keyPrefix+pattern, 256).Result()
		if err != nil {
			observability.ObserveStoreOp("list", err, time.Since(start).Seconds())
			return nil, fmt.Errorf("redis SCAN %q: %w", pattern, err)
		}
		for _, k := range keys {
			out = append(out, strings.TrimPrefix(k, keyPrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	observability.ObserveStoreOp("list", nil, time.Since(start).Seconds())
	sort.Strings(out)
	return out, nil
}

func (s *Store) Transient() bool { return false }

func (s *Store) Location() string { return s.location }

func (s *Store) Close() error { return s.rdb.Close() }
