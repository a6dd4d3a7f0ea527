// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultProbeTimeout = 500 * time.Millisecond
	defaultProbeCache   = 2 * time.Second
)

// RedisStore is the coordination store adapter. All failures are wrapped
// in ErrUnavailable; availability is determined by a fast Ping probe
// whose result is cached for a couple of seconds.
type RedisStore struct {
	client *redis.Client

	probeTimeout time.Duration
	probeCache   time.Duration

	mu        sync.Mutex
	lastProbe time.Time
	lastOK    bool
}

// NewRedisStore connects to the coordination store at the given URL
// (redis://host:port/db) and sweeps any orphaned lock keys left behind
// by a crashed process. The sweep is best-effort: if the store is down
// at startup the adapter still constructs and simply reports
// unavailable.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	s := &RedisStore{
		client:       redis.NewClient(opts),
		probeTimeout: defaultProbeTimeout,
		probeCache:   defaultProbeCache,
	}

	if err := s.Ping(ctx); err != nil {
		slog.Warn("coordination store unreachable at startup", "error", err)
		return s, nil
	}

	s.sweepOrphanedLocks(ctx)
	return s, nil
}

// sweepOrphanedLocks deletes lock keys that exist with no TTL. A lock
// written without expiry can only come from a crashed or killed process
// mid-acquire; left alone it would block writers forever.
func (s *RedisStore) sweepOrphanedLocks(ctx context.Context) {
	keys, err := s.Keys(ctx, LockPrefix)
	if err != nil {
		slog.Warn("orphaned lock sweep skipped", "error", err)
		return
	}
	for _, key := range keys {
		ttl, err := s.TTL(ctx, key)
		if err != nil {
			continue
		}
		if ttl == TTLNoExpiry {
			slog.Warn("deleting orphaned lock key", "key", key)
			if err := s.Delete(ctx, key); err != nil {
				slog.Warn("failed to delete orphaned lock", "key", key, "error", err)
			}
		}
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}
	return val, nil
}

func (s *RedisStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: setnx %s: %v", ErrUnavailable, key, err)
	}
	return ok, nil
}

func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan %s: %v", ErrUnavailable, prefix, err)
	}
	return keys, nil
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: ttl %s: %v", ErrUnavailable, key, err)
	}
	return ttl, nil
}

// Ping probes the store with the strict probe timeout, bypassing the
// availability cache. Used by the health monitor to measure latency.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return nil
}

// Available reports the cached probe result, refreshing it when the
// cache window has passed.
func (s *RedisStore) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastProbe) < s.probeCache {
		return s.lastOK
	}

	err := s.Ping(context.Background())
	s.lastProbe = time.Now()
	s.lastOK = err == nil
	if err != nil {
		slog.Warn("coordination store probe failed", "error", err)
	}
	return s.lastOK
}

// Close releases the underlying client connections.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
