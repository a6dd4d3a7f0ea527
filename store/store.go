// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"time"
)

// Key layout. The whole session lives under three logical keys: one for
// state, one for the presence map, and short-lived lock keys per
// operation name.
const (
	SessionKey  = "poker:session"
	PresenceKey = "poker:presence"
	LockPrefix  = "poker:lock:"
)

// Sentinel TTL replies, following the Redis convention: the raw values
// -1 and -2 as durations, not scaled to any time unit.
const (
	// TTLNoExpiry means the key exists but carries no expiry.
	TTLNoExpiry = time.Duration(-1)
	// TTLKeyMissing means the key does not exist.
	TTLKeyMissing = time.Duration(-2)
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("key not found")

	// ErrUnavailable wraps any store failure caused by the backing
	// service being unreachable. Callers fall back to the degraded
	// store instead of surfacing it.
	ErrUnavailable = errors.New("store unavailable")
)

// KV is the contract shared by the coordination store and the degraded
// fallback stores. Every method may fail; callers must not assume
// success.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Coordination is the full contract of the external coordination store.
// It adds the atomic set-if-absent primitive that locking is built on,
// plus availability probing. Degraded stores do not implement it:
// locking is unavailable in degraded mode.
type Coordination interface {
	KV

	// SetIfAbsent atomically sets key only if it does not exist.
	// Returns true if the value was set (the caller "acquired" the key).
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Keys lists keys matching the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// TTL reports the remaining lifetime of a key, or one of the
	// sentinel values TTLNoExpiry / TTLKeyMissing.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Ping probes the store directly, bypassing the availability cache.
	Ping(ctx context.Context) error

	// Available reports whether the store answered a recent probe
	// within the probe timeout. The result is cached briefly so that
	// per-operation checks do not hammer the store.
	Available() bool
}
