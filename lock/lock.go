// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gstrauss42/planning-poker/store"
)

const (
	// DefaultTTL keeps lock lifetimes short so a crashed holder
	// self-heals without manual intervention.
	DefaultTTL = 3 * time.Second

	defaultRetries = 3
	defaultBackoff = 150 * time.Millisecond
)

// Lock is a best-effort, advisory mutual-exclusion primitive built on
// the coordination store's atomic set-if-absent. Locks are scoped per
// operation name. Acquisition never blocks beyond a small bounded
// number of retries; on contention or store failure the caller is
// expected to degrade to unlocked execution, not to wait.
type Lock struct {
	store   store.Coordination
	ttl     time.Duration
	retries int
	backoff time.Duration
}

// New returns a lock with the default TTL and retry policy.
func New(st store.Coordination) *Lock {
	return &Lock{
		store:   st,
		ttl:     DefaultTTL,
		retries: defaultRetries,
		backoff: defaultBackoff,
	}
}

// NewWithTTL returns a lock with a custom TTL. TTLs below one second
// are clamped to the default; a too-short lock expires under its holder.
func NewWithTTL(st store.Coordination, ttl time.Duration) *Lock {
	l := New(st)
	if ttl >= time.Second {
		l.ttl = ttl
	}
	return l
}

// Acquire attempts to take the lock for the named operation. Returns
// false when the lock is held by someone else after the bounded retries,
// or when the store is unavailable. A false return means "proceed
// unlocked against the degraded store", never "give up".
func (l *Lock) Acquire(ctx context.Context, operation string) bool {
	key := store.LockPrefix + operation
	token := []byte(uuid.NewString())

	for attempt := 0; attempt <= l.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(l.backoff):
			}
		}

		acquired, err := l.store.SetIfAbsent(ctx, key, token, l.ttl)
		if err != nil {
			slog.Warn("lock acquisition failed, proceeding unlocked", "operation", operation, "error", err)
			return false
		}
		if acquired {
			return true
		}
	}

	slog.Warn("lock contended past retry budget, proceeding unlocked", "operation", operation)
	return false
}

// Release deletes the lock key. Failures are logged and otherwise
// ignored: the TTL reclaims the key shortly anyway.
func (l *Lock) Release(ctx context.Context, operation string) {
	if err := l.store.Delete(ctx, store.LockPrefix+operation); err != nil {
		slog.Warn("lock release failed, ttl will reclaim it", "operation", operation, "error", err)
	}
}
