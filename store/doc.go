// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store provides the two storage tiers the session engine runs on.

# Coordination Store

RedisStore is the primary tier: a networked key-value store with TTLs
and the atomic set-if-absent primitive the distributed lock is built on.
Every failure wraps ErrUnavailable so callers can detect outages with
errors.Is and fall back:

	st, err := store.NewRedisStore(ctx, "redis://localhost:6379/0")

Availability is a cached Ping probe (500ms timeout, ~2s cache) so that
checking before every operation stays cheap. At startup the adapter
sweeps lock keys that exist with no TTL - leftovers from a crashed
holder - and deletes them.

# Degraded Stores

MemoryStore (default) and SQLiteStore (file-backed, survives restarts)
implement the plain KV subset without locking primitives. They are used
transparently while the coordination store is unreachable. Multiple
processes in degraded mode do not see each other's writes; that is a
documented reduction in guarantees, not a bug.

# Key Layout

	poker:session     session state (hours-scale TTL)
	poker:presence    presence map (hours-scale TTL)
	poker:lock:<op>   per-operation lock keys (seconds-scale TTL)
*/
package store
