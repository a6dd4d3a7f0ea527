// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package lock implements the short-TTL distributed lock used to serialize
session mutations across workers and processes.

The lock is advisory and best-effort:

	lk := lock.New(redisStore)
	if lk.Acquire(ctx, "add_vote") {
		defer lk.Release(ctx, "add_vote")
		// mutate via the coordination store
	} else {
		// mutate via the degraded store, unlocked
	}

Acquire retries a small bounded number of times with short backoff and
then reports false; it never blocks indefinitely. The short TTL
(seconds) means a crashed holder's lock expires on its own.
*/
package lock
