// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package health runs the periodic session health monitor.

Each check starts from a score of 100 and deducts fixed penalties per
issue category: coordination-store reachability and latency, structural
state invariants, presence/vote-count consistency, session staleness,
and stale presence entries (which are also swept as remediation).

Two consecutive scores below the floor trigger the last-resort
remediation, a hard session reset via the engine - logged loudly,
never silent.

	mon := health.NewMonitor(eng, reg, redisStore, health.Config{})
	mon.Start(ctx)

The latest score is exposed through Score() and embedded in every
broadcast projection.
*/
package health
