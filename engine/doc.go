// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package engine owns the versioned planning-poker session state and is
the only writer of it.

# Mutation Protocol

Every operation runs through a single primitive: acquire the
distributed lock, read the current state from the active store, apply a
pure transition function to a clone, bump the version, write back,
release, publish. When the coordination store is unavailable or the
lock cannot be acquired within its bounded retries, the same transition
runs unlocked against the degraded store. The engine's availability
contract is that no operation ever fails outright because the
coordination store is down.

# Operations

	st := eng.GetState(ctx)                              // never fails
	st, err := eng.SetTicket(ctx, ticket)                // clears votes
	st, err := eng.AddVote(ctx, "alice", vote, &ver)     // optimistic
	st, err := eng.RevealVotes(ctx, &ver)                // no-op if empty
	st, err := eng.ClearVotes(ctx, &ver)
	st := eng.ClearAll(ctx)                              // hard reset
	proj := eng.GetBroadcastState(ctx)                   // projection

# Error Taxonomy

Domain errors propagate: ErrVersionConflict (caller must refresh and
retry) and ErrInvalidVote. Infrastructure errors are absorbed at the
engine boundary and converted into degraded-but-functioning behavior.
Corrupt stored bytes are treated as absence with a loud log; the state
resets to the zero-value default.
*/
package engine
