// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package presence tracks live connections independently of session state.

The registry persists a single presence map keyed by connection ID in
the active store. Entries go stale when no heartbeat arrives within the
entry TTL (60s default) and are removed lazily on reads, eagerly on
connect/disconnect, and by a dedicated background sweeper:

	reg := presence.NewRegistry(coord, degraded, presence.Config{})
	reg.Start(ctx) // periodic sweeper

Connection lifecycle hooks feed the registry:

	reg.AddConnection(ctx, connID)
	reg.Heartbeat(ctx, connID)    // re-adds expired connections
	reg.RemoveConnection(ctx, connID)

AssociateUser binds a participant name to a connection the first time
that participant votes; the engine uses the resulting ActiveUsers set
to prune votes from departed participants.
*/
package presence
