// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP and websocket request layer over the
session engine.

# Handler Types

  - SessionHandler: session mutations and the state query
  - WSHandler: the change-notification channel and presence lifecycle

Handlers are created via constructor functions with injected
dependencies:

	sh := handlers.NewSessionHandler(eng, fetcher, monitor)
	wh := handlers.NewWSHandler(eng, registry, dispatcher)

# Session Operations

	POST /session/ticket → SetTicket (clears votes, starts a new round)
	POST /session/vote   → Vote
	POST /session/reveal → Reveal (no-op when no votes are cast)
	POST /session/clear  → Clear
	POST /session/reset  → Reset (hard reset, operator remediation)
	GET  /session/state  → State (full broadcast projection)
	GET  /session/ws     → Connect (websocket subscribe + presence)
	GET  /health         → Health (latest monitor score)

Mutations accept an optional expected_version. A stale value yields
409 Conflict with a refresh-and-retry message; the engine never retries
conflicts on the caller's behalf.

# Websocket Protocol

Inbound frames: {"type":"heartbeat"} and
{"type":"vote","user":...,"vote":...,"expected_version":...}.
Outbound frames are BroadcastMessages; clients deduplicate by
state.version and broadcast_id.
*/
package handlers
