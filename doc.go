// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the planning-poker session
server.

The server coordinates a single shared estimation round across many
concurrently connected clients: a versioned state object, an
optimistic-concurrency write protocol, a best-effort distributed lock,
a dual-tier storage fallback, a presence registry and a change
broadcast channel.

# Starting the Server

The server requires a coordination store URL via environment variable
or CLI flag:

	REDIS_URL=redis://localhost:6379/0 go run main.go

Or with flags:

	go run main.go -p 3418 -r "redis://localhost:6379/0"

# Configuration

Required settings:

  - REDIS_URL (-r): coordination store connection URL

Optional settings:

  - PORT (-p): server port (default: 3418)
  - DEGRADED_STORE_PATH (--degraded-path): sqlite fallback file
  - TICKET_BASE_URL (--ticket-url): ticket importer endpoint

# Architecture

The server uses a layered architecture with dependency injection:

  - store: coordination store adapter (Redis) + degraded fallbacks
  - lock: short-TTL distributed lock for mutation serialization
  - engine: versioned session state and all mutation operations
  - presence: connection registry with heartbeats and staleness sweeps
  - broadcast: change notifications with dedup and redundant delivery
  - health: periodic monitor with scored checks and auto-remediation
  - ticket: ticket-import collaborator
  - handlers, router, middleware: HTTP/websocket request layer
  - cliparse: configuration parsing

See package documentation for each component.

# Failure Model

The coordination store being down never fails a request: the engine
falls back to a local degraded store with documented reduced guarantees
and recovers on the next successful coordinated write. Version
conflicts are surfaced to callers as 409 responses; everything else is
absorbed at the engine boundary.
*/
package main
