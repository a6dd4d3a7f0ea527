// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse parses server configuration from CLI flags with
environment variable fallbacks.

Required settings:

  - REDIS_URL (-r): coordination store connection URL

Optional settings:

  - PORT (-p): server port (default: 3418)
  - DEGRADED_STORE_PATH (--degraded-path): sqlite file backing the
    degraded store; in-memory when unset
  - TICKET_BASE_URL (--ticket-url): ticket importer endpoint

Tuning knobs (flags only): --lock-ttl, --state-ttl, --presence-ttl,
--broadcast-retry, --health-interval, --health-floor. The TTL constants
are tunable parameters, not fixed contracts.
*/
package cliparse
