// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the
planning-poker session engine.

# Domain Types

  - SessionState: the single shared estimation round; Version is the
    optimistic-concurrency token
  - Vote: numeric estimate or the "unsure" marker (custom JSON encoding)
  - Ticket: the item under estimation, with an opaque imported payload
  - PresenceEntry: one live connection with heartbeat bookkeeping

# Projections

  - BroadcastState: SessionState plus connected/voted counts and the
    current health score
  - BroadcastMessage: one change notification with broadcast_id for
    consumer-side deduplication

# Request/Response Types

Types for the HTTP and websocket request layer:

  - SetTicketRequest, VoteRequest, RevealRequest, ClearRequest
  - MutationResponse: new version after a successful mutation
  - ErrorResponse: error, message
  - ClientMessage: inbound websocket frames (heartbeat, vote)

# Constants

Change actions:

	ActionTicketSet     = "ticket_set"
	ActionVoteAdded     = "vote_added"
	ActionVotesRevealed = "votes_revealed"
	ActionVotesCleared  = "votes_cleared"
	ActionSessionReset  = "session_reset"
*/
package models
