// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Change actions carried on broadcast messages.
const (
	ActionTicketSet       = "ticket_set"
	ActionVoteAdded       = "vote_added"
	ActionVotesRevealed   = "votes_revealed"
	ActionVotesCleared    = "votes_cleared"
	ActionSessionReset    = "session_reset"
	ActionPresenceChanged = "presence_changed"
)

// Request types

type SetTicketRequest struct {
	Key   string `json:"key"`
	Title string `json:"title,omitempty"`
	Fetch bool   `json:"fetch,omitempty"` // import ticket data by key
}

type VoteRequest struct {
	User            string `json:"user"`
	Vote            Vote   `json:"vote"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

type RevealRequest struct {
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

type ClearRequest struct {
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

// ClientMessage is an inbound websocket frame from a subscriber.
type ClientMessage struct {
	Type            string `json:"type"` // "heartbeat" or "vote"
	User            string `json:"user,omitempty"`
	Vote            *Vote  `json:"vote,omitempty"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

// Response types

type MutationResponse struct {
	Version int64  `json:"version"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Domain projections

// BroadcastState is the read-only projection of SessionState handed to
// subscribers and the state query endpoint. Subscribers must treat
// Version as the source of truth and discard anything not newer than
// their last-applied version.
type BroadcastState struct {
	Ticket         *Ticket         `json:"ticket,omitempty"`
	Votes          map[string]Vote `json:"votes"`
	Revealed       bool            `json:"revealed"`
	Version        int64           `json:"version"`
	LastUpdated    time.Time       `json:"last_updated"`
	ConnectedCount int             `json:"connected_count"`
	VotedCount     int             `json:"voted_count"`
	HealthScore    int             `json:"health_score"`
}

// BroadcastMessage is one change notification on the session channel.
// Retry marks the delayed redundant re-send of an earlier message; both
// copies carry the same BroadcastID so consumers can deduplicate.
type BroadcastMessage struct {
	Action       string         `json:"action"`
	ChangeAction string         `json:"change_action"`
	State        BroadcastState `json:"state"`
	Timestamp    time.Time      `json:"timestamp"`
	BroadcastID  string         `json:"broadcast_id"`
	Retry        bool           `json:"retry,omitempty"`
}
