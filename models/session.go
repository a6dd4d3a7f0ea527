// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Unsure is the special vote marker for participants who cannot estimate.
const Unsure = "unsure"

// Vote is a single participant's estimate: either a numeric point value
// or the special "unsure" marker. On the wire it is a JSON number or the
// string "unsure".
type Vote struct {
	Points float64
	Unsure bool
}

// NumericVote returns a vote for the given point value.
func NumericVote(points float64) Vote {
	return Vote{Points: points}
}

// UnsureVote returns the "unsure" marker vote.
func UnsureVote() Vote {
	return Vote{Unsure: true}
}

// Valid reports whether the vote is well-formed. Negative point values
// are never valid estimates.
func (v Vote) Valid() bool {
	return v.Unsure || v.Points >= 0
}

func (v Vote) MarshalJSON() ([]byte, error) {
	if v.Unsure {
		return json.Marshal(Unsure)
	}
	return json.Marshal(v.Points)
}

func (v *Vote) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != Unsure {
			return fmt.Errorf("invalid vote value %q", s)
		}
		*v = Vote{Unsure: true}
		return nil
	}

	var points float64
	if err := json.Unmarshal(data, &points); err != nil {
		return fmt.Errorf("invalid vote value %s", data)
	}
	if points < 0 {
		return fmt.Errorf("vote value must not be negative")
	}
	*v = Vote{Points: points}
	return nil
}

// Ticket is the item currently being estimated. Payload is opaque to the
// engine; it carries whatever structured data the ticket importer
// produced (see the ticket package).
type Ticket struct {
	Key     string          `json:"key"`
	Title   string          `json:"title"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SessionState is the single shared record of the current estimation
// round. Version is the optimistic-concurrency token: it is bumped
// exactly once per successful mutation and strictly increases for the
// lifetime of the session.
type SessionState struct {
	Ticket      *Ticket         `json:"ticket,omitempty"`
	Votes       map[string]Vote `json:"votes"`
	Revealed    bool            `json:"revealed"`
	Version     int64           `json:"version"`
	LastUpdated time.Time       `json:"last_updated"`
}

// DefaultSessionState returns the zero-value session: version 0, no
// ticket, no votes. Sessions are created lazily on first read.
func DefaultSessionState() *SessionState {
	return &SessionState{
		Votes: make(map[string]Vote),
	}
}

// Clone returns a deep copy. State-transition functions operate on
// clones so a failed mutation never leaves the stored state half-edited.
func (s *SessionState) Clone() *SessionState {
	c := *s
	c.Votes = make(map[string]Vote, len(s.Votes))
	for user, v := range s.Votes {
		c.Votes[user] = v
	}
	if s.Ticket != nil {
		t := *s.Ticket
		c.Ticket = &t
	}
	return &c
}

// PresenceEntry tracks one live transport connection. User is bound
// lazily the first time that connection casts a vote.
type PresenceEntry struct {
	ConnectionID   string    `json:"connection_id"`
	ConnectedAt    time.Time `json:"connected_at"`
	LastSeen       time.Time `json:"last_seen"`
	HeartbeatCount int64     `json:"heartbeat_count"`
	User           string    `json:"user,omitempty"`
}

// Stale reports whether the entry has not been seen within ttl of now.
func (e PresenceEntry) Stale(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.LastSeen) > ttl
}
