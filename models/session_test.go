// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestVoteUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Vote
		wantErr bool
	}{
		{
			name:  "numeric vote",
			input: `5`,
			want:  NumericVote(5),
		},
		{
			name:  "fractional vote",
			input: `0.5`,
			want:  NumericVote(0.5),
		},
		{
			name:  "unsure marker",
			input: `"unsure"`,
			want:  UnsureVote(),
		},
		{
			name:    "arbitrary string rejected",
			input:   `"five"`,
			wantErr: true,
		},
		{
			name:    "negative rejected",
			input:   `-1`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Vote
			err := json.Unmarshal([]byte(tt.input), &v)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for input %s", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if v != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, v)
			}
		})
	}
}

func TestVoteMarshalUnsure(t *testing.T) {
	raw, err := json.Marshal(UnsureVote())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(raw) != `"unsure"` {
		t.Errorf("Expected \"unsure\", got %s", raw)
	}
}

func TestSessionStateClone(t *testing.T) {
	st := DefaultSessionState()
	st.Ticket = &Ticket{Key: "PROJ-1", Title: "Initial"}
	st.Votes["alice"] = NumericVote(3)
	st.Version = 7

	clone := st.Clone()
	clone.Votes["bob"] = NumericVote(5)
	clone.Ticket.Title = "Changed"
	clone.Version = 8

	if len(st.Votes) != 1 {
		t.Errorf("Clone mutation leaked into original votes: %v", st.Votes)
	}
	if st.Ticket.Title != "Initial" {
		t.Errorf("Clone mutation leaked into original ticket: %q", st.Ticket.Title)
	}
	if st.Version != 7 {
		t.Errorf("Clone mutation leaked into original version: %d", st.Version)
	}
}

func TestPresenceEntryStale(t *testing.T) {
	now := time.Now()
	e := PresenceEntry{ConnectionID: "c1", LastSeen: now.Add(-90 * time.Second)}

	if !e.Stale(now, 60*time.Second) {
		t.Error("Expected entry last seen 90s ago to be stale with a 60s TTL")
	}
	if e.Stale(now, 2*time.Minute) {
		t.Error("Expected entry last seen 90s ago to be live with a 2m TTL")
	}
}
