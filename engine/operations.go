// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gstrauss42/planning-poker/models"
	"github.com/gstrauss42/planning-poker/store"
)

// GetState returns the current session state from whichever store is
// active. It never fails: absence, corruption and store outages all
// resolve to a usable state.
func (e *Engine) GetState(ctx context.Context) *models.SessionState {
	if e.coord.Available() {
		if st, err := e.load(ctx, e.coord); err == nil {
			return st
		} else {
			slog.Warn("session read failed on coordination store, falling back", "error", err)
		}
	}

	st, err := e.load(ctx, e.degraded)
	if err != nil {
		slog.Error("session read failed on degraded store, serving default", "error", err)
		return models.DefaultSessionState()
	}
	return st
}

// SetTicket replaces the current ticket and starts a new round: votes
// and reveal state are cleared, since estimates for the previous ticket
// say nothing about the new one.
func (e *Engine) SetTicket(ctx context.Context, ticket *models.Ticket) (*models.SessionState, error) {
	st, changed, err := e.atomicUpdate(ctx, "set_ticket", func(s *models.SessionState) (bool, error) {
		s.Ticket = ticket
		s.Votes = make(map[string]models.Vote)
		s.Revealed = false
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		e.publish(ctx, models.ActionTicketSet, st)
	}
	return st, nil
}

// AddVote inserts or overwrites the participant's vote. A non-nil
// expectedVersion that differs from the current version fails with
// ErrVersionConflict and leaves state unchanged; the caller must
// re-read and decide again. On success the participant name is bound to
// their transport connection for later presence-based pruning.
func (e *Engine) AddVote(ctx context.Context, user string, vote models.Vote, expectedVersion *int64) (*models.SessionState, error) {
	if user == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidVote)
	}
	if !vote.Valid() {
		return nil, fmt.Errorf("%w: value must be non-negative or %q", ErrInvalidVote, models.Unsure)
	}

	st, changed, err := e.atomicUpdate(ctx, "add_vote", func(s *models.SessionState) (bool, error) {
		if err := checkVersion(s, expectedVersion); err != nil {
			return false, err
		}
		s.Votes[user] = vote
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	e.registry.AssociateUser(ctx, "", user)
	if changed {
		e.publish(ctx, models.ActionVoteAdded, st)
	}
	return st, nil
}

// RevealVotes flips the session to revealed. Revealing an empty vote
// set is rejected by design as a benign no-op: the current state comes
// back unchanged, still version-checked, with no version bump and no
// broadcast.
func (e *Engine) RevealVotes(ctx context.Context, expectedVersion *int64) (*models.SessionState, error) {
	st, changed, err := e.atomicUpdate(ctx, "reveal_votes", func(s *models.SessionState) (bool, error) {
		if err := checkVersion(s, expectedVersion); err != nil {
			return false, err
		}
		if len(s.Votes) == 0 {
			return false, nil
		}
		s.Revealed = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		e.publish(ctx, models.ActionVotesRevealed, st)
	}
	return st, nil
}

// ClearVotes resets votes and reveal state for another round on the
// same ticket.
func (e *Engine) ClearVotes(ctx context.Context, expectedVersion *int64) (*models.SessionState, error) {
	st, changed, err := e.atomicUpdate(ctx, "clear_votes", func(s *models.SessionState) (bool, error) {
		if err := checkVersion(s, expectedVersion); err != nil {
			return false, err
		}
		s.Votes = make(map[string]models.Vote)
		s.Revealed = false
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		e.publish(ctx, models.ActionVotesCleared, st)
	}
	return st, nil
}

// ClearAll is the hard reset: session state and presence are deleted
// from both stores. Used only by remediation (health floor, operator
// reset endpoint), and therefore loud.
func (e *Engine) ClearAll(ctx context.Context) *models.SessionState {
	slog.Error("performing hard session reset, all state and presence discarded")

	if err := e.coord.Delete(ctx, store.SessionKey); err != nil {
		slog.Warn("failed to delete session from coordination store", "error", err)
	}
	if err := e.degraded.Delete(ctx, store.SessionKey); err != nil {
		slog.Warn("failed to delete session from degraded store", "error", err)
	}
	e.registry.Clear(ctx)

	st := models.DefaultSessionState()
	e.publish(ctx, models.ActionSessionReset, st)
	return st
}

// GetBroadcastState builds the read-only projection handed to
// subscribers and the state endpoint: session state plus live
// connection counts and the current health score.
//
// When the coordination store is available, votes belonging to
// participants no longer present are pruned from the projection. The
// pass is skipped in degraded mode - presence tracking is unreliable
// there and pruning on it would erase valid votes - and when no user
// has been bound to a connection yet, since an empty association map is
// indistinguishable from everyone having left.
func (e *Engine) GetBroadcastState(ctx context.Context) models.BroadcastState {
	st := e.GetState(ctx)
	connected := e.registry.ConnectedCount(ctx)

	votes := make(map[string]models.Vote, len(st.Votes))
	for user, v := range st.Votes {
		votes[user] = v
	}

	if e.coord.Available() {
		if active := e.registry.ActiveUsers(ctx); len(active) > 0 {
			for user := range votes {
				if _, ok := active[user]; !ok {
					slog.Info("pruning vote from departed participant", "user", user)
					delete(votes, user)
				}
			}
		}
	}

	return models.BroadcastState{
		Ticket:         st.Ticket,
		Votes:          votes,
		Revealed:       st.Revealed,
		Version:        st.Version,
		LastUpdated:    st.LastUpdated,
		ConnectedCount: connected,
		VotedCount:     len(votes),
		HealthScore:    e.currentHealthScore(),
	}
}

// ValidateStateIntegrity checks the structural invariants of the stored
// state and returns a description of each violation found. Used by the
// health monitor.
func (e *Engine) ValidateStateIntegrity(ctx context.Context) []string {
	st := e.GetState(ctx)

	var issues []string
	if st.Revealed && len(st.Votes) == 0 {
		issues = append(issues, "revealed with no votes")
	}
	if st.Version < 0 {
		issues = append(issues, "negative version")
	}
	for user, v := range st.Votes {
		if user == "" {
			issues = append(issues, "vote with empty participant name")
		}
		if !v.Valid() {
			issues = append(issues, fmt.Sprintf("invalid vote value for %q", user))
		}
	}
	return issues
}

// publish hands the new state to the dispatcher as a full projection.
func (e *Engine) publish(ctx context.Context, changeAction string, st *models.SessionState) {
	proj := models.BroadcastState{
		Ticket:         st.Ticket,
		Votes:          st.Votes,
		Revealed:       st.Revealed,
		Version:        st.Version,
		LastUpdated:    st.LastUpdated,
		ConnectedCount: e.registry.ConnectedCount(ctx),
		VotedCount:     len(st.Votes),
		HealthScore:    e.currentHealthScore(),
	}
	e.dispatcher.Publish(changeAction, proj)
}
