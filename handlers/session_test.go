// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gstrauss42/planning-poker/health"
	"github.com/gstrauss42/planning-poker/models"
	"github.com/gstrauss42/planning-poker/testutil"
	"github.com/gstrauss42/planning-poker/ticket"
)

// stubFetcher satisfies ticket.Fetcher without a real tracker behind it.
type stubFetcher struct {
	ticket *models.Ticket
	err    error
}

func (s *stubFetcher) Fetch(ctx context.Context, key string) (*models.Ticket, error) {
	return s.ticket, s.err
}

func newTestHandler(t *testing.T, fetcher ticket.Fetcher) (*SessionHandler, *testutil.Fixture) {
	t.Helper()
	fx := testutil.NewFixture(t, testutil.FixtureConfig{})
	monitor := health.NewMonitor(fx.Engine, fx.Registry, fx.Coord, health.Config{})
	return NewSessionHandler(fx.Engine, fetcher, monitor), fx
}

func TestSetTicket(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	req := testutil.MakeRequest("POST", "/session/ticket",
		models.SetTicketRequest{Key: "PROJ-1", Title: "Add search"}, nil)
	w := httptest.NewRecorder()
	h.SetTicket(w, req)

	testutil.AssertStatus(t, w, 200)
	var resp models.MutationResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Version != 1 {
		t.Errorf("Expected version 1, got %d", resp.Version)
	}
}

func TestSetTicketRequiresKeyOrTitle(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	req := testutil.MakeRequest("POST", "/session/ticket", models.SetTicketRequest{}, nil)
	w := httptest.NewRecorder()
	h.SetTicket(w, req)

	testutil.AssertStatus(t, w, 400)
}

func TestSetTicketFetchWithoutImporter(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	req := testutil.MakeRequest("POST", "/session/ticket",
		models.SetTicketRequest{Key: "PROJ-1", Fetch: true}, nil)
	w := httptest.NewRecorder()
	h.SetTicket(w, req)

	testutil.AssertStatus(t, w, 400)
}

func TestSetTicketFetchFailure(t *testing.T) {
	h, _ := newTestHandler(t, &stubFetcher{err: errors.New("tracker down")})

	req := testutil.MakeRequest("POST", "/session/ticket",
		models.SetTicketRequest{Key: "PROJ-1", Fetch: true}, nil)
	w := httptest.NewRecorder()
	h.SetTicket(w, req)

	testutil.AssertStatus(t, w, 502)
}

func TestSetTicketFetchSuccess(t *testing.T) {
	fetched := &models.Ticket{Key: "PROJ-1", Title: "Imported title"}
	h, fx := newTestHandler(t, &stubFetcher{ticket: fetched})

	req := testutil.MakeRequest("POST", "/session/ticket",
		models.SetTicketRequest{Key: "PROJ-1", Fetch: true}, nil)
	w := httptest.NewRecorder()
	h.SetTicket(w, req)

	testutil.AssertStatus(t, w, 200)
	st := fx.Engine.GetState(context.Background())
	if st.Ticket == nil || st.Ticket.Title != "Imported title" {
		t.Errorf("Expected imported ticket stored, got %+v", st.Ticket)
	}
}

func TestVote(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	req := testutil.MakeRequest("POST", "/session/vote",
		models.VoteRequest{User: "alice", Vote: models.NumericVote(3)}, nil)
	w := httptest.NewRecorder()
	h.Vote(w, req)

	testutil.AssertStatus(t, w, 200)
	var resp models.MutationResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Version != 1 {
		t.Errorf("Expected version 1, got %d", resp.Version)
	}
}

func TestVoteUnsure(t *testing.T) {
	h, fx := newTestHandler(t, nil)

	req := testutil.MakeRequest("POST", "/session/vote",
		models.VoteRequest{User: "alice", Vote: models.UnsureVote()}, nil)
	w := httptest.NewRecorder()
	h.Vote(w, req)

	testutil.AssertStatus(t, w, 200)
	st := fx.Engine.GetState(context.Background())
	if v, ok := st.Votes["alice"]; !ok || !v.Unsure {
		t.Errorf("Expected unsure vote stored, got %+v", st.Votes)
	}
}

func TestVoteRequiresUser(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	req := testutil.MakeRequest("POST", "/session/vote",
		models.VoteRequest{Vote: models.NumericVote(3)}, nil)
	w := httptest.NewRecorder()
	h.Vote(w, req)

	testutil.AssertStatus(t, w, 400)
}

func TestVoteInvalidJSON(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	req := httptest.NewRequest("POST", "/session/vote", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Vote(w, req)

	testutil.AssertStatus(t, w, 400)
}

func TestVoteStaleVersionConflicts(t *testing.T) {
	h, fx := newTestHandler(t, nil)
	ctx := context.Background()

	if _, err := fx.Engine.AddVote(ctx, "alice", models.NumericVote(3), nil); err != nil {
		t.Fatalf("AddVote failed: %v", err)
	}

	req := testutil.MakeRequest("POST", "/session/vote",
		models.VoteRequest{User: "bob", Vote: models.NumericVote(5), ExpectedVersion: testutil.Int64Ptr(0)}, nil)
	w := httptest.NewRecorder()
	h.Vote(w, req)

	testutil.AssertStatus(t, w, 409)
	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	if !strings.Contains(resp.Message, "refresh and retry") {
		t.Errorf("Expected retry guidance in conflict message, got %q", resp.Message)
	}
}

func TestRevealWithNoVotes(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	req := testutil.MakeRequest("POST", "/session/reveal", models.RevealRequest{}, nil)
	w := httptest.NewRecorder()
	h.Reveal(w, req)

	testutil.AssertStatus(t, w, 200)
	var resp models.MutationResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Message != "No votes to reveal" {
		t.Errorf("Expected no-op reveal message, got %q", resp.Message)
	}
	if resp.Version != 0 {
		t.Errorf("Expected version unchanged, got %d", resp.Version)
	}
}

func TestRevealWithVotes(t *testing.T) {
	h, fx := newTestHandler(t, nil)

	if _, err := fx.Engine.AddVote(context.Background(), "alice", models.NumericVote(3), nil); err != nil {
		t.Fatalf("AddVote failed: %v", err)
	}

	req := testutil.MakeRequest("POST", "/session/reveal", models.RevealRequest{}, nil)
	w := httptest.NewRecorder()
	h.Reveal(w, req)

	testutil.AssertStatus(t, w, 200)
	var resp models.MutationResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Message != "Votes revealed" {
		t.Errorf("Expected reveal message, got %q", resp.Message)
	}
}

func TestClear(t *testing.T) {
	h, fx := newTestHandler(t, nil)
	ctx := context.Background()

	if _, err := fx.Engine.AddVote(ctx, "alice", models.NumericVote(3), nil); err != nil {
		t.Fatalf("AddVote failed: %v", err)
	}

	req := testutil.MakeRequest("POST", "/session/clear", models.ClearRequest{}, nil)
	w := httptest.NewRecorder()
	h.Clear(w, req)

	testutil.AssertStatus(t, w, 200)
	if votes := fx.Engine.GetState(ctx).Votes; len(votes) != 0 {
		t.Errorf("Expected votes cleared, got %v", votes)
	}
}

func TestReset(t *testing.T) {
	h, fx := newTestHandler(t, nil)
	ctx := context.Background()

	if _, err := fx.Engine.AddVote(ctx, "alice", models.NumericVote(3), nil); err != nil {
		t.Fatalf("AddVote failed: %v", err)
	}

	req := testutil.MakeRequest("POST", "/session/reset", nil, nil)
	w := httptest.NewRecorder()
	h.Reset(w, req)

	testutil.AssertStatus(t, w, 200)
	var resp models.MutationResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Version != 0 {
		t.Errorf("Expected reset to version 0, got %d", resp.Version)
	}
}

func TestState(t *testing.T) {
	h, fx := newTestHandler(t, nil)
	ctx := context.Background()

	if _, err := fx.Engine.AddVote(ctx, "alice", models.NumericVote(3), nil); err != nil {
		t.Fatalf("AddVote failed: %v", err)
	}

	req := testutil.MakeRequest("GET", "/session/state", nil, nil)
	w := httptest.NewRecorder()
	h.State(w, req)

	testutil.AssertStatus(t, w, 200)
	var state models.BroadcastState
	testutil.AssertJSON(t, w, &state)
	if state.Version != 1 {
		t.Errorf("Expected version 1, got %d", state.Version)
	}
	if state.VotedCount != 1 {
		t.Errorf("Expected voted count 1, got %d", state.VotedCount)
	}
	if state.HealthScore != 100 {
		t.Errorf("Expected health score 100, got %d", state.HealthScore)
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	req := testutil.MakeRequest("GET", "/health", nil, nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	testutil.AssertStatus(t, w, 200)
	var resp map[string]interface{}
	testutil.AssertJSON(t, w, &resp)
	if resp["status"] != "ok" {
		t.Errorf("Expected ok status, got %v", resp["status"])
	}
	if resp["health_score"] != float64(100) {
		t.Errorf("Expected health score 100, got %v", resp["health_score"])
	}
}
