// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gstrauss42/planning-poker/engine"
	"github.com/gstrauss42/planning-poker/health"
	"github.com/gstrauss42/planning-poker/middleware"
	"github.com/gstrauss42/planning-poker/models"
	"github.com/gstrauss42/planning-poker/ticket"
)

type SessionHandler struct {
	engine  *engine.Engine
	fetcher ticket.Fetcher // nil when no importer is configured
	monitor *health.Monitor
}

func NewSessionHandler(eng *engine.Engine, fetcher ticket.Fetcher, monitor *health.Monitor) *SessionHandler {
	return &SessionHandler{engine: eng, fetcher: fetcher, monitor: monitor}
}

// SetTicket handles POST /session/ticket
func (h *SessionHandler) SetTicket(w http.ResponseWriter, r *http.Request) {
	var req models.SetTicketRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Key == "" && req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "key or title is required")
		return
	}

	t := &models.Ticket{Key: req.Key, Title: req.Title}
	if req.Fetch {
		if h.fetcher == nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "ticket import is not configured")
			return
		}
		imported, err := h.fetcher.Fetch(r.Context(), req.Key)
		if err != nil {
			slog.Error("ticket import failed", "key", req.Key, "error", err)
			middleware.ErrorResponse(w, http.StatusBadGateway, "Ticket import failed")
			return
		}
		t = imported
		if req.Title != "" {
			t.Title = req.Title
		}
	}

	st, err := h.engine.SetTicket(r.Context(), t)
	if err != nil {
		slog.Error("failed to set ticket", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to set ticket")
		return
	}

	slog.Info("ticket set", "key", t.Key, "version", st.Version)
	middleware.JSONResponse(w, http.StatusOK, models.MutationResponse{
		Version: st.Version,
		Message: "Ticket set, votes cleared",
	})
}

// Vote handles POST /session/vote
func (h *SessionHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.User == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "user is required")
		return
	}

	st, err := h.engine.AddVote(r.Context(), req.User, req.Vote, req.ExpectedVersion)
	if err != nil {
		h.writeMutationError(w, err, "Failed to add vote")
		return
	}

	slog.Info("vote added", "user", req.User, "version", st.Version)
	middleware.JSONResponse(w, http.StatusOK, models.MutationResponse{
		Version: st.Version,
		Message: "Vote recorded",
	})
}

// Reveal handles POST /session/reveal
func (h *SessionHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	var req models.RevealRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	st, err := h.engine.RevealVotes(r.Context(), req.ExpectedVersion)
	if err != nil {
		h.writeMutationError(w, err, "Failed to reveal votes")
		return
	}

	message := "Votes revealed"
	if !st.Revealed {
		message = "No votes to reveal"
	}
	middleware.JSONResponse(w, http.StatusOK, models.MutationResponse{
		Version: st.Version,
		Message: message,
	})
}

// Clear handles POST /session/clear
func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var req models.ClearRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	st, err := h.engine.ClearVotes(r.Context(), req.ExpectedVersion)
	if err != nil {
		h.writeMutationError(w, err, "Failed to clear votes")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MutationResponse{
		Version: st.Version,
		Message: "Votes cleared",
	})
}

// Reset handles POST /session/reset - the operator-facing hard reset.
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	st := h.engine.ClearAll(r.Context())
	middleware.JSONResponse(w, http.StatusOK, models.MutationResponse{
		Version: st.Version,
		Message: "Session reset",
	})
}

// State handles GET /session/state
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, h.engine.GetBroadcastState(r.Context()))
}

// Health handles GET /health. It reports the monitor's latest score
// rather than running a fresh check: health checking stays decoupled
// from request traffic.
func (h *SessionHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"health_score": h.monitor.Score(),
	})
}

// writeMutationError translates engine errors: version conflicts are
// user-actionable (refresh and retry), invalid input is a bad request,
// anything else is unexpected - the engine absorbs infrastructure
// failures before they get here.
func (h *SessionHandler) writeMutationError(w http.ResponseWriter, err error, fallback string) {
	var conflict *engine.VersionConflictError
	if errors.As(err, &conflict) {
		middleware.JSONResponse(w, http.StatusConflict, models.ErrorResponse{
			Error:   http.StatusText(http.StatusConflict),
			Message: conflict.Error() + "; refresh and retry",
		})
		return
	}
	if errors.Is(err, engine.ErrInvalidVote) {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	slog.Error("mutation failed", "error", err)
	middleware.ErrorResponse(w, http.StatusInternalServerError, fallback)
}
