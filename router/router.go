// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/gstrauss42/planning-poker/broadcast"
	"github.com/gstrauss42/planning-poker/engine"
	"github.com/gstrauss42/planning-poker/handlers"
	"github.com/gstrauss42/planning-poker/health"
	"github.com/gstrauss42/planning-poker/middleware"
	"github.com/gstrauss42/planning-poker/presence"
	"github.com/gstrauss42/planning-poker/ticket"
)

func NewRouter(eng *engine.Engine, reg *presence.Registry, disp *broadcast.Dispatcher, mon *health.Monitor, fetcher ticket.Fetcher) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(eng, fetcher, mon)
	wsHandler := handlers.NewWSHandler(eng, reg, disp)

	// Health check
	mux.HandleFunc("GET /health", sessionHandler.Health)

	// Session mutations
	mux.HandleFunc("POST /session/ticket", middleware.WithLogging(sessionHandler.SetTicket))
	mux.HandleFunc("POST /session/vote", middleware.WithLogging(sessionHandler.Vote))
	mux.HandleFunc("POST /session/reveal", middleware.WithLogging(sessionHandler.Reveal))
	mux.HandleFunc("POST /session/clear", middleware.WithLogging(sessionHandler.Clear))
	mux.HandleFunc("POST /session/reset", middleware.WithLogging(sessionHandler.Reset))

	// State query
	mux.HandleFunc("GET /session/state", middleware.WithLogging(sessionHandler.State))

	// Change-notification channel; no logging wrapper, connections are
	// long-lived and would log a single entry hours later
	mux.HandleFunc("GET /session/ws", wsHandler.Connect)

	// Root endpoint; {$} keeps it off every other GET path so unmatched
	// methods still get their 405
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("planning-poker API v1"))
	})

	return mux
}
