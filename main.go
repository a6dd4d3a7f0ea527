// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gstrauss42/planning-poker/broadcast"
	"github.com/gstrauss42/planning-poker/cliparse"
	"github.com/gstrauss42/planning-poker/engine"
	"github.com/gstrauss42/planning-poker/health"
	"github.com/gstrauss42/planning-poker/lock"
	"github.com/gstrauss42/planning-poker/presence"
	"github.com/gstrauss42/planning-poker/router"
	"github.com/gstrauss42/planning-poker/store"
	"github.com/gstrauss42/planning-poker/ticket"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the coordination store. Construction succeeds even
	// when the store is down; the engine starts degraded and recovers.
	coord, err := store.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("coordination store configuration invalid", "error", err)
		os.Exit(1)
	}
	defer coord.Close()

	// Degraded fallback: file-backed when a path is configured so the
	// fallback survives restarts, in-memory otherwise.
	var degraded store.KV
	if cfg.DegradedPath != "" {
		sqliteStore, err := store.NewSQLiteStore(cfg.DegradedPath)
		if err != nil {
			slog.Error("degraded store open failed", "error", err, "path", cfg.DegradedPath)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		degraded = sqliteStore
		slog.Info("degraded store ready", "path", cfg.DegradedPath)
	} else {
		degraded = store.NewMemoryStore()
	}

	// Wire the engine and its collaborators
	registry := presence.NewRegistry(coord, degraded, presence.Config{EntryTTL: cfg.PresenceTTL})
	dispatcher := broadcast.NewDispatcher(broadcast.Config{RetryDelay: cfg.BroadcastRetry})
	lk := lock.NewWithTTL(coord, cfg.LockTTL)
	eng := engine.New(coord, degraded, lk, registry, dispatcher, engine.Config{StateTTL: cfg.StateTTL})
	monitor := health.NewMonitor(eng, registry, coord, health.Config{
		Interval: cfg.HealthInterval,
		Floor:    cfg.HealthFloor,
	})

	registry.Start(ctx)
	monitor.Start(ctx)

	var fetcher ticket.Fetcher
	if cfg.TicketBaseURL != "" {
		fetcher = ticket.NewHTTPFetcher(cfg.TicketBaseURL)
		slog.Info("ticket importer configured", "base_url", cfg.TicketBaseURL)
	}

	// Create router
	mux := router.NewRouter(eng, registry, dispatcher, monitor, fetcher)

	// Create server
	server := http.Server{
		Handler: mux,
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		cancel()
		dispatcher.Close()
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
