// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package presence

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gstrauss42/planning-poker/models"
	"github.com/gstrauss42/planning-poker/store"
)

const (
	// DefaultEntryTTL is how long a connection stays counted without a
	// heartbeat.
	DefaultEntryTTL = 60 * time.Second

	// DefaultKeyTTL bounds the lifetime of the presence map itself.
	DefaultKeyTTL = 2 * time.Hour

	// DefaultSweepInterval is the period of the background staleness
	// sweeper started by Start.
	DefaultSweepInterval = 15 * time.Second
)

// Registry tracks live connections independently of session state. The
// presence map is persisted as a single key in whichever store is
// currently active, so presence survives a process restart while the
// coordination store is up.
//
// Presence updates do not go through the distributed lock: they are
// counter-style, non-conflicting writes, and losing one heartbeat to a
// race costs nothing - the next heartbeat repairs it.
type Registry struct {
	coord    store.Coordination
	degraded store.KV

	entryTTL      time.Duration
	keyTTL        time.Duration
	sweepInterval time.Duration

	mu       sync.Mutex
	lastConn string // most recently added connection, for lazy user binding
}

// Config tunes the registry. Zero fields take defaults.
type Config struct {
	EntryTTL      time.Duration
	KeyTTL        time.Duration
	SweepInterval time.Duration
}

// NewRegistry builds a registry over the coordination store and the
// degraded fallback.
func NewRegistry(coord store.Coordination, degraded store.KV, cfg Config) *Registry {
	if cfg.EntryTTL <= 0 {
		cfg.EntryTTL = DefaultEntryTTL
	}
	if cfg.KeyTTL <= 0 {
		cfg.KeyTTL = DefaultKeyTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	return &Registry{
		coord:         coord,
		degraded:      degraded,
		entryTTL:      cfg.EntryTTL,
		keyTTL:        cfg.KeyTTL,
		sweepInterval: cfg.SweepInterval,
	}
}

// Start runs the periodic staleness sweeper until ctx is cancelled.
// Sweeping also happens on connect, disconnect and count reads; the
// background task keeps the map bounded when request traffic stops.
func (r *Registry) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(ctx)
			}
		}
	}()
}

// AddConnection records a new live connection.
func (r *Registry) AddConnection(ctx context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.load(ctx)
	r.sweepLocked(entries)

	now := time.Now()
	entries[id] = models.PresenceEntry{
		ConnectionID: id,
		ConnectedAt:  now,
		LastSeen:     now,
	}
	r.lastConn = id
	r.save(ctx, entries)
}

// RemoveConnection drops a connection on disconnect.
func (r *Registry) RemoveConnection(ctx context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.load(ctx)
	delete(entries, id)
	r.sweepLocked(entries)
	r.save(ctx, entries)
}

// Heartbeat refreshes a connection's liveness. An expired or unknown
// connection is re-added rather than erroring: clients that were swept
// while idle come back on their next beat.
func (r *Registry) Heartbeat(ctx context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.load(ctx)
	now := time.Now()

	e, ok := entries[id]
	if !ok {
		e = models.PresenceEntry{ConnectionID: id, ConnectedAt: now}
	}
	e.LastSeen = now
	e.HeartbeatCount++
	entries[id] = e
	r.save(ctx, entries)
}

// AssociateUser binds a participant name to a connection, used later
// for presence-based vote pruning. An empty connection ID binds the
// most recently added connection - the vote endpoint does not always
// know which transport connection the voter arrived on.
func (r *Registry) AssociateUser(ctx context.Context, connID, user string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if connID == "" {
		connID = r.lastConn
	}
	if connID == "" {
		return
	}

	entries := r.load(ctx)
	e, ok := entries[connID]
	if !ok {
		return
	}
	e.User = user
	entries[connID] = e
	r.save(ctx, entries)
}

// ConnectedCount returns the number of live connections after a
// staleness sweep.
func (r *Registry) ConnectedCount(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.load(ctx)
	if r.sweepLocked(entries) > 0 {
		r.save(ctx, entries)
	}
	return len(entries)
}

// ActiveUsers returns the set of participant names bound to live
// connections.
func (r *Registry) ActiveUsers(ctx context.Context) map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.load(ctx)
	r.sweepLocked(entries)

	users := make(map[string]struct{})
	for _, e := range entries {
		if e.User != "" {
			users[e.User] = struct{}{}
		}
	}
	return users
}

// Snapshot returns a copy of the live presence map.
func (r *Registry) Snapshot(ctx context.Context) map[string]models.PresenceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.load(ctx)
	r.sweepLocked(entries)
	return entries
}

// Sweep removes stale entries and persists the result when anything
// was dropped. Returns the number of entries removed.
func (r *Registry) Sweep(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.load(ctx)
	removed := r.sweepLocked(entries)
	if removed > 0 {
		slog.Info("presence sweep removed stale connections", "removed", removed, "remaining", len(entries))
		r.save(ctx, entries)
	}
	return removed
}

// Clear removes the presence map from both stores. Used by the hard
// session reset.
func (r *Registry) Clear(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.coord.Delete(ctx, store.PresenceKey); err != nil {
		slog.Warn("failed to clear presence from coordination store", "error", err)
	}
	if err := r.degraded.Delete(ctx, store.PresenceKey); err != nil {
		slog.Warn("failed to clear presence from degraded store", "error", err)
	}
	r.lastConn = ""
}

// sweepLocked removes stale entries from the map in place. Caller holds
// the mutex.
func (r *Registry) sweepLocked(entries map[string]models.PresenceEntry) int {
	now := time.Now()
	removed := 0
	for id, e := range entries {
		if e.Stale(now, r.entryTTL) {
			delete(entries, id)
			removed++
		}
	}
	return removed
}

// activeStore picks the coordination store when it is answering probes,
// otherwise the degraded fallback.
func (r *Registry) activeStore() store.KV {
	if r.coord.Available() {
		return r.coord
	}
	return r.degraded
}

// load reads the presence map from the active store. Absence and
// corruption both yield an empty map; corruption is logged loudly since
// it silently discards presence data.
func (r *Registry) load(ctx context.Context) map[string]models.PresenceEntry {
	entries := make(map[string]models.PresenceEntry)

	raw, err := r.activeStore().Get(ctx, store.PresenceKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("presence read failed, treating as empty", "error", err)
		}
		return entries
	}

	if err := json.Unmarshal(raw, &entries); err != nil {
		slog.Error("presence map corrupt, resetting to empty", "error", err)
		return make(map[string]models.PresenceEntry)
	}
	return entries
}

// save writes the presence map back to the active store. Best-effort:
// a failed write costs at most one heartbeat of staleness.
func (r *Registry) save(ctx context.Context, entries map[string]models.PresenceEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		slog.Error("failed to marshal presence map", "error", err)
		return
	}
	if err := r.activeStore().SetWithTTL(ctx, store.PresenceKey, raw, r.keyTTL); err != nil {
		slog.Warn("presence write failed", "error", err)
	}
}
