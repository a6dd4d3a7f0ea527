// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gstrauss42/planning-poker/engine"
	"github.com/gstrauss42/planning-poker/presence"
	"github.com/gstrauss42/planning-poker/store"
)

const (
	DefaultInterval        = 30 * time.Second
	DefaultFloor           = 25
	DefaultStalenessWindow = 30 * time.Minute
	DefaultLatencyBudget   = 250 * time.Millisecond
)

// Penalty per detected issue category. Deducted from a base of 100.
const (
	penaltyUnreachable   = 30
	penaltySlowPing      = 10
	penaltyIntegrity     = 25
	penaltyCountMismatch = 10
	penaltyStaleSession  = 15
	penaltyStalePresence = 5
)

// Monitor probes store health, validates state invariants and triggers
// auto-remediation on its own timer, independent of request traffic.
type Monitor struct {
	engine   *engine.Engine
	registry *presence.Registry
	store    store.Coordination

	interval        time.Duration
	floor           int
	stalenessWindow time.Duration
	latencyBudget   time.Duration

	score     atomic.Int64
	lowStreak int // only touched by the run loop
}

// Config tunes the monitor. Zero fields take defaults.
type Config struct {
	Interval        time.Duration
	Floor           int
	StalenessWindow time.Duration
	LatencyBudget   time.Duration
}

// Report is the outcome of one health check.
type Report struct {
	Score          int           `json:"score"`
	Issues         []string      `json:"issues,omitempty"`
	StoreAvailable bool          `json:"store_available"`
	PingLatency    time.Duration `json:"ping_latency_ns"`
	CheckedAt      time.Time     `json:"checked_at"`
}

func NewMonitor(eng *engine.Engine, reg *presence.Registry, st store.Coordination, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Floor <= 0 {
		cfg.Floor = DefaultFloor
	}
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = DefaultStalenessWindow
	}
	if cfg.LatencyBudget <= 0 {
		cfg.LatencyBudget = DefaultLatencyBudget
	}

	m := &Monitor{
		engine:          eng,
		registry:        reg,
		store:           st,
		interval:        cfg.Interval,
		floor:           cfg.Floor,
		stalenessWindow: cfg.StalenessWindow,
		latencyBudget:   cfg.LatencyBudget,
	}
	m.score.Store(100)
	eng.SetHealthSource(m.Score)
	return m
}

// Score returns the most recent 0-100 health score.
func (m *Monitor) Score() int {
	return int(m.score.Load())
}

// Start runs checks on a fixed interval until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.tick(ctx)
			}
		}
	}()
}

// tick runs one check and applies the floor remediation: two
// consecutive checks below the floor trigger a hard reset. A single bad
// check can be a transient blip; two in a row is a stuck session.
func (m *Monitor) tick(ctx context.Context) {
	report := m.CheckNow(ctx)

	if report.Score < m.floor {
		m.lowStreak++
	} else {
		m.lowStreak = 0
	}

	if m.lowStreak >= 2 {
		slog.Error("health below floor on consecutive checks, performing hard reset",
			"score", report.Score, "floor", m.floor, "issues", report.Issues)
		m.engine.ClearAll(ctx)
		m.lowStreak = 0
	}
}

// CheckNow runs every check once and returns the scored report. The
// stale-presence remediation (a sweep) runs as part of the check.
func (m *Monitor) CheckNow(ctx context.Context) Report {
	report := Report{Score: 100, CheckedAt: time.Now()}

	// Sweep first and keep the count: every presence read below sweeps
	// on its own, so a later sweep would always find nothing.
	swept := m.registry.Sweep(ctx)

	start := time.Now()
	err := m.store.Ping(ctx)
	report.PingLatency = time.Since(start)
	report.StoreAvailable = err == nil

	switch {
	case err != nil:
		report.Score -= penaltyUnreachable
		report.Issues = append(report.Issues, "coordination store unreachable")
	case report.PingLatency > m.latencyBudget:
		report.Score -= penaltySlowPing
		report.Issues = append(report.Issues,
			fmt.Sprintf("coordination store slow: ping took %s", report.PingLatency))
	}

	if violations := m.engine.ValidateStateIntegrity(ctx); len(violations) > 0 {
		report.Score -= penaltyIntegrity
		report.Issues = append(report.Issues, violations...)
	}

	st := m.engine.GetState(ctx)
	connected := m.registry.ConnectedCount(ctx)
	if report.StoreAvailable && len(st.Votes) > connected && connected > 0 {
		report.Score -= penaltyCountMismatch
		report.Issues = append(report.Issues,
			fmt.Sprintf("%d votes but only %d connected participants", len(st.Votes), connected))
	}

	if len(st.Votes) > 0 && !st.LastUpdated.IsZero() && time.Since(st.LastUpdated) > m.stalenessWindow {
		report.Score -= penaltyStaleSession
		report.Issues = append(report.Issues,
			fmt.Sprintf("session stale: no update for %s", time.Since(st.LastUpdated).Round(time.Minute)))
	}

	if swept > 0 {
		report.Score -= penaltyStalePresence
		report.Issues = append(report.Issues,
			fmt.Sprintf("swept %d stale presence entries", swept))
	}

	if report.Score < 0 {
		report.Score = 0
	}
	m.score.Store(int64(report.Score))

	if len(report.Issues) > 0 {
		slog.Warn("health check found issues", "score", report.Score, "issues", report.Issues)
	}
	return report
}
