// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gstrauss42/planning-poker/broadcast"
	"github.com/gstrauss42/planning-poker/lock"
	"github.com/gstrauss42/planning-poker/models"
	"github.com/gstrauss42/planning-poker/presence"
	"github.com/gstrauss42/planning-poker/store"
)

// DefaultStateTTL bounds the lifetime of the session key. A session
// untouched for this long simply disappears.
const DefaultStateTTL = 2 * time.Hour

// transitionFn computes the next state in place on a clone of the
// current state. It returns false when the state should not change
// (benign no-op); domain errors (version conflict, invalid input) leave
// the stored state untouched.
type transitionFn func(*models.SessionState) (bool, error)

// Engine owns the versioned session state. All mutations funnel through
// atomicUpdate: lock, read, apply, bump version, write, release,
// publish. When the coordination store is unavailable or the lock
// cannot be acquired, the same transition runs unlocked against the
// degraded store - a documented reduction in guarantees, never a
// failed operation.
type Engine struct {
	coord      store.Coordination
	degraded   store.KV
	lock       *lock.Lock
	registry   *presence.Registry
	dispatcher *broadcast.Dispatcher

	stateTTL time.Duration

	healthScore  atomic.Pointer[func() int]
	degradedMode atomic.Bool
}

// Config tunes the engine. Zero fields take defaults.
type Config struct {
	StateTTL time.Duration
}

// New builds the engine over injected dependencies. Constructed once
// per process; there is no package-level state.
func New(coord store.Coordination, degraded store.KV, lk *lock.Lock, reg *presence.Registry, disp *broadcast.Dispatcher, cfg Config) *Engine {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultStateTTL
	}
	return &Engine{
		coord:      coord,
		degraded:   degraded,
		lock:       lk,
		registry:   reg,
		dispatcher: disp,
		stateTTL:   cfg.StateTTL,
	}
}

// SetHealthSource wires the health monitor's score into broadcast
// projections. Safe to call after construction; before wiring the
// projection reports full health.
func (e *Engine) SetHealthSource(fn func() int) {
	e.healthScore.Store(&fn)
}

// atomicUpdate is the single mutation primitive. The returned state is
// the value now stored (new on change, current on no-op); the bool
// reports whether anything changed.
func (e *Engine) atomicUpdate(ctx context.Context, name string, fn transitionFn) (*models.SessionState, bool, error) {
	if e.coord.Available() {
		if e.lock.Acquire(ctx, name) {
			st, changed, err := e.apply(ctx, e.coord, fn)
			e.lock.Release(ctx, name)

			switch {
			case err == nil:
				e.noteRecovered()
				return st, changed, nil
			case isDomainError(err):
				return nil, false, err
			default:
				slog.Warn("coordination store update failed, falling back", "operation", name, "error", err)
			}
		}
		// Lock held elsewhere past the retry budget, or the store
		// failed mid-update. Either way the degraded path serves.
	}

	e.noteDegraded(name)
	st, changed, err := e.apply(ctx, e.degraded, fn)
	if err != nil && !isDomainError(err) {
		// The degraded store is local; failures here are not an
		// availability event, they are a bug or a full disk.
		slog.Error("degraded store update failed", "operation", name, "error", err)
	}
	return st, changed, err
}

// apply runs read-validate-compute-write against one store. The
// transition operates on a clone so a domain error leaves no trace.
func (e *Engine) apply(ctx context.Context, kv store.KV, fn transitionFn) (*models.SessionState, bool, error) {
	current, err := e.load(ctx, kv)
	if err != nil {
		return nil, false, err
	}

	next := current.Clone()
	changed, err := fn(next)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return current, false, nil
	}

	next.Version = current.Version + 1
	next.LastUpdated = time.Now()

	raw, err := json.Marshal(next)
	if err != nil {
		return nil, false, err
	}
	if err := kv.SetWithTTL(ctx, store.SessionKey, raw, e.stateTTL); err != nil {
		return nil, false, err
	}
	return next, true, nil
}

// load reads session state from one store. Absence yields the default
// state; unparseable bytes are treated as absence with a loud log -
// resetting to default is the accepted recovery policy for corruption.
func (e *Engine) load(ctx context.Context, kv store.KV) (*models.SessionState, error) {
	raw, err := kv.Get(ctx, store.SessionKey)
	if errors.Is(err, store.ErrNotFound) {
		return models.DefaultSessionState(), nil
	}
	if err != nil {
		return nil, err
	}

	var st models.SessionState
	if err := json.Unmarshal(raw, &st); err != nil {
		slog.Error("session state corrupt, resetting to default", "error", err)
		return models.DefaultSessionState(), nil
	}
	if st.Votes == nil {
		st.Votes = make(map[string]models.Vote)
	}
	return &st, nil
}

// noteDegraded logs once per transition into degraded mode.
func (e *Engine) noteDegraded(operation string) {
	if e.degradedMode.CompareAndSwap(false, true) {
		slog.Warn("entering degraded mode, mutations are unserialized until the coordination store recovers",
			"operation", operation)
	}
}

// noteRecovered logs once per transition back to coordinated mode. The
// next successful coordinated write supersedes whatever the degraded
// store accumulated.
func (e *Engine) noteRecovered() {
	if e.degradedMode.CompareAndSwap(true, false) {
		slog.Info("coordination store recovered, mutations serialized again")
	}
}

// checkVersion enforces the optimistic-concurrency contract. A nil
// expected version skips the check (last write wins).
func checkVersion(st *models.SessionState, expected *int64) error {
	if expected != nil && *expected != st.Version {
		return &VersionConflictError{Expected: *expected, Current: st.Version}
	}
	return nil
}

func (e *Engine) currentHealthScore() int {
	if fn := e.healthScore.Load(); fn != nil {
		return (*fn)()
	}
	return 100
}
