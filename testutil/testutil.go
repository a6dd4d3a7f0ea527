// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/gstrauss42/planning-poker/broadcast"
	"github.com/gstrauss42/planning-poker/engine"
	"github.com/gstrauss42/planning-poker/lock"
	"github.com/gstrauss42/planning-poker/presence"
	"github.com/gstrauss42/planning-poker/store"
)

// NewTestStore starts an in-process Redis and returns a coordination
// store adapter connected to it. Both are cleaned up with the test.
func NewTestStore(t *testing.T) (*store.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	st, err := store.NewRedisStore(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, mr
}

// FlakyStore wraps a coordination store with a kill switch, simulating
// a backing-store outage without tearing the server down.
type FlakyStore struct {
	inner store.Coordination
	down  atomic.Bool
}

func NewFlakyStore(inner store.Coordination) *FlakyStore {
	return &FlakyStore{inner: inner}
}

// SetDown toggles the simulated outage.
func (f *FlakyStore) SetDown(down bool) {
	f.down.Store(down)
}

func (f *FlakyStore) fail(op string) error {
	return fmt.Errorf("%w: %s: forced outage", store.ErrUnavailable, op)
}

func (f *FlakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.down.Load() {
		return nil, f.fail("get")
	}
	return f.inner.Get(ctx, key)
}

func (f *FlakyStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.down.Load() {
		return f.fail("set")
	}
	return f.inner.SetWithTTL(ctx, key, value, ttl)
}

func (f *FlakyStore) Delete(ctx context.Context, key string) error {
	if f.down.Load() {
		return f.fail("del")
	}
	return f.inner.Delete(ctx, key)
}

func (f *FlakyStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if f.down.Load() {
		return false, f.fail("setnx")
	}
	return f.inner.SetIfAbsent(ctx, key, value, ttl)
}

func (f *FlakyStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if f.down.Load() {
		return nil, f.fail("keys")
	}
	return f.inner.Keys(ctx, prefix)
}

func (f *FlakyStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	if f.down.Load() {
		return 0, f.fail("ttl")
	}
	return f.inner.TTL(ctx, key)
}

func (f *FlakyStore) Ping(ctx context.Context) error {
	if f.down.Load() {
		return f.fail("ping")
	}
	return f.inner.Ping(ctx)
}

func (f *FlakyStore) Available() bool {
	if f.down.Load() {
		return false
	}
	return f.inner.Available()
}

// Fixture wires a full engine over an in-process Redis with a
// toggleable outage and an in-memory degraded store. Broadcast
// redundant re-sends are disabled; tests that exercise them build
// their own dispatcher.
type Fixture struct {
	Engine     *engine.Engine
	Registry   *presence.Registry
	Dispatcher *broadcast.Dispatcher
	Coord      *FlakyStore
	Degraded   *store.MemoryStore
	Redis      *miniredis.Miniredis
}

// FixtureConfig adjusts fixture construction. Zero values take the
// component defaults.
type FixtureConfig struct {
	PresenceTTL time.Duration
	RetryDelay  time.Duration
}

func NewFixture(t *testing.T, cfg FixtureConfig) *Fixture {
	t.Helper()

	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = -1 // disabled unless a test asks for it
	}

	redisStore, mr := NewTestStore(t)
	coord := NewFlakyStore(redisStore)
	degraded := store.NewMemoryStore()

	registry := presence.NewRegistry(coord, degraded, presence.Config{EntryTTL: cfg.PresenceTTL})
	dispatcher := broadcast.NewDispatcher(broadcast.Config{RetryDelay: cfg.RetryDelay})
	t.Cleanup(dispatcher.Close)

	eng := engine.New(coord, degraded, lock.New(coord), registry, dispatcher, engine.Config{})

	return &Fixture{
		Engine:     eng,
		Registry:   registry,
		Dispatcher: dispatcher,
		Coord:      coord,
		Degraded:   degraded,
		Redis:      mr,
	}
}

// Int64Ptr returns a pointer to v, for expected_version fields.
func Int64Ptr(v int64) *int64 {
	return &v
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
