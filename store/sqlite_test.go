// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newSQLiteStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "degraded.db")
	st, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, path
}

func TestSQLiteStoreGetSetDelete(t *testing.T) {
	st, _ := newSQLiteStore(t)
	ctx := context.Background()

	if _, err := st.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing key, got %v", err)
	}

	if err := st.SetWithTTL(ctx, "k", []byte("v1"), 0); err != nil {
		t.Fatalf("SetWithTTL failed: %v", err)
	}

	// Overwrite
	if err := st.SetWithTTL(ctx, "k", []byte("v2"), 0); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	val, err := st.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "v2" {
		t.Errorf("Expected %q, got %q", "v2", val)
	}

	if err := st.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := st.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestSQLiteStoreTTLExpiry(t *testing.T) {
	st, _ := newSQLiteStore(t)
	ctx := context.Background()

	if err := st.SetWithTTL(ctx, "k", []byte("v"), 20*time.Millisecond); err != nil {
		t.Fatalf("SetWithTTL failed: %v", err)
	}

	time.Sleep(40 * time.Millisecond)

	if _, err := st.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after expiry, got %v", err)
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	st, path := newSQLiteStore(t)
	ctx := context.Background()

	if err := st.SetWithTTL(ctx, "k", []byte("persisted"), time.Hour); err != nil {
		t.Fatalf("SetWithTTL failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	val, err := reopened.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(val) != "persisted" {
		t.Errorf("Expected %q, got %q", "persisted", val)
	}
}
