// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreGetSetDelete(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if _, err := st.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing key, got %v", err)
	}

	if err := st.SetWithTTL(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("SetWithTTL failed: %v", err)
	}
	val, err := st.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "v" {
		t.Errorf("Expected %q, got %q", "v", val)
	}

	if err := st.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := st.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if err := st.SetWithTTL(ctx, "k", []byte("v"), 20*time.Millisecond); err != nil {
		t.Fatalf("SetWithTTL failed: %v", err)
	}

	if _, err := st.Get(ctx, "k"); err != nil {
		t.Fatalf("Expected value before expiry: %v", err)
	}

	time.Sleep(40 * time.Millisecond)

	if _, err := st.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after expiry, got %v", err)
	}
}

func TestMemoryStoreValueIsolation(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	original := []byte("value")
	if err := st.SetWithTTL(ctx, "k", original, 0); err != nil {
		t.Fatalf("SetWithTTL failed: %v", err)
	}
	original[0] = 'X'

	val, err := st.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "value" {
		t.Errorf("Stored value aliased caller's buffer: %q", val)
	}

	val[0] = 'Y'
	again, _ := st.Get(ctx, "k")
	if string(again) != "value" {
		t.Errorf("Returned value aliased stored buffer: %q", again)
	}
}
