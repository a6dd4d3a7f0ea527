// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    expires_at INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteStore is a file-backed degraded store. Unlike MemoryStore it
// survives a process restart, which matters when the coordination store
// outage outlives the process. Same contract, same caveat: no
// cross-process visibility guarantees.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the key-value database at path.
// Safe to call on an existing file - schema creation uses IF NOT EXISTS.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open degraded store: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create degraded store schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT value, expires_at FROM kv WHERE key = ?
	`, key).Scan(&value, &expiresAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("degraded store get %s: %w", key, err)
	}

	if expiresAt > 0 && expiresAt <= time.Now().UnixMilli() {
		// Expired. Removal here is opportunistic; a failed delete just
		// leaves the row for the next read.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
		return nil, ErrNotFound
	}

	return value, nil
}

func (s *SQLiteStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixMilli()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("degraded store set %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("degraded store delete %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
