// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package settings persists user-editable settings in a small SQLite database.
// The store is read independently by the foreground controller and the
// background hook, so edits take effect in both without shared memory.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// KeyAPIURL is the settings key holding the configured endpoint URL.
const KeyAPIURL = "apiUrl"

// ErrNotSet is returned when a requested setting has never been written.
var ErrNotSet = errors.New("setting is not set")

// Store wraps the SQLite database connection and schema lifecycle.
type Store struct {
	db *sql.DB
}

// Open initializes the database connection, creating directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create settings directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InitSchema ensures the settings table exists.
func (s *Store) InitSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	);`
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create settings table: %w", err)
	}
	return nil
}

// Get returns the persisted value for key or ErrNotSet if it was never written.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotSet
	}
	if err != nil {
		return "", fmt.Errorf("read setting %q: %w", key, err)
	}
	return value, nil
}

// Set persists the value for key immediately, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	stmt := `INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, stmt, key, value); err != nil {
		return fmt.Errorf("write setting %q: %w", key, err)
	}
	return nil
}

// APIURL returns the persisted endpoint URL. A missing value returns an empty
// string without an error, since an unset endpoint is a regular state the
// controller guards against.
func (s *Store) APIURL(ctx context.Context) (string, error) {
	url, err := s.Get(ctx, KeyAPIURL)
	if errors.Is(err, ErrNotSet) {
		return "", nil
	}
	return url, err
}

// SetAPIURL persists an endpoint URL edit.
func (s *Store) SetAPIURL(ctx context.Context, url string) error {
	return s.Set(ctx, KeyAPIURL, url)
}
