// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// credentialKey is the row holding the session credential.
const credentialKey = "token"

const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore keeps the credential in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	tracker
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), credentialDirPerm); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer is all a single-row store needs.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if err := os.Chmod(cleanPath, credentialFilePerm); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("restrict database permissions: %w", err)
	}
	return &SQLiteStore{db: db, path: cleanPath}, nil
}

// Path implements Watchable.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Load implements CredentialStore.
func (s *SQLiteStore) Load(ctx context.Context) (string, error) {
	credential, err := s.read(ctx)
	if err != nil {
		return "", err
	}
	s.observe(credential, credential != "")
	if credential == "" {
		return "", ErrNoCredential
	}
	return credential, nil
}

func (s *SQLiteStore) read(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE key = ?`, credentialKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	return strings.TrimSpace(value), nil
}

// Save implements CredentialStore.
func (s *SQLiteStore) Save(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ErrEmptyCredential
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		credentialKey, credential, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	s.observe(credential, true)
	return nil
}

// Delete implements CredentialStore.
func (s *SQLiteStore) Delete(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, credentialKey); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	s.observe("", false)
	return nil
}

// UpdatedAt returns when the credential was last saved.
func (s *SQLiteStore) UpdatedAt(ctx context.Context) (time.Time, error) {
	var millis int64
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM credentials WHERE key = ?`, credentialKey).Scan(&millis)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNoCredential
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read credential timestamp: %w", err)
	}
	return time.UnixMilli(millis).UTC(), nil
}

// Refresh implements Watchable.
func (s *SQLiteStore) Refresh(ctx context.Context) (Change, bool, error) {
	credential, err := s.read(ctx)
	if err != nil {
		return Change{}, false, err
	}
	change := Change{Credential: credential, Present: credential != ""}
	return change, s.observe(change.Credential, change.Present), nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
