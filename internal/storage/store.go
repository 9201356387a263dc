// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/deskchat-tui/internal/model"
)

// =============================================================================
// ERRORS & CONSTANTS
// =============================================================================

var (
	ErrDatabaseError = errors.New("database error")
	ErrStoreClosed   = errors.New("store closed")
)

// SessionSlot is the namespaced key holding the session collection.
// Namespacing leaves room for other client state in the same database.
const SessionSlot = "deskchat.sessions"

const schema = `
CREATE TABLE IF NOT EXISTS slots (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// =============================================================================
// STORE
// =============================================================================

// Store is a slot-keyed local database. It satisfies the dispatcher's
// Persister interface for session mirroring.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the standard database location under the user's
// home directory.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".deskchat", "deskchat.db"), nil
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// =============================================================================
// SLOT ACCESS
// =============================================================================

// Put writes one slot, replacing any previous value.
func (s *Store) Put(key string, value []byte) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	_, err := s.db.Exec(`
		INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// Get reads one slot. A missing key returns (nil, nil).
func (s *Store) Get(key string) ([]byte, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	var value []byte
	err := s.db.QueryRow("SELECT value FROM slots WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return value, nil
}

// =============================================================================
// SESSION PERSISTENCE
// =============================================================================

// Save serializes the whole session collection into the session slot.
// Transient stream state is excluded by the message serialization, so
// nothing ever loads back mid-stream.
func (s *Store) Save(sessions []*model.Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to serialize sessions: %w", err)
	}
	return s.Put(SessionSlot, data)
}

// Load reads the session collection back. Load never fails: a missing
// slot is a fresh install and a corrupt one is logged and discarded,
// both yielding an empty collection.
func (s *Store) Load() []*model.Session {
	data, err := s.Get(SessionSlot)
	if err != nil {
		log.Printf("storage: failed to read sessions: %v", err)
		return []*model.Session{}
	}
	if len(data) == 0 {
		return []*model.Session{}
	}

	var sessions []*model.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		log.Printf("storage: discarding corrupt session data: %v", err)
		return []*model.Session{}
	}
	if sessions == nil {
		sessions = []*model.Session{}
	}
	return sessions
}
