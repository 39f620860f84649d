package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxSearchHistory is how many search queries are kept.
const MaxSearchHistory = 10

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("api key already stored")
	ErrEmptyKey     = errors.New("api key is empty")
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; avoids SQLITE_BUSY under concurrent HTTP requests.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS gemini_api_keys (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        api_key TEXT NOT NULL UNIQUE,
        position INTEGER NOT NULL
    );

    CREATE TABLE IF NOT EXISTS search_history (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        query TEXT NOT NULL,
        timestamp DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS conversations (
        id TEXT PRIMARY KEY, -- UUID
        label TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS conversation_turns (
        id TEXT PRIMARY KEY, -- UUID
        conversation_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'model')),
        content TEXT NOT NULL,
        timestamp DATETIME NOT NULL,
        FOREIGN KEY (conversation_id) REFERENCES conversations (id)
    );

    CREATE INDEX IF NOT EXISTS idx_turns_conversation ON conversation_turns (conversation_id);
    `
	_, err := s.db.Exec(schema)
	return err
}

// API key methods

// ListAPIKeys returns the stored keys in rotation order.
func (s *SQLiteStore) ListAPIKeys() ([]string, error) {
	rows, err := s.db.Query("SELECT api_key FROM gemini_api_keys ORDER BY position ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query api keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan api key row: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// AddAPIKey appends key to the end of the rotation order.
func (s *SQLiteStore) AddAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}

	var exists int
	err := s.db.QueryRow("SELECT COUNT(*) FROM gemini_api_keys WHERE api_key = ?", key).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check api key: %w", err)
	}
	if exists > 0 {
		return ErrDuplicateKey
	}

	_, err = s.db.Exec(
		"INSERT INTO gemini_api_keys (api_key, position) VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM gemini_api_keys))",
		key,
	)
	if err != nil {
		return fmt.Errorf("failed to insert api key: %w", err)
	}
	return nil
}

// RemoveAPIKey deletes the key at index and closes the gap in the order.
func (s *SQLiteStore) RemoveAPIKey(index int) error {
	keys, err := s.ListAPIKeys()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(keys) {
		return fmt.Errorf("api key index %d: %w", index, ErrNotFound)
	}
	return s.ReplaceAPIKeys(append(keys[:index:index], keys[index+1:]...))
}

// ReplaceAPIKeys overwrites the stored keys with keys, preserving their order.
// Blank entries are skipped and repeats keep their first position.
func (s *SQLiteStore) ReplaceAPIKeys(keys []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM gemini_api_keys"); err != nil {
		return fmt.Errorf("failed to clear api keys: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO gemini_api_keys (api_key, position) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare api key insert: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]bool, len(keys))
	position := 0
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if _, err := stmt.Exec(key, position); err != nil {
			return fmt.Errorf("failed to execute api key insert: %w", err)
		}
		position++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit api keys: %w", err)
	}
	return nil
}

// Search history methods

// RecordSearch stores query and drops everything older than the newest
// MaxSearchHistory entries.
func (s *SQLiteStore) RecordSearch(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT INTO search_history (query, timestamp) VALUES (?, ?)", query, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to insert search: %w", err)
	}
	_, err = tx.Exec(
		"DELETE FROM search_history WHERE id NOT IN (SELECT id FROM search_history ORDER BY id DESC LIMIT ?)",
		MaxSearchHistory,
	)
	if err != nil {
		return fmt.Errorf("failed to trim search history: %w", err)
	}
	return tx.Commit()
}

// SearchHistory returns up to limit entries, newest first.
func (s *SQLiteStore) SearchHistory(limit int) ([]SearchEntry, error) {
	if limit <= 0 || limit > MaxSearchHistory {
		limit = MaxSearchHistory
	}
	rows, err := s.db.Query("SELECT id, query, timestamp FROM search_history ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query search history: %w", err)
	}
	defer rows.Close()

	var entries []SearchEntry
	for rows.Next() {
		var e SearchEntry
		if err := rows.Scan(&e.ID, &e.Query, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
