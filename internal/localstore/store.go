// Package localstore is the on-device key/value store backing the console:
// the manually entered API key and the generation history live here.
package localstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// DefaultQuotaBytes mirrors the usual per-origin web storage budget.
const DefaultQuotaBytes = 5 << 20

var (
	ErrNotFound      = errors.New("localstore: key not found")
	ErrQuotaExceeded = errors.New("localstore: quota exceeded")
)

type Options struct {
	// Path of the SQLite file. Empty or ":memory:" keeps everything in memory.
	Path       string
	QuotaBytes int64
}

type Store struct {
	mu    sync.Mutex
	db    *sql.DB
	quota int64
}

func Open(opts Options) (*Store, error) {
	path := opts.Path
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}

	quota := opts.QuotaBytes
	if quota <= 0 {
		quota = DefaultQuotaBytes
	}

	return &Store{db: db, quota: quota}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) GetString(key string) (string, error) {
	value, err := s.Get(key)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// Set stores value under key. When the write would push the total stored
// bytes over the quota it fails with ErrQuotaExceeded and the previous
// value stays in place.
func (s *Store) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	defer tx.Rollback()

	var others int64
	if err := tx.QueryRow(`SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv WHERE key <> ?`, key).Scan(&others); err != nil {
		return fmt.Errorf("set %q: measure usage: %w", key, err)
	}
	if others+int64(len(value)) > s.quota {
		return fmt.Errorf("set %q (%d bytes): %w", key, len(value), ErrQuotaExceeded)
	}

	if _, err := tx.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, key, value); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return tx.Commit()
}

func (s *Store) SetString(key, value string) error {
	return s.Set(key, []byte(value))
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Usage returns the number of value bytes currently stored.
func (s *Store) Usage() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
