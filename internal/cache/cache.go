// Package cache keeps ledger object metadata (initial shared versions,
// obligation ids) in a small sqlite file so repeated runs skip lookups.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

const lockTimeout = 5 * time.Second

type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	lock *flock.Flock
	now  func() time.Time
}

// Entry describes one cached value.
type Entry struct {
	Key       string
	Value     []byte
	StoredAt  time.Time
	ExpiresAt time.Time
}

func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

func Open(path, lockPath string) (*Store, error) {
	for _, dir := range []string{filepath.Dir(path), filepath.Dir(lockPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open object cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS objects (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			stored_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_objects_expires ON objects(expires_at);",
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init object cache schema: %w", err)
		}
	}

	store := &Store{db: db, lock: flock.New(lockPath), now: time.Now}
	_, _ = store.Prune()
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Lookup returns the value under key when present and unexpired.
func (s *Store) Lookup(key string) ([]byte, bool, error) {
	entry, ok, err := s.Entry(key)
	if err != nil || !ok {
		return nil, false, err
	}
	if entry.Expired(s.now()) {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Entry returns the raw row for key, expired or not.
func (s *Store) Entry(key string) (Entry, bool, error) {
	if s == nil || s.db == nil {
		return Entry{}, false, nil
	}
	var (
		value           []byte
		stored, expires int64
	)
	err := s.db.QueryRow("SELECT value, stored_at, expires_at FROM objects WHERE key = ?", key).Scan(&value, &stored, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("object cache read: %w", err)
	}
	return Entry{
		Key:       key,
		Value:     value,
		StoredAt:  time.UnixMilli(stored).UTC(),
		ExpiresAt: time.UnixMilli(expires).UTC(),
	}, true, nil
}

// Set stores value under key for ttl. Non-positive ttls store for one second.
func (s *Store) Set(key string, value []byte, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("object cache key is required")
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return s.withLock(func() error {
		now := s.now().UTC()
		_, err := s.db.Exec(`
			INSERT INTO objects (key, value, stored_at, expires_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value=excluded.value,
				stored_at=excluded.stored_at,
				expires_at=excluded.expires_at
		`, key, value, now.UnixMilli(), now.Add(ttl).UnixMilli())
		if err != nil {
			return fmt.Errorf("object cache write: %w", err)
		}
		return nil
	})
}

// Delete drops every key with the given prefix and returns how many went.
func (s *Store) Delete(prefix string) (int64, error) {
	var removed int64
	err := s.withLock(func() error {
		res, err := s.db.Exec("DELETE FROM objects WHERE substr(key, 1, ?) = ?", len(prefix), prefix)
		if err != nil {
			return fmt.Errorf("object cache delete: %w", err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	return removed, err
}

// Prune removes expired rows.
func (s *Store) Prune() (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res, err := s.db.Exec("DELETE FROM objects WHERE expires_at <= ?", s.now().UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune object cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock object cache: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock object cache: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}
