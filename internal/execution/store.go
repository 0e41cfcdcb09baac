package execution

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
)

// Store persists action records so `creek history` can show past runs.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	lock *flock.Flock
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Status ActionStatus
	Action string
	Wallet string
	RunID  string
	Limit  int
}

func OpenStore(path, lockPath string) (*Store, error) {
	for _, dir := range []string{filepath.Dir(path), filepath.Dir(lockPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create run history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	db.SetMaxOpenConns(1)

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS runs (
			action_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			intent_type TEXT NOT NULL,
			wallet TEXT NOT NULL,
			status TEXT NOT NULL,
			network TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_runs_status_updated ON runs(status, updated_at DESC);",
		"CREATE INDEX IF NOT EXISTS idx_runs_run ON runs(run_id);",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init run history schema: %w", err)
		}
	}
	return &Store{db: db, lock: flock.New(lockPath)}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Save(action Action) error {
	if strings.TrimSpace(action.ActionID) == "" {
		return fmt.Errorf("save action: missing action id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock run history: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock run history: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	payload, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	createdUnix := parseRFC3339Unix(action.CreatedAt)
	updatedUnix := parseRFC3339Unix(action.UpdatedAt)

	_, err = s.db.Exec(`
		INSERT INTO runs (action_id, run_id, intent_type, wallet, status, network, created_at, updated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(action_id) DO UPDATE SET
			status=excluded.status,
			updated_at=excluded.updated_at,
			payload=excluded.payload
	`, action.ActionID, action.RunID, action.IntentType, action.Wallet, string(action.Status), action.Network, createdUnix, updatedUnix, payload)
	if err != nil {
		return fmt.Errorf("save action: %w", err)
	}
	return nil
}

func (s *Store) Get(actionID string) (Action, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM runs WHERE action_id = ?", actionID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Action{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("action not found: %s", actionID))
		}
		return Action{}, fmt.Errorf("read action: %w", err)
	}
	var action Action
	if err := json.Unmarshal(payload, &action); err != nil {
		return Action{}, fmt.Errorf("decode action payload: %w", err)
	}
	return action, nil
}

// List returns matching records, most recently updated first.
func (s *Store) List(filter Filter) ([]Action, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	var (
		clauses []string
		args    []any
	)
	add := func(column, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		clauses = append(clauses, column+" = ?")
		args = append(args, strings.TrimSpace(value))
	}
	add("status", string(filter.Status))
	add("intent_type", filter.Action)
	add("wallet", filter.Wallet)
	add("run_id", filter.RunID)

	query := "SELECT payload FROM runs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY updated_at DESC, created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	actions := make([]Action, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan action row: %w", err)
		}
		var action Action
		if err := json.Unmarshal(payload, &action); err != nil {
			return nil, fmt.Errorf("decode action row: %w", err)
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action rows: %w", err)
	}
	return actions, nil
}

func parseRFC3339Unix(v string) int64 {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Now().UTC().Unix()
	}
	return t.UTC().Unix()
}
