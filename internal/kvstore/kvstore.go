// Package kvstore persists named project snapshots in a local SQLite
// database. Each snapshot is the project's JSON task array stored under a
// caller-chosen key together with a little metadata for listing.
package kvstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/papapumpkin/gantry/internal/task"
	"github.com/papapumpkin/gantry/internal/taskfile"
)

// ErrNotFound is returned when no snapshot exists under a key.
var ErrNotFound = errors.New("snapshot not found")

// ErrEmptyKey is returned for a blank snapshot key.
var ErrEmptyKey = errors.New("snapshot key is empty")

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    key        TEXT PRIMARY KEY,
    body       BLOB NOT NULL,
    task_count INTEGER NOT NULL,
    updated_at TEXT NOT NULL
);
`

// Meta describes a stored snapshot without its body.
type Meta struct {
	Key       string
	TaskCount int
	UpdatedAt time.Time
}

// Store is a snapshot store backed by SQLite in WAL mode.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens (or creates) the database at dbPath and ensures the schema.
func Open(ctx context.Context, dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open database: %w", err)
	}

	// SQLite has a single writer; one connection keeps PRAGMAs in effect.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvstore: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvstore: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvstore: create schema: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes tasks under key, replacing any earlier snapshot.
func (s *Store) Save(ctx context.Context, key string, tasks *task.Store) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	var body bytes.Buffer
	if err := taskfile.Encode(&body, taskfile.JSON, tasks); err != nil {
		return fmt.Errorf("kvstore: encode snapshot %q: %w", key, err)
	}

	const q = `
		INSERT INTO snapshots (key, body, task_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			body       = excluded.body,
			task_count = excluded.task_count,
			updated_at = excluded.updated_at`
	stamp := s.now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, q, key, body.Bytes(), tasks.Len(), stamp); err != nil {
		return fmt.Errorf("kvstore: save %q: %w", key, err)
	}
	return nil
}

// Load returns the snapshot stored under key.
func (s *Store) Load(ctx context.Context, key string) (*task.Store, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	var body []byte
	err = s.db.QueryRowContext(ctx, "SELECT body FROM snapshots WHERE key = ?", key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: load %q: %w", key, err)
	}
	tasks, err := taskfile.Decode(bytes.NewReader(body), taskfile.JSON)
	if err != nil {
		return nil, fmt.Errorf("kvstore: decode %q: %w", key, err)
	}
	return tasks, nil
}

// List returns metadata for every snapshot, ordered by key.
func (s *Store) List(ctx context.Context) ([]Meta, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, task_count, updated_at FROM snapshots ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("kvstore: list: %w", err)
	}
	defer rows.Close()

	var out []Meta
	for rows.Next() {
		var m Meta
		var stamp string
		if err := rows.Scan(&m.Key, &m.TaskCount, &stamp); err != nil {
			return nil, fmt.Errorf("kvstore: scan snapshot row: %w", err)
		}
		if m.UpdatedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
			return nil, fmt.Errorf("kvstore: snapshot %q timestamp: %w", m.Key, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kvstore: list: %w", err)
	}
	return out, nil
}

// Delete removes the snapshot under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("kvstore: delete %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("kvstore: delete %q: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return nil
}

func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyKey
	}
	return key, nil
}
