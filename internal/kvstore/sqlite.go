package kvstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sync"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/pageboot/internal/errors"
)

// SQLite stores keys in a single table.
// Use ":memory:" for an in-memory database, or a file path for persistence.
type SQLite struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLite opens (and if needed creates) the database at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStorage, "open sqlite database").
			WithContext("path", path).Build()
	}
	if path == ":memory:" {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &SQLite{db: db}
	if err := s.initialize(ctx); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, errors.WrapError(err, errors.CategoryStorage, "initialize schema").
			WithContext("path", path).Build()
	}
	return s, nil
}

func (s *SQLite) initialize(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS session_values (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (unixepoch())
	);`)
	return err
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM session_values WHERE key = ?", key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WrapError(err, errors.CategoryStorage, "query session value").
			WithContext("key", key).Build()
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO session_values (key, value, updated_at) VALUES (?, ?, unixepoch())
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryStorage, "store session value").
			WithContext("key", key).Build()
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
