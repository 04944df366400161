package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/FranksOps/serpent/internal/serpcache"
	_ "modernc.org/sqlite"
)

// ensure sqliteStore implements serpcache.Store
var _ serpcache.Store = (*sqliteStore)(nil)
var _ serpcache.Pruner = (*sqliteStore)(nil)

type sqliteStore struct {
	db  *sql.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS serp_cache (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	expires_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_serp_cache_expires ON serp_cache (expires_at);
`

// New creates a SQLite-backed serpcache.Store. The file is created on
// first use, so a fresh deployment needs no migration step.
func New(dsn string) (serpcache.Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}

	return &sqliteStore{db: db, now: time.Now}, nil
}

func (s *sqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	var expiresAt time.Time

	row := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM serp_cache WHERE key = ?`, key)
	if err := row.Scan(&value, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache entry: %w", err)
	}

	if s.now().After(expiresAt) {
		// Lazy expiry; the stale row is reaped on next write or here.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM serp_cache WHERE key = ?`, key)
		return nil, nil
	}
	return value, nil
}

func (s *sqliteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
	INSERT INTO serp_cache (key, value, expires_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`
	_, err := s.db.ExecContext(ctx, query, key, value, s.now().Add(ttl))
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM serp_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Prune removes every expired row and reports how many were dropped.
func (s *sqliteStore) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM serp_cache WHERE expires_at < ?`, s.now())
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return n, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
