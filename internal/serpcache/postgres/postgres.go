package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FranksOps/serpent/internal/serpcache"
)

// ensure postgresStore implements serpcache.Store
var _ serpcache.Store = (*postgresStore)(nil)
var _ serpcache.Pruner = (*postgresStore)(nil)

type postgresStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS serp_cache (
	key TEXT PRIMARY KEY,
	value BYTEA NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_serp_cache_expires ON serp_cache (expires_at);
`

// New creates a Postgres-backed serpcache.Store suitable for sharing one
// cache across scraper instances.
func New(ctx context.Context, dsn string) (serpcache.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres cache: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres cache: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}

	return &postgresStore{pool: pool}, nil
}

func (s *postgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	row := s.pool.QueryRow(ctx,
		`SELECT value FROM serp_cache WHERE key = $1 AND expires_at > now()`, key)
	if err := row.Scan(&value); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	return value, nil
}

func (s *postgresStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
	INSERT INTO serp_cache (key, value, expires_at) VALUES ($1, $2, $3)
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`
	if _, err := s.pool.Exec(ctx, query, key, value, time.Now().Add(ttl)); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func (s *postgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM serp_cache WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Prune removes expired rows; meant for a periodic maintenance task.
func (s *postgresStore) Prune(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM serp_cache WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}
