// Package serpcache caches parsed results pages keyed by query identity.
// Cache trouble is never fatal: a failed read is a miss, a failed write is
// a log line, and scraping proceeds either way.
package serpcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/FranksOps/serpent/internal/serp"
)

// DefaultTTL applies when an engine profile does not override it.
const DefaultTTL = 6 * time.Hour

// Store is a byte-oriented backend with per-entry expiry. Get returns
// (nil, nil) for a missing or expired key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Cache wraps a Store with query hashing and document encoding.
type Cache struct {
	store  Store
	logger *slog.Logger
}

// New builds a Cache over a backend. A nil logger falls back to the
// default handler.
func New(store Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, logger: logger}
}

// Key derives the cache key from the normalized query identity. Two
// queries differing only in case or surrounding whitespace share a key.
func Key(q serp.Query) string {
	n := q.Normalized()
	h := xxhash.New()
	for _, part := range []string{string(n.Engine), n.Keyword, n.Country, n.Language} {
		h.WriteString(part)
		h.Write([]byte{0})
	}
	return fmt.Sprintf("serp:%016x", h.Sum64())
}

// Get looks up a cached document. Backend errors degrade to a miss.
func (c *Cache) Get(ctx context.Context, q serp.Query) (*serp.Document, bool) {
	raw, err := c.store.Get(ctx, Key(q))
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss",
			"keyword", q.Keyword, "error", err)
		return nil, false
	}
	if raw == nil {
		return nil, false
	}
	var doc serp.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		c.logger.Warn("cache entry corrupt, treating as miss",
			"keyword", q.Keyword, "error", err)
		return nil, false
	}
	return &doc, true
}

// Set stores a document. Encoding or backend errors are absorbed.
func (c *Cache) Set(ctx context.Context, q serp.Query, doc *serp.Document, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		c.logger.Warn("cache encode failed", "keyword", q.Keyword, "error", err)
		return
	}
	if err := c.store.Set(ctx, Key(q), raw, ttl); err != nil {
		c.logger.Warn("cache write failed", "keyword", q.Keyword, "error", err)
	}
}

// Pruner is implemented by stores that can reap expired entries in bulk.
// The SQL-backed stores drop expired rows lazily on read, so long-lived
// databases need an explicit cleanup pass.
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// Prune deletes expired entries on stores that support bulk expiry and
// returns how many were removed. Stores that evict on their own (the
// in-memory LRU) report zero.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	p, ok := c.store.(Pruner)
	if !ok {
		return 0, nil
	}
	n, err := p.Prune(ctx)
	if err != nil {
		return 0, serp.CacheUnavailableError{Err: err}
	}
	return n, nil
}

// Invalidate drops a single query's entry.
func (c *Cache) Invalidate(ctx context.Context, q serp.Query) error {
	if err := c.store.Delete(ctx, Key(q)); err != nil {
		return serp.CacheUnavailableError{Err: err}
	}
	return nil
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.store.Close()
}
