// Package scrape drives keyword scrapes end to end: cache lookup,
// session handling, navigation, anti-bot arbitration and extraction.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/serpent/internal/antibot"
	"github.com/FranksOps/serpent/internal/extract"
	"github.com/FranksOps/serpent/internal/metrics"
	"github.com/FranksOps/serpent/internal/serp"
	"github.com/FranksOps/serpent/internal/serpcache"
	"github.com/FranksOps/serpent/internal/session"
	"github.com/FranksOps/serpent/pkg/ratelimit"
)

// Config provides parameters for the scrape engine.
type Config struct {
	// Workers is the fixed size of the batch worker pool.
	Workers int
	// MinInterval is the minimum spacing between navigations on one
	// worker (0 = unlimited).
	MinInterval time.Duration
	// Jitter applies randomness to the spacing (0.0 to 1.0).
	Jitter float64
	// NavTimeout bounds a single page navigation.
	NavTimeout time.Duration
	// CacheTTL overrides the per-engine cache lifetime when positive.
	CacheTTL time.Duration
	// Antibot tunes the per-session controller.
	Antibot antibot.Config
}

func (c *Config) withDefaults() {
	if c.Workers <= 0 {
		c.Workers = 3
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
}

// Engine executes keyword scrapes. The cache is optional; a nil cache
// simply means every query hits the network.
type Engine struct {
	cfg      Config
	sessions *session.Manager
	cache    *serpcache.Cache
	profiles map[serp.Engine]*extract.Profile
	logger   *slog.Logger
}

// New wires a scrape engine.
func New(cfg Config, sessions *session.Manager, cache *serpcache.Cache, logger *slog.Logger) *Engine {
	cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		sessions: sessions,
		cache:    cache,
		profiles: extract.Profiles(),
		logger:   logger,
	}
}

// ScrapeOne runs a single keyword scrape on a dedicated session.
func (e *Engine) ScrapeOne(ctx context.Context, q serp.Query) (*serp.Document, error) {
	q = q.Normalized()
	profile, err := extract.Lookup(q.Engine)
	if err != nil {
		return nil, err
	}

	if doc, ok := e.cacheGet(ctx, q); ok {
		return doc, nil
	}

	s, err := e.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Release()
	metrics.SessionsStarted.Inc()

	return e.scrapeWithSession(ctx, s, q, profile)
}

// ScrapeBatch fans a keyword list out over a fixed worker pool. Every
// distinct query ends up with exactly one outcome; a failing query never
// takes its neighbors down with it. The returned error is non-nil only
// when the whole batch was cut short by the context.
func (e *Engine) ScrapeBatch(ctx context.Context, queries []serp.Query) (*serp.BatchResult, error) {
	batch := &serp.BatchResult{
		Statuses:  make(map[serp.Query]*serp.Outcome),
		StartedAt: time.Now(),
	}

	// Duplicates collapse onto one scrape and one shared outcome.
	unique := make([]serp.Query, 0, len(queries))
	seen := make(map[serp.Query]struct{}, len(queries))
	for _, q := range queries {
		n := q.Normalized()
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}

	queue := make(chan serp.Query, len(unique))
	for _, q := range unique {
		queue <- q
	}
	close(queue)

	var mu sync.Mutex
	record := func(q serp.Query, out *serp.Outcome) {
		mu.Lock()
		batch.Statuses[q] = out
		mu.Unlock()
	}

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < e.cfg.Workers; i++ {
		g.Go(func() error {
			e.runWorker(gCtx, queue, record)
			return nil
		})
	}
	_ = g.Wait()

	// Queries stranded by cancellation still get an outcome.
	mu.Lock()
	for _, q := range unique {
		if _, ok := batch.Statuses[q]; !ok {
			batch.Statuses[q] = &serp.Outcome{
				Err:    fmt.Errorf("batch cancelled: %w", ctx.Err()),
				Reason: "cancelled",
			}
		}
	}
	mu.Unlock()

	batch.CompletedAt = time.Now()
	return batch, ctx.Err()
}

// runWorker owns at most one session at a time and paces its own
// navigations; sessions survive across queries until disposed.
func (e *Engine) runWorker(ctx context.Context, queue <-chan serp.Query, record func(serp.Query, *serp.Outcome)) {
	limiter := ratelimit.NewLimiter(e.cfg.MinInterval, e.cfg.Jitter)

	var s *session.Managed
	defer func() {
		if s != nil {
			s.Release()
		}
	}()

	for q := range queue {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if doc, ok := e.cacheGet(ctx, q); ok {
			record(q, &serp.Outcome{Document: doc, Reason: "cache"})
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		if s != nil && s.Controller.Disposed() {
			s.Release()
			s = nil
			metrics.SessionsDisposed.Inc()
		}
		if s == nil {
			var err error
			s, err = e.sessions.Acquire(ctx)
			if err != nil {
				record(q, &serp.Outcome{Err: err, Reason: serp.FailureLabel(err)})
				continue
			}
			metrics.SessionsStarted.Inc()
		}

		start := time.Now()
		doc, err := e.scrapeWithSession(ctx, s, q, e.profiles[q.Engine])
		if err != nil {
			e.logger.Warn("scrape failed",
				"keyword", q.Keyword,
				"engine", q.Engine,
				"error", err)
			record(q, &serp.Outcome{Err: err, Reason: serp.FailureLabel(err)})
			metrics.RecordScrape(string(q.Engine), serp.FailureLabel(err), time.Since(start), 0)
			// A session that just timed out is suspect; start the next
			// query on a fresh one.
			var timeout serp.NavigationTimeoutError
			if errors.As(err, &timeout) {
				s.Release()
				s = nil
			}
			continue
		}
		record(q, &serp.Outcome{Document: doc, Reason: "scraped"})
	}
}

// scrapeWithSession navigates, lets the controller arbitrate the page,
// and extracts once the page is judged clean. Retries happen inside
// this call under the controller's bounded budget.
func (e *Engine) scrapeWithSession(ctx context.Context, s *session.Managed, q serp.Query, profile *extract.Profile) (*serp.Document, error) {
	if profile == nil {
		return nil, fmt.Errorf("no profile registered for engine %q", q.Engine)
	}
	target := profile.SearchURL(q)
	start := time.Now()

	for {
		page, err := s.Navigate(ctx, target, e.cfg.NavTimeout)
		if err != nil {
			return nil, err
		}

		verdict, err := s.Controller.Observe(ctx, page)
		if err != nil {
			return nil, err
		}
		switch verdict {
		case antibot.VerdictRetry:
			metrics.AntibotSignalsTotal.WithLabelValues(string(q.Engine), s.Controller.LastSignal()).Inc()
			continue
		case antibot.VerdictFail:
			metrics.AntibotSignalsTotal.WithLabelValues(string(q.Engine), s.Controller.LastSignal()).Inc()
			return nil, serp.AntiBotBlockedError{Engine: q.Engine, Signal: s.Controller.LastSignal()}
		}

		ex, err := extract.Extract(page, profile, e.logger)
		if err != nil {
			return nil, fmt.Errorf("parse results page: %w", err)
		}

		doc := &serp.Document{
			Query:        q,
			TotalResults: ex.TotalResults,
			Results:      ex.Results,
			Features:     ex.Features,
			ScrapedAt:    time.Now().UTC(),
			SourceURL:    page.URL,
		}

		ttl := profile.CacheTTL
		if e.cfg.CacheTTL > 0 {
			ttl = e.cfg.CacheTTL
		}
		metrics.RecordScrape(string(q.Engine), "ok", time.Since(start), len(ex.Results))
		e.cacheSet(ctx, q, doc, ttl)
		return doc, nil
	}
}

func (e *Engine) cacheGet(ctx context.Context, q serp.Query) (*serp.Document, bool) {
	if e.cache == nil {
		return nil, false
	}
	doc, ok := e.cache.Get(ctx, q)
	metrics.RecordCacheLookup(string(q.Engine), ok)
	if ok {
		e.logger.Debug("cache hit", "keyword", q.Keyword, "engine", q.Engine)
	}
	return doc, ok
}

func (e *Engine) cacheSet(ctx context.Context, q serp.Query, doc *serp.Document, ttl time.Duration) {
	if e.cache == nil {
		return
	}
	e.cache.Set(ctx, q, doc, ttl)
}
