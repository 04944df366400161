// Package session hands out managed browser sessions. Every session
// acquired through the Manager is released exactly once, whatever path
// the scrape takes.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FranksOps/serpent/internal/antibot"
	"github.com/FranksOps/serpent/internal/browser"
	"github.com/FranksOps/serpent/internal/serp"
	"github.com/FranksOps/serpent/pkg/identity"
)

// Manager pairs a browser driver with the identity rotation and the
// anti-bot policy every new session starts from.
type Manager struct {
	driver     browser.Driver
	identities *identity.Pool
	antibotCfg antibot.Config
	logger     *slog.Logger

	active atomic.Int64
}

// NewManager wires a Manager. A nil identity pool falls back to the
// built-in fingerprints, a nil logger to the default handler.
func NewManager(driver browser.Driver, identities *identity.Pool, cfg antibot.Config, logger *slog.Logger) *Manager {
	if identities == nil {
		identities = identity.NewPool(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		driver:     driver,
		identities: identities,
		antibotCfg: cfg,
		logger:     logger,
	}
}

// Managed is a live session plus the per-session anti-bot controller.
// It belongs to one worker at a time.
type Managed struct {
	Identity   identity.Identity
	Controller *antibot.Controller

	session   browser.Session
	manager   *Manager
	closeOnce sync.Once
}

// Acquire starts a session under the next identity in rotation. Driver
// failures surface as SessionUnavailableError so callers can tell "no
// session to work with" apart from navigation trouble.
func (m *Manager) Acquire(ctx context.Context) (*Managed, error) {
	id := m.identities.Next()

	s, err := m.driver.NewSession(ctx, id)
	if err != nil {
		return nil, serp.SessionUnavailableError{Err: err}
	}

	m.active.Add(1)
	m.logger.Debug("session acquired",
		"session", s.ID(),
		"user_agent", id.UserAgent)

	return &Managed{
		Identity:   id,
		Controller: antibot.NewController(m.antibotCfg, m.logger.With("session", s.ID())),
		session:    s,
		manager:    m,
	}, nil
}

// Active reports how many sessions are currently out.
func (m *Manager) Active() int64 {
	return m.active.Load()
}

// ID returns the underlying session's identifier.
func (s *Managed) ID() string {
	return s.session.ID()
}

// Navigate fetches a results page. A deadline overrun is reported as
// NavigationTimeoutError; other driver errors pass through wrapped.
func (s *Managed) Navigate(ctx context.Context, url string, timeout time.Duration) (*browser.Page, error) {
	page, err := s.session.Navigate(ctx, url, timeout)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, serp.NavigationTimeoutError{URL: url, Err: err}
		}
		return nil, err
	}
	return page, nil
}

// Release tears the session down. Safe to call more than once and from
// deferred paths; only the first call reaches the driver.
func (s *Managed) Release() {
	s.closeOnce.Do(func() {
		id := s.session.ID()
		if err := s.session.Close(); err != nil {
			s.manager.logger.Warn("session close failed", "session", id, "error", err)
		} else {
			s.manager.logger.Debug("session released", "session", id)
		}
		s.manager.active.Add(-1)
	})
}
