package antibot

import (
	"context"
	"log/slog"
	"time"

	"github.com/FranksOps/serpent/internal/browser"
)

// State is the anti-bot posture of one session.
type State int

const (
	// StateNormal means no anomaly detected.
	StateNormal State = iota
	// StateSuspected means a single weak signal was observed.
	StateSuspected
	// StateThrottled means a confirmed rate-limit signal was observed and
	// the controller is backing off.
	StateThrottled
	// StateBlocked means a CAPTCHA fully blocks content.
	StateBlocked
	// StateRecovered means one clean navigation followed a block/throttle.
	StateRecovered
)

func (s State) String() string {
	switch s {
	case StateSuspected:
		return "suspected"
	case StateThrottled:
		return "throttled"
	case StateBlocked:
		return "blocked"
	case StateRecovered:
		return "recovered"
	default:
		return "normal"
	}
}

// Verdict is the controller's directive after inspecting a page.
type Verdict int

const (
	// VerdictProceed means the page is usable; hand it to extraction.
	VerdictProceed Verdict = iota
	// VerdictRetry means the controller backed off and the caller should
	// navigate again on the same session.
	VerdictRetry
	// VerdictFail means the retry budget is exhausted; the query fails and
	// the session must not be reused.
	VerdictFail
)

// Config bounds the controller's backoff behavior.
type Config struct {
	// CooldownBase is the first cool-down window; each repeat doubles it.
	CooldownBase time.Duration
	// CooldownMax caps the escalation.
	CooldownMax time.Duration
	// MaxBlockedRechecks is how many wait-and-recheck rounds a BLOCKED
	// page gets before the query fails.
	MaxBlockedRechecks int
	// MaxThrottleRetries is how many consecutive throttle signals a query
	// tolerates before it fails. A clean navigation resets the count.
	MaxThrottleRetries int
}

// DefaultConfig returns production backoff bounds.
func DefaultConfig() Config {
	return Config{
		CooldownBase:       20 * time.Second,
		CooldownMax:        5 * time.Minute,
		MaxBlockedRechecks: 3,
		MaxThrottleRetries: 5,
	}
}

// Controller runs the per-session anti-bot state machine. It is owned by a
// single worker and is not safe for concurrent use, matching session
// ownership.
type Controller struct {
	cfg       Config
	detectors []Detector
	logger    *slog.Logger

	state           State
	cooldown        time.Duration
	blockedStrikes  int
	blockedTotal    int
	throttleStrikes int
	disposed        bool
	lastSignal      string
}

// NewController creates a controller in the NORMAL state.
func NewController(cfg Config, logger *slog.Logger) *Controller {
	if cfg.CooldownBase <= 0 {
		cfg.CooldownBase = DefaultConfig().CooldownBase
	}
	if cfg.CooldownMax <= 0 {
		cfg.CooldownMax = DefaultConfig().CooldownMax
	}
	if cfg.MaxBlockedRechecks <= 0 {
		cfg.MaxBlockedRechecks = DefaultConfig().MaxBlockedRechecks
	}
	if cfg.MaxThrottleRetries <= 0 {
		cfg.MaxThrottleRetries = DefaultConfig().MaxThrottleRetries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:       cfg,
		detectors: DefaultDetectors(),
		logger:    logger,
		state:     StateNormal,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Disposed reports whether the session must not serve further queries.
func (c *Controller) Disposed() bool {
	return c.disposed
}

// LastSignal names the most recent anomaly detector that fired.
func (c *Controller) LastSignal() string {
	return c.lastSignal
}

// Observe classifies the page, advances the state machine, and performs any
// required cool-down sleep (cancellable via ctx). The returned verdict tells
// the caller whether to extract, re-navigate, or fail the query.
func (c *Controller) Observe(ctx context.Context, page *browser.Page) (Verdict, error) {
	signal, source := Classify(page, c.detectors)

	switch signal {
	case SignalNone:
		c.observeClean()
		return VerdictProceed, nil

	case SignalSuspected:
		// Content is still present; record the weak signal and proceed.
		c.lastSignal = source
		if c.state == StateNormal || c.state == StateRecovered {
			c.state = StateSuspected
		}
		c.logger.Debug("weak anti-bot signal", "source", source)
		return VerdictProceed, nil

	case SignalThrottled:
		c.lastSignal = source
		c.state = StateThrottled
		c.throttleStrikes++
		if c.throttleStrikes > c.cfg.MaxThrottleRetries {
			// A session the engine keeps throttling is burned; the query
			// fails rather than pinning its worker behind endless backoff.
			c.disposed = true
			c.logger.Warn("throttle persisted past retry budget", "source", source, "retries", c.throttleStrikes-1)
			return VerdictFail, nil
		}
		wait := c.nextCooldown()
		c.logger.Warn("throttle signal, backing off", "source", source, "cooldown", wait)
		if err := sleepCtx(ctx, wait); err != nil {
			return VerdictFail, err
		}
		return VerdictRetry, nil

	default: // SignalBlocked
		c.lastSignal = source
		c.state = StateBlocked
		c.blockedStrikes++
		c.blockedTotal++
		if c.blockedTotal >= 2 {
			// Repeated blocks on one session: do not reuse it.
			c.disposed = true
		}
		if c.blockedStrikes > c.cfg.MaxBlockedRechecks {
			c.disposed = true
			c.logger.Warn("block persisted past retry budget", "source", source, "rechecks", c.blockedStrikes-1)
			return VerdictFail, nil
		}
		wait := c.nextCooldown()
		c.logger.Warn("blocked, waiting before recheck", "source", source, "cooldown", wait)
		if err := sleepCtx(ctx, wait); err != nil {
			return VerdictFail, err
		}
		return VerdictRetry, nil
	}
}

// observeClean handles an anomaly-free navigation: blocked/throttled
// sessions move to RECOVERED, and a recovered session returns to NORMAL.
func (c *Controller) observeClean() {
	switch c.state {
	case StateThrottled, StateBlocked, StateSuspected:
		c.state = StateRecovered
	case StateRecovered:
		c.state = StateNormal
	}
	c.cooldown = 0
	c.blockedStrikes = 0
	c.throttleStrikes = 0
}

// nextCooldown doubles the window on every consecutive anomaly, capped.
func (c *Controller) nextCooldown() time.Duration {
	if c.cooldown == 0 {
		c.cooldown = c.cfg.CooldownBase
	} else {
		c.cooldown *= 2
		if c.cooldown > c.cfg.CooldownMax {
			c.cooldown = c.cfg.CooldownMax
		}
	}
	return c.cooldown
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
