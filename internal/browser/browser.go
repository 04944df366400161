// Package browser defines the headless-browser boundary of the engine and
// provides two drivers behind it: a chromedp-backed Chrome driver for
// JavaScript-rendered pages and a TLS-fingerprinted HTTP driver for engines
// whose results pages render statically.
package browser

import (
	"context"
	"time"

	"github.com/FranksOps/serpent/pkg/identity"
)

// Page is the captured state of one navigation: the final URL after
// redirects, the rendered HTML, and the HTTP status where the driver can
// observe one (0 for drivers that cannot).
type Page struct {
	URL        string
	HTML       string
	StatusCode int
	FetchedAt  time.Time
}

// Session is one isolated browsing context. A session is owned by exactly
// one worker for its lifetime and must be closed on every exit path.
type Session interface {
	// ID uniquely identifies the session for logging and disposal tracking.
	ID() string

	// Navigate loads the URL and returns the captured page. The timeout
	// bounds the whole navigation; exceeding it returns an error wrapping
	// context.DeadlineExceeded.
	Navigate(ctx context.Context, url string, timeout time.Duration) (*Page, error)

	// Close releases the session and all underlying resources.
	Close() error
}

// Driver creates sessions configured with the given identity.
type Driver interface {
	NewSession(ctx context.Context, id identity.Identity) (Session, error)
}
