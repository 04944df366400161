package identity

import (
	"sync/atomic"
)

// Identity is one rotating browser fingerprint: user-agent plus the locale,
// timezone and viewport the session is configured with.
type Identity struct {
	UserAgent string
	Locale    string
	Timezone  string
	ViewportW int
	ViewportH int
}

// DefaultIdentities provides a realistic set of modern desktop fingerprints.
// Viewports match common screen resolutions for the claimed platform.
var DefaultIdentities = []Identity{
	{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Locale:    "en-US", Timezone: "America/New_York", ViewportW: 1920, ViewportH: 1080,
	},
	{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		Locale:    "en-US", Timezone: "America/Chicago", ViewportW: 1536, ViewportH: 864,
	},
	{
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Locale:    "en-US", Timezone: "America/Los_Angeles", ViewportW: 1440, ViewportH: 900,
	},
	{
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		Locale:    "en-GB", Timezone: "Europe/London", ViewportW: 1680, ViewportH: 1050,
	},
	{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		Locale:    "en-US", Timezone: "America/Denver", ViewportW: 1920, ViewportH: 1080,
	},
	{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
		Locale:    "en-US", Timezone: "America/New_York", ViewportW: 1366, ViewportH: 768,
	},
	{
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
		Locale:    "en-US", Timezone: "America/Los_Angeles", ViewportW: 1440, ViewportH: 900,
	},
	{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
		Locale:    "en-US", Timezone: "America/Chicago", ViewportW: 1920, ViewportH: 1080,
	},
}

// Pool rotates identities round-robin: every identity is handed out once
// before any repeats. It is safe for concurrent use.
type Pool struct {
	identities []Identity
	cursor     atomic.Uint64
}

// NewPool creates a new identity pool. An empty slice falls back to
// DefaultIdentities, so the pool is never empty.
func NewPool(identities []Identity) *Pool {
	if len(identities) == 0 {
		identities = DefaultIdentities
	}
	copied := make([]Identity, len(identities))
	copy(copied, identities)
	return &Pool{identities: copied}
}

// Next returns the next identity in rotation.
func (p *Pool) Next() Identity {
	idx := p.cursor.Add(1) - 1
	return p.identities[idx%uint64(len(p.identities))]
}

// Size returns the number of identities in the rotation.
func (p *Pool) Size() int {
	return len(p.identities)
}

// All returns a copy of the identities currently in the pool.
func (p *Pool) All() []Identity {
	copied := make([]Identity, len(p.identities))
	copy(copied, p.identities)
	return copied
}
