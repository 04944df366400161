package proxy

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// entry tracks one proxy endpoint and its recent health.
type entry struct {
	url        *url.URL
	failures   int
	benchedTil time.Time
}

// Pool rotates egress proxies round-robin, benching endpoints that fail
// repeatedly and reviving them after a cooldown. It is safe for concurrent
// use.
type Pool struct {
	mu          sync.Mutex
	entries     []*entry
	cursor      int
	maxFailures int
	cooldown    time.Duration
}

// Config defines settings for the proxy pool.
type Config struct {
	// MaxFailures before benching a proxy temporarily.
	MaxFailures int
	// Cooldown is how long a proxy stays benched after hitting MaxFailures.
	Cooldown time.Duration
}

// NewPool creates an empty proxy pool. Zero config values get defaults.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
	}
}

// LoadFile reads proxies from a file, one URL per line. Empty lines and
// lines starting with '#' are ignored.
func (p *Pool) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("proxy pool: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var urls []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("proxy pool: %w", err)
	}

	return p.Add(urls...)
}

// Add parses raw URL strings and adds them to the rotation. A missing
// scheme defaults to http.
func (p *Pool) Add(rawURLs ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, raw := range rawURLs {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("proxy pool: %w", err)
		}
		p.entries = append(p.entries, &entry{url: u})
	}
	return nil
}

// Len returns the number of proxies in the pool, benched or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Next returns the next healthy proxy URL, or nil if the pool is empty or
// every proxy is currently benched.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) == 0 {
		return nil
	}

	now := time.Now()
	for i := 0; i < len(p.entries); i++ {
		e := p.entries[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.entries)

		if !e.benchedTil.IsZero() {
			if now.Before(e.benchedTil) {
				continue
			}
			// Cooldown over; revive with a clean slate.
			e.benchedTil = time.Time{}
			e.failures = 0
		}
		return e.url
	}
	return nil
}

// Report records the outcome of a request made through the given proxy.
// Successes slowly repair the failure count; hitting MaxFailures benches
// the proxy for the configured cooldown.
func (p *Pool) Report(proxyURL *url.URL, ok bool) {
	if proxyURL == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	target := proxyURL.String()
	for _, e := range p.entries {
		if e.url.String() != target {
			continue
		}
		if ok {
			if e.failures > 0 {
				e.failures--
			}
			return
		}
		e.failures++
		if e.failures >= p.maxFailures {
			e.benchedTil = time.Now().Add(p.cooldown)
		}
		return
	}
}
