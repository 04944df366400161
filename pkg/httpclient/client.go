// Package httpclient builds the browser-like HTTP clients scraping
// sessions ride on: bounded redirect chains, a private cookie jar, and a
// default header set matching the session's claimed browser identity.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Config defines the setup for a session client.
type Config struct {
	// Timeout bounds a full request/response cycle when the caller's
	// context does not.
	Timeout time.Duration
	// MaxRedirects caps redirect chains; negative means follow none.
	MaxRedirects int
	// UseCookieJar gives the client a private jar so consent and session
	// cookies persist across the sequential requests of one session.
	UseCookieJar bool
	// Header holds identity defaults (User-Agent, Accept-Language, ...)
	// applied to every request that does not set them itself.
	Header http.Header
	// Transport overrides the transport, e.g. for proxies or uTLS
	// fingerprinting.
	Transport http.RoundTripper
}

// Client is an http.Client carrying per-session identity headers.
type Client struct {
	*http.Client
	header http.Header
}

// New creates a session client from the configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &http.Client{
		Timeout: cfg.Timeout,
	}

	if cfg.MaxRedirects >= 0 {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
			}
			return nil
		}
	} else {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.Jar = jar
	}

	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	}

	return &Client{Client: c, header: cfg.Header}, nil
}

// Do executes the request under the provided context. Identity headers
// from the config fill in any header the request leaves unset, so one
// session presents the same browser fingerprint on every request.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}

	out := req.Clone(ctx)
	for name, values := range c.header {
		if out.Header.Get(name) == "" && len(values) > 0 {
			out.Header[http.CanonicalHeaderKey(name)] = values
		}
	}

	resp, err := c.Client.Do(out)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}
