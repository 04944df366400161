package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/serpent/internal/fingerprint"
	"github.com/FranksOps/serpent/pkg/httpclient"
	"github.com/FranksOps/serpent/pkg/identity"
	"github.com/FranksOps/serpent/pkg/proxy"
	"github.com/google/uuid"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

const maxResponseBytes = 4 * 1024 * 1024

// HTTPConfig configures the fingerprinted HTTP driver.
type HTTPConfig struct {
	MaxRedirects int
	// ProxyPool rotates egress proxies; nil disables proxying.
	ProxyPool *proxy.Pool
}

// HTTPDriver serves engines whose results pages render without JavaScript.
// Each session gets a uTLS transport matching its identity's user-agent and
// a private cookie jar, so consecutive requests look like one browser.
type HTTPDriver struct {
	cfg HTTPConfig
}

// NewHTTPDriver creates an HTTP driver.
func NewHTTPDriver(cfg HTTPConfig) *HTTPDriver {
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 5
	}
	return &HTTPDriver{cfg: cfg}
}

// NewSession builds a client whose TLS fingerprint matches the identity.
func (d *HTTPDriver) NewSession(ctx context.Context, id identity.Identity) (Session, error) {
	// The proxy function reads from the request context so one transport can
	// serve rotating proxies without data races on Transport.Proxy.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(fingerprint.ForUserAgent(id.UserAgent), proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		MaxRedirects: d.cfg.MaxRedirects,
		UseCookieJar: true,
		Header:       identityHeader(id),
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &httpSession{
		id:        uuid.New().String(),
		client:    client,
		proxyPool: d.cfg.ProxyPool,
	}, nil
}

// identityHeader renders the identity as the header set a real browser
// with that user-agent and locale would send.
func identityHeader(id identity.Identity) http.Header {
	return http.Header{
		"User-Agent":                {id.UserAgent},
		"Accept":                    {"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"},
		"Accept-Language":           {id.Locale + "," + primaryLanguage(id.Locale) + ";q=0.5"},
		"Upgrade-Insecure-Requests": {"1"},
	}
}

type httpSession struct {
	id        string
	client    *httpclient.Client
	proxyPool *proxy.Pool
}

func (s *httpSession) ID() string {
	return s.id
}

func (s *httpSession) Navigate(ctx context.Context, targetURL string, timeout time.Duration) (*Page, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var activeProxy *url.URL
	if s.proxyPool != nil {
		if activeProxy = s.proxyPool.Next(); activeProxy != nil {
			req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
		}
	}

	resp, err := s.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			s.proxyPool.Report(activeProxy, false)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("navigate %s: %w", targetURL, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("navigate %s: %w", targetURL, err)
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		s.proxyPool.Report(activeProxy, true)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", targetURL, err)
	}

	finalURL := targetURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Page{
		URL:        finalURL,
		HTML:       string(body),
		StatusCode: resp.StatusCode,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

func (s *httpSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// primaryLanguage reduces a locale like "en-US" to "en".
func primaryLanguage(locale string) string {
	for i := 0; i < len(locale); i++ {
		if locale[i] == '-' || locale[i] == '_' {
			return locale[:i]
		}
	}
	return locale
}
