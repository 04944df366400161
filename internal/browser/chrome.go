package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FranksOps/serpent/pkg/identity"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
)

// ChromeConfig configures the chromedp-backed driver.
type ChromeConfig struct {
	Headless bool
	// ExecPath overrides the Chrome binary location (empty = autodetect).
	ExecPath string
}

// ChromeDriver creates stealth-configured Chrome sessions. Each session owns
// its own exec allocator so identity-level flags (user-agent, locale,
// timezone, viewport) apply per session rather than per browser process.
type ChromeDriver struct {
	cfg ChromeConfig
}

// NewChromeDriver creates a Chrome driver.
func NewChromeDriver(cfg ChromeConfig) *ChromeDriver {
	return &ChromeDriver{cfg: cfg}
}

// NewSession starts a browser context for the given identity. Automation
// flags are disabled and the navigator surface is spoofed on navigation.
func (d *ChromeDriver) NewSession(ctx context.Context, id identity.Identity) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", id.Locale),
		chromedp.WindowSize(id.ViewportW, id.ViewportH),
		chromedp.UserAgent(id.UserAgent),
		chromedp.Env("TZ="+id.Timezone),
	)
	if d.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Starting the browser eagerly surfaces a missing/broken Chrome install
	// at acquire time instead of on the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome session: %w", err)
	}

	return &chromeSession{
		id:          uuid.New().String(),
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}, nil
}

type chromeSession struct {
	id          string
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
}

func (s *chromeSession) ID() string {
	return s.id
}

func (s *chromeSession) Navigate(ctx context.Context, url string, timeout time.Duration) (*Page, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	navCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()

	// Stop early if the caller's context dies while the tab context lives on.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html, location string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.Evaluate(stealthScript, nil),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&location),
	)
	if err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("navigate %s: %w", url, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	return &Page{
		URL:       location,
		HTML:      html,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (s *chromeSession) Close() error {
	s.tabCancel()
	s.allocCancel()
	return nil
}

// stealthScript suppresses the most commonly probed automation signals.
const stealthScript = `(function () {
  Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
  Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
  Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
  window.chrome = window.chrome || { runtime: {} };
  const origQuery = window.navigator.permissions && window.navigator.permissions.query;
  if (origQuery) {
    window.navigator.permissions.query = (parameters) => (
      parameters.name === 'notifications'
        ? Promise.resolve({ state: Notification.permission })
        : origQuery(parameters)
    );
  }
  return true;
})();`
