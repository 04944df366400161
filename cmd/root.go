package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/FranksOps/serpent/internal/browser"
	"github.com/FranksOps/serpent/internal/config"
	"github.com/FranksOps/serpent/internal/metrics"
	"github.com/FranksOps/serpent/internal/scrape"
	"github.com/FranksOps/serpent/internal/serpcache"
	pgstore "github.com/FranksOps/serpent/internal/serpcache/postgres"
	sqlitestore "github.com/FranksOps/serpent/internal/serpcache/sqlite"
	"github.com/FranksOps/serpent/internal/session"
	"github.com/FranksOps/serpent/pkg/identity"
	"github.com/FranksOps/serpent/pkg/proxy"
)

var (
	flagWorkers     int
	flagInterval    time.Duration
	flagNavTimeout  time.Duration
	flagDriver      string
	flagChromePath  string
	flagNoHeadless  bool
	flagProxyFile   string
	flagCacheBack   string
	flagCacheDSN    string
	flagCacheTTL    time.Duration
	flagMetricsPort int
	flagVerbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "serpent",
	Short: "Serpent - search engine results scraper",
	Long: `Serpent scrapes search engine results pages into structured data:
organic results with positions, featured snippets, people-also-ask,
related searches and knowledge panels. It rotates browser identities,
paces its requests and backs off when an engine pushes back.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// .env is optional; absence is the normal case.
	_ = godotenv.Load()

	pf := rootCmd.PersistentFlags()
	pf.IntVar(&flagWorkers, "workers", 0, "batch worker pool size")
	pf.DurationVar(&flagInterval, "interval", 0, "minimum spacing between requests per worker")
	pf.DurationVar(&flagNavTimeout, "nav-timeout", 0, "page navigation timeout")
	pf.StringVar(&flagDriver, "driver", "", "fetch driver: chrome or http")
	pf.StringVar(&flagChromePath, "chrome-path", "", "path to the Chrome binary")
	pf.BoolVar(&flagNoHeadless, "no-headless", false, "run Chrome with a visible window")
	pf.StringVar(&flagProxyFile, "proxy-file", "", "newline-separated proxy list (http driver)")
	pf.StringVar(&flagCacheBack, "cache", "", "cache backend: memory, sqlite, postgres or none")
	pf.StringVar(&flagCacheDSN, "cache-dsn", "", "sqlite path or postgres DSN")
	pf.DurationVar(&flagCacheTTL, "cache-ttl", 0, "cache entry lifetime override")
	pf.IntVar(&flagMetricsPort, "metrics-port", 0, "expose Prometheus metrics on this port")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(cacheCmd)
}

// loadConfig layers defaults, environment and flags, in that order.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if err := cfg.FromEnv(); err != nil {
		return nil, err
	}

	if flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	if flagInterval > 0 {
		cfg.MinInterval = flagInterval
	}
	if flagNavTimeout > 0 {
		cfg.NavTimeout = flagNavTimeout
	}
	if flagDriver != "" {
		cfg.Driver = flagDriver
	}
	if flagChromePath != "" {
		cfg.ChromePath = flagChromePath
	}
	if flagNoHeadless {
		cfg.Headless = false
	}
	if flagProxyFile != "" {
		cfg.ProxyFile = flagProxyFile
	}
	if flagCacheBack != "" {
		cfg.CacheBackend = flagCacheBack
	}
	if flagCacheDSN != "" {
		cfg.CacheDSN = flagCacheDSN
	}
	if flagCacheTTL > 0 {
		cfg.CacheTTL = flagCacheTTL
	}
	if flagMetricsPort > 0 {
		cfg.MetricsPort = flagMetricsPort
	}
	cfg.Verbose = cfg.Verbose || flagVerbose

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	engine  *scrape.Engine
	cache   *serpcache.Cache
	metrics *metrics.Server
}

// buildApp wires the engine from config. Close releases the cache and
// metrics server.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := newLogger(cfg)

	driver, err := buildDriver(cfg)
	if err != nil {
		return nil, err
	}

	cache, err := buildCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		cache:  cache,
	}

	mgr := session.NewManager(driver, identity.NewPool(nil), cfg.Antibot, logger)
	a.engine = scrape.New(scrape.Config{
		Workers:     cfg.Workers,
		MinInterval: cfg.MinInterval,
		Jitter:      cfg.Jitter,
		NavTimeout:  cfg.NavTimeout,
		CacheTTL:    cfg.CacheTTL,
		Antibot:     cfg.Antibot,
	}, mgr, cache, logger)

	if cfg.MetricsPort > 0 {
		a.metrics = metrics.Start(cfg.MetricsPort)
		logger.Info("metrics server listening", "port", cfg.MetricsPort)
	}
	return a, nil
}

func (a *app) Close(ctx context.Context) {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("cache close failed", "error", err)
		}
	}
	if a.metrics != nil {
		if err := a.metrics.Stop(ctx); err != nil {
			a.logger.Warn("metrics shutdown failed", "error", err)
		}
	}
}

func buildDriver(cfg *config.Config) (browser.Driver, error) {
	switch cfg.Driver {
	case "chrome":
		return browser.NewChromeDriver(browser.ChromeConfig{
			Headless: cfg.Headless,
			ExecPath: cfg.ChromePath,
		}), nil
	case "http":
		var pool *proxy.Pool
		if cfg.ProxyFile != "" {
			pool = proxy.NewPool(proxy.Config{})
			if err := pool.LoadFile(cfg.ProxyFile); err != nil {
				return nil, fmt.Errorf("load proxy list: %w", err)
			}
		}
		return browser.NewHTTPDriver(browser.HTTPConfig{ProxyPool: pool}), nil
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

func buildCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*serpcache.Cache, error) {
	var store serpcache.Store
	switch cfg.CacheBackend {
	case "none":
		return nil, nil
	case "memory":
		store = serpcache.NewMemoryStore(0, cfg.CacheTTL)
	case "sqlite":
		var err error
		store, err = sqlitestore.New(cfg.CacheDSN)
		if err != nil {
			return nil, err
		}
	case "postgres":
		var err error
		store, err = pgstore.New(ctx, cfg.CacheDSN)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
	return serpcache.New(store, logger), nil
}
