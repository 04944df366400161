package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache maintenance",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired entries from the cache backend",
	Long: `Delete expired entries from the configured cache backend.

The sqlite and postgres backends only drop expired rows when they are
read again, so long-lived databases accumulate dead entries until a
prune pass runs.

Examples:
  serpent cache prune --cache sqlite --cache-dsn serpent-cache.db
  serpent cache prune --cache postgres --cache-dsn "$SERPENT_CACHE_DSN"
`,
	RunE: runCachePrune,
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
}

func runCachePrune(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg)
	cache, err := buildCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if cache == nil {
		return fmt.Errorf("cache backend %q has nothing to prune", cfg.CacheBackend)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("cache close failed", "error", err)
		}
	}()

	n, err := cache.Prune(ctx)
	if err != nil {
		return fmt.Errorf("prune cache: %w", err)
	}
	logger.Info("cache pruned", "backend", cfg.CacheBackend, "deleted", n)
	return nil
}
