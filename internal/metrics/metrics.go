package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serpent_scrapes_total",
			Help: "Total number of keyword scrapes by final status",
		},
		[]string{"engine", "status"},
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "serpent_scrape_duration_seconds",
			Help:    "End-to-end duration of one keyword scrape in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"engine"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serpent_cache_lookups_total",
			Help: "Cache lookups by outcome (hit or miss)",
		},
		[]string{"engine", "outcome"},
	)

	AntibotSignalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serpent_antibot_signals_total",
			Help: "Anti-bot detections observed on fetched pages",
		},
		[]string{"engine", "signal"},
	)

	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "serpent_sessions_started_total",
			Help: "Browser sessions started",
		},
	)

	SessionsDisposed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "serpent_sessions_disposed_total",
			Help: "Browser sessions retired after repeated blocking",
		},
	)

	ResultsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serpent_results_extracted_total",
			Help: "Organic results successfully extracted",
		},
		[]string{"engine"},
	)
)

// RecordScrape updates the per-scrape metrics for one keyword outcome.
func RecordScrape(engine, status string, duration time.Duration, results int) {
	ScrapesTotal.WithLabelValues(engine, status).Inc()
	ScrapeDuration.WithLabelValues(engine).Observe(duration.Seconds())
	if results > 0 {
		ResultsExtracted.WithLabelValues(engine).Add(float64(results))
	}
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(engine string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	CacheLookupsTotal.WithLabelValues(engine, outcome).Inc()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
