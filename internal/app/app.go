// Package app wires configuration into the running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/newsroom/internal/aggregator"
	"github.com/deusflow/newsroom/internal/api"
	"github.com/deusflow/newsroom/internal/cache"
	"github.com/deusflow/newsroom/internal/config"
	"github.com/deusflow/newsroom/internal/enrich"
	"github.com/deusflow/newsroom/internal/llm"
	"github.com/deusflow/newsroom/internal/metrics"
	"github.com/deusflow/newsroom/internal/rss"
	"github.com/deusflow/newsroom/internal/search"
)

type App struct {
	cfg *config.Config
	log *slog.Logger

	Metrics    *metrics.Metrics
	Aggregator *aggregator.Aggregator
	Enricher   *enrich.Client
	Bridge     *search.Bridge

	completer llm.Completer
}

// NewFeeds builds the feed side only: sources, fetcher, cache and aggregator.
func NewFeeds(cfg *config.Config, log *slog.Logger) (*App, error) {
	sources, err := rss.LoadSources(cfg.FeedsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load feed sources: %w", err)
	}

	m := metrics.New()
	fetcher := rss.NewFetcher(cfg.FeedTimeout, cfg.FeedUserAgent, log.With("component", "rss"), m)
	agg := aggregator.New(sources, fetcher, cache.New(), log.With("component", "aggregator"), m,
		aggregator.WithTTL(cfg.CacheTTL),
		aggregator.WithMaxItems(cfg.MaxItems),
		aggregator.WithSingleFlight(cfg.CoalesceRefresh),
	)

	log.Info("Loaded feed sources", "count", len(sources), "ttl", cfg.CacheTTL, "max_items", cfg.MaxItems)
	return &App{cfg: cfg, log: log, Metrics: m, Aggregator: agg}, nil
}

// New builds the whole service including the completion backend. Missing
// backend credentials leave Enricher and Bridge nil instead of failing.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a, err := NewFeeds(cfg, log)
	if err != nil {
		return nil, err
	}

	completer, err := llm.New(ctx, cfg.LLM())
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		log.Warn("Completion backend not configured, enrichment and search disabled", "provider", cfg.LLMProvider, "error", err)
		return a, nil
	case err != nil:
		return nil, fmt.Errorf("create completion client: %w", err)
	}
	a.completer = completer

	a.Enricher = enrich.New(completer, log.With("component", "enrich"), a.Metrics,
		enrich.WithRetry(cfg.EnrichAttempts, cfg.EnrichTimeout, cfg.EnrichRetryDelay))

	searxng := search.NewSearXNG(cfg.SearXNGURL, cfg.FeedUserAgent, nil)
	a.Bridge = search.NewBridge(searxng, completer, log.With("component", "search"), a.Metrics)

	log.Info("Completion backend ready", "provider", cfg.LLMProvider, "deployment", cfg.LLMDeployment)
	return a, nil
}

// Handler returns the HTTP surface with CORS applied.
func (a *App) Handler() http.Handler {
	var (
		enricher api.Enricher
		answerer api.Answerer
	)
	if a.Enricher != nil {
		enricher = a.Enricher
	}
	if a.Bridge != nil {
		answerer = a.Bridge
	}
	h := api.NewHandler(a.Aggregator, enricher, answerer, a.Metrics, a.log.With("component", "api"))
	return h.Handler(a.cfg.CORSOrigins)
}

// Serve listens until ctx is cancelled, then drains in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Starting HTTP server", "addr", a.cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the completion backend's connections.
func (a *App) Close() error {
	if c, ok := a.completer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
