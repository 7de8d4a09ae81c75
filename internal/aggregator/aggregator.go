// Package aggregator merges every configured feed into one recency-ordered,
// capped batch and memoizes it for a short window.
package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/deusflow/newsroom/internal/cache"
	"github.com/deusflow/newsroom/internal/metrics"
	"github.com/deusflow/newsroom/internal/news"
)

const (
	DefaultTTL      = 5 * time.Minute
	DefaultMaxItems = 20
)

var (
	// ErrNoItems means every source came back empty; nothing was cached.
	ErrNoItems = errors.New("no news items found from any source")
	// ErrNotFound means no cached item matches the requested id.
	ErrNotFound = errors.New("news item not found")
)

// SourceFetcher retrieves one feed. Implementations absorb their own
// failures and return an empty slice instead.
type SourceFetcher interface {
	FetchOne(ctx context.Context, source news.FeedSource) []news.NewsItem
}

type Aggregator struct {
	sources  []news.FeedSource
	fetcher  SourceFetcher
	cache    *cache.Snapshot
	log      *slog.Logger
	metrics  *metrics.Metrics
	ttl      time.Duration
	maxItems int
	coalesce bool
	group    singleflight.Group
	now      func() time.Time
}

type Option func(*Aggregator)

func WithTTL(ttl time.Duration) Option {
	return func(a *Aggregator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

func WithMaxItems(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxItems = n
		}
	}
}

// WithSingleFlight makes concurrent callers that find the cache expired
// share one refresh instead of each running their own.
func WithSingleFlight(enabled bool) Option {
	return func(a *Aggregator) {
		a.coalesce = enabled
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

func New(sources []news.FeedSource, fetcher SourceFetcher, snapshot *cache.Snapshot, log *slog.Logger, m *metrics.Metrics, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources:  sources,
		fetcher:  fetcher,
		cache:    snapshot,
		log:      log,
		metrics:  m,
		ttl:      DefaultTTL,
		maxItems: DefaultMaxItems,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Items returns the cached batch while it is fresh, otherwise refreshes it
// from every source. The returned slice is shared and must not be modified.
func (a *Aggregator) Items(ctx context.Context) ([]news.NewsItem, error) {
	if items, ok := a.cache.Get(a.now(), a.ttl); ok {
		a.metrics.IncrementCacheHits()
		return items, nil
	}
	a.metrics.IncrementCacheMisses()

	if !a.coalesce {
		return a.refresh(ctx)
	}

	v, err, shared := a.group.Do("refresh", func() (interface{}, error) {
		return a.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		a.log.Debug("Joined in-flight feed refresh")
	}
	return v.([]news.NewsItem), nil
}

func (a *Aggregator) refresh(ctx context.Context) ([]news.NewsItem, error) {
	fetchedAt := a.now()
	start := time.Now()

	results := make([][]news.NewsItem, len(a.sources))
	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			results[i] = a.fetcher.FetchOne(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	var merged []news.NewsItem
	for _, items := range results {
		merged = append(merged, items...)
	}

	if len(merged) == 0 {
		a.log.Error("Feed refresh produced no items", "sources", len(a.sources))
		a.metrics.SetError(ErrNoItems.Error())
		return nil, ErrNoItems
	}

	news.SortByDate(merged)
	if len(merged) > a.maxItems {
		merged = merged[:a.maxItems:a.maxItems]
	}

	a.cache.Set(merged, fetchedAt)
	a.metrics.RecordRefresh(time.Since(start), len(merged))
	a.log.Info("Refreshed news cache", "items", len(merged), "sources", len(a.sources), "duration", time.Since(start))

	return merged, nil
}

// Resolve finds the cached item an external id refers to. The id may arrive
// encoded, double-decoded or raw depending on how it crossed the URL
// boundary, so each item is tried against all three forms.
func (a *Aggregator) Resolve(ctx context.Context, id string) (news.NewsItem, error) {
	items, err := a.Items(ctx)
	if err != nil {
		return news.NewsItem{}, err
	}

	for _, item := range items {
		if item.MatchesID(id) {
			return item, nil
		}
	}

	a.log.Warn("News item not found", "id", id, "encoded_id", news.EncodeID(id), "available", len(items))
	return news.NewsItem{}, ErrNotFound
}
