package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Feed counters
	FeedRefreshes int64
	FeedErrors    int64
	ItemsFetched  int64
	CacheHits     int64
	CacheMisses   int64

	// Enrichment counters
	EnrichmentRequests int64
	EnrichmentFailures int64
	EnrichmentRetries  int64
	SearchRequests     int64
	SearchFailures     int64

	// Timings
	LastRefreshDuration    time.Duration
	AverageRefreshDuration time.Duration
	TotalRefreshDuration   time.Duration

	// Status
	LastRefreshTime time.Time
	LastErrorTime   time.Time
	LastError       string
	IsHealthy       bool
}

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) IncrementFeedErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FeedErrors++
}

func (m *Metrics) IncrementCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *Metrics) IncrementCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *Metrics) IncrementEnrichmentRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnrichmentRequests++
}

func (m *Metrics) IncrementEnrichmentFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnrichmentFailures++
}

func (m *Metrics) IncrementEnrichmentRetries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnrichmentRetries++
}

func (m *Metrics) IncrementSearchRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchRequests++
}

func (m *Metrics) IncrementSearchFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchFailures++
}

// RecordRefresh stores the outcome of a successful aggregate refresh.
func (m *Metrics) RecordRefresh(duration time.Duration, items int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FeedRefreshes++
	m.ItemsFetched += int64(items)
	m.LastRefreshDuration = duration
	m.TotalRefreshDuration += duration
	m.AverageRefreshDuration = m.TotalRefreshDuration / time.Duration(m.FeedRefreshes)
	m.LastRefreshTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"feed_refreshes":              m.FeedRefreshes,
		"feed_errors":                 m.FeedErrors,
		"items_fetched":               m.ItemsFetched,
		"cache_hits":                  m.CacheHits,
		"cache_misses":                m.CacheMisses,
		"enrichment_requests":         m.EnrichmentRequests,
		"enrichment_failures":         m.EnrichmentFailures,
		"enrichment_retries":          m.EnrichmentRetries,
		"search_requests":             m.SearchRequests,
		"search_failures":             m.SearchFailures,
		"last_refresh_duration_ms":    m.LastRefreshDuration.Milliseconds(),
		"average_refresh_duration_ms": m.AverageRefreshDuration.Milliseconds(),
		"last_refresh_time":           m.LastRefreshTime.Format(time.RFC3339),
		"last_error_time":             m.LastErrorTime.Format(time.RFC3339),
		"last_error":                  m.LastError,
		"is_healthy":                  m.IsHealthy,
	}
}
