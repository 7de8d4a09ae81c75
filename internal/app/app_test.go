package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsroom/internal/config"
	"github.com/deusflow/newsroom/internal/news"
)

const feedXML = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title>
<item><title>Hello World</title><link>https://example.com/1</link><description>Body</description><pubDate>Mon, 01 Jan 2024 00:00:00 GMT</pubDate></item>
</channel></rss>`

func testConfig(t *testing.T, feedURL string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	yaml := "feeds:\n  - name: Local\n    url: " + feedURL + "\n    category: test\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("FEEDS_CONFIG_PATH", path)
	t.Setenv("LLM_API_URL", "https://example.openai.azure.com")
	t.Setenv("LLM_API_KEY", "test-key")
	cfg, err := config.LoadEnv()
	require.NoError(t, err)
	return cfg
}

func TestFeedEndToEnd(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	defer feed.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), testConfig(t, feed.URL), log)
	require.NoError(t, err)
	defer a.Close()

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var items []news.NewsItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Hello%20World", items[0].ID)
	assert.Equal(t, "Local", items[0].Source)
	assert.Equal(t, "test", items[0].Category)
	assert.Equal(t, "2024-01-01T00:00:00Z", items[0].PubDate)
}

func TestNewWithoutCompletionBackendServesFeed(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	defer feed.Close()

	cfg := testConfig(t, feed.URL)
	cfg.LLMAPIKey = ""

	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Enricher)
	assert.Nil(t, a.Bridge)

	h := a.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/feed", strings.NewReader(`{"id":"Hello%20World"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to generate default summary"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"news"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to process your request"}`, rec.Body.String())
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1/feed")
	cfg.ListenAddr = "127.0.0.1:0"
	a, err := NewFeeds(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()
	cancel()

	assert.NoError(t, <-done)
}
