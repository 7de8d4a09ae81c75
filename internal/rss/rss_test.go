package rss

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsroom/internal/metrics"
	"github.com/deusflow/newsroom/internal/news"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>Upstream Title</title>
  <link>https://upstream.example.com</link>
  <description>upstream</description>
  <category>upstream-category</category>
  <item>
    <title>A B</title>
    <link>https://upstream.example.com/a-b</link>
    <description>short description</description>
    <pubDate>2024-01-01T00:00:00Z</pubDate>
  </item>
  <item>
    <title>With media</title>
    <link>https://upstream.example.com/media</link>
    <description>desc</description>
    <content:encoded><![CDATA[<p>Rich <img src="https://cdn.example.com/inline.jpg"></p>]]></content:encoded>
    <media:thumbnail url="https://cdn.example.com/thumb.jpg"/>
    <pubDate>Tue, 02 Jan 2024 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>No date</title>
    <link>https://upstream.example.com/none</link>
    <description><![CDATA[<img src="https://cdn.example.com/desc.jpg"> text]]></description>
  </item>
</channel>
</rss>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFetcher(now time.Time) *Fetcher {
	f := NewFetcher(5*time.Second, "", testLogger(), metrics.New())
	f.now = func() time.Time { return now }
	return f
}

func TestFetchOneNormalizesItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, sampleFeed)
	}))
	defer srv.Close()

	fetchTime := time.Date(2024, 5, 5, 12, 0, 0, 0, time.UTC)
	f := newTestFetcher(fetchTime)
	items := f.FetchOne(context.Background(), news.FeedSource{Name: "BBC", URL: srv.URL, Category: "world"})
	require.Len(t, items, 3)

	first := items[0]
	assert.Equal(t, "A%20B", first.ID)
	assert.Equal(t, "A B", first.Title)
	assert.Equal(t, "https://upstream.example.com/a-b", first.Link)
	assert.Equal(t, "2024-01-01T00:00:00Z", first.PubDate)
	assert.Equal(t, "BBC", first.Source)
	assert.Equal(t, "world", first.Category)
	assert.Equal(t, "short description", first.Description)
	assert.Equal(t, "short description", first.FullContent)
	assert.Empty(t, first.ImageURL)

	second := items[1]
	assert.Equal(t, "https://cdn.example.com/thumb.jpg", second.ImageURL)
	assert.Contains(t, second.FullContent, "Rich")
	assert.Equal(t, second.FullContent, second.Description)
	assert.Equal(t, "2024-01-02T10:00:00Z", second.PubDate)

	third := items[2]
	assert.Equal(t, news.FormatDate(fetchTime), third.PubDate)
	assert.Equal(t, "https://cdn.example.com/desc.jpg", third.ImageURL)
}

func TestFetchOneAbsorbsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := metrics.New()
	f := NewFetcher(time.Second, "", testLogger(), m)

	items := f.FetchOne(context.Background(), news.FeedSource{Name: "Broken", URL: srv.URL})
	assert.NotNil(t, items)
	assert.Empty(t, items)

	items = f.FetchOne(context.Background(), news.FeedSource{Name: "Unreachable", URL: "http://127.0.0.1:1/feed"})
	assert.Empty(t, items)
	assert.Equal(t, int64(2), m.GetStats()["feed_errors"])
}

func TestFetchOneConcurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := newTestFetcher(time.Now())

	const workers = 6
	counts := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			source := news.FeedSource{Name: fmt.Sprintf("Feed %d", i), URL: srv.URL, Category: "world"}
			counts[i] = len(f.FetchOne(context.Background(), source))
		}(i)
	}
	wg.Wait()

	for i, n := range counts {
		assert.Equal(t, 3, n, "worker %d", i)
	}
}

func TestImageURLPrecedence(t *testing.T) {
	mediaExt := func(name string, attrs map[string]string) ext.Extension {
		return ext.Extension{Name: name, Attrs: attrs}
	}
	group := ext.Extension{
		Name: "group",
		Children: map[string][]ext.Extension{
			"content": {
				mediaExt("content", map[string]string{"url": "video.mp4", "type": "video/mp4"}),
				mediaExt("content", map[string]string{"url": "group.jpg", "type": "image/jpeg"}),
			},
		},
	}

	tests := []struct {
		name string
		item *gofeed.Item
		body string
		want string
	}{
		{
			name: "media content wins",
			item: &gofeed.Item{
				Extensions: ext.Extensions{"media": {
					"content":   {mediaExt("content", map[string]string{"url": "content.jpg"})},
					"thumbnail": {mediaExt("thumbnail", map[string]string{"url": "thumb.jpg"})},
				}},
				Enclosures: []*gofeed.Enclosure{{URL: "enclosure.jpg"}},
			},
			want: "content.jpg",
		},
		{
			name: "thumbnail before enclosure",
			item: &gofeed.Item{
				Extensions: ext.Extensions{"media": {
					"thumbnail": {mediaExt("thumbnail", map[string]string{"url": "thumb.jpg"})},
				}},
				Enclosures: []*gofeed.Enclosure{{URL: "enclosure.jpg"}},
			},
			want: "thumb.jpg",
		},
		{
			name: "enclosure before group",
			item: &gofeed.Item{
				Extensions: ext.Extensions{"media": {"group": {group}}},
				Enclosures: []*gofeed.Enclosure{{URL: "enclosure.jpg"}},
			},
			want: "enclosure.jpg",
		},
		{
			name: "first image in group",
			item: &gofeed.Item{Extensions: ext.Extensions{"media": {"group": {group}}}},
			want: "group.jpg",
		},
		{
			name: "markup fallback",
			item: &gofeed.Item{},
			body: `<p><img src="inline.jpg"></p>`,
			want: "inline.jpg",
		},
		{
			name: "nothing",
			item: &gofeed.Item{},
			body: "plain text",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, imageURL(tt.item, tt.body))
		})
	}
}

func TestNormalizeIgnoresUpstreamCategory(t *testing.T) {
	item := &gofeed.Item{Title: "", Categories: []string{"upstream"}}
	n := normalize(item, news.FeedSource{Name: "ESPN", Category: "sports"}, time.Unix(0, 0))
	assert.Equal(t, "", n.ID)
	assert.Equal(t, "sports", n.Category)
	assert.Equal(t, "ESPN", n.Source)
	assert.Equal(t, "1970-01-01T00:00:00Z", n.PubDate)
}

func TestLoadSourcesDefault(t *testing.T) {
	sources, err := LoadSources("")
	require.NoError(t, err)
	require.Len(t, sources, 6)
	assert.Equal(t, news.FeedSource{Name: "BBC News", URL: "http://feeds.bbci.co.uk/news/rss.xml", Category: "world"}, sources[0])
}

func TestLoadSourcesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feeds:\n  - name: Local\n    url: http://localhost/rss\n    category: local\n"), 0o644))

	sources, err := LoadSources(path)
	require.NoError(t, err)
	assert.Equal(t, []news.FeedSource{{Name: "Local", URL: "http://localhost/rss", Category: "local"}}, sources)
}

func TestLoadSourcesInvalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSources(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("feeds: []\n"), 0o644))
	_, err = LoadSources(empty)
	assert.Error(t, err)

	noURL := filepath.Join(dir, "nourl.yaml")
	require.NoError(t, os.WriteFile(noURL, []byte("feeds:\n  - name: X\n"), 0o644))
	_, err = LoadSources(noURL)
	assert.Error(t, err)
}
