package rss

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/deusflow/newsroom/internal/extract"
	"github.com/deusflow/newsroom/internal/metrics"
	"github.com/deusflow/newsroom/internal/news"
)

const DefaultUserAgent = "newsroom/1.0 (+https://github.com/deusflow/newsroom)"

// Fetcher downloads one feed and normalizes its items.
type Fetcher struct {
	parser  *gofeed.Parser
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewFetcher makes a fetcher whose HTTP client gives up after timeout.
func NewFetcher(timeout time.Duration, userAgent string, log *slog.Logger, m *metrics.Metrics) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = userAgent
	// gofeed assigns these lazily on first parse; set them here so FetchOne
	// can run from many goroutines.
	parser.RSSTranslator = &gofeed.DefaultRSSTranslator{}
	parser.AtomTranslator = &gofeed.DefaultAtomTranslator{}
	parser.JSONTranslator = &gofeed.DefaultJSONTranslator{}

	return &Fetcher{
		parser:  parser,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// FetchOne downloads and parses source. It never fails: a broken feed is
// logged and yields no items so the other sources still count.
func (f *Fetcher) FetchOne(ctx context.Context, source news.FeedSource) []news.NewsItem {
	feed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		f.log.Error("Error fetching feed", "source", source.Name, "url", source.URL, "error", err)
		f.metrics.IncrementFeedErrors()
		return []news.NewsItem{}
	}

	now := f.now()
	items := make([]news.NewsItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		items = append(items, normalize(item, source, now))
	}

	f.log.Debug("Loaded feed", "source", source.Name, "items", len(items))
	return items
}

func normalize(item *gofeed.Item, source news.FeedSource, now time.Time) news.NewsItem {
	content := item.Content
	if content == "" {
		content = item.Description
	}

	published := now
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	return news.NewsItem{
		ID:          news.EncodeID(item.Title),
		Title:       item.Title,
		Link:        item.Link,
		Description: content,
		PubDate:     news.FormatDate(published),
		Source:      source.Name,
		Category:    source.Category,
		ImageURL:    imageURL(item, content),
		FullContent: content,
	}
}

// imageURL walks the places feeds put pictures, most specific first.
func imageURL(item *gofeed.Item, content string) string {
	media := item.Extensions["media"]

	if u := firstAttr(media["content"], "url"); u != "" {
		return u
	}
	if u := firstAttr(media["thumbnail"], "url"); u != "" {
		return u
	}
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" {
			return enc.URL
		}
	}
	if groups := media["group"]; len(groups) > 0 {
		for _, mc := range groups[0].Children["content"] {
			if strings.HasPrefix(mc.Attrs["type"], "image/") && mc.Attrs["url"] != "" {
				return mc.Attrs["url"]
			}
		}
	}
	return extract.Image(content)
}

func firstAttr(exts []ext.Extension, attr string) string {
	if len(exts) == 0 {
		return ""
	}
	return exts[0].Attrs[attr]
}
