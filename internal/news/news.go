package news

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// FeedSource describes one configured feed. Sources are loaded once at
// startup and never mutated.
type FeedSource struct {
	Name     string `yaml:"name" json:"name"`
	URL      string `yaml:"url" json:"url"`
	Category string `yaml:"category" json:"category"`
}

// NewsItem is a feed entry normalized into one shape regardless of the
// originating feed format.
type NewsItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	PubDate     string `json:"pubDate"`
	Source      string `json:"source"`
	Category    string `json:"category"`
	ImageURL    string `json:"imageUrl,omitempty"`
	FullContent string `json:"fullContent,omitempty"`
}

// Body returns the text used for enrichment: full content, else description.
func (n NewsItem) Body() string {
	if n.FullContent != "" {
		return n.FullContent
	}
	return n.Description
}

// Published parses PubDate. Unparseable dates yield the zero time so they
// sort last.
func (n NewsItem) Published() time.Time {
	return ParseDate(n.PubDate)
}

// FormatDate renders t the way PubDate is stored.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseDate accepts RFC 3339 (with or without fractional seconds).
func ParseDate(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Time{}
}

// SortByDate orders items newest first. Items with equal dates keep their
// relative order.
func SortByDate(items []NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Published().After(items[j].Published())
	})
}

// componentEscaper turns url.QueryEscape output into encodeURIComponent
// output: spaces become %20 and !'()* stay literal.
var componentEscaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeID percent-encodes s with encodeURIComponent semantics. It is the
// identifier scheme for items: id = EncodeID(title).
func EncodeID(s string) string {
	return componentEscaper.Replace(url.QueryEscape(s))
}

// DecodeID reverses EncodeID. Malformed escapes return an error.
func DecodeID(s string) (string, error) {
	return url.PathUnescape(s)
}

// MatchesID reports whether id refers to the item, tolerating ids that were
// encoded once more or not at all on their way through a URL.
func (n NewsItem) MatchesID(id string) bool {
	if n.ID == id || n.ID == EncodeID(id) {
		return true
	}
	decoded, err := DecodeID(n.ID)
	return err == nil && decoded == id
}
