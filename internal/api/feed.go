package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/feeds"

	"github.com/deusflow/newsroom/internal/extract"
	"github.com/deusflow/newsroom/internal/news"
)

const feedDescriptionChars = 500

// buildFeed republishes the cached batch as a syndication feed.
func buildFeed(items []news.NewsItem, link string) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       "Newsroom",
		Link:        &feeds.Link{Href: link},
		Description: "Latest headlines aggregated from every configured source",
		Created:     time.Now(),
	}

	for _, item := range items {
		fi := &feeds.Item{
			Id:          item.ID,
			Title:       item.Title,
			Link:        &feeds.Link{Href: item.Link},
			Description: extract.Truncate(extract.Text(item.Description), feedDescriptionChars),
			Author:      &feeds.Author{Name: item.Source},
			Created:     item.Published(),
		}
		if item.ImageURL != "" {
			fi.Enclosure = &feeds.Enclosure{Url: item.ImageURL, Type: "image/jpeg"}
		}
		feed.Items = append(feed.Items, fi)
	}
	if len(items) > 0 {
		feed.Updated = items[0].Published()
	}

	return feed
}

func (h *Handler) rssFeed(w http.ResponseWriter, r *http.Request) {
	h.writeFeed(w, r, "application/rss+xml", (*feeds.Feed).ToRss)
}

func (h *Handler) atomFeed(w http.ResponseWriter, r *http.Request) {
	h.writeFeed(w, r, "application/atom+xml", (*feeds.Feed).ToAtom)
}

func (h *Handler) writeFeed(w http.ResponseWriter, r *http.Request, contentType string, render func(*feeds.Feed) (string, error)) {
	items, err := h.news.Items(context.WithoutCancel(r.Context()))
	if err != nil {
		h.log.Error("Failed to load items for feed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process news", err.Error())
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	body, err := render(buildFeed(items, scheme+"://"+r.Host+"/feed"))
	if err != nil {
		h.log.Error("Failed to render feed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate feed", "")
		return
	}

	w.Header().Set("Content-Type", contentType)
	if _, err := w.Write([]byte(body)); err != nil {
		h.log.Error("Failed to write feed response", "error", err)
	}
}
