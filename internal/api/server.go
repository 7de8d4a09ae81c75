// Package api exposes the aggregated feed, item enrichment and news search
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/deusflow/newsroom/internal/metrics"
	"github.com/deusflow/newsroom/internal/news"
	"github.com/deusflow/newsroom/internal/search"
)

// NewsSource serves the cached batch and single-item lookups.
type NewsSource interface {
	Items(ctx context.Context) ([]news.NewsItem, error)
	Resolve(ctx context.Context, id string) (news.NewsItem, error)
}

// Enricher generates summaries and fact-check reports.
type Enricher interface {
	Summarize(ctx context.Context, content string, targetWords int) (string, error)
	FactCheck(ctx context.Context, title, content string) (string, error)
}

// Answerer answers a free-text question about the news.
type Answerer interface {
	Answer(ctx context.Context, query string) (search.Answer, error)
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type Handler struct {
	news     NewsSource
	enricher Enricher
	answerer Answerer
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// ErrUnavailable is returned for enrichment and search when no completion
// backend is configured.
var ErrUnavailable = errors.New("completion backend not configured")

type unavailable struct{}

func (unavailable) Summarize(context.Context, string, int) (string, error) { return "", ErrUnavailable }

func (unavailable) FactCheck(context.Context, string, string) (string, error) {
	return "", ErrUnavailable
}

func (unavailable) Answer(context.Context, string) (search.Answer, error) {
	return search.Answer{}, ErrUnavailable
}

// NewHandler builds the handler. A nil enricher or answerer makes those
// endpoints fail with the usual 500 envelope while the feed keeps working.
func NewHandler(source NewsSource, enricher Enricher, answerer Answerer, m *metrics.Metrics, log *slog.Logger) *Handler {
	if enricher == nil {
		enricher = unavailable{}
	}
	if answerer == nil {
		answerer = unavailable{}
	}
	return &Handler{
		news:     source,
		enricher: enricher,
		answerer: answerer,
		metrics:  m,
		log:      log,
	}
}

// Router registers every route, including the legacy /api aliases.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware(h.log))
	r.Use(RecoveryMiddleware(h.log))

	for _, path := range []string{"/feed", "/api/rss"} {
		r.HandleFunc(path, h.listFeed).Methods(http.MethodGet)
		r.HandleFunc(path, h.enrichItem).Methods(http.MethodPost)
	}
	for _, path := range []string{"/search", "/api/llm-search"} {
		r.HandleFunc(path, h.searchNews).Methods(http.MethodPost)
	}

	r.HandleFunc("/feed.rss", h.rssFeed).Methods(http.MethodGet)
	r.HandleFunc("/feed.atom", h.atomFeed).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/metrics", h.stats).Methods(http.MethodGet)

	return r
}

// Handler wraps the router with CORS for the given origins.
func (h *Handler) Handler(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	return c.Handler(h.Router())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}
