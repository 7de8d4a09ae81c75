package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/deusflow/newsroom/internal/aggregator"
	"github.com/deusflow/newsroom/internal/news"
)

const (
	actionFactCheck     = "fact-check"
	actionCustomSummary = "custom-summary"
)

type enrichRequest struct {
	ID     string    `json:"id"`
	Action string    `json:"action,omitempty"`
	Length wordCount `json:"length,omitempty"`
}

// wordCount accepts a number or a numeric string. Fractions are truncated
// and anything unusable decodes to zero, which selects the default length.
type wordCount int

func (c *wordCount) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	var f float64
	switch v := v.(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			*c = 0
			return nil
		}
		f = parsed
	}

	if f < 1 || f > math.MaxInt32 {
		*c = 0
		return nil
	}
	*c = wordCount(f)
	return nil
}

type summaryResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Summary  string `json:"summary"`
	ImageURL string `json:"imageUrl,omitempty"`
	Source   string `json:"source"`
	Category string `json:"category"`
	PubDate  string `json:"pubDate"`
}

type customSummaryResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	Category string `json:"category"`
	PubDate  string `json:"pubDate"`
}

type factCheckResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	FactCheck string `json:"factCheck"`
	Source    string `json:"source"`
	Category  string `json:"category"`
	PubDate   string `json:"pubDate"`
}

type searchRequest struct {
	Query string `json:"query"`
}

// listFeed serves GET /feed.
func (h *Handler) listFeed(w http.ResponseWriter, r *http.Request) {
	items, err := h.news.Items(context.WithoutCancel(r.Context()))
	if err != nil {
		h.log.Error("Error in news processing", "error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Failed to process news", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// enrichItem serves POST /feed.
func (h *Handler) enrichItem(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if req.ID == "" {
		h.log.Warn("Invalid ID provided in request body", "request_id", RequestID(r.Context()))
		writeError(w, http.StatusBadRequest, "News item ID is required and cannot be empty", "")
		return
	}

	// Enrichment runs to completion even if the client goes away.
	ctx := context.WithoutCancel(r.Context())

	item, err := h.news.Resolve(ctx, req.ID)
	switch {
	case errors.Is(err, aggregator.ErrNotFound):
		writeError(w, http.StatusNotFound, "News item not found", "")
		return
	case err != nil:
		h.log.Error("Error in news item processing", "error", err, "id", req.ID)
		writeError(w, http.StatusInternalServerError, "Failed to process news item", err.Error())
		return
	}

	switch req.Action {
	case actionFactCheck:
		h.factCheck(ctx, w, item)
	case actionCustomSummary:
		h.customSummary(ctx, w, item, int(req.Length))
	default:
		h.defaultSummary(ctx, w, item)
	}
}

func (h *Handler) factCheck(ctx context.Context, w http.ResponseWriter, item news.NewsItem) {
	report, err := h.enricher.FactCheck(ctx, item.Title, item.Body())
	if err != nil {
		h.log.Error("Error in fact-checking", "error", err, "id", item.ID)
		writeError(w, http.StatusInternalServerError, "Failed to generate fact-check report", "")
		return
	}

	writeJSON(w, http.StatusOK, factCheckResponse{
		ID:        item.ID,
		Title:     item.Title,
		FactCheck: report,
		Source:    item.Source,
		Category:  item.Category,
		PubDate:   item.PubDate,
	})
}

func (h *Handler) customSummary(ctx context.Context, w http.ResponseWriter, item news.NewsItem, words int) {
	summary, err := h.enricher.Summarize(ctx, item.Body(), words)
	if err != nil {
		h.log.Error("Error in summarization", "error", err, "id", item.ID)
		writeError(w, http.StatusInternalServerError, "Failed to generate summary", "")
		return
	}

	writeJSON(w, http.StatusOK, customSummaryResponse{
		ID:       item.ID,
		Title:    item.Title,
		Summary:  summary,
		Source:   item.Source,
		Category: item.Category,
		PubDate:  item.PubDate,
	})
}

func (h *Handler) defaultSummary(ctx context.Context, w http.ResponseWriter, item news.NewsItem) {
	summary, err := h.enricher.Summarize(ctx, item.Body(), 0)
	if err != nil {
		h.log.Error("Error in default summarization", "error", err, "id", item.ID)
		writeError(w, http.StatusInternalServerError, "Failed to generate default summary", "")
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		ID:       item.ID,
		Title:    item.Title,
		Content:  item.Body(),
		Summary:  summary,
		ImageURL: item.ImageURL,
		Source:   item.Source,
		Category: item.Category,
		PubDate:  item.PubDate,
	})
}

// searchNews serves POST /search.
func (h *Handler) searchNews(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query is required and cannot be empty", "")
		return
	}

	answer, err := h.answerer.Answer(context.WithoutCancel(r.Context()), req.Query)
	if err != nil {
		h.log.Error("Search request failed", "error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Failed to process your request", "")
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	stats := h.metrics.GetStats()

	status, code := "ok", http.StatusOK
	if !h.metrics.Healthy() {
		status, code = "error", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":       status,
		"last_refresh": stats["last_refresh_time"],
		"last_error":   stats["last_error"],
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.GetStats())
}
