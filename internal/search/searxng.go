package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultSearchTimeout = 15 * time.Second

// Result is one SearXNG hit. A decoded result re-encodes as the object
// SearXNG sent, so fields without a Go counterpart (thumbnail, engines,
// category and the like) still reach clients and the model.
type Result struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	PublishedDate string  `json:"publishedDate,omitempty"`
	Engine        string  `json:"engine,omitempty"`
	Score         float64 `json:"score,omitempty"`

	raw json.RawMessage
}

type plainResult Result

func (r *Result) UnmarshalJSON(b []byte) error {
	var p plainResult
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = Result(p)
	if !bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		r.raw = append(json.RawMessage(nil), b...)
	}
	return nil
}

func (r Result) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	return json.Marshal(plainResult(r))
}

// SearXNG queries a SearXNG instance's JSON API.
type SearXNG struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewSearXNG(baseURL, userAgent string, httpClient *http.Client) *SearXNG {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultSearchTimeout}
	}
	return &SearXNG{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

// Search runs a news-category query.
func (s *SearXNG) Search(ctx context.Context, query string) ([]Result, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("SearXNG URL not configured")
	}

	form := url.Values{}
	form.Set("q", query)
	form.Set("format", "json")
	form.Set("categories", "news")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/search", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Results []Result `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}
	if payload.Results == nil {
		payload.Results = []Result{}
	}

	return payload.Results, nil
}
