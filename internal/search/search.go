// Package search answers free-text questions about the news by grounding a
// completion in SearXNG results.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/newsroom/internal/llm"
	"github.com/deusflow/newsroom/internal/metrics"
)

// ErrBridge is wrapped by every Answer failure. There is no partial result.
var ErrBridge = errors.New("search bridge failed")

const systemPrompt = "You are a helpful assistant that answers questions about news. Use the provided search results to inform your response. Be concise and accurate."

// Searcher returns hits for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

type Answer struct {
	Text    string   `json:"response"`
	Results []Result `json:"searchResults"`
}

type Bridge struct {
	searcher  Searcher
	completer llm.Completer
	log       *slog.Logger
	metrics   *metrics.Metrics
}

func NewBridge(searcher Searcher, completer llm.Completer, log *slog.Logger, m *metrics.Metrics) *Bridge {
	return &Bridge{searcher: searcher, completer: completer, log: log, metrics: m}
}

// Answer searches once and asks the model once. No retries.
func (b *Bridge) Answer(ctx context.Context, query string) (Answer, error) {
	b.metrics.IncrementSearchRequests()
	start := time.Now()

	results, err := b.searcher.Search(ctx, query)
	if err != nil {
		return Answer{}, b.fail("search", err)
	}

	encoded, err := json.Marshal(results)
	if err != nil {
		return Answer{}, b.fail("encode results", err)
	}

	text, err := b.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			llm.System(systemPrompt),
			llm.User(fmt.Sprintf("Question: %s\n\nSearch Results: %s", query, encoded)),
		},
		MaxTokens:   500,
		Temperature: 0.7,
		TopP:        0.95,
	})
	if err != nil {
		return Answer{}, b.fail("completion", err)
	}

	b.log.Info("Answered search query", "results", len(results), "duration", time.Since(start))
	return Answer{Text: text, Results: results}, nil
}

func (b *Bridge) fail(stage string, err error) error {
	b.metrics.IncrementSearchFailures()
	b.log.Error("Search bridge failed", "stage", stage, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrBridge, stage, err)
}
