// Package enrich produces summaries and fact-check reports for news items
// through a completion backend, retrying failed calls.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/newsroom/internal/llm"
	"github.com/deusflow/newsroom/internal/metrics"
	"github.com/deusflow/newsroom/internal/retry"
)

const (
	DefaultSummaryWords = 200
	DefaultAttempts     = 3
	DefaultTimeout      = 60 * time.Second
	DefaultRetryDelay   = time.Second

	maxTokens = 1000
)

// ErrEnrichment is wrapped by every error returned once all attempts failed.
var ErrEnrichment = errors.New("enrichment failed")

const factCheckPrompt = "You are a fact-checking assistant. Analyze the news article and provide a fact-check report. Include:\n" +
	"1. Key claims in the article\n" +
	"2. Verification status of each claim\n" +
	"3. Supporting evidence or sources\n" +
	"4. Any potential biases or limitations\n" +
	"5. Overall credibility assessment"

type Client struct {
	completer llm.Completer
	log       *slog.Logger
	metrics   *metrics.Metrics
	retry     retry.RetryConfig
}

type Option func(*Client)

// WithRetry overrides the attempt count, per-attempt deadline and delay.
// Non-positive values keep the defaults.
func WithRetry(attempts int, timeout, delay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.retry.MaxAttempts = attempts
		}
		if timeout > 0 {
			c.retry.Timeout = timeout
		}
		if delay > 0 {
			c.retry.Delay = delay
		}
	}
}

func New(completer llm.Completer, log *slog.Logger, m *metrics.Metrics, opts ...Option) *Client {
	c := &Client{
		completer: completer,
		log:       log,
		metrics:   m,
		retry: retry.RetryConfig{
			MaxAttempts: DefaultAttempts,
			Delay:       DefaultRetryDelay,
			Timeout:     DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summarize asks for a summary of roughly targetWords words.
func (c *Client) Summarize(ctx context.Context, content string, targetWords int) (string, error) {
	if targetWords <= 0 {
		targetWords = DefaultSummaryWords
	}

	req := llm.Request{
		Messages: []llm.Message{
			llm.System(fmt.Sprintf("You are a helpful assistant that summarizes news articles. Generate a summary that is approximately %d words long.", targetWords)),
			llm.User(fmt.Sprintf("Please summarize this news article in about %d words: %s", targetWords, content)),
		},
		MaxTokens: min(targetWords*2, maxTokens),
	}
	return c.complete(ctx, "summarize", req)
}

// FactCheck asks for a structured credibility report on an article.
func (c *Client) FactCheck(ctx context.Context, title, content string) (string, error) {
	req := llm.Request{
		Messages: []llm.Message{
			llm.System(factCheckPrompt),
			llm.User(fmt.Sprintf("Please fact-check this news article:\nTitle: %s\nContent: %s", title, content)),
		},
		MaxTokens: maxTokens,
	}
	return c.complete(ctx, "fact-check", req)
}

func (c *Client) complete(ctx context.Context, op string, req llm.Request) (string, error) {
	c.metrics.IncrementEnrichmentRequests()

	cfg := c.retry
	cfg.OnRetry = func(attempt int, err error) {
		c.metrics.IncrementEnrichmentRetries()
		c.log.Warn("Enrichment attempt failed", "op", op, "attempt", attempt, "error", err)
	}

	start := time.Now()
	text, err := retry.Do(ctx, cfg, func(ctx context.Context) (string, error) {
		return c.completer.Complete(ctx, req)
	})
	if err != nil {
		c.metrics.IncrementEnrichmentFailures()
		c.log.Error("Enrichment failed", "op", op, "error", err)
		return "", fmt.Errorf("%w: %s: %w", ErrEnrichment, op, err)
	}

	c.log.Debug("Enrichment complete", "op", op, "duration", time.Since(start), "chars", len(text))
	return text, nil
}
