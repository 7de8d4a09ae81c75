package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsroom/internal/llm"
	"github.com/deusflow/newsroom/internal/metrics"
)

type scriptedCompleter struct {
	mu       sync.Mutex
	failures int
	reply    string
	requests []llm.Request
	block    bool
}

func (s *scriptedCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	n := len(s.requests)
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if n <= s.failures {
		return "", fmt.Errorf("status 500 on attempt %d", n)
	}
	return s.reply, nil
}

func newTestClient(c llm.Completer, m *metrics.Metrics, opts ...Option) *Client {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithRetry(0, 0, time.Millisecond)}, opts...)
	return New(c, log, m, opts...)
}

func TestSummarizeRetriesThenSucceeds(t *testing.T) {
	fc := &scriptedCompleter{failures: 2, reply: "short summary"}
	m := metrics.New()
	c := newTestClient(fc, m)

	out, err := c.Summarize(context.Background(), "long article", 0)

	require.NoError(t, err)
	assert.Equal(t, "short summary", out)
	require.Len(t, fc.requests, 3)

	req := fc.requests[0]
	assert.Equal(t, 400, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "approximately 200 words long")
	assert.Equal(t, "Please summarize this news article in about 200 words: long article", req.Messages[1].Content)

	stats := m.GetStats()
	assert.EqualValues(t, 1, stats["enrichment_requests"])
	assert.EqualValues(t, 2, stats["enrichment_retries"])
	assert.EqualValues(t, 0, stats["enrichment_failures"])
}

func TestSummarizeFailsAfterThreeAttempts(t *testing.T) {
	fc := &scriptedCompleter{failures: 3}
	m := metrics.New()
	c := newTestClient(fc, m)

	_, err := c.Summarize(context.Background(), "x", 100)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEnrichment)
	assert.Contains(t, err.Error(), "attempt 3")
	assert.Len(t, fc.requests, 3)
	assert.EqualValues(t, 1, m.GetStats()["enrichment_failures"])
}

func TestSummarizeTokenBudget(t *testing.T) {
	tests := []struct {
		words int
		want  int
	}{
		{words: 50, want: 100},
		{words: 500, want: 1000},
		{words: 800, want: 1000},
		{words: -5, want: 400},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.words), func(t *testing.T) {
			fc := &scriptedCompleter{reply: "ok"}
			c := newTestClient(fc, metrics.New())

			_, err := c.Summarize(context.Background(), "x", tt.words)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fc.requests[0].MaxTokens)
		})
	}
}

func TestFactCheckPrompt(t *testing.T) {
	fc := &scriptedCompleter{reply: "report"}
	c := newTestClient(fc, metrics.New())

	out, err := c.FactCheck(context.Background(), "Title", "Body")

	require.NoError(t, err)
	assert.Equal(t, "report", out)
	req := fc.requests[0]
	assert.Equal(t, 1000, req.MaxTokens)
	assert.Contains(t, req.Messages[0].Content, "5. Overall credibility assessment")
	assert.Equal(t, "Please fact-check this news article:\nTitle: Title\nContent: Body", req.Messages[1].Content)
}

func TestAttemptTimeout(t *testing.T) {
	fc := &scriptedCompleter{block: true}
	c := newTestClient(fc, metrics.New(), WithRetry(2, 10*time.Millisecond, time.Millisecond))

	_, err := c.FactCheck(context.Background(), "t", "c")

	assert.ErrorIs(t, err, ErrEnrichment)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Len(t, fc.requests, 2)
}
