// Package llm talks to chat-completion backends. Callers build a Request of
// role-tagged messages and get the completion text back; which backend
// serves it is a configuration choice.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var (
	ErrEmptyResponse = errors.New("empty completion response")
	ErrNotConfigured = errors.New("completion backend not configured")
)

type Message struct {
	Role    string
	Content string
}

func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Request is one completion call. Zero sampling values leave the backend
// defaults in place.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// Completer returns the completion text for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config selects and configures a backend. Keys and endpoints always come
// from the environment.
type Config struct {
	Provider   string
	BaseURL    string
	APIVersion string
	APIKey     string
	Deployment string

	GeminiAPIKey string
	GeminiModel  string

	HTTPClient *http.Client
}

// New builds the Completer named by cfg.Provider. Backends holding
// connections also implement io.Closer.
func New(ctx context.Context, cfg Config) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderAzure:
		if cfg.BaseURL == "" || cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: azure provider needs LLM_API_URL and LLM_API_KEY", ErrNotConfigured)
		}
		return NewAzureClient(cfg.BaseURL, cfg.APIVersion, cfg.APIKey, cfg.Deployment, cfg.HTTPClient), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: openai provider needs LLM_API_KEY", ErrNotConfigured)
		}
		return NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Deployment, cfg.HTTPClient), nil
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: gemini provider needs GEMINI_API_KEY", ErrNotConfigured)
		}
		c, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (valid: azure, openai, gemini)", cfg.Provider)
	}
}
