package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultAzureAPIVersion = "2024-12-01-preview"
	DefaultDeployment      = "o4-mini"
)

// OpenAIClient serves completions from Azure OpenAI or any
// OpenAI-compatible endpoint.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	reasoning bool
}

// NewAzureClient targets {baseURL}/openai/deployments/{deployment}/chat/completions.
func NewAzureClient(baseURL, apiVersion, apiKey, deployment string, httpClient *http.Client) *OpenAIClient {
	if deployment == "" {
		deployment = DefaultDeployment
	}
	cfg := openai.DefaultAzureConfig(apiKey, strings.TrimRight(baseURL, "/"))
	cfg.APIVersion = DefaultAzureAPIVersion
	if apiVersion != "" {
		cfg.APIVersion = apiVersion
	}
	cfg.AzureModelMapperFunc = func(string) string { return deployment }
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return newOpenAIClient(cfg, deployment)
}

// NewOpenAIClient targets the public API, or baseURL when set.
func NewOpenAIClient(baseURL, apiKey, model string, httpClient *http.Client) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return newOpenAIClient(cfg, model)
}

func newOpenAIClient(cfg openai.ClientConfig, model string) *OpenAIClient {
	return &OpenAIClient{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		reasoning: isReasoningModel(model),
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:               c.model,
		Messages:            messages,
		MaxCompletionTokens: req.MaxTokens,
	}
	// Reasoning models reject custom sampling parameters.
	if !c.reasoning {
		chatReq.Temperature = req.Temperature
		chatReq.TopP = req.TopP
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func isReasoningModel(model string) bool {
	model = strings.ToLower(model)
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
