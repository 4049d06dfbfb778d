package openaichat

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Backend is the optional secondary generation backend behind any
// OpenAI-compatible chat completions endpoint. It shares the
// GenerationBackend contract with the Ollama primary.
type Backend struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Backend {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Backend{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (b *Backend) Name() string { return "openai" }

func (b *Backend) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
