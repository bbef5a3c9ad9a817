package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/studiahub/studiahub/internal/metrics"
)

// OpenAIProvider implements CompletionProvider using the OpenAI chat API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI-backed completion provider. An empty
// API key yields the Disabled provider so callers need no special casing.
func NewOpenAIProvider(apiKey, model string) CompletionProvider {
	if apiKey == "" {
		slog.Warn("OpenAI API key not provided, AI features are disabled")
		return Disabled{}
	}

	slog.Info("OpenAI provider initialized", "model", model)
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Complete sends a system+user prompt pair and returns the model's reply.
func (p *OpenAIProvider) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: empty response")
	}

	if resp.Usage.TotalTokens > 0 {
		metrics.AITokensUsed.Add(float64(resp.Usage.TotalTokens))
		slog.Debug("completion generated", "model", p.model,
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens)
	}

	return resp.Choices[0].Message.Content, nil
}
