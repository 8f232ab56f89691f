// Package llm provides chat completion via LLM APIs.
// This file contains the unified OpenAI-compatible implementation of chat completion.
// It works with any OpenAI-compatible provider (Groq, Cerebras) via custom BaseURL.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiCompleter generates chat replies through an OpenAI-compatible API.
// It implements the Completer interface.
type openaiCompleter struct {
	client   openai.Client
	models   []string
	provider Provider
}

// newOpenAICompleter creates a new OpenAI-compatible chat completer.
// Returns nil if apiKey is empty (provider disabled).
//
// Parameters:
//   - provider: The provider type (ProviderGroq, ProviderCerebras)
//   - apiKey: The API key for the provider
//   - models: Ordered model chain (uses provider defaults if empty)
func newOpenAICompleter(provider Provider, apiKey string, models []string) (*openaiCompleter, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: provider disabled when no API key
	}

	baseURL, ok := ProviderEndpoint[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
	}

	if len(models) == 0 {
		switch provider {
		case ProviderGroq:
			models = DefaultGroqModels
		case ProviderCerebras:
			models = DefaultCerebrasModels
		default:
			return nil, fmt.Errorf("no default models for provider: %s", provider)
		}
	}

	// Create client with custom base URL
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &openaiCompleter{
		client:   client,
		models:   models,
		provider: provider,
	}, nil
}

// Complete generates a reply for the conversation. Models in the chain are
// tried in order; a model is skipped only on non-permanent errors.
func (c *openaiCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c == nil {
		return "", errors.New("completer not configured")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	var lastErr error
	for _, model := range c.models {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		params := openai.ChatCompletionNewParams{
			Model:       model,
			Messages:    messages,
			Temperature: openai.Float(req.Temperature),
		}
		if req.MaxTokens > 0 {
			params.MaxTokens = openai.Int(int64(req.MaxTokens))
		}

		start := time.Now()
		resp, err := c.client.Chat.Completions.New(ctx, params)
		duration := time.Since(start)

		if err != nil {
			lastErr = fmt.Errorf("chat completion failed: %w", err)
			slog.WarnContext(ctx, "chat completion API call failed",
				"provider", c.provider,
				"model", model,
				"duration_ms", duration.Milliseconds(),
				"error", err)
			if IsPermanent(err) {
				return "", lastErr
			}
			continue // Try next model in chain
		}

		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("model %s returned no choices", model)
			continue
		}

		reply := strings.TrimSpace(resp.Choices[0].Message.Content)
		if reply == "" {
			lastErr = fmt.Errorf("model %s returned empty reply", model)
			continue
		}

		if resp.Usage.TotalTokens > 0 {
			slog.DebugContext(ctx, "chat completion succeeded",
				"provider", c.provider,
				"model", model,
				"input_tokens", resp.Usage.PromptTokens,
				"output_tokens", resp.Usage.CompletionTokens,
				"total_tokens", resp.Usage.TotalTokens,
				"duration_ms", duration.Milliseconds())
		}

		return reply, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no models configured")
	}
	return "", lastErr
}

// IsEnabled returns true if the completer is initialized.
func (c *openaiCompleter) IsEnabled() bool {
	return c != nil
}

// Provider returns the provider type for this completer.
func (c *openaiCompleter) Provider() Provider {
	if c == nil {
		return ""
	}
	return c.provider
}

// Close releases resources.
// Safe to call on nil receiver.
func (c *openaiCompleter) Close() error {
	if c == nil {
		return nil
	}
	// openai-go client doesn't require cleanup
	return nil
}
