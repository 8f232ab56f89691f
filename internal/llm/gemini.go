// Package llm provides chat completion via LLM APIs.
// This file contains the Gemini implementation of chat completion.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// geminiCompleter generates chat replies through Google's Gemini API.
// It implements the Completer interface.
type geminiCompleter struct {
	client *genai.Client
	models []string
}

// newGeminiCompleter creates a new Gemini-based chat completer.
// Returns nil if apiKey is empty (provider disabled).
func newGeminiCompleter(ctx context.Context, apiKey string, models []string) (*geminiCompleter, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: provider disabled when no API key
	}

	if len(models) == 0 {
		models = DefaultGeminiModels
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiCompleter{
		client: client,
		models: models,
	}, nil
}

// geminiContents converts conversation turns to Gemini contents.
// Assistant turns map to the model role, everything else to user.
func geminiContents(messages []ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

// Complete generates a reply for the conversation. Models in the chain are
// tried in order; a model is skipped only on non-permanent errors.
func (c *geminiCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("completer not configured")
	}

	contents := geminiContents(req.Messages)

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	var lastErr error
	for _, model := range c.models {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		start := time.Now()
		resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
		duration := time.Since(start)

		if err != nil {
			lastErr = fmt.Errorf("generate content failed: %w", err)
			slog.WarnContext(ctx, "chat completion API call failed",
				"provider", "gemini",
				"model", model,
				"duration_ms", duration.Milliseconds(),
				"error", err)
			if IsPermanent(err) {
				return "", lastErr
			}
			continue // Try next model in chain
		}

		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			lastErr = fmt.Errorf("model %s returned no candidates", model)
			continue
		}

		var reply strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				reply.WriteString(part.Text)
			}
		}

		result := strings.TrimSpace(reply.String())
		if result == "" {
			lastErr = fmt.Errorf("model %s returned empty reply", model)
			continue
		}

		if resp.UsageMetadata != nil {
			slog.DebugContext(ctx, "chat completion succeeded",
				"provider", "gemini",
				"model", model,
				"input_tokens", resp.UsageMetadata.PromptTokenCount,
				"output_tokens", resp.UsageMetadata.CandidatesTokenCount,
				"total_tokens", resp.UsageMetadata.TotalTokenCount,
				"duration_ms", duration.Milliseconds())
		}

		return result, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no models configured")
	}
	return "", lastErr
}

// IsEnabled returns true if the completer is initialized.
func (c *geminiCompleter) IsEnabled() bool {
	return c != nil && c.client != nil
}

// Provider returns the provider type for this completer.
func (c *geminiCompleter) Provider() Provider {
	return ProviderGemini
}

// Close releases resources.
// Safe to call on nil receiver.
func (c *geminiCompleter) Close() error {
	if c == nil {
		return nil
	}
	// Note: genai.Client does not require explicit cleanup in current SDK version
	return nil
}
