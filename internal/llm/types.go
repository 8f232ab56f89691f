// Package llm provides chat completion via LLM APIs (Groq, Gemini, and Cerebras).
// This file contains shared types, interfaces, and configuration for the
// multi-provider completion chain.
//
// Architecture:
// - Gemini: Uses google.golang.org/genai (official SDK)
// - Groq/Cerebras: Uses github.com/openai/openai-go/v3 (OpenAI-compatible API)
//
// Fallback Strategy (3-layer):
// 1. Model Chain: Next model in same provider's model list
// 2. Model Retry: Provider retried with exponential backoff
// 3. Provider Chain: Next provider in LLM_PROVIDERS list
package llm

import (
	"context"
	"time"
)

// Provider represents an LLM provider.
type Provider string

const (
	// ProviderGroq represents Groq's API (OpenAI-compatible, fast inference).
	ProviderGroq Provider = "groq"
	// ProviderGemini represents Google's Gemini API (non-OpenAI-compatible).
	ProviderGemini Provider = "gemini"
	// ProviderCerebras represents Cerebras's API (OpenAI-compatible, ultra-fast inference).
	ProviderCerebras Provider = "cerebras"
)

// ProviderEndpoint defines the base URL for OpenAI-compatible providers.
// Gemini is not included as it uses a different SDK.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq:     "https://api.groq.com/openai/v1/",
	ProviderCerebras: "https://api.cerebras.ai/v1/",
}

// IsOpenAICompatible returns true if the provider uses OpenAI-compatible API.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok
}

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// Role identifies the author of a chat message.
type Role string

const (
	// RoleUser is a message written by the end user.
	RoleUser Role = "user"
	// RoleAssistant is a message produced by the model.
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single turn of conversation passed to a completion call.
type ChatMessage struct {
	Role    Role
	Content string
}

// CompletionRequest describes one chat completion call.
type CompletionRequest struct {
	// System is the system instruction prepended to the conversation.
	System string

	// Messages is the conversation so far, oldest first. The last
	// message is the one the model replies to.
	Messages []ChatMessage

	// Temperature controls sampling randomness (0.0-2.0).
	Temperature float64

	// MaxTokens caps the reply length. Zero means provider default.
	MaxTokens int
}

// Completer defines the interface for chat completion.
// Implementations include Gemini (native) and OpenAI-compatible providers (Groq, Cerebras).
type Completer interface {
	// Complete generates a reply for the given conversation.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// IsEnabled returns true if the completer is properly initialized.
	IsEnabled() bool
	// Close releases any resources held by the completer.
	Close() error
	// Provider returns the provider type for metrics.
	Provider() Provider
}

// RetryConfig defines retry behavior for LLM API calls.
// Uses AWS-recommended Full Jitter exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 2 (1 initial + 1 retry)
	MaxAttempts int

	// InitialDelay is the base delay before first retry.
	// Default: 500ms
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	// Default: 3s
	MaxDelay time.Duration
}

// ProviderConfig holds configuration for a single LLM provider.
type ProviderConfig struct {
	// APIKey is the API key for the provider.
	APIKey string

	// Models is the ordered list of models for chat completion.
	// First model is primary, rest are fallbacks tried in order.
	Models []string
}

// Config holds configuration for all LLM providers.
type Config struct {
	// Providers is the ordered list of providers to try.
	// Fallback happens in order: first provider's models, then second, etc.
	// Default: ["groq", "gemini", "cerebras"] (only those with API keys)
	Providers []Provider

	// Groq configuration (OpenAI-compatible)
	Groq ProviderConfig

	// Gemini configuration
	Gemini ProviderConfig

	// Cerebras configuration (OpenAI-compatible)
	Cerebras ProviderConfig

	// Retry configures retry behavior within a provider.
	Retry RetryConfig
}

// Default model configurations.
// First element is primary model, subsequent elements are fallbacks.
var (
	// DefaultGroqModels is the default model chain for Groq.
	// llama-3.3-70b-versatile is production-grade with strong Spanish output;
	// llama-3.1-8b-instant is the fast fallback.
	DefaultGroqModels = []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"}

	// DefaultGeminiModels is the default model chain for Gemini.
	DefaultGeminiModels = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}

	// DefaultCerebrasModels is the default model chain for Cerebras.
	DefaultCerebrasModels = []string{"llama-3.3-70b", "llama-3.1-8b"}

	// DefaultProviders is the default provider order for fallback.
	DefaultProviders = []Provider{ProviderGroq, ProviderGemini, ProviderCerebras}
)

// Retry configuration defaults
const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second
)

// HasAnyProvider returns true if at least one provider is configured.
func (c *Config) HasAnyProvider() bool {
	return c.Groq.APIKey != "" || c.Gemini.APIKey != "" || c.Cerebras.APIKey != ""
}

// HasProvider returns true if the specified provider is configured with an API key.
func (c *Config) HasProvider(p Provider) bool {
	switch p {
	case ProviderGroq:
		return c.Groq.APIKey != ""
	case ProviderGemini:
		return c.Gemini.APIKey != ""
	case ProviderCerebras:
		return c.Cerebras.APIKey != ""
	default:
		return false
	}
}

// GetProviderConfig returns the configuration for a specific provider.
func (c *Config) GetProviderConfig(p Provider) *ProviderConfig {
	switch p {
	case ProviderGroq:
		return &c.Groq
	case ProviderGemini:
		return &c.Gemini
	case ProviderCerebras:
		return &c.Cerebras
	default:
		return nil
	}
}

// ConfiguredProviders returns the list of providers with configured API keys,
// in the order specified by c.Providers.
func (c *Config) ConfiguredProviders() []Provider {
	result := make([]Provider, 0, len(c.Providers))
	for _, p := range c.Providers {
		if c.HasProvider(p) {
			result = append(result, p)
		}
	}
	return result
}
