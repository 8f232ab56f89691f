// Package llm provides chat completion via LLM APIs.
// This file contains the fallback chain for cross-provider failover.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gesin-frd/srat-assistant-go/internal/metrics"
)

// Chain wraps an ordered list of Completers with retry and failover.
// Each provider is retried with backoff on transient errors; on
// persistent failure the next provider in the list is tried.
type Chain struct {
	completers []Completer
	retry      RetryConfig
	metrics    *metrics.Metrics
}

// NewChain builds a completion chain from configuration.
// Providers without API keys are skipped. Returns an error if no
// provider ends up configured.
func NewChain(ctx context.Context, cfg Config, m *metrics.Metrics) (*Chain, error) {
	providers := cfg.Providers
	if len(providers) == 0 {
		providers = DefaultProviders
	}

	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = DefaultMaxRetryAttempts
	}
	if retry.InitialDelay <= 0 {
		retry.InitialDelay = DefaultInitialRetryDelay
	}
	if retry.MaxDelay <= 0 {
		retry.MaxDelay = DefaultMaxRetryDelay
	}

	var completers []Completer
	for _, p := range providers {
		pc := cfg.GetProviderConfig(p)
		if pc == nil || pc.APIKey == "" {
			continue
		}

		var (
			c   Completer
			err error
		)
		switch {
		case p == ProviderGemini:
			var gc *geminiCompleter
			gc, err = newGeminiCompleter(ctx, pc.APIKey, pc.Models)
			if gc != nil {
				c = gc
			}
		case p.IsOpenAICompatible():
			var oc *openaiCompleter
			oc, err = newOpenAICompleter(p, pc.APIKey, pc.Models)
			if oc != nil {
				c = oc
			}
		default:
			err = fmt.Errorf("unknown provider: %s", p)
		}
		if err != nil {
			return nil, fmt.Errorf("initializing %s: %w", p, err)
		}
		if c != nil {
			completers = append(completers, c)
		}
	}

	if len(completers) == 0 {
		return nil, errors.New("no LLM provider configured")
	}

	return &Chain{
		completers: completers,
		retry:      retry,
		metrics:    m,
	}, nil
}

// NewChainFromCompleters builds a chain from pre-built completers.
// Used in tests and anywhere the SDK clients are stubbed out.
func NewChainFromCompleters(completers []Completer, retry RetryConfig, m *metrics.Metrics) *Chain {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = DefaultMaxRetryAttempts
	}
	if retry.InitialDelay <= 0 {
		retry.InitialDelay = DefaultInitialRetryDelay
	}
	if retry.MaxDelay <= 0 {
		retry.MaxDelay = DefaultMaxRetryDelay
	}
	return &Chain{completers: completers, retry: retry, metrics: m}
}

// Complete tries each provider in order, with per-provider retry.
// Returns the first successful reply, or the last error if all fail.
func (ch *Chain) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if ch == nil || len(ch.completers) == 0 {
		return "", errors.New("completion chain not configured")
	}

	var lastErr error
	for i, completer := range ch.completers {
		provider := completer.Provider()

		if i > 0 {
			prev := ch.completers[i-1].Provider()
			slog.InfoContext(ctx, "falling back to next provider",
				"from", prev,
				"to", provider)
			if ch.metrics != nil {
				ch.metrics.RecordLLMFallback(string(prev), string(provider))
			}
		}

		reply, err := ch.completeWithRetry(ctx, completer, req)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		action := ClassifyError(err)
		slog.WarnContext(ctx, "provider failed",
			"provider", provider,
			"error", err,
			"action", action)

		// Context errors end the whole chain
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
	}

	return "", fmt.Errorf("all providers failed: %w", lastErr)
}

// completeWithRetry attempts one provider with backoff retry.
func (ch *Chain) completeWithRetry(ctx context.Context, completer Completer, req CompletionRequest) (string, error) {
	var lastErr error

	for attempt := range ch.retry.MaxAttempts {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		start := time.Now()
		reply, err := completer.Complete(ctx, req)
		duration := time.Since(start)

		if err == nil {
			if ch.metrics != nil {
				ch.metrics.RecordLLMRequest(string(completer.Provider()), "success", duration.Seconds())
			}
			return reply, nil
		}

		lastErr = err
		if ch.metrics != nil {
			ch.metrics.RecordLLMRequest(string(completer.Provider()), "error", duration.Seconds())
		}

		// Don't retry if error is not retryable
		if ClassifyError(err) != ActionRetry {
			return "", err
		}

		// Last attempt, don't sleep
		if attempt == ch.retry.MaxAttempts-1 {
			break
		}

		backoff := CalculateBackoff(attempt+1, ch.retry.InitialDelay, ch.retry.MaxDelay)

		// Check remaining time budget with actual backoff
		if !HasSufficientBudget(ctx, backoff) {
			return "", fmt.Errorf("timeout during retry: %w", lastErr)
		}

		slog.DebugContext(ctx, "retrying chat completion",
			"provider", completer.Provider(),
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)

		if err := Sleep(ctx, backoff); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

// IsEnabled returns true if at least one completer is enabled.
func (ch *Chain) IsEnabled() bool {
	if ch == nil {
		return false
	}
	for _, c := range ch.completers {
		if c.IsEnabled() {
			return true
		}
	}
	return false
}

// Provider returns the primary provider type.
func (ch *Chain) Provider() Provider {
	if ch == nil || len(ch.completers) == 0 {
		return ""
	}
	return ch.completers[0].Provider()
}

// Close closes all completers.
func (ch *Chain) Close() error {
	if ch == nil {
		return nil
	}

	var errs []error
	for _, c := range ch.completers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
