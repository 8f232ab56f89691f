package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gesin-frd/srat-assistant-go/internal/metrics"
)

// stubCompleter is a scriptable Completer for chain tests.
type stubCompleter struct {
	provider Provider
	replies  []string
	errs     []error
	calls    int
}

func (s *stubCompleter) Complete(_ context.Context, _ CompletionRequest) (string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.errs) {
		i = len(s.errs) - 1
	}
	if s.errs[i] != nil {
		return "", s.errs[i]
	}
	return s.replies[i], nil
}

func (s *stubCompleter) IsEnabled() bool    { return true }
func (s *stubCompleter) Close() error       { return nil }
func (s *stubCompleter) Provider() Provider { return s.provider }

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}
}

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func TestChain_PrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := &stubCompleter{
		provider: ProviderGroq,
		replies:  []string{"hola"},
		errs:     []error{nil},
	}
	fallback := &stubCompleter{
		provider: ProviderGemini,
		replies:  []string{"unused"},
		errs:     []error{nil},
	}

	chain := NewChainFromCompleters([]Completer{primary, fallback}, fastRetry(), testMetrics())

	reply, err := chain.Complete(context.Background(), CompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hola"}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "hola" {
		t.Errorf("reply = %q, want %q", reply, "hola")
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times, want 0", fallback.calls)
	}
}

func TestChain_RetriesTransientError(t *testing.T) {
	t.Parallel()

	primary := &stubCompleter{
		provider: ProviderGroq,
		replies:  []string{"", "listo"},
		errs:     []error{errors.New("503 service temporarily unavailable"), nil},
	}

	chain := NewChainFromCompleters([]Completer{primary}, fastRetry(), testMetrics())

	reply, err := chain.Complete(context.Background(), CompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hola"}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "listo" {
		t.Errorf("reply = %q, want %q", reply, "listo")
	}
	if primary.calls != 2 {
		t.Errorf("primary called %d times, want 2", primary.calls)
	}
}

func TestChain_FallsBackToNextProvider(t *testing.T) {
	t.Parallel()

	primary := &stubCompleter{
		provider: ProviderGroq,
		replies:  []string{""},
		errs:     []error{errors.New("quota exceeded")},
	}
	fallback := &stubCompleter{
		provider: ProviderGemini,
		replies:  []string{"desde gemini"},
		errs:     []error{nil},
	}

	chain := NewChainFromCompleters([]Completer{primary, fallback}, fastRetry(), testMetrics())

	reply, err := chain.Complete(context.Background(), CompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hola"}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "desde gemini" {
		t.Errorf("reply = %q, want %q", reply, "desde gemini")
	}
	// Quota errors skip retry and go straight to fallback
	if primary.calls != 1 {
		t.Errorf("primary called %d times, want 1", primary.calls)
	}
}

func TestChain_AllProvidersFail(t *testing.T) {
	t.Parallel()

	primary := &stubCompleter{
		provider: ProviderGroq,
		replies:  []string{""},
		errs:     []error{errors.New("401 unauthorized")},
	}
	fallback := &stubCompleter{
		provider: ProviderGemini,
		replies:  []string{""},
		errs:     []error{errors.New("403 forbidden")},
	}

	chain := NewChainFromCompleters([]Completer{primary, fallback}, fastRetry(), testMetrics())

	_, err := chain.Complete(context.Background(), CompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hola"}},
	})
	if err == nil {
		t.Fatal("expected error when all providers fail")
	}
}

func TestChain_ContextCancelStopsChain(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &stubCompleter{
		provider: ProviderGroq,
		replies:  []string{"nope"},
		errs:     []error{nil},
	}
	fallback := &stubCompleter{
		provider: ProviderGemini,
		replies:  []string{"nope"},
		errs:     []error{nil},
	}

	chain := NewChainFromCompleters([]Completer{primary, fallback}, fastRetry(), testMetrics())

	_, err := chain.Complete(ctx, CompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hola"}},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Complete = %v, want context.Canceled", err)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times after cancel, want 0", fallback.calls)
	}
}

func TestNewChain_NoProviders(t *testing.T) {
	t.Parallel()

	_, err := NewChain(context.Background(), Config{}, testMetrics())
	if err == nil {
		t.Error("expected error with no configured providers")
	}
}

func TestChain_IsEnabledAndProvider(t *testing.T) {
	t.Parallel()

	var empty *Chain
	if empty.IsEnabled() {
		t.Error("nil chain should not be enabled")
	}

	primary := &stubCompleter{provider: ProviderCerebras, replies: []string{"x"}, errs: []error{nil}}
	chain := NewChainFromCompleters([]Completer{primary}, fastRetry(), nil)

	if !chain.IsEnabled() {
		t.Error("chain with a completer should be enabled")
	}
	if chain.Provider() != ProviderCerebras {
		t.Errorf("Provider() = %v, want cerebras", chain.Provider())
	}
}
