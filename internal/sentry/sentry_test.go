package sentry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInitialize_EmptyToken(t *testing.T) {
	// Should return nil when token is empty (disabled)
	err := Initialize(Config{Token: ""})
	if err != nil {
		t.Errorf("Expected nil error for empty token, got %v", err)
	}

	if IsEnabled() {
		t.Error("Expected IsEnabled() to return false when token is empty")
	}
}

func TestInitialize_MissingHost(t *testing.T) {
	// Should return error when token is set but host is empty
	err := Initialize(Config{Token: "test-token", Host: ""})
	if err == nil {
		t.Error("Expected error when host is missing")
	}
}

func TestInitialize_ValidConfig(t *testing.T) {
	// Cannot use t.Parallel() as Sentry uses global state

	err := Initialize(Config{
		Token:       "test-token",
		Host:        "errors.betterstack.com",
		Environment: "test",
		SampleRate:  1.0,
	})
	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}

	if !IsEnabled() {
		t.Error("Expected IsEnabled() to return true after initialization")
	}

	Flush(time.Second)
}

func TestCaptureException_NoHubInContext(t *testing.T) {
	// Must not panic with a bare context, whether or not the SDK is
	// initialized.
	CaptureException(context.Background(), errors.New("boom"))
}

func TestFlush(t *testing.T) {
	// Flush should complete quickly when there are no events
	result := Flush(100 * time.Millisecond)
	if !result {
		t.Error("Expected Flush to return true when no events pending")
	}
}
