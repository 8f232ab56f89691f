// Package config provides centralized timeout constants for the application.
//
// These values are tuned around the external dependencies of one chat turn:
// the LLM completion call, the SQLite records lookup and the SMTP delivery.
// A full turn performs these calls strictly in sequence, so the chat
// processing timeout must cover classification + (lookup + mail | completion).
package config

import "time"

// Chat turn timeouts
const (
	// ChatProcessing is the timeout for processing a single chat turn.
	// Covers classification, the guard's lookup-and-notify procedure or one
	// handler completion, and history bookkeeping.
	ChatProcessing = 60 * time.Second

	// ChatHTTPRead is the HTTP server read timeout. Chat payloads are small
	// JSON bodies, so this stays short.
	ChatHTTPRead = 10 * time.Second

	// ChatHTTPWrite is the HTTP server write timeout.
	// Accommodates ChatProcessing plus response serialization.
	ChatHTTPWrite = 65 * time.Second

	// ChatHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	ChatHTTPIdle = 120 * time.Second
)

// External call timeouts
const (
	// LLMRequest is the timeout for a single completion API call.
	// Groq and Cerebras typically answer in 1-3s; Gemini in 2-8s. The retry
	// layer needs headroom for one backoff cycle inside ChatProcessing.
	LLMRequest = 20 * time.Second

	// ClassifyRequest is the timeout for the classification call. The
	// classifier emits a single token, so it gets a tighter budget than
	// free-text generation.
	ClassifyRequest = 10 * time.Second

	// RecordLookup is the timeout for one records-store query. Lookups are
	// indexed point reads; anything slower indicates lock contention.
	RecordLookup = 5 * time.Second

	// MailSend is the timeout for one SMTP delivery, covering dial,
	// handshake and message submission.
	MailSend = 15 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is the SQLite busy_timeout pragma value.
	// Handles write contention while cmd/seed refreshes the records store.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	// Prevents stale connections and allows connection pool refresh.
	DatabaseConnMaxLifetime = time.Hour
)

// Background job intervals
const (
	// SessionSweepInterval is how often idle sessions are evicted.
	SessionSweepInterval = 5 * time.Minute

	// RateLimiterCleanupInterval is how often inactive per-session rate
	// limiters are cleaned.
	RateLimiterCleanupInterval = 5 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight turns to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)
