// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// server mode, LLM providers, the records store, mail delivery and the
// conversation engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// LLM Configuration
	GroqAPIKey     string // Groq API key (primary completion provider)
	GeminiAPIKey   string // Gemini API key (fallback provider)
	CerebrasAPIKey string // Cerebras API key (optional extra provider)

	// LLM Model Configuration (optional, defaults apply if empty).
	// Comma-separated model chains: first entry is primary, rest are fallbacks.
	GroqModels     []string
	GeminiModels   []string
	CerebrasModels []string

	// LLMProviders is the ordered provider chain, e.g. "groq,gemini".
	LLMProviders []string

	// Mail Configuration (notification channel)
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	MailFrom     string // Sender address for outbound notifications
	OpsAddress   string // Operations inbox for escalated conversations

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)

	// Sentry / error reporting (optional)
	SentryToken string
	SentryHost  string
	Environment string

	// Server Configuration
	Port            string
	LogLevel        string
	LogFile         string // Optional file that receives a copy of every log line
	ShutdownTimeout time.Duration

	// Data Configuration
	DataDir string // Data directory for the SQLite records store
	FAQPath string // Optional canned-answers file ("pregunta: respuesta" lines)

	// Chat Configuration (embedded)
	Chat ChatConfig

	// Guard keyword tables. The completeness of these sets bounds the
	// privacy guarantee, so they are configuration, not code.
	SubjectKeywords    []string // Words denoting subjects/programs (singular+plural)
	IdentifierKeywords []string // Words denoting the personal identifier
}

// ChatConfig holds conversation-engine configuration
type ChatConfig struct {
	// Timeouts
	TurnTimeout time.Duration // Timeout for one full chat turn (see config/timeouts.go)

	// Rate Limits (Token Bucket Algorithm)
	SessionRateBurst        float64 // Maximum burst tokens per session (default: 6)
	SessionRateRefillPerSec float64 // Tokens refilled per second (default: 0.2 = 1 per 5s)
	GlobalRateLimitRPS      float64 // Global rate limit in requests per second (default: 50)

	// Input constraints
	MaxMessageLength int // Maximum user message length in bytes (default: 2000)

	// Session registry
	MaxSessions    int           // Maximum live sessions before LRU eviction (default: 1000)
	SessionIdleTTL time.Duration // Idle time after which a session is evicted (default: 2h)

	// Context window
	MaxHistoryMessages int // Most recent messages sent to the completion service (default: 40)
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		// LLM Configuration
		GroqAPIKey:     getEnv("GROQ_API_KEY", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		CerebrasAPIKey: getEnv("CEREBRAS_API_KEY", ""),

		// LLM Model Configuration (empty = use defaults from llm package)
		GroqModels:     getListEnv("GROQ_MODELS", nil),
		GeminiModels:   getListEnv("GEMINI_MODELS", nil),
		CerebrasModels: getListEnv("CEREBRAS_MODELS", nil),

		LLMProviders: getListEnv("LLM_PROVIDERS", []string{"groq", "gemini", "cerebras"}),

		// Mail Configuration
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", ""),
		OpsAddress:   getEnv("OPS_ADDRESS", "soporte.srat@frd.utn.edu.ar"),

		// Metrics Authentication
		MetricsUsername: getEnv("METRICS_USERNAME", "prometheus"),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),

		// Sentry
		SentryToken: getEnv("SENTRY_TOKEN", ""),
		SentryHost:  getEnv("SENTRY_HOST", ""),
		Environment: getEnv("ENVIRONMENT", "production"),

		// Server Configuration
		Port:            getEnv("PORT", "10000"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", GracefulShutdown),

		// Data Configuration
		DataDir: getEnv("DATA_DIR", getDefaultDataDir()),
		FAQPath: getEnv("FAQ_PATH", ""),

		// Chat Configuration
		Chat: ChatConfig{
			TurnTimeout:             getDurationEnv("CHAT_TURN_TIMEOUT", ChatProcessing),
			SessionRateBurst:        getFloatEnv("SESSION_RATE_BURST", 6.0),
			SessionRateRefillPerSec: getFloatEnv("SESSION_RATE_REFILL_PER_SEC", 0.2), // 1 per 5s
			GlobalRateLimitRPS:      getFloatEnv("GLOBAL_RATE_LIMIT_RPS", 50.0),
			MaxMessageLength:        getIntEnv("MAX_MESSAGE_LENGTH", 2000),
			MaxSessions:             getIntEnv("MAX_SESSIONS", 1000),
			SessionIdleTTL:          getDurationEnv("SESSION_IDLE_TTL", 2*time.Hour),
			MaxHistoryMessages:      getIntEnv("MAX_HISTORY_MESSAGES", 40),
		},

		// Guard keyword tables (Spanish defaults matching the portal domain)
		SubjectKeywords:    getListEnv("GUARD_SUBJECT_KEYWORDS", []string{"materia", "materias", "carrera", "carreras"}),
		IdentifierKeywords: getListEnv("GUARD_IDENTIFIER_KEYWORDS", []string{"legajo"}),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}
	if c.SMTPHost != "" && c.MailFrom == "" {
		errs = append(errs, errors.New("MAIL_FROM is required when SMTP_HOST is set"))
	}
	if c.OpsAddress == "" {
		errs = append(errs, errors.New("OPS_ADDRESS is required"))
	}
	if len(c.SubjectKeywords) == 0 {
		errs = append(errs, errors.New("GUARD_SUBJECT_KEYWORDS must not be empty"))
	}
	if len(c.IdentifierKeywords) == 0 {
		errs = append(errs, errors.New("GUARD_IDENTIFIER_KEYWORDS must not be empty"))
	}
	if err := c.Chat.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("chat config: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks chat configuration bounds
func (c *ChatConfig) Validate() error {
	var errs []error

	if c.TurnTimeout <= 0 {
		errs = append(errs, fmt.Errorf("CHAT_TURN_TIMEOUT must be positive, got %v", c.TurnTimeout))
	}
	if c.MaxMessageLength <= 0 {
		errs = append(errs, fmt.Errorf("MAX_MESSAGE_LENGTH must be positive, got %d", c.MaxMessageLength))
	}
	if c.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("MAX_SESSIONS must be positive, got %d", c.MaxSessions))
	}
	if c.SessionIdleTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_IDLE_TTL must be positive, got %v", c.SessionIdleTTL))
	}
	if c.MaxHistoryMessages <= 0 {
		errs = append(errs, fmt.Errorf("MAX_HISTORY_MESSAGES must be positive, got %d", c.MaxHistoryMessages))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// HasLLMProvider returns true if at least one LLM provider is configured.
func (c *Config) HasLLMProvider() bool {
	return c.GroqAPIKey != "" || c.GeminiAPIKey != "" || c.CerebrasAPIKey != ""
}

// HasMailer returns true if the SMTP notification channel is configured.
func (c *Config) HasMailer() bool {
	return c.SMTPHost != ""
}

// RecordsDBPath returns the full path to the SQLite records database file
func (c *Config) RecordsDBPath() string {
	return filepath.Join(c.DataDir, "records.db")
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getListEnv retrieves a comma-separated environment variable as a slice,
// trimming whitespace and dropping empty entries.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}
