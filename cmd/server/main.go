// Package main provides the chat assistant server entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gesin-frd/srat-assistant-go/internal/chatapi"
	"github.com/gesin-frd/srat-assistant-go/internal/config"
	"github.com/gesin-frd/srat-assistant-go/internal/dialogue"
	"github.com/gesin-frd/srat-assistant-go/internal/faq"
	"github.com/gesin-frd/srat-assistant-go/internal/guard"
	"github.com/gesin-frd/srat-assistant-go/internal/intent"
	"github.com/gesin-frd/srat-assistant-go/internal/llm"
	"github.com/gesin-frd/srat-assistant-go/internal/logger"
	"github.com/gesin-frd/srat-assistant-go/internal/mailer"
	"github.com/gesin-frd/srat-assistant-go/internal/metrics"
	"github.com/gesin-frd/srat-assistant-go/internal/modules"
	"github.com/gesin-frd/srat-assistant-go/internal/modules/academic"
	"github.com/gesin-frd/srat-assistant-go/internal/modules/general"
	"github.com/gesin-frd/srat-assistant-go/internal/modules/portal"
	"github.com/gesin-frd/srat-assistant-go/internal/records"
	"github.com/gesin-frd/srat-assistant-go/internal/sentry"
	"github.com/gesin-frd/srat-assistant-go/internal/session"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger and route package-level slog through it
	log := logger.New(cfg.LogLevel)
	if cfg.LogFile != "" {
		log, err = logger.NewWithFile(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
	}
	slog.SetDefault(log.Logger)
	log.Info("Starting SRAT assistant server")

	// Initialize error reporting (no-op without a token)
	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.Environment,
		Debug:       cfg.LogLevel == "debug",
	}); err != nil {
		log.WithError(err).Warn("Error reporting disabled")
	}
	defer sentry.Flush(2 * time.Second)
	if sentry.IsEnabled() {
		log.Info("Error reporting initialized")
	}

	// Open the academic records store
	db, err := records.Open(cfg.RecordsDBPath())
	if err != nil {
		log.WithError(err).Fatal("Failed to open records database")
	}
	defer func() { _ = db.Close() }()
	log.WithField("path", db.Path()).Info("Records database opened")

	// Create Prometheus registry with runtime collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewBuildInfoCollector())

	m := metrics.New(registry)
	log.Info("Metrics initialized")

	repo := records.NewRepository(db, m)

	// Build the completion provider chain
	if !cfg.HasLLMProvider() {
		log.Fatal("No LLM provider configured; set GROQ_API_KEY, GEMINI_API_KEY or CEREBRAS_API_KEY")
	}
	chain, err := llm.NewChain(context.Background(), llmConfig(cfg), m)
	if err != nil {
		log.WithError(err).Fatal("Failed to build completion chain")
	}
	defer func() { _ = chain.Close() }()
	log.WithField("provider", string(chain.Provider())).Info("Completion chain ready")

	// Mail channel: record delivery and escalations go out here
	var sender mailer.Sender = mailer.NopSender{}
	if cfg.HasMailer() {
		smtpPort, err := strconv.Atoi(cfg.SMTPPort)
		if err != nil {
			log.WithError(err).Fatal("Invalid SMTP_PORT")
		}
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     smtpPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
		log.WithField("host", cfg.SMTPHost).Info("Mail channel configured")
	} else {
		log.Warn("SMTP not configured; record delivery and escalation mails will fail")
	}

	// Canned answers (optional)
	faqStore, err := faq.Load(cfg.FAQPath, log, m)
	if err != nil {
		log.WithError(err).Fatal("Failed to load FAQ file")
	}

	// Session registry
	sessions := session.NewRegistry(session.RegistryConfig{
		MaxSessions:   cfg.Chat.MaxSessions,
		IdleTTL:       cfg.Chat.SessionIdleTTL,
		MaxHistory:    cfg.Chat.MaxHistoryMessages,
		SweepInterval: config.SessionSweepInterval,
	}, m)
	defer sessions.Stop()

	// Conversation pipeline: classifier, guard, handlers, controller
	classifier := intent.NewClassifier(chain, cfg.SubjectKeywords, cfg.IdentifierKeywords, m)
	recordGuard := guard.New(repo, sender, cfg.SubjectKeywords, cfg.IdentifierKeywords, m)
	escalator := modules.NewEscalator(sender, cfg.OpsAddress, m)

	controller := dialogue.NewController(
		classifier,
		recordGuard,
		portal.NewHandler(chain, faqStore, escalator),
		academic.NewHandler(chain, repo, escalator),
		general.NewHandler(chain, faqStore),
		m,
	)
	log.Info("Conversation pipeline ready")

	chatHandler := chatapi.NewHandler(controller, sessions, log, m, chatapi.Options{
		MaxMessageLength:        cfg.Chat.MaxMessageLength,
		TurnTimeout:             cfg.Chat.TurnTimeout,
		GlobalRateLimitRPS:      cfg.Chat.GlobalRateLimitRPS,
		SessionRateBurst:        cfg.Chat.SessionRateBurst,
		SessionRateRefillPerSec: cfg.Chat.SessionRateRefillPerSec,
	})
	defer chatHandler.Stop()

	// Set Gin mode based on log level
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(log))

	setupRoutes(router, chatHandler, repo, sessions, registry, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  config.ChatHTTPRead,
		WriteTimeout: config.ChatHTTPWrite,
		IdleTimeout:  config.ChatHTTPIdle,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server stopped")
}

// llmConfig maps application configuration to the completion chain's.
func llmConfig(cfg *config.Config) llm.Config {
	providers := make([]llm.Provider, 0, len(cfg.LLMProviders))
	for _, p := range cfg.LLMProviders {
		providers = append(providers, llm.Provider(p))
	}
	return llm.Config{
		Providers: providers,
		Groq: llm.ProviderConfig{
			APIKey: cfg.GroqAPIKey,
			Models: cfg.GroqModels,
		},
		Gemini: llm.ProviderConfig{
			APIKey: cfg.GeminiAPIKey,
			Models: cfg.GeminiModels,
		},
		Cerebras: llm.ProviderConfig{
			APIKey: cfg.CerebrasAPIKey,
			Models: cfg.CerebrasModels,
		},
	}
}
