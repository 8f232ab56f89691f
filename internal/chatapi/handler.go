// Package chatapi exposes the conversation engine over HTTP. One
// endpoint, POST /api/chat, takes a user message plus an optional
// session id and returns the reply together with the routing label.
package chatapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gesin-frd/srat-assistant-go/internal/config"
	"github.com/gesin-frd/srat-assistant-go/internal/ctxutil"
	"github.com/gesin-frd/srat-assistant-go/internal/dialogue"
	"github.com/gesin-frd/srat-assistant-go/internal/logger"
	"github.com/gesin-frd/srat-assistant-go/internal/metrics"
	"github.com/gesin-frd/srat-assistant-go/internal/ratelimit"
	"github.com/gesin-frd/srat-assistant-go/internal/sentry"
	"github.com/gesin-frd/srat-assistant-go/internal/session"
)

// ChatRequest is the POST /api/chat payload. SessionID is optional;
// a new session is minted when it is absent or unknown.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

// ChatResponse is the POST /api/chat reply.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Label     string `json:"label"`
}

// processor is the slice of the dialogue layer the handler needs.
type processor interface {
	Process(ctx context.Context, sess *session.Session, message string) (dialogue.Result, error)
}

// Options configures a chat Handler.
type Options struct {
	MaxMessageLength int
	TurnTimeout      time.Duration

	GlobalRateLimitRPS      float64
	SessionRateBurst        float64
	SessionRateRefillPerSec float64
}

// Handler serves the chat endpoint.
type Handler struct {
	controller processor
	sessions   *session.Registry
	logger     *logger.Logger
	metrics    *metrics.Metrics

	globalLimiter  *ratelimit.Limiter
	sessionLimiter *ratelimit.PerKeyLimiter

	maxMessageLength int
	turnTimeout      time.Duration
}

// NewHandler creates a chat handler with its rate limiters started.
// Call Stop to release the per-session limiter's sweeper.
func NewHandler(controller processor, sessions *session.Registry, log *logger.Logger, m *metrics.Metrics, opts Options) *Handler {
	h := &Handler{
		controller:       controller,
		sessions:         sessions,
		logger:           log,
		metrics:          m,
		maxMessageLength: opts.MaxMessageLength,
		turnTimeout:      opts.TurnTimeout,
	}

	if opts.GlobalRateLimitRPS > 0 {
		h.globalLimiter = ratelimit.New(opts.GlobalRateLimitRPS, opts.GlobalRateLimitRPS)
	}
	if opts.SessionRateBurst > 0 {
		h.sessionLimiter = ratelimit.NewPerKeyLimiter(ratelimit.PerKeyLimiterConfig{
			MaxTokens:     opts.SessionRateBurst,
			RefillRate:    opts.SessionRateRefillPerSec,
			CleanupPeriod: config.RateLimiterCleanupInterval,
		})
	}

	return h
}

// Stop releases the handler's background resources.
func (h *Handler) Stop() {
	if h.sessionLimiter != nil {
		h.sessionLimiter.Stop()
	}
}

// Handle serves POST /api/chat.
func (h *Handler) Handle(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.recordError("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		h.recordError("empty_message")
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if h.maxMessageLength > 0 && len(message) > h.maxMessageLength {
		h.recordError("message_too_long")
		c.JSON(http.StatusBadRequest, gin.H{"error": "message too long"})
		return
	}

	if h.globalLimiter != nil && !h.globalLimiter.Allow() {
		if h.metrics != nil {
			h.metrics.RecordRateLimiterDrop("global")
		}
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if h.sessionLimiter != nil && !h.sessionLimiter.Allow(sessionID) {
		if h.metrics != nil {
			h.metrics.RecordRateLimiterDrop("session")
		}
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests for this session"})
		return
	}

	sess, created := h.sessions.GetOrCreate(sessionID)
	sess.Touch()

	ctx := ctxutil.WithSessionID(c.Request.Context(), sessionID)
	if h.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.turnTimeout)
		defer cancel()
	}

	log := h.logger.WithSessionID(sessionID)
	if created {
		log.Debug("Session created")
	}

	// One turn at a time per session. A second request on the same
	// session waits here instead of interleaving history updates.
	if err := sess.BeginTurn(ctx); err != nil {
		h.recordError("turn_timeout")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session busy"})
		return
	}
	defer sess.EndTurn()

	result, err := h.controller.Process(ctx, sess, message)
	if err != nil {
		h.recordError("processing_failed")
		log.WithError(err).Error("Turn processing failed")
		sentry.CaptureException(ctx, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process message"})
		return
	}

	c.JSON(http.StatusOK, ChatResponse{
		SessionID: sessionID,
		Reply:     result.Reply,
		Label:     result.Label.String(),
	})
}

func (h *Handler) recordError(errorType string) {
	if h.metrics != nil {
		h.metrics.RecordHTTPError(errorType)
	}
}
