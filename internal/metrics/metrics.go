package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Chat turn metrics
	ChatTurnsTotal       *prometheus.CounterVec
	ChatTurnDuration     *prometheus.HistogramVec
	ClassificationsTotal *prometheus.CounterVec

	// Guard metrics
	GuardOutcomesTotal *prometheus.CounterVec

	// LLM metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec
	LLMFallbacksTotal  *prometheus.CounterVec

	// Mail metrics
	MailSendsTotal *prometheus.CounterVec

	// Records store metrics
	RecordLookupsTotal     *prometheus.CounterVec
	SingleflightDedupTotal *prometheus.CounterVec

	// Session metrics
	ActiveSessions   prometheus.Gauge
	SessionEvictions *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec

	// FAQ metrics
	FAQLookupsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		ChatTurnsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "srat_chat_turns_total",
				Help: "Total number of processed chat turns by label and status",
			},
			[]string{"label", "status"}, // status: success, error, rate_limited
		),

		ChatTurnDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "srat_chat_turn_duration_seconds",
				Help:    "Chat turn processing duration in seconds by label",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}, // Matches 60s turn timeout
			},
			[]string{"label"},
		),

		ClassificationsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "srat_classifications_total",
				Help: "Total number of intent classifications by resolved label and outcome",
			},
			[]string{"label", "outcome"}, // outcome: parsed, defaulted, error
		),

		GuardOutcomesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "srat_guard_outcomes_total",
				Help: "Total number of sensitive-query guard activations by outcome",
			},
			[]string{"outcome"}, // outcome: sent, send_failed, no_address, no_identifier, not_matched
		),

		LLMRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "srat_llm_requests_total",
				Help: "Total number of completion API calls by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error
		),

		LLMRequestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "srat_llm_request_duration_seconds",
				Help:    "Completion API call duration in seconds by provider",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20}, // Matches 20s LLM timeout
			},
			[]string{"provider"},
		),

		LLMFallbacksTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "srat_llm_fallbacks_total",
				Help: "Total number of provider fallbacks by source and target provider",
			},
			[]string{"from", "to"},
		),

		MailSendsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "srat_mail_sends_total",
				Help: "Total number of outbound notifications by purpose and status",
			},
			[]string{"purpose", "status"}, // purpose: record_delivery, escalation
		),

		RecordLookupsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "srat_record_lookups_total",
				Help: "Total number of records-store lookups by kind and result",
			},
			[]string{"kind", "result"}, // kind: affiliations, email; result: hit, miss, error
		),

		SingleflightDedupTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "srat_singleflight_dedup_total",
				Help: "Total number of deduplicated lookups (callers that waited instead of querying)",
			},
			[]string{"kind"},
		),

		ActiveSessions: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "srat_active_sessions",
				Help: "Number of live conversation sessions in the registry",
			},
		),

		SessionEvictions: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "srat_session_evictions_total",
				Help: "Total number of evicted sessions by reason",
			},
			[]string{"reason"}, // reason: lru, idle
		),

		RateLimiterDropped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "srat_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"}, // limiter_type: session, global
		),

		FAQLookupsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "srat_faq_lookups_total",
				Help: "Total number of canned-answer lookups by result",
			},
			[]string{"result"}, // result: exact, fuzzy, miss
		),

		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "srat_http_errors_total",
				Help: "Total HTTP errors by type",
			},
			[]string{"error_type"}, // error_type: bad_request, too_long, rate_limit, internal
		),
	}

	return m
}

// RecordChatTurn records a processed chat turn
func (m *Metrics) RecordChatTurn(label, status string, duration float64) {
	m.ChatTurnsTotal.WithLabelValues(label, status).Inc()
	m.ChatTurnDuration.WithLabelValues(label).Observe(duration)
}

// RecordClassification records an intent classification outcome
func (m *Metrics) RecordClassification(label, outcome string) {
	m.ClassificationsTotal.WithLabelValues(label, outcome).Inc()
}

// RecordGuardOutcome records a guard activation outcome
func (m *Metrics) RecordGuardOutcome(outcome string) {
	m.GuardOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordLLMRequest records a completion API call
func (m *Metrics) RecordLLMRequest(provider, status string, duration float64) {
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider).Observe(duration)
}

// RecordLLMFallback records a provider fallback
func (m *Metrics) RecordLLMFallback(from, to string) {
	m.LLMFallbacksTotal.WithLabelValues(from, to).Inc()
}

// RecordMailSend records an outbound notification attempt
func (m *Metrics) RecordMailSend(purpose, status string) {
	m.MailSendsTotal.WithLabelValues(purpose, status).Inc()
}

// RecordLookup records a records-store lookup
func (m *Metrics) RecordLookup(kind, result string) {
	m.RecordLookupsTotal.WithLabelValues(kind, result).Inc()
}

// RecordSingleflightDedup records a deduplicated lookup
func (m *Metrics) RecordSingleflightDedup(kind string) {
	m.SingleflightDedupTotal.WithLabelValues(kind).Inc()
}

// SetActiveSessions updates the live session gauge
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionEviction records a session eviction
func (m *Metrics) RecordSessionEviction(reason string) {
	m.SessionEvictions.WithLabelValues(reason).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// RecordFAQLookup records a canned-answer lookup result
func (m *Metrics) RecordFAQLookup(result string) {
	m.FAQLookupsTotal.WithLabelValues(result).Inc()
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType).Inc()
}
