// Package dialogue implements the per-turn pipeline: classify the
// incoming message against the session's current label, run the
// sensitive-query guard on academic turns, dispatch the matching
// handler, and persist the outcome into the session.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gesin-frd/srat-assistant-go/internal/config"
	"github.com/gesin-frd/srat-assistant-go/internal/guard"
	"github.com/gesin-frd/srat-assistant-go/internal/intent"
	"github.com/gesin-frd/srat-assistant-go/internal/metrics"
	"github.com/gesin-frd/srat-assistant-go/internal/modules"
	"github.com/gesin-frd/srat-assistant-go/internal/sentry"
	"github.com/gesin-frd/srat-assistant-go/internal/session"
)

// Result is the outcome of one processed turn.
type Result struct {
	Reply string
	Label intent.Label
}

// replyUnavailable closes a turn whose handler failed outright. Every
// turn ends in a user-facing reply, keeping the history alternating
// user/assistant even when the completion service is down.
const replyUnavailable = "En este momento no puedo responderte. Probá de nuevo en unos minutos."

// classifier is the slice of the intent layer the controller needs.
type classifier interface {
	Classify(ctx context.Context, message string, prior intent.Label) intent.Label
}

// sensitiveGuard intercepts academic turns that reference record
// content tied to an identifier.
type sensitiveGuard interface {
	MaybeHandle(ctx context.Context, sess *session.Session, text string) (string, bool)
}

// Controller routes one message through classification, the guard,
// and the label's handler. Callers serialize turns per session with
// BeginTurn before calling Process.
type Controller struct {
	classifier classifier
	guard      sensitiveGuard
	responders map[intent.Label]modules.Responder
	fallback   modules.Responder
	metrics    *metrics.Metrics
}

// NewController wires the turn pipeline. The general responder doubles
// as the fallback for labels with no registered handler.
func NewController(c classifier, g sensitiveGuard, portal, academic, general modules.Responder, m *metrics.Metrics) *Controller {
	return &Controller{
		classifier: c,
		guard:      g,
		responders: map[intent.Label]modules.Responder{
			intent.LabelPortal:   portal,
			intent.LabelAcademic: academic,
			intent.LabelGeneral:  general,
		},
		fallback: general,
		metrics:  m,
	}
}

// Process runs one turn. The steps always run in order: append the
// user message, classify with the stored label as prior, guard
// academic turns, dispatch, append the reply, store the new label.
// A handler failure closes the turn with a fixed fallback reply, so
// the history stays alternating and the caller always has text to
// send back.
func (c *Controller) Process(ctx context.Context, sess *session.Session, message string) (Result, error) {
	start := time.Now()

	sess.Append(session.RoleUser, message)

	classifyCtx, cancel := context.WithTimeout(ctx, config.ClassifyRequest)
	label := c.classifier.Classify(classifyCtx, message, sess.Label())
	cancel()

	status := "success"
	reply, err := c.respond(ctx, sess, label, message)
	if err != nil {
		slog.ErrorContext(ctx, "handler failed, closing turn with fallback reply",
			"session_id", sess.ID(),
			"label", label.String(),
			"error", err)
		sentry.CaptureException(ctx, fmt.Errorf("handling %s turn: %w", label, err))
		reply = replyUnavailable
		status = "degraded"
	}

	sess.Append(session.RoleAssistant, reply)
	sess.SetLabel(label)

	c.recordTurn(label, status, start)
	slog.DebugContext(ctx, "turn processed",
		"session_id", sess.ID(),
		"label", label.String(),
		"duration", time.Since(start))

	return Result{Reply: reply, Label: label}, nil
}

func (c *Controller) respond(ctx context.Context, sess *session.Session, label intent.Label, message string) (string, error) {
	if label == intent.LabelAcademic && c.guard != nil {
		if reply, handled := c.guard.MaybeHandle(ctx, sess, message); handled {
			return reply, nil
		}
	}

	responder, ok := c.responders[label]
	if !ok || responder == nil {
		responder = c.fallback
	}
	if responder == nil {
		return "", fmt.Errorf("no handler registered for label %s", label)
	}
	return responder.Respond(ctx, sess.History())
}

func (c *Controller) recordTurn(label intent.Label, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordChatTurn(label.String(), status, time.Since(start).Seconds())
}

// compile-time checks that the real collaborators satisfy the local
// interfaces.
var (
	_ classifier     = (*intent.Classifier)(nil)
	_ sensitiveGuard = (*guard.Guard)(nil)
)
