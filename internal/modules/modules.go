// Package modules contains the pieces shared by the conversational
// handlers: the Responder contract, history conversion for completion
// calls, and the escalation channel to the operations inbox.
package modules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gesin-frd/srat-assistant-go/internal/llm"
	"github.com/gesin-frd/srat-assistant-go/internal/mailer"
	"github.com/gesin-frd/srat-assistant-go/internal/metrics"
	"github.com/gesin-frd/srat-assistant-go/internal/session"
)

// Responder produces a reply from the full session history.
// The last history entry is the user message being answered.
type Responder interface {
	// Name returns the module identifier for logging and metrics.
	Name() string
	// Respond generates the reply for the current turn.
	Respond(ctx context.Context, history []session.Message) (string, error)
}

// Completer is the slice of the completion chain the handlers need.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

// ToChatMessages converts session history into completion-call turns.
func ToChatMessages(history []session.Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == session.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.ChatMessage{Role: role, Content: m.Content})
	}
	return out
}

// LastUserMessage returns the content of the most recent user turn.
func LastUserMessage(history []session.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == session.RoleUser {
			return history[i].Content
		}
	}
	return ""
}

// Escalator mails a conversational summary to the operations inbox
// when a handler cannot produce a reply. The code decides when to
// escalate; the completion service never triggers sends on its own.
type Escalator struct {
	sender     mailer.Sender
	opsAddress string
	metrics    *metrics.Metrics
}

// NewEscalator creates an escalator. Returns a usable value even when
// the sender is disabled; Escalate then reports failure.
func NewEscalator(sender mailer.Sender, opsAddress string, m *metrics.Metrics) *Escalator {
	return &Escalator{
		sender:     sender,
		opsAddress: opsAddress,
		metrics:    m,
	}
}

// Escalate sends the conversation transcript to the operations inbox.
// The transcript carries the literal chat turns, which by the guard's
// construction never contain record content.
func (e *Escalator) Escalate(ctx context.Context, subject string, history []session.Message) error {
	if e == nil || e.sender == nil || !e.sender.IsEnabled() || e.opsAddress == "" {
		return fmt.Errorf("escalation channel not configured")
	}

	err := e.sender.Send(ctx, mailer.Message{
		To:      []string{e.opsAddress},
		Subject: subject,
		Body:    Transcript(history),
	})

	if e.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		e.metrics.RecordMailSend("escalation", status)
	}
	return err
}

// Transcript renders the session history for an escalation mail.
func Transcript(history []session.Message) string {
	var b strings.Builder
	b.WriteString("Historial de la conversación:\n\n")
	for _, m := range history {
		speaker := "Usuario"
		if m.Role == session.RoleAssistant {
			speaker = "Asistente"
		}
		stamp := ""
		if !m.At.IsZero() {
			stamp = m.At.Format(time.DateTime) + " "
		}
		fmt.Fprintf(&b, "%s[%s] %s\n", stamp, speaker, m.Content)
	}
	return b.String()
}
