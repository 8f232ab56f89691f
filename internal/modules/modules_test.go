package modules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gesin-frd/srat-assistant-go/internal/llm"
	"github.com/gesin-frd/srat-assistant-go/internal/mailer"
	"github.com/gesin-frd/srat-assistant-go/internal/session"
)

type captureSender struct {
	enabled bool
	err     error
	sent    []mailer.Message
}

func (c *captureSender) Send(_ context.Context, msg mailer.Message) error {
	c.sent = append(c.sent, msg)
	return c.err
}

func (c *captureSender) IsEnabled() bool { return c.enabled }

func TestToChatMessages(t *testing.T) {
	history := []session.Message{
		{Role: session.RoleUser, Content: "hola"},
		{Role: session.RoleAssistant, Content: "buenas"},
		{Role: session.RoleUser, Content: "chau"},
	}

	msgs := ToChatMessages(history)
	require.Len(t, msgs, 3)
	assert.Equal(t, llm.RoleUser, msgs[0].Role)
	assert.Equal(t, llm.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "chau", msgs[2].Content)
}

func TestLastUserMessage(t *testing.T) {
	history := []session.Message{
		{Role: session.RoleUser, Content: "primera"},
		{Role: session.RoleAssistant, Content: "respuesta"},
		{Role: session.RoleUser, Content: "segunda"},
		{Role: session.RoleAssistant, Content: "otra"},
	}

	assert.Equal(t, "segunda", LastUserMessage(history))
	assert.Equal(t, "", LastUserMessage(nil))
	assert.Equal(t, "", LastUserMessage([]session.Message{
		{Role: session.RoleAssistant, Content: "solo asistente"},
	}))
}

func TestTranscript(t *testing.T) {
	at := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	history := []session.Message{
		{Role: session.RoleUser, Content: "no puedo entrar", At: at},
		{Role: session.RoleAssistant, Content: "probá de nuevo"},
	}

	out := Transcript(history)
	assert.Contains(t, out, "Historial de la conversación")
	assert.Contains(t, out, "2025-03-10 14:30:00 [Usuario] no puedo entrar")
	assert.Contains(t, out, "[Asistente] probá de nuevo")
}

func TestEscalateSendsTranscript(t *testing.T) {
	sender := &captureSender{enabled: true}
	esc := NewEscalator(sender, "ops@frd.utn.edu.ar", nil)

	history := []session.Message{
		{Role: session.RoleUser, Content: "ayuda con el sistema"},
	}
	err := esc.Escalate(context.Background(), "Notificación", history)
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"ops@frd.utn.edu.ar"}, msg.To)
	assert.Equal(t, "Notificación", msg.Subject)
	assert.Contains(t, msg.Body, "ayuda con el sistema")
}

func TestEscalateNotConfigured(t *testing.T) {
	tests := []struct {
		name string
		esc  *Escalator
	}{
		{"nil escalator", nil},
		{"nil sender", NewEscalator(nil, "ops@frd.utn.edu.ar", nil)},
		{"disabled sender", NewEscalator(&captureSender{enabled: false}, "ops@frd.utn.edu.ar", nil)},
		{"no ops address", NewEscalator(&captureSender{enabled: true}, "", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.esc.Escalate(context.Background(), "x", nil)
			assert.Error(t, err)
		})
	}
}

func TestEscalateSendFailure(t *testing.T) {
	sender := &captureSender{enabled: true, err: errors.New("smtp down")}
	esc := NewEscalator(sender, "ops@frd.utn.edu.ar", nil)

	err := esc.Escalate(context.Background(), "x", nil)
	assert.Error(t, err)
}
