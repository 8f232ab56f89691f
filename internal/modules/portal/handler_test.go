package portal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gesin-frd/srat-assistant-go/internal/faq"
	"github.com/gesin-frd/srat-assistant-go/internal/llm"
	"github.com/gesin-frd/srat-assistant-go/internal/mailer"
	"github.com/gesin-frd/srat-assistant-go/internal/modules"
	"github.com/gesin-frd/srat-assistant-go/internal/session"
)

type stubCompleter struct {
	reply   string
	err     error
	lastReq llm.CompletionRequest
	calls   int
}

func (s *stubCompleter) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	s.calls++
	s.lastReq = req
	return s.reply, s.err
}

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

func emptyFAQ(t *testing.T) *faq.Store {
	t.Helper()
	store, err := faq.Load("", nil, nil)
	require.NoError(t, err)
	return store
}

func userTurn(content string) []session.Message {
	return []session.Message{{Role: session.RoleUser, Content: content}}
}

func TestRespondUsesCompletion(t *testing.T) {
	completer := &stubCompleter{reply: "Probá reiniciando la sesión."}
	h := NewHandler(completer, emptyFAQ(t), nil)

	reply, err := h.Respond(context.Background(), userTurn("no puedo entrar al sistema"))
	require.NoError(t, err)
	assert.Equal(t, "Probá reiniciando la sesión.", reply)
	assert.Contains(t, completer.lastReq.System, "sistema de carga de temas")
	require.Len(t, completer.lastReq.Messages, 1)
	assert.Equal(t, "no puedo entrar al sistema", completer.lastReq.Messages[0].Content)
}

func TestRespondPrefersCannedAnswer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "respuestas.txt")
	content := "cómo cambio mi contraseña: Desde el menú Usuario, opción Cambiar contraseña.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	store, err := faq.Load(path, nil, nil)
	require.NoError(t, err)

	completer := &stubCompleter{reply: "no debería usarse"}
	h := NewHandler(completer, store, nil)

	reply, err := h.Respond(context.Background(), userTurn("cómo cambio mi contraseña"))
	require.NoError(t, err)
	assert.Equal(t, "Desde el menú Usuario, opción Cambiar contraseña.", reply)
	assert.Zero(t, completer.calls)
}

func TestRespondEscalatesOnCompletionFailure(t *testing.T) {
	completer := &stubCompleter{err: errors.New("all providers failed")}
	sender := &captureSender{enabled: true}
	esc := modules.NewEscalator(sender, "ops@frd.utn.edu.ar", nil)
	h := NewHandler(completer, emptyFAQ(t), esc)

	reply, err := h.Respond(context.Background(), userTurn("no aparece mi materia"))
	require.NoError(t, err)
	assert.Equal(t, replyEscalated, reply)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, escalationSubject, sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "no aparece mi materia")
}

func TestRespondReturnsErrorWhenEscalationFails(t *testing.T) {
	completer := &stubCompleter{err: errors.New("all providers failed")}
	sender := &captureSender{enabled: true, err: errors.New("smtp down")}
	esc := modules.NewEscalator(sender, "ops@frd.utn.edu.ar", nil)
	h := NewHandler(completer, emptyFAQ(t), esc)

	_, err := h.Respond(context.Background(), userTurn("ayuda"))
	assert.ErrorContains(t, err, "all providers failed")
}

func TestName(t *testing.T) {
	h := NewHandler(&stubCompleter{}, emptyFAQ(t), nil)
	assert.Equal(t, ModuleName, h.Name())
}
