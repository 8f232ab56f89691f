package academic

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gesin-frd/srat-assistant-go/internal/llm"
	"github.com/gesin-frd/srat-assistant-go/internal/mailer"
	"github.com/gesin-frd/srat-assistant-go/internal/modules"
	"github.com/gesin-frd/srat-assistant-go/internal/session"
)

type stubCompleter struct {
	reply   string
	err     error
	lastReq llm.CompletionRequest
}

func (s *stubCompleter) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	s.lastReq = req
	return s.reply, s.err
}

type stubCounter struct {
	users       int
	assignments int
	err         error
}

func (s *stubCounter) Counts(context.Context) (int, int, error) {
	return s.users, s.assignments, s.err
}

type captureSender struct {
	enabled bool
	sent    []mailer.Message
}

func (c *captureSender) Send(_ context.Context, msg mailer.Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) IsEnabled() bool { return c.enabled }

func userTurn(content string) []session.Message {
	return []session.Message{{Role: session.RoleUser, Content: content}}
}

func TestRespondUsesCompletion(t *testing.T) {
	completer := &stubCompleter{reply: "Un legajo es tu número de identificación en la facultad."}
	h := NewHandler(completer, &stubCounter{users: 12, assignments: 40}, nil)

	reply, err := h.Respond(context.Background(), userTurn("qué es un legajo"))
	require.NoError(t, err)
	assert.Equal(t, "Un legajo es tu número de identificación en la facultad.", reply)
	assert.Contains(t, completer.lastReq.System, "consultas académicas")
	assert.Contains(t, completer.lastReq.System, "12 usuarios")
	assert.Contains(t, completer.lastReq.System, "40 asignaciones")
}

func TestRespondNoRecordContentInPrompt(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	h := NewHandler(completer, &stubCounter{users: 3, assignments: 9}, nil)

	_, err := h.Respond(context.Background(), userTurn("mis materias, legajo 50443"))
	require.NoError(t, err)

	// The prompt may only carry aggregate numbers, never names of
	// subjects or programs.
	system := strings.ToLower(completer.lastReq.System)
	assert.NotContains(t, system, "50443")
	assert.Contains(t, system, "contexto no sensible")
}

func TestRespondSkipsCountsOnStoreError(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	h := NewHandler(completer, &stubCounter{err: errors.New("db closed")}, nil)

	_, err := h.Respond(context.Background(), userTurn("hola"))
	require.NoError(t, err)
	assert.NotContains(t, completer.lastReq.System, "CONTEXTO NO SENSIBLE")
}

func TestRespondNilStore(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	h := NewHandler(completer, nil, nil)

	reply, err := h.Respond(context.Background(), userTurn("hola"))
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
}

func TestRespondEscalatesOnCompletionFailure(t *testing.T) {
	completer := &stubCompleter{err: errors.New("all providers failed")}
	sender := &captureSender{enabled: true}
	esc := modules.NewEscalator(sender, "ops@frd.utn.edu.ar", nil)
	h := NewHandler(completer, nil, esc)

	reply, err := h.Respond(context.Background(), userTurn("consulta rara"))
	require.NoError(t, err)
	assert.Equal(t, replyEscalated, reply)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, escalationSubject, sender.sent[0].Subject)
}

func TestRespondReturnsErrorWhenEscalationFails(t *testing.T) {
	completer := &stubCompleter{err: errors.New("all providers failed")}
	h := NewHandler(completer, nil, nil)

	_, err := h.Respond(context.Background(), userTurn("consulta"))
	assert.ErrorContains(t, err, "all providers failed")
}

func TestName(t *testing.T) {
	h := NewHandler(&stubCompleter{}, nil, nil)
	assert.Equal(t, ModuleName, h.Name())
}
