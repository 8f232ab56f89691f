package general

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
	completer := &stubCompleter{reply: "¡Hola! ¿En qué puedo ayudarte?"}
	h := NewHandler(completer, emptyFAQ(t))

	reply, err := h.Respond(context.Background(), userTurn("hola"))
	require.NoError(t, err)
	assert.Equal(t, "¡Hola! ¿En qué puedo ayudarte?", reply)
	assert.Contains(t, completer.lastReq.System, "ambos servicios")
}

func TestRespondPrefersCannedAnswer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "respuestas.txt")
	content := "qué podés hacer: Puedo ayudarte con el sistema de carga de temas o con consultas académicas.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	store, err := faq.Load(path, nil, nil)
	require.NoError(t, err)

	completer := &stubCompleter{reply: "no debería usarse"}
	h := NewHandler(completer, store)

	reply, err := h.Respond(context.Background(), userTurn("qué podés hacer"))
	require.NoError(t, err)
	assert.Equal(t, "Puedo ayudarte con el sistema de carga de temas o con consultas académicas.", reply)
	assert.Zero(t, completer.calls)
}

func TestRespondFallsBackToFixedGreeting(t *testing.T) {
	completer := &stubCompleter{err: errors.New("all providers failed")}
	h := NewHandler(completer, emptyFAQ(t))

	reply, err := h.Respond(context.Background(), userTurn("hola"))
	require.NoError(t, err)
	assert.Equal(t, replyFallback, reply)
	assert.Contains(t, reply, "SRAT")
	assert.Contains(t, reply, "legajo")
}

func TestName(t *testing.T) {
	h := NewHandler(&stubCompleter{}, emptyFAQ(t))
	assert.Equal(t, ModuleName, h.Name())
}
