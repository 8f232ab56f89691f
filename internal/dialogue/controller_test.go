package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gesin-frd/srat-assistant-go/internal/intent"
	"github.com/gesin-frd/srat-assistant-go/internal/modules"
	"github.com/gesin-frd/srat-assistant-go/internal/session"
)

type fakeClassifier struct {
	label     intent.Label
	lastPrior intent.Label
	calls     int
}

func (f *fakeClassifier) Classify(_ context.Context, _ string, prior intent.Label) intent.Label {
	f.calls++
	f.lastPrior = prior
	return f.label
}

type fakeGuard struct {
	reply   string
	handled bool
	calls   int
}

func (f *fakeGuard) MaybeHandle(_ context.Context, _ *session.Session, _ string) (string, bool) {
	f.calls++
	return f.reply, f.handled
}

type fakeResponder struct {
	name        string
	reply       string
	err         error
	calls       int
	lastHistory []session.Message
}

func (f *fakeResponder) Name() string { return f.name }

func (f *fakeResponder) Respond(_ context.Context, history []session.Message) (string, error) {
	f.calls++
	f.lastHistory = history
	return f.reply, f.err
}

func newTestSession(t *testing.T) (*session.Session, *session.Registry) {
	t.Helper()
	reg := session.NewRegistry(session.RegistryConfig{}, nil)
	t.Cleanup(reg.Stop)
	sess, created := reg.GetOrCreate("test-session")
	require.True(t, created)
	return sess, reg
}

func newController(c *fakeClassifier, g *fakeGuard, portal, academic, general *fakeResponder) *Controller {
	var guard sensitiveGuard
	if g != nil {
		guard = g
	}
	asResponder := func(f *fakeResponder) modules.Responder {
		if f == nil {
			return nil
		}
		return f
	}
	return NewController(c, guard, asResponder(portal), asResponder(academic), asResponder(general), nil)
}

func TestProcessDispatchesByLabel(t *testing.T) {
	tests := []struct {
		name  string
		label intent.Label
	}{
		{"portal", intent.LabelPortal},
		{"academic", intent.LabelAcademic},
		{"general", intent.LabelGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			portal := &fakeResponder{name: "portal", reply: "respuesta portal"}
			academic := &fakeResponder{name: "academic", reply: "respuesta academica"}
			general := &fakeResponder{name: "general", reply: "respuesta general"}
			classifier := &fakeClassifier{label: tt.label}
			ctrl := newController(classifier, &fakeGuard{}, portal, academic, general)

			sess, _ := newTestSession(t)
			res, err := ctrl.Process(context.Background(), sess, "mensaje")
			require.NoError(t, err)
			assert.Equal(t, tt.label, res.Label)

			want := map[intent.Label]*fakeResponder{
				intent.LabelPortal:   portal,
				intent.LabelAcademic: academic,
				intent.LabelGeneral:  general,
			}[tt.label]
			assert.Equal(t, want.reply, res.Reply)
			assert.Equal(t, 1, want.calls)
		})
	}
}

func TestProcessAppendsBothTurns(t *testing.T) {
	general := &fakeResponder{name: "general", reply: "buenas"}
	ctrl := newController(&fakeClassifier{label: intent.LabelGeneral}, nil, nil, nil, general)

	sess, _ := newTestSession(t)
	_, err := ctrl.Process(context.Background(), sess, "hola")
	require.NoError(t, err)

	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, session.RoleUser, history[0].Role)
	assert.Equal(t, "hola", history[0].Content)
	assert.Equal(t, session.RoleAssistant, history[1].Role)
	assert.Equal(t, "buenas", history[1].Content)

	// The handler saw the history including the just-appended user turn.
	require.Len(t, general.lastHistory, 1)
	assert.Equal(t, "hola", general.lastHistory[0].Content)
}

func TestProcessStickyLabelUsedAsPrior(t *testing.T) {
	portal := &fakeResponder{name: "portal", reply: "ok"}
	classifier := &fakeClassifier{label: intent.LabelPortal}
	ctrl := newController(classifier, nil, portal, nil, portal)

	sess, _ := newTestSession(t)
	assert.Equal(t, intent.LabelGeneral, sess.Label())

	_, err := ctrl.Process(context.Background(), sess, "no puedo entrar")
	require.NoError(t, err)
	assert.Equal(t, intent.LabelGeneral, classifier.lastPrior)
	assert.Equal(t, intent.LabelPortal, sess.Label())

	_, err = ctrl.Process(context.Background(), sess, "sigo sin poder")
	require.NoError(t, err)
	assert.Equal(t, intent.LabelPortal, classifier.lastPrior)
}

func TestProcessGuardHandlesAcademicTurn(t *testing.T) {
	academic := &fakeResponder{name: "academic", reply: "no debería usarse"}
	g := &fakeGuard{reply: "Te envié la información a tu correo institucional asociado al legajo.", handled: true}
	ctrl := newController(&fakeClassifier{label: intent.LabelAcademic}, g, nil, academic, nil)

	sess, _ := newTestSession(t)
	res, err := ctrl.Process(context.Background(), sess, "qué materias doy, legajo 50443")
	require.NoError(t, err)

	assert.Equal(t, g.reply, res.Reply)
	assert.Equal(t, 1, g.calls)
	assert.Zero(t, academic.calls)

	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, g.reply, history[1].Content)
}

func TestProcessGuardPassesThrough(t *testing.T) {
	academic := &fakeResponder{name: "academic", reply: "un legajo es tu identificación"}
	g := &fakeGuard{handled: false}
	ctrl := newController(&fakeClassifier{label: intent.LabelAcademic}, g, nil, academic, nil)

	sess, _ := newTestSession(t)
	res, err := ctrl.Process(context.Background(), sess, "qué es un legajo")
	require.NoError(t, err)

	assert.Equal(t, 1, g.calls)
	assert.Equal(t, 1, academic.calls)
	assert.Equal(t, "un legajo es tu identificación", res.Reply)
}

func TestProcessGuardNotInvokedOffAcademic(t *testing.T) {
	portal := &fakeResponder{name: "portal", reply: "ok"}
	g := &fakeGuard{handled: true, reply: "no debería usarse"}
	ctrl := newController(&fakeClassifier{label: intent.LabelPortal}, g, portal, nil, portal)

	sess, _ := newTestSession(t)
	res, err := ctrl.Process(context.Background(), sess, "mensaje con legajo 50443")
	require.NoError(t, err)
	assert.Zero(t, g.calls)
	assert.Equal(t, "ok", res.Reply)
}

func TestProcessFallsBackToGeneral(t *testing.T) {
	general := &fakeResponder{name: "general", reply: "fallback"}
	ctrl := NewController(&fakeClassifier{label: intent.LabelAcademic}, nil, nil, nil, general, nil)

	sess, _ := newTestSession(t)
	res, err := ctrl.Process(context.Background(), sess, "hola")
	require.NoError(t, err)
	assert.Equal(t, "fallback", res.Reply)
	assert.Equal(t, 1, general.calls)
}

func TestProcessHandlerFailureDegrades(t *testing.T) {
	general := &fakeResponder{name: "general", err: errors.New("all providers failed")}
	ctrl := newController(&fakeClassifier{label: intent.LabelGeneral}, nil, nil, nil, general)

	sess, _ := newTestSession(t)
	res, err := ctrl.Process(context.Background(), sess, "hola")
	require.NoError(t, err)
	assert.Equal(t, replyUnavailable, res.Reply)

	// The failed turn still closes with an assistant reply
	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, session.RoleUser, history[0].Role)
	assert.Equal(t, session.RoleAssistant, history[1].Role)
	assert.Equal(t, intent.LabelGeneral, sess.Label())
}

func TestProcessAlternationSurvivesFailure(t *testing.T) {
	general := &fakeResponder{name: "general", err: errors.New("all providers failed")}
	ctrl := newController(&fakeClassifier{label: intent.LabelGeneral}, nil, nil, nil, general)

	sess, _ := newTestSession(t)
	_, err := ctrl.Process(context.Background(), sess, "hola")
	require.NoError(t, err)

	// Handler recovers for the next turn
	general.err = nil
	general.reply = "buenas"
	res, err := ctrl.Process(context.Background(), sess, "hola de nuevo")
	require.NoError(t, err)
	assert.Equal(t, "buenas", res.Reply)

	history := sess.History()
	require.Len(t, history, 4)
	for i, m := range history {
		if i%2 == 0 {
			assert.Equal(t, session.RoleUser, m.Role, "entry %d", i)
		} else {
			assert.Equal(t, session.RoleAssistant, m.Role, "entry %d", i)
		}
	}
}

func TestProcessConversationAlternates(t *testing.T) {
	general := &fakeResponder{name: "general", reply: "respuesta"}
	ctrl := newController(&fakeClassifier{label: intent.LabelGeneral}, nil, nil, nil, general)

	sess, _ := newTestSession(t)
	for i := 0; i < 3; i++ {
		_, err := ctrl.Process(context.Background(), sess, "mensaje")
		require.NoError(t, err)
	}

	history := sess.History()
	require.Len(t, history, 6)
	for i, m := range history {
		if i%2 == 0 {
			assert.Equal(t, session.RoleUser, m.Role)
		} else {
			assert.Equal(t, session.RoleAssistant, m.Role)
		}
	}
}
