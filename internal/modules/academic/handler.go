// Package academic implements the academic-records helper for the
// non-sensitive path: questions about legajos, subjects, and programs
// that the sensitive-query guard did not intercept.
//
// The completion call never sees record content. The only store data
// given as context are aggregate counts, so a prompt injection cannot
// make the model leak what it was never shown.
package academic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gesin-frd/srat-assistant-go/internal/config"
	"github.com/gesin-frd/srat-assistant-go/internal/llm"
	"github.com/gesin-frd/srat-assistant-go/internal/modules"
	"github.com/gesin-frd/srat-assistant-go/internal/session"
)

// ModuleName is the module identifier for registration.
const ModuleName = "academic"

const escalationSubject = "Notificación: Asistente Académico - Historial de Conversación"

const replyEscalated = "En este momento no puedo ayudarte con eso. Envié un correo al equipo de soporte con el historial de la conversación para que vean el tema."

const systemPrompt = `Tu rol es ayudar con consultas académicas generales sobre legajos, materias y carreras.

REGLAS IMPORTANTES:
- Si alguien menciona su legajo (ej: "Mi legajo es 12345"), recuérdalo para la conversación
- Podés explicar definiciones, procesos y requisitos académicos de forma general
- NUNCA enumeres materias, carreras ni datos personales asociados a un legajo en el chat: esa información se envía únicamente por correo institucional
- Si el usuario pide sus materias o carreras, explicale que esa información se envía por correo institucional y pedile que escriba su consulta mencionando su legajo
- NUNCA menciones herramientas, consultas o bases de datos en tus respuestas
- NUNCA inventes nombres de materias ni de carreras
- Sé conversacional y natural, sin referencias técnicas internas

Si solo hizo 1 pregunta irrelevante, responde con algo como:
"Solo puedo ayudarte con consultas académicas sobre legajos, materias y carreras. ¿Querés que te ayude con eso?"

Nunca respondas temas ajenos a consultas académicas.

REGLAS DE RESPUESTA:
- NUNCA incluyas etiquetas como "DATABASE", "ACADÉMICO" o cualquier palabra en mayúsculas al inicio de tu respuesta
- NUNCA uses formato especial, colores, o indicadores visuales
- Responde directamente con el texto de ayuda, sin prefijos ni etiquetas
- Comienza tu respuesta directamente con la información útil`

// counter is the slice of the records repository the handler needs:
// aggregate numbers only, never record content.
type counter interface {
	Counts(ctx context.Context) (users, assignments int, err error)
}

// Handler answers non-sensitive academic questions.
type Handler struct {
	completer modules.Completer
	store     counter
	escalator *modules.Escalator
}

// NewHandler creates an academic handler.
func NewHandler(completer modules.Completer, store counter, escalator *modules.Escalator) *Handler {
	return &Handler{
		completer: completer,
		store:     store,
		escalator: escalator,
	}
}

// Name returns the module name
func (h *Handler) Name() string {
	return ModuleName
}

// Respond generates the reply for the current turn.
func (h *Handler) Respond(ctx context.Context, history []session.Message) (string, error) {
	system := systemPrompt

	// Aggregate counts are the only store-derived context the model sees.
	if h.store != nil {
		countCtx, cancel := context.WithTimeout(ctx, config.RecordLookup)
		users, assignments, err := h.store.Counts(countCtx)
		cancel()
		if err == nil {
			system += fmt.Sprintf(
				"\n\nCONTEXTO NO SENSIBLE: la base registra %d usuarios y %d asignaciones de materias.",
				users, assignments)
		}
	}

	reply, err := h.completer.Complete(ctx, llm.CompletionRequest{
		System:      system,
		Messages:    modules.ToChatMessages(history),
		Temperature: 0.7,
	})
	if err == nil {
		return reply, nil
	}

	slog.WarnContext(ctx, "academic completion failed, escalating",
		"module", ModuleName,
		"error", err)

	if escErr := h.escalator.Escalate(ctx, escalationSubject, history); escErr != nil {
		slog.ErrorContext(ctx, "academic escalation failed",
			"module", ModuleName,
			"error", escErr)
		return "", err
	}
	return replyEscalated, nil
}
