// Package general implements the fallback greeter for messages that
// match neither the topic-system nor the academic-records intent. It
// always presents both services so the user learns what the assistant
// can actually do.
package general

import (
	"context"
	"log/slog"

	"github.com/gesin-frd/srat-assistant-go/internal/faq"
	"github.com/gesin-frd/srat-assistant-go/internal/llm"
	"github.com/gesin-frd/srat-assistant-go/internal/modules"
	"github.com/gesin-frd/srat-assistant-go/internal/session"
)

// ModuleName is the module identifier for registration.
const ModuleName = "general"

// replyFallback is used when no completion provider can answer. The
// general module has no escalation channel; a greeting never warrants
// a support mail.
const replyFallback = "¡Hola! Soy tu asistente virtual. Puedo ayudarte con el sistema de carga de temas (SRAT) o con consultas académicas sobre tu legajo y materias. ¿En qué puedo asistirte?"

const systemPrompt = `Eres un asistente virtual amigable para profesores de la facultad.

Tu función es recibir saludos y consultas generales, y orientar al usuario hacia los servicios disponibles:
1. Ayuda con el sistema de carga de temas (SRAT): acceso, contraseñas, horarios, materias que no aparecen.
2. Consultas académicas sobre legajos, materias y carreras.

REGLAS:
- SIEMPRE menciona ambos servicios cuando saludes o cuando la consulta no encaje en ninguno
- Sé breve, cálido y conversacional
- NUNCA inventes información sobre materias, carreras ni legajos
- NUNCA menciones herramientas ni sistemas internos

Ejemplo de saludo:
"¡Hola! Soy tu asistente virtual. Puedo ayudarte con el sistema de carga de temas (SRAT) o con consultas académicas sobre tu legajo y materias. ¿En qué puedo asistirte?"

REGLAS DE RESPUESTA:
- NUNCA incluyas etiquetas como "GENERAL" o cualquier palabra en mayúsculas al inicio de tu respuesta
- NUNCA uses formato especial, colores, o indicadores visuales
- Responde directamente con el texto, sin prefijos ni etiquetas`

// Handler answers greetings and out-of-scope questions.
type Handler struct {
	completer modules.Completer
	faq       *faq.Store
}

// NewHandler creates a general handler.
func NewHandler(completer modules.Completer, faqStore *faq.Store) *Handler {
	return &Handler{
		completer: completer,
		faq:       faqStore,
	}
}

// Name returns the module name
func (h *Handler) Name() string {
	return ModuleName
}

// Respond generates the reply for the current turn. Completion
// failure degrades to a fixed greeting instead of surfacing an error.
func (h *Handler) Respond(ctx context.Context, history []session.Message) (string, error) {
	if answer, ok := h.faq.Match(modules.LastUserMessage(history)); ok {
		return answer, nil
	}

	reply, err := h.completer.Complete(ctx, llm.CompletionRequest{
		System:      systemPrompt,
		Messages:    modules.ToChatMessages(history),
		Temperature: 0.7,
	})
	if err != nil {
		slog.WarnContext(ctx, "general completion failed, using fixed greeting",
			"module", ModuleName,
			"error", err)
		return replyFallback, nil
	}
	return reply, nil
}
