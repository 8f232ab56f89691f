// Package portal implements the topic-system helper: questions about
// using the topic-logging portal itself (access, passwords, schedules,
// missing subjects).
package portal

import (
	"context"
	"log/slog"

	"github.com/gesin-frd/srat-assistant-go/internal/faq"
	"github.com/gesin-frd/srat-assistant-go/internal/llm"
	"github.com/gesin-frd/srat-assistant-go/internal/modules"
	"github.com/gesin-frd/srat-assistant-go/internal/session"
)

// ModuleName is the module identifier for registration.
const ModuleName = "portal"

const escalationSubject = "Notificación: Asistente de Carga de Temas - Historial de Conversación"

// replyEscalated is the fixed text used when the handler cannot
// generate a reply and escalates instead.
const replyEscalated = "En este momento no puedo ayudarte con eso. Envié un correo al equipo de soporte con el historial de la conversación para que vean el tema."

const systemPrompt = `Eres un asistente virtual especializado en ayudar a los profesores con el sistema de carga de temas.
Responde SOLO preguntas sobre este sistema. Los alumnos no utilizan este sistema.

FUNCIONAMIENTO DEL SISTEMA:
- Con un celular o notebook se accede a la red wifi FRDWLAN (solo en la facultad), esta red la gestiona el GESIN (nosotros no podemos resolverlo).
- Desde las PC que están en el pasillo de los Departamentos de las Carreras (aquí es donde funciona el asistente, o sea, vos)

PROCESO:
- El profesor o auxiliar, ingresa con legajo y contraseña específica para este sistema.
- Se carga el tema del día y se cierra sesión.
- La primera vez que ingresa en el día guarda la hora de ingreso.
- La última vez que ingresa al sistema guarda la hora de egreso.

PROBLEMAS COMUNES:
- Si no puede ingresar:
    - puede ser que se haya olvidado la contraseña o el legajo.
    - puede ser que no esté dado de alta en el sistema como usuario.
- Si no aparece la materia:
    - puede ser que el horario de la materia esté mal cargado.
    - puede ser que el usuario no esté asignado a la materia.

Para cualquiera de estos casos, solicitar nombre, apellido, legajo, materia y carrera para derivar el caso al equipo de soporte.

Si solo hizo 1 pregunta irrelevante, responde con algo como:
"Solo puedo ayudarte con el sistema de carga de temas. ¿Querés que te ayude con eso?"

Nunca respondas temas ajenos al sistema de carga de temas.

REGLAS DE RESPUESTA:
- NUNCA incluyas etiquetas como "SRAT", "SISTEMA" o cualquier palabra en mayúsculas al inicio de tu respuesta
- NUNCA uses formato especial, colores, o indicadores visuales
- Responde directamente con el texto de ayuda, sin prefijos ni etiquetas
- Comienza tu respuesta directamente con la información útil`

// Handler answers portal questions. Canned answers are tried before
// spending a completion call; completion failure escalates to the
// operations inbox.
type Handler struct {
	completer modules.Completer
	faq       *faq.Store
	escalator *modules.Escalator
}

// NewHandler creates a portal handler.
func NewHandler(completer modules.Completer, faqStore *faq.Store, escalator *modules.Escalator) *Handler {
	return &Handler{
		completer: completer,
		faq:       faqStore,
		escalator: escalator,
	}
}

// Name returns the module name
func (h *Handler) Name() string {
	return ModuleName
}

// Respond generates the reply for the current turn.
func (h *Handler) Respond(ctx context.Context, history []session.Message) (string, error) {
	if answer, ok := h.faq.Match(modules.LastUserMessage(history)); ok {
		return answer, nil
	}

	reply, err := h.completer.Complete(ctx, llm.CompletionRequest{
		System:      systemPrompt,
		Messages:    modules.ToChatMessages(history),
		Temperature: 0.7,
	})
	if err == nil {
		return reply, nil
	}

	slog.WarnContext(ctx, "portal completion failed, escalating",
		"module", ModuleName,
		"error", err)

	if escErr := h.escalator.Escalate(ctx, escalationSubject, history); escErr != nil {
		slog.ErrorContext(ctx, "portal escalation failed",
			"module", ModuleName,
			"error", escErr)
		return "", err
	}
	return replyEscalated, nil
}
