package intent

import (
	"fmt"
	"strings"
)

// routerPrompt builds the system instruction for the classifier call.
// The prior label makes the classification sticky: short follow-ups
// ("mi legajo es 50443") stay in the current lane instead of bouncing
// back to GENERAL.
func routerPrompt(prior Label, subjectKeywords, identifierKeywords []string) string {
	academicSignals := strings.Join(append(append([]string{}, identifierKeywords...), subjectKeywords...), ", ")

	return fmt.Sprintf(`Eres un clasificador de consultas. Tu única función es determinar qué tipo de consulta es el mensaje del usuario.
El tipo de consulta actual es %s, si no podes contextualizarla mantene el mismo tipo de consulta.
Por ejemplo: si estamos con SRAT o DATABASE y luego habla del legajo no vuelvas a general, MANTENETE en uno de esos dos (SRAT o DATABASE).

TIPOS DE CONSULTA:
1. SRAT: Preguntas sobre el sistema de carga de temas, problemas de acceso, contraseñas, horarios, etc.
2. DATABASE: Preguntas sobre información académica, legajos, materias, carreras, consultas de base de datos.
3. GENERAL: Saludos, preguntas generales, o cuando no está claro el tipo de consulta.

PALABRAS CLAVE PARA SRAT:
- sistema, carga, temas, ingreso, acceso, contraseña, legajo (en contexto de login), SRAT
- wifi, FRDWLAN, PC, pasillo, departamento
- horario, materia (en contexto de sistema)
- problemas, no puedo, no aparece, error

PALABRAS CLAVE PARA DATABASE:
- %s
- información académica, qué materia doy, a qué carrera pertenezco
- consulta académica, datos personales académicos

PALABRAS CLAVE PARA GENERAL:
- hola, buenos días, buenas tardes, saludos
- cómo estás, qué tal
- preguntas generales sin contexto específico

Responde ÚNICAMENTE con una de estas tres palabras: SRAT, DATABASE, o GENERAL
No agregues explicaciones ni texto adicional.`, prior, academicSignals)
}
