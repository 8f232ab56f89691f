package guard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gesin-frd/srat-assistant-go/internal/config"
	"github.com/gesin-frd/srat-assistant-go/internal/mailer"
	"github.com/gesin-frd/srat-assistant-go/internal/metrics"
	"github.com/gesin-frd/srat-assistant-go/internal/records"
	"github.com/gesin-frd/srat-assistant-go/internal/sentry"
	"github.com/gesin-frd/srat-assistant-go/internal/session"
)

// Fixed chat replies. These are the only texts the guard ever puts on
// the chat surface; record content goes exclusively into the email body.
const (
	replyAskIdentifier = "Para poder enviarte tu información académica, decime tu legajo."
	replySent          = "Te envié la información a tu correo institucional asociado al legajo."
	replySendFailed    = "Ocurrió un problema al enviar el correo. ¿Podés confirmar otra dirección de email para reenviar la información?"
	replyNoAddress     = "No encuentro un correo institucional asociado a tu legajo. Decime un email para enviarte la información."

	mailSubject = "Tu información académica"
)

// recordStore is the slice of the records repository the guard needs.
type recordStore interface {
	LookupAffiliations(ctx context.Context, legajo string) ([]records.Affiliation, error)
	LookupEmail(ctx context.Context, legajo string) (string, error)
}

// Guard intercepts sensitive academic-record requests.
type Guard struct {
	store              recordStore
	sender             mailer.Sender
	subjectKeywords    []string
	identifierKeywords []string
	metrics            *metrics.Metrics
}

// New creates a guard over the given record store and mail channel.
func New(store recordStore, sender mailer.Sender, subjectKeywords, identifierKeywords []string, m *metrics.Metrics) *Guard {
	return &Guard{
		store:              store,
		sender:             sender,
		subjectKeywords:    subjectKeywords,
		identifierKeywords: identifierKeywords,
		metrics:            m,
	}
}

// MaybeHandle inspects an academic-records message and, when it asks
// for personal data tied to a legajo, handles the whole turn with the
// fixed lookup-and-notify procedure. Returns the chat reply and true
// when the guard took the turn; ("", false) delegates to the
// conversational handler.
func (g *Guard) MaybeHandle(ctx context.Context, sess *session.Session, text string) (string, bool) {
	sig := Detect(text, g.subjectKeywords, g.identifierKeywords)

	// Remember the identifier for the rest of the conversation even
	// when the guard does not fire.
	if sig.Identifier != "" && sess != nil {
		sess.SetLastIdentifier(sig.Identifier)
	}

	// A subject keyword under an academic classification is a record
	// request; without one the conversational handler takes the turn.
	if !sig.SubjectKeyword {
		g.record("not_matched")
		return "", false
	}

	// Fall back to an identifier remembered from an earlier turn, so
	// "mi legajo es 50443" followed by "qué materias doy" resolves
	// without asking again.
	legajo := sig.Identifier
	if legajo == "" && sess != nil {
		legajo = sess.LastIdentifier()
	}

	if legajo == "" {
		// Record request with no usable identifier anywhere in the
		// conversation; ask for the number and stop. No lookup happens.
		g.record("no_identifier")
		return replyAskIdentifier, true
	}

	// Both lookups are non-fatal: a store error behaves like an empty
	// result so the turn still ends in a useful reply.
	lookupCtx, cancel := context.WithTimeout(ctx, config.RecordLookup)
	defer cancel()

	affiliations, err := g.store.LookupAffiliations(lookupCtx, legajo)
	if err != nil {
		slog.WarnContext(ctx, "affiliation lookup failed", "error", err)
		affiliations = nil
	}

	email, err := g.store.LookupEmail(lookupCtx, legajo)
	if err != nil {
		slog.WarnContext(ctx, "email lookup failed", "error", err)
		email = ""
	}

	if email == "" {
		g.record("no_address")
		return replyNoAddress, true
	}

	body := buildMailBody(legajo, affiliations)

	sendCtx, sendCancel := context.WithTimeout(ctx, config.MailSend)
	defer sendCancel()

	if err := g.sender.Send(sendCtx, mailer.Message{
		To:      []string{email},
		Subject: mailSubject,
		Body:    body,
	}); err != nil {
		slog.WarnContext(ctx, "record delivery failed", "error", err)
		sentry.CaptureException(ctx, fmt.Errorf("record delivery: %w", err))
		g.record("send_failed")
		g.recordMail("record_delivery", "error")
		return replySendFailed, true
	}

	g.record("sent")
	g.recordMail("record_delivery", "success")
	return replySent, true
}

// buildMailBody renders the record for the email. This text never
// reaches the chat surface.
func buildMailBody(legajo string, affiliations []records.Affiliation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Legajo: %s\n\n", legajo)

	if len(affiliations) == 0 {
		fmt.Fprintf(&b, "No se encontraron asignaturas para el usuario con legajo %s.\n", legajo)
		return b.String()
	}

	fmt.Fprintf(&b, "Asignaturas del usuario con legajo %s:\n", legajo)
	for _, a := range affiliations {
		fmt.Fprintf(&b, "- Materia: %s - Carrera: %s\n", a.Subject, a.Program)
	}
	return b.String()
}

func (g *Guard) record(outcome string) {
	if g.metrics != nil {
		g.metrics.RecordGuardOutcome(outcome)
	}
}

func (g *Guard) recordMail(purpose, status string) {
	if g.metrics != nil {
		g.metrics.RecordMailSend(purpose, status)
	}
}
