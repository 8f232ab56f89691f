// Package guard intercepts academic-record requests that ask for
// personal data tied to a legajo. Matching messages are handled with a
// fixed lookup-and-notify procedure instead of a conversational
// handler, so record content can only ever leave through email.
package guard

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Signals is the outcome of scanning one message.
type Signals struct {
	// SubjectKeyword reports whether the message mentions subjects or
	// programs ("materia(s)", "carrera(s)" by default).
	SubjectKeyword bool

	// IdentifierCue reports whether the message references an
	// identifier, either by keyword ("legajo") or by a standalone
	// 4-6 digit run.
	IdentifierCue bool

	// Identifier is the extracted digit run, or empty if none was
	// present. Always set when a digit run exists, even if the
	// keyword signals did not fire.
	Identifier string
}

// Sensitive reports whether the message asks for record content that
// can actually be looked up: a subject keyword together with a
// resolved identifier. A subject keyword alone still takes the turn,
// but only to ask for the identifier.
func (s Signals) Sensitive() bool {
	return s.SubjectKeyword && s.Identifier != ""
}

var (
	standaloneDigits = regexp.MustCompile(`\b(\d{4,6})\b`)

	// foldTransformer lower-cases happen separately; this strips
	// combining marks so "qué" matches "que".
	foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// fold normalizes text for matching: lower-case and accent-free.
func fold(s string) string {
	lowered := strings.ToLower(s)
	folded, _, err := transform.String(foldTransformer, lowered)
	if err != nil {
		return lowered
	}
	return folded
}

// Detect scans a message for the sensitive-request signals. It is a
// pure function: accent-folded, case-insensitive keyword containment
// plus digit-run detection and extraction.
//
// Extraction prefers a digit run immediately following an identifier
// keyword ("legajo 50443", "legajo: 50443"); otherwise the first
// standalone 4-6 digit run in the message is taken.
func Detect(text string, subjectKeywords, identifierKeywords []string) Signals {
	folded := fold(text)

	var sig Signals

	for _, kw := range subjectKeywords {
		if strings.Contains(folded, fold(kw)) {
			sig.SubjectKeyword = true
			break
		}
	}

	hasDigitRun := standaloneDigits.MatchString(folded)
	for _, kw := range identifierKeywords {
		if strings.Contains(folded, fold(kw)) {
			sig.IdentifierCue = true
			break
		}
	}
	if hasDigitRun {
		sig.IdentifierCue = true
	}

	// Prefer the digit run that follows an identifier keyword
	for _, kw := range identifierKeywords {
		re, err := regexp.Compile(regexp.QuoteMeta(fold(kw)) + `\D*(\d{4,6})\b`)
		if err != nil {
			continue
		}
		if m := re.FindStringSubmatch(folded); m != nil {
			sig.Identifier = m[1]
			return sig
		}
	}

	if m := standaloneDigits.FindStringSubmatch(folded); m != nil {
		sig.Identifier = m[1]
	}

	return sig
}
