// Package intent classifies incoming chat messages into routing labels.
// Classification is sticky: the prior label of the conversation is given
// to the model so follow-up messages stay in the same lane.
package intent

import "strings"

// Label identifies which conversational handler a message belongs to.
type Label int

const (
	// LabelGeneral covers greetings and anything without clear context.
	LabelGeneral Label = iota
	// LabelPortal covers questions about the topic-logging portal itself
	// (access, passwords, schedules, missing subjects).
	LabelPortal
	// LabelAcademic covers academic record queries (legajos, subjects,
	// programs).
	LabelAcademic
)

// Wire tokens exchanged with the completion service.
const (
	tokenPortal   = "SRAT"
	tokenAcademic = "DATABASE"
	tokenGeneral  = "GENERAL"
)

// String returns the wire token for the label.
func (l Label) String() string {
	switch l {
	case LabelPortal:
		return tokenPortal
	case LabelAcademic:
		return tokenAcademic
	default:
		return tokenGeneral
	}
}

// ParseLabel maps a model response to a Label. The response is trimmed,
// upper-cased, and reduced to its first token; anything unrecognized
// maps to LabelGeneral.
func ParseLabel(s string) (Label, bool) {
	token := strings.ToUpper(strings.TrimSpace(s))
	if i := strings.IndexAny(token, " \t\n\r.,:;"); i >= 0 {
		token = token[:i]
	}

	switch token {
	case tokenPortal:
		return LabelPortal, true
	case tokenAcademic:
		return LabelAcademic, true
	case tokenGeneral:
		return LabelGeneral, true
	default:
		return LabelGeneral, false
	}
}
