// Package session holds per-conversation state for the chat API.
// Each session carries the rolling message history, the sticky
// routing label, and the last academic identifier seen in the
// conversation.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/gesin-frd/srat-assistant-go/internal/intent"
)

// Message roles in the conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn stored in the session history.
type Message struct {
	Role    string
	Content string
	At      time.Time
}

// Session is the state of one conversation.
// All accessors are safe for concurrent use; turns are serialized
// through BeginTurn/EndTurn so two concurrent requests on the same
// session cannot interleave their state updates.
type Session struct {
	id        string
	createdAt time.Time

	turn chan struct{} // capacity 1, held for the duration of a turn

	mu             sync.Mutex
	lastSeen       time.Time
	label          intent.Label
	lastIdentifier string
	history        []Message
	maxHistory     int
}

func newSession(id string, maxHistory int, now time.Time) *Session {
	return &Session{
		id:         id,
		createdAt:  now,
		lastSeen:   now,
		label:      intent.LabelGeneral,
		turn:       make(chan struct{}, 1),
		maxHistory: maxHistory,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// BeginTurn acquires the session's turn slot, blocking until the
// previous turn finishes or the context is done.
func (s *Session) BeginTurn(ctx context.Context) error {
	select {
	case s.turn <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EndTurn releases the turn slot. Must be called exactly once after a
// successful BeginTurn.
func (s *Session) EndTurn() {
	<-s.turn
}

// InTurn reports whether the turn slot is currently held. The registry
// uses this to keep sessions alive while a turn is in flight.
func (s *Session) InTurn() bool {
	return len(s.turn) == 1
}

// Label returns the current sticky routing label.
func (s *Session) Label() intent.Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

// SetLabel updates the sticky routing label.
func (s *Session) SetLabel(l intent.Label) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = l
}

// LastIdentifier returns the most recent academic identifier seen in
// the conversation, or empty if none.
func (s *Session) LastIdentifier() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastIdentifier
}

// SetLastIdentifier remembers an academic identifier for later turns.
func (s *Session) SetLastIdentifier(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastIdentifier = id
}

// Append adds a message to the rolling history, dropping the oldest
// entries once maxHistory is exceeded.
func (s *Session) Append(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, Message{
		Role:    role,
		Content: content,
		At:      time.Now(),
	})
	if s.maxHistory > 0 && len(s.history) > s.maxHistory {
		// Drop from the front; copy to release the backing array
		trimmed := make([]Message, s.maxHistory)
		copy(trimmed, s.history[len(s.history)-s.maxHistory:])
		s.history = trimmed
	}
}

// History returns a copy of the message history, oldest first.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Touch records activity, pushing back idle expiry.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
}

// LastSeen returns the time of the most recent activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
