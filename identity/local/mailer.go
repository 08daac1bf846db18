package local

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
)

// Action names carried in [Message.Action] and in the "mode" query parameter
// of action links.
const (
	ActionVerifyEmail   = "verifyEmail"
	ActionResetPassword = "resetPassword"
)

// Message is an out-of-band email.
type Message struct {
	To     string
	Action string
	// Code is the action code to pass to ApplyActionCode or
	// ConfirmPasswordReset.
	Code string
	Link string
}

// Mailer delivers out-of-band emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to a logger instead of sending them.
type LogMailer struct {
	Log logr.Logger
}

func (m LogMailer) Send(_ context.Context, msg Message) error {
	m.Log.Info("email", "to", msg.To, "action", msg.Action, "link", msg.Link)
	return nil
}

// MemoryMailer keeps every message in memory.
type MemoryMailer struct {
	mu       sync.Mutex
	messages []Message
}

func (m *MemoryMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of everything sent so far.
func (m *MemoryMailer) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// Last returns the most recent message of action sent to to.
func (m *MemoryMailer) Last(to, action string) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].To == to && m.messages[i].Action == action {
			return m.messages[i], true
		}
	}
	return Message{}, false
}
