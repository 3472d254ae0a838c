package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rib4ko/essaouira-guide/internal/event"
)

// Roles of transcript messages.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// LoadingState tracks what the chat is doing between submissions.
type LoadingState string

const (
	StateIdle          LoadingState = "idle"
	StateThinking      LoadingState = "thinking"
	StateExecutingTool LoadingState = "executing_tool"
)

// ErrorReplyText is the fixed notice shown when a turn fails. It is
// appended locally and never sent back into the conversation.
const ErrorReplyText = "I apologize, I encountered an error accessing the information. Please check your API key or try again."

// Message is one turn in the visible transcript. It is immutable once
// appended.
type Message struct {
	ID         string        `json:"id"`
	Role       string        `json:"role"`
	Text       string        `json:"text"`
	Timestamp  time.Time     `json:"timestamp"`
	IsError    bool          `json:"isError,omitempty"`
	Events     []event.Event `json:"events,omitempty"`
	WebSources []string      `json:"webSources,omitempty"`
}

// Transcript is the append-only message log for one chat instance. It is
// never truncated or rewritten within a session.
type Transcript struct {
	mu       sync.Mutex
	messages []Message
}

// Append adds a message, filling in ID and Timestamp when unset, and
// returns the stored copy.
func (t *Transcript) Append(msg Message) Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
	return msg
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Message(nil), t.messages...)
}

// Len returns the number of messages in the transcript.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
