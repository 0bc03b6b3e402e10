// Package session holds conversations and persists them between runs.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/Cyclone1070/agentgate/internal/provider"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// Conversation is the ordered, append-only message history of one session
// plus its generation options. Only the agent loop appends to it.
type Conversation struct {
	SessionID string             `json:"session_id"`
	Messages  []provider.Message `json:"messages"`
	Options   provider.Options   `json:"options"`
}

// NewConversation starts an empty conversation.
func NewConversation(sessionID string, opts provider.Options) *Conversation {
	return &Conversation{SessionID: sessionID, Options: opts}
}

// Append adds m at the end. A zero timestamp is set to now.
func (c *Conversation) Append(m provider.Message) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	c.Messages = append(c.Messages, m)
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.Messages)
}

// History returns a copy of the messages safe to hand to a provider.
func (c *Conversation) History() []provider.Message {
	out := make([]provider.Message, len(c.Messages))
	copy(out, c.Messages)
	return out
}

// Session is a persisted conversation and its bookkeeping.
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Usage     provider.Usage
}

// New returns a session with a fresh id.
func New(title string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Summary is the listing view of a session.
type Summary struct {
	ID           string
	Title        string
	MessageCount int
	TotalTokens  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ListOptions pages through summaries, most recently updated first.
type ListOptions struct {
	Limit  int // 0 = no limit
	Offset int
}

// Store persists sessions and their conversations.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) ([]Summary, error)

	LoadContext(ctx context.Context, id string) (*Conversation, error)
	SaveContext(ctx context.Context, id string, conv *Conversation) error

	Close() error
}
