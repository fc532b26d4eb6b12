// ABOUTME: Store interface and data types for chat-gateway persistence
// ABOUTME: Defines Conversation, Message structs and the Store interface for backends

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested conversation does not exist
var ErrNotFound = errors.New("conversation not found")

// ErrDuplicateConversation is returned when trying to create a conversation that already exists
var ErrDuplicateConversation = errors.New("conversation already exists")

// ErrWriteFailed is returned when a create, update, or delete cannot be persisted
var ErrWriteFailed = errors.New("store write failed")

// ErrMalformedRecord is returned when a persisted record cannot be decoded
// into the typed conversation shape
var ErrMalformedRecord = errors.New("malformed conversation record")

// Role constants for message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SystemPrompt seeds every new conversation as its first message.
const SystemPrompt = "You are a useful AI assistant."

// Message is a single role/content entry in a conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is a chat session: the full message transcript plus lifecycle
// metadata. Messages[0] is always the system prompt; later entries alternate
// between user and assistant turns. The transcript is append-only.
type Conversation struct {
	ID        string
	Messages  []Message
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewConversation builds a fresh conversation seeded with the system prompt.
func NewConversation(id string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:        id,
		Messages:  []Message{{Role: RoleSystem, Content: SystemPrompt}},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store defines the interface for conversation persistence
type Store interface {
	// CreateConversation persists a brand-new conversation seeded with the
	// system prompt and returns it. If a conversation with the same ID
	// already exists, it returns ErrDuplicateConversation.
	CreateConversation(ctx context.Context, id string) (*Conversation, error)

	// GetConversation retrieves a conversation by ID.
	// Returns ErrNotFound if the conversation doesn't exist and
	// ErrMalformedRecord if the stored record cannot be decoded.
	GetConversation(ctx context.Context, id string) (*Conversation, error)

	// UpdateConversation overwrites the message transcript and active flag
	// and refreshes updated_at. Updating a conversation that does not exist
	// is a write failure (ErrWriteFailed), not ErrNotFound: callers are
	// expected to have loaded the record before writing it back.
	UpdateConversation(ctx context.Context, id string, messages []Message, active bool) error

	// DeleteConversation removes a conversation, reporting whether one
	// existed. Deleting a missing conversation is not an error.
	DeleteConversation(ctx context.Context, id string) (bool, error)

	// Close releases any resources held by the store
	Close() error
}
