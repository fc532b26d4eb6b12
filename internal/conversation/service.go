// ABOUTME: ConversationService is the central layer for chat session lifecycle
// ABOUTME: All chat turns flow through here - the stored transcript is the source of truth

package conversation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/2389/chat-gateway/internal/store"
)

// ErrInactiveSession is returned when a message is appended to a
// conversation that is no longer active
var ErrInactiveSession = errors.New("chat session has ended")

// ConversationStore defines what the service needs from storage
type ConversationStore interface {
	CreateConversation(ctx context.Context, id string) (*store.Conversation, error)
	GetConversation(ctx context.Context, id string) (*store.Conversation, error)
	UpdateConversation(ctx context.Context, id string, messages []store.Message, active bool) error
	DeleteConversation(ctx context.Context, id string) (bool, error)
}

// Completer defines what the service needs from the completion layer
type Completer interface {
	Generate(ctx context.Context, messages []store.Message) (string, error)
}

// Service owns the conversation lifecycle: it resolves sessions, gates
// appends on the active flag, runs completions over the full transcript,
// and writes the grown transcript back.
type Service struct {
	store     ConversationStore
	completer Completer
	logger    *slog.Logger
}

// New creates a new ConversationService
func New(store ConversationStore, completer Completer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		completer: completer,
		logger:    logger.With("component", "conversation"),
	}
}

// GetOrCreate resolves an existing conversation or creates a new one seeded
// with the system prompt. The call is idempotent per ID: losing the create
// race to a concurrent request is handled by retrying the lookup.
func (s *Service) GetOrCreate(ctx context.Context, id string) (*store.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	conv, err = s.store.CreateConversation(ctx, id)
	if err != nil {
		// Another request may have created the conversation between our
		// lookup and insert attempt
		if errors.Is(err, store.ErrDuplicateConversation) {
			s.logger.Debug("conversation creation hit duplicate, retrying lookup", "id", id)
			return s.store.GetConversation(ctx, id)
		}
		return nil, err
	}

	s.logger.Debug("conversation created", "id", id)
	return conv, nil
}

// AppendUserMessage adds a user turn to the in-memory transcript. It returns
// ErrInactiveSession when the conversation is closed. An empty role defaults
// to "user"; any other value is carried verbatim, matching the wire format.
// Nothing is persisted until Persist is called.
func (s *Service) AppendUserMessage(conv *store.Conversation, role, content string) error {
	if !conv.Active {
		return ErrInactiveSession
	}

	if role == "" {
		role = store.RoleUser
	}
	conv.Messages = append(conv.Messages, store.Message{Role: role, Content: content})
	return nil
}

// CompleteAndAppend runs a completion over the full transcript and appends
// the aggregated reply as an assistant turn. On failure nothing is appended;
// the caller skips Persist and the store keeps the pre-turn transcript.
func (s *Service) CompleteAndAppend(ctx context.Context, conv *store.Conversation) (string, error) {
	reply, err := s.completer.Generate(ctx, conv.Messages)
	if err != nil {
		return "", err
	}

	conv.Messages = append(conv.Messages, store.Message{Role: store.RoleAssistant, Content: reply})

	s.logger.Debug("completion appended",
		"id", conv.ID,
		"transcript_len", len(conv.Messages),
		"reply_chars", len(reply))
	return reply, nil
}

// Persist writes the conversation's transcript and active flag back to the
// store, refreshing updated_at.
func (s *Service) Persist(ctx context.Context, conv *store.Conversation) error {
	return s.store.UpdateConversation(ctx, conv.ID, conv.Messages, conv.Active)
}

// Get returns a conversation by ID. Returns store.ErrNotFound if it
// doesn't exist.
func (s *Service) Get(ctx context.Context, id string) (*store.Conversation, error) {
	return s.store.GetConversation(ctx, id)
}

// Delete removes a conversation, reporting whether one existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	existed, err := s.store.DeleteConversation(ctx, id)
	if err != nil {
		return false, err
	}
	if existed {
		s.logger.Debug("conversation deleted", "id", id)
	}
	return existed, nil
}
