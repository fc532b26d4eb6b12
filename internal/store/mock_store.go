// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite or BoltDB

package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation // keyed by conversation ID
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		conversations: make(map[string]*Conversation),
	}
}

// CreateConversation stores a fresh conversation seeded with the system prompt.
func (m *MockStore) CreateConversation(ctx context.Context, id string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[id]; exists {
		return nil, ErrDuplicateConversation
	}

	conv := NewConversation(id)
	m.conversations[id] = copyConversation(conv)
	return conv, nil
}

// GetConversation retrieves a conversation by ID.
func (m *MockStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy
	return copyConversation(conv), nil
}

// UpdateConversation overwrites the transcript and active flag of an existing
// conversation. A missing conversation is reported as ErrWriteFailed.
func (m *MockStore) UpdateConversation(ctx context.Context, id string, messages []Message, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return fmt.Errorf("%w: conversation %s does not exist", ErrWriteFailed, id)
	}

	conv.Messages = append([]Message(nil), messages...)
	conv.Active = active
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteConversation removes a conversation, reporting whether one existed.
func (m *MockStore) DeleteConversation(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return false, nil
	}

	delete(m.conversations, id)
	return true, nil
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}

// copyConversation clones the conversation and its transcript so callers
// cannot mutate stored state through the returned pointer.
func copyConversation(conv *Conversation) *Conversation {
	c := *conv
	c.Messages = append([]Message(nil), conv.Messages...)
	return &c
}

// Verify MockStore implements Store interface at compile time.
var _ Store = (*MockStore)(nil)
