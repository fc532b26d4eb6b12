// ABOUTME: Unit tests for MockStore to ensure behavior matches the real backends
// ABOUTME: Focuses on duplicate detection and copy semantics of the in-memory implementation

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_CreateConversation_Duplicate(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	_, err := store.CreateConversation(ctx, "conv-123")
	require.NoError(t, err)

	_, err = store.CreateConversation(ctx, "conv-123")
	assert.ErrorIs(t, err, ErrDuplicateConversation, "duplicate ID should return ErrDuplicateConversation (matches backend UNIQUE behavior)")
}

func TestMockStore_Lifecycle(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	conv, err := store.CreateConversation(ctx, "conv-123")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)

	messages := append(conv.Messages, Message{Role: RoleUser, Content: "hello"})
	require.NoError(t, store.UpdateConversation(ctx, "conv-123", messages, true))

	retrieved, err := store.GetConversation(ctx, "conv-123")
	require.NoError(t, err)
	require.Len(t, retrieved.Messages, 2)

	existed, err := store.DeleteConversation(ctx, "conv-123")
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = store.GetConversation(ctx, "conv-123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockStore_UpdateConversation_Missing(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	err := store.UpdateConversation(ctx, "nonexistent", nil, true)
	assert.ErrorIs(t, err, ErrWriteFailed)
}

func TestMockStore_ReturnsCopies(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	_, err := store.CreateConversation(ctx, "conv-123")
	require.NoError(t, err)

	// Mutating a retrieved conversation must not touch stored state
	first, err := store.GetConversation(ctx, "conv-123")
	require.NoError(t, err)
	first.Messages[0].Content = "tampered"
	first.Messages = append(first.Messages, Message{Role: RoleUser, Content: "extra"})

	second, err := store.GetConversation(ctx, "conv-123")
	require.NoError(t, err)
	require.Len(t, second.Messages, 1)
	assert.Equal(t, SystemPrompt, second.Messages[0].Content)
}
