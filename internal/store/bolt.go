// ABOUTME: BoltDB implementation of the Store interface using go.etcd.io/bbolt
// ABOUTME: Persists each conversation as a JSON document keyed by conversation ID

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// bucketConversations holds one JSON document per conversation.
var bucketConversations = []byte("conversations")

// BoltStore implements the Store interface using a single-file BoltDB
// key/value database. Each conversation is one JSON document, the same
// record shape the SQLite backend spreads across columns.
type BoltStore struct {
	db     *bolt.DB
	logger *slog.Logger
}

// conversationRecord is the JSON document stored per conversation.
// Timestamps are RFC3339 strings so the on-disk shape matches what the
// HTTP surface serves.
type conversationRecord struct {
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
	Active         bool      `json:"active"`
	CreatedAt      string    `json:"created_at"`
	UpdatedAt      string    `json:"updated_at"`
}

func recordFromConversation(conv *Conversation) conversationRecord {
	return conversationRecord{
		ConversationID: conv.ID,
		Messages:       conv.Messages,
		Active:         conv.Active,
		CreatedAt:      conv.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      conv.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (r conversationRecord) toConversation() (*Conversation, error) {
	createdAt, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing created_at: %v", ErrMalformedRecord, err)
	}
	updatedAt, err := time.Parse(time.RFC3339, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing updated_at: %v", ErrMalformedRecord, err)
	}
	return &Conversation{
		ID:        r.ConversationID,
		Messages:  r.Messages,
		Active:    r.Active,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// NewBoltStore creates a new BoltDB store at the given path.
// The conversations bucket is created if it doesn't exist.
// Parent directories are created if needed.
func NewBoltStore(path string) (*BoltStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// Timeout bounds the wait on the file lock when another process holds it
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketConversations)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating conversations bucket: %w", err)
	}

	logger.Info("Bolt store initialized", "path", path)
	return &BoltStore{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the database file
func (s *BoltStore) Close() error {
	s.logger.Info("closing Bolt store")
	return s.db.Close()
}

// CreateConversation inserts a fresh conversation seeded with the system
// prompt. If a conversation with the same ID already exists, it returns
// ErrDuplicateConversation.
func (s *BoltStore) CreateConversation(ctx context.Context, id string) (*Conversation, error) {
	conv := NewConversation(id)

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConversations)
		if b.Get([]byte(id)) != nil {
			return ErrDuplicateConversation
		}
		doc, err := json.Marshal(recordFromConversation(conv))
		if err != nil {
			return err
		}
		return b.Put([]byte(id), doc)
	})
	if errors.Is(err, ErrDuplicateConversation) {
		return nil, ErrDuplicateConversation
	}
	if err != nil {
		return nil, fmt.Errorf("%w: inserting conversation: %v", ErrWriteFailed, err)
	}

	s.logger.Debug("created conversation", "id", conv.ID)
	return conv, nil
}

// GetConversation retrieves a conversation by ID.
// Returns ErrNotFound if the conversation doesn't exist and
// ErrMalformedRecord if the stored document cannot be decoded.
func (s *BoltStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var conv *Conversation

	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketConversations).Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}
		var rec conversationRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("%w: decoding record for %s: %v", ErrMalformedRecord, id, err)
		}
		c, err := rec.toConversation()
		if err != nil {
			return err
		}
		conv = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	return conv, nil
}

// UpdateConversation overwrites the message transcript and active flag and
// refreshes updated_at, preserving created_at from the stored document.
// Updating a conversation that does not exist is reported as ErrWriteFailed.
func (s *BoltStore) UpdateConversation(ctx context.Context, id string, messages []Message, active bool) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConversations)
		raw := b.Get([]byte(id))
		if raw == nil {
			return fmt.Errorf("%w: conversation %s does not exist", ErrWriteFailed, id)
		}
		var rec conversationRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("%w: decoding record for %s: %v", ErrMalformedRecord, id, err)
		}
		rec.Messages = messages
		rec.Active = active
		rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		doc, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), doc)
	})
	if errors.Is(err, ErrWriteFailed) || errors.Is(err, ErrMalformedRecord) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: updating conversation: %v", ErrWriteFailed, err)
	}

	s.logger.Debug("updated conversation", "id", id, "messages", len(messages))
	return nil
}

// DeleteConversation removes a conversation, reporting whether one existed.
func (s *BoltStore) DeleteConversation(ctx context.Context, id string) (bool, error) {
	existed := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConversations)
		if b.Get([]byte(id)) == nil {
			return nil
		}
		existed = true
		return b.Delete([]byte(id))
	})
	if err != nil {
		return false, fmt.Errorf("%w: deleting conversation: %v", ErrWriteFailed, err)
	}

	if existed {
		s.logger.Debug("deleted conversation", "id", id)
	}
	return existed, nil
}

// Ensure BoltStore implements Store interface
var _ Store = (*BoltStore)(nil)
