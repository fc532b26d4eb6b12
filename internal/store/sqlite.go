// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Persists each conversation as one row with a JSON message document

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the conversations table if it doesn't exist.
// The message transcript is held as a JSON document in a single column,
// matching the persisted record shape of the other backends.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			messages TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// CreateConversation inserts a fresh conversation seeded with the system
// prompt. If a conversation with the same ID already exists, it returns
// ErrDuplicateConversation.
func (s *SQLiteStore) CreateConversation(ctx context.Context, id string) (*Conversation, error) {
	conv := NewConversation(id)

	doc, err := json.Marshal(conv.Messages)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding messages: %v", ErrWriteFailed, err)
	}

	query := `
		INSERT INTO conversations (conversation_id, messages, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		conv.ID,
		string(doc),
		conv.Active,
		conv.CreatedAt.UTC().Format(time.RFC3339),
		conv.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		// Check for UNIQUE constraint violation
		if isConstraintViolation(err) {
			return nil, ErrDuplicateConversation
		}
		return nil, fmt.Errorf("%w: inserting conversation: %v", ErrWriteFailed, err)
	}

	s.logger.Debug("created conversation", "id", conv.ID)
	return conv, nil
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// GetConversation retrieves a conversation by ID.
// Returns ErrNotFound if the conversation doesn't exist and
// ErrMalformedRecord if the stored row cannot be decoded.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	query := `
		SELECT conversation_id, messages, active, created_at, updated_at
		FROM conversations
		WHERE conversation_id = ?
	`

	var conv Conversation
	var doc string
	var createdAtStr, updatedAtStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&conv.ID,
		&doc,
		&conv.Active,
		&createdAtStr,
		&updatedAtStr,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}

	if err := json.Unmarshal([]byte(doc), &conv.Messages); err != nil {
		return nil, fmt.Errorf("%w: decoding messages for %s: %v", ErrMalformedRecord, id, err)
	}

	conv.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing created_at: %v", ErrMalformedRecord, err)
	}

	conv.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing updated_at: %v", ErrMalformedRecord, err)
	}

	return &conv, nil
}

// UpdateConversation overwrites the message transcript and active flag and
// refreshes updated_at. Updating a conversation that does not exist is
// reported as ErrWriteFailed.
func (s *SQLiteStore) UpdateConversation(ctx context.Context, id string, messages []Message, active bool) error {
	doc, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("%w: encoding messages: %v", ErrWriteFailed, err)
	}

	query := `
		UPDATE conversations
		SET messages = ?, active = ?, updated_at = ?
		WHERE conversation_id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		string(doc),
		active,
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("%w: updating conversation: %v", ErrWriteFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected: %v", ErrWriteFailed, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: conversation %s does not exist", ErrWriteFailed, id)
	}

	s.logger.Debug("updated conversation", "id", id, "messages", len(messages))
	return nil
}

// DeleteConversation removes a conversation, reporting whether one existed.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE conversation_id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("%w: deleting conversation: %v", ErrWriteFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: getting rows affected: %v", ErrWriteFailed, err)
	}

	if rowsAffected == 0 {
		return false, nil
	}

	s.logger.Debug("deleted conversation", "id", id)
	return true, nil
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
