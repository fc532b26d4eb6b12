// Package store provides persistent conversation storage for chat-gateway.
//
// # Architecture
//
// The package is built around a single Store interface with two file-backed
// implementations:
//
//   - SQLiteStore: one row per conversation, transcript held as a JSON
//     document column (modernc.org/sqlite, WAL mode)
//   - BoltStore: one JSON document per conversation in a key/value bucket
//     (go.etcd.io/bbolt)
//
// Both backends persist the same record shape:
//
//	{conversation_id, messages: [{role, content}, ...], active, created_at, updated_at}
//
// with RFC3339 timestamps. Which backend runs is a configuration choice;
// callers only see the Store interface.
//
// # Data Model
//
//   - Conversation: full message transcript plus lifecycle metadata.
//     Messages[0] is the system prompt, seeded at creation; the transcript
//     is append-only thereafter.
//   - Message: a single role/content entry (system, user, or assistant).
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: requested conversation does not exist
//   - ErrDuplicateConversation: conversation ID already taken
//   - ErrWriteFailed: a create, update, or delete could not be persisted;
//     this includes updating a conversation that does not exist
//   - ErrMalformedRecord: a stored record does not decode into the typed
//     conversation shape; reads fail fast rather than papering over it
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests:
//
//	store := store.NewMockStore()
//
// Use NewSQLiteStore or NewBoltStore with a t.TempDir() path for
// integration tests against a real database file.
package store
