// Package conversation provides high-level chat session management.
//
// # Overview
//
// The conversation package sits between the HTTP handlers and the storage
// and completion layers. It owns the session lifecycle and the shape of a
// chat turn; handlers compose its operations and map errors to statuses.
//
// # Service
//
// The Service coordinates conversation operations:
//
//	svc := conversation.New(store, completer, logger)
//
// Key operations:
//
//   - GetOrCreate(ctx, id): Resolve a session, creating it on first contact
//   - AppendUserMessage(conv, role, content): Add the user's turn in memory
//   - CompleteAndAppend(ctx, conv): Generate and append the assistant reply
//   - Persist(ctx, conv): Write the grown transcript back to the store
//   - Get / Delete: Lifecycle reads and teardown
//
// # Chat Turn
//
// A chat turn is read-append-generate-append-persist:
//
//  1. Load (or create) the conversation
//  2. Append the user message to the in-memory transcript
//  3. Run a completion over the full transcript and append the reply
//  4. Persist the transcript in one write
//
// Nothing is written until step 4, so a failed completion leaves the stored
// transcript exactly as it was before the turn. There is no retry and no
// partial write to clean up.
//
// # Sessions
//
// Conversations are keyed by client-supplied IDs and carry an active flag.
// Appending to an inactive conversation fails with ErrInactiveSession;
// nothing in the service flips the flag, it only gates.
//
// # Concurrency
//
// Turns on the same conversation are not serialized. Two concurrent turns
// read the same snapshot and whichever persists last wins, overwriting the
// other turn's exchange. The expected access pattern is one client per
// conversation ID, where turns arrive strictly in sequence.
package conversation
