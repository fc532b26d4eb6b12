// ABOUTME: HTTP API handlers for the chat and conversation endpoints.
// ABOUTME: Maps service errors to status codes and shapes JSON responses.

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/chat-gateway/internal/conversation"
	"github.com/2389/chat-gateway/internal/store"
)

// inactiveSessionMessage is returned to clients that chat against a
// conversation whose session has ended.
const inactiveSessionMessage = "The chat session has ended. Please start a new session."

// ChatRequest is the JSON request body for POST /chat/.
// GetOrCreate is accepted for compatibility with existing clients; the handler
// always gets or creates the conversation regardless of its value.
type ChatRequest struct {
	Message        string `json:"message"`
	Role           string `json:"role,omitempty"`
	ConversationID string `json:"conversation_id"`
	GetOrCreate    string `json:"get_or_create_conversation,omitempty"`
}

// ChatResponse is the JSON response for POST /chat/.
type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
}

// ConversationResponse is the JSON response for GET /conversations/{id}.
// The active flag is internal state and is not exposed here.
type ConversationResponse struct {
	ConversationID string          `json:"conversation_id"`
	Messages       []store.Message `json:"messages"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

// handleChat handles POST /chat/ requests. It runs one full chat exchange:
// get or create the conversation, append the user message, generate the
// assistant reply, and persist the grown transcript.
//
// Nothing is written to the store until the reply has been generated, so a
// failed exchange leaves the persisted conversation unchanged.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseChatRequest(r.Body)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger := g.logger.With("request_id", uuid.New().String(), "conversation_id", req.ConversationID)

	ctx := r.Context()
	conv, err := g.conversation.GetOrCreate(ctx, req.ConversationID)
	if err != nil {
		logger.Error("failed to get or create conversation", "error", err)
		g.sendJSONError(w, statusForError(err), err.Error())
		return
	}

	if err := g.conversation.AppendUserMessage(conv, req.Role, req.Message); err != nil {
		if errors.Is(err, conversation.ErrInactiveSession) {
			g.sendJSONError(w, http.StatusBadRequest, inactiveSessionMessage)
			return
		}
		logger.Error("failed to append user message", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	reply, err := g.conversation.CompleteAndAppend(ctx, conv)
	if err != nil {
		logger.Error("completion failed", "error", err)
		g.sendJSONError(w, statusForError(err), err.Error())
		return
	}

	if err := g.conversation.Persist(ctx, conv); err != nil {
		logger.Error("failed to persist conversation", "error", err)
		g.sendJSONError(w, statusForError(err), err.Error())
		return
	}

	logger.Debug("chat exchange complete", "messages", len(conv.Messages))

	g.sendJSON(w, http.StatusOK, ChatResponse{
		Response:       reply,
		ConversationID: conv.ID,
	})
}

// handleConversationByID routes GET and DELETE /conversations/{id} by method.
func (g *Gateway) handleConversationByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/conversations/")
	if id == "" || strings.Contains(id, "/") {
		g.sendJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}

	switch r.Method {
	case http.MethodGet:
		g.handleGetConversation(w, r, id)
	case http.MethodDelete:
		g.handleDeleteConversation(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleGetConversation handles GET /conversations/{id}.
func (g *Gateway) handleGetConversation(w http.ResponseWriter, r *http.Request, id string) {
	conv, err := g.conversation.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		g.logger.Error("failed to get conversation", "error", err, "conversation_id", id)
		g.sendJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	g.sendJSON(w, http.StatusOK, ConversationResponse{
		ConversationID: conv.ID,
		Messages:       conv.Messages,
		CreatedAt:      conv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      conv.UpdatedAt.Format(time.RFC3339),
	})
}

// handleDeleteConversation handles DELETE /conversations/{id}.
func (g *Gateway) handleDeleteConversation(w http.ResponseWriter, r *http.Request, id string) {
	deleted, err := g.conversation.Delete(r.Context(), id)
	if err != nil {
		g.logger.Error("failed to delete conversation", "error", err, "conversation_id", id)
		g.sendJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		g.sendJSONError(w, http.StatusNotFound, "Conversation not found")
		return
	}

	g.sendJSON(w, http.StatusOK, map[string]string{"message": "Conversation deleted successfully"})
}

// statusForError maps service and store errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, conversation.ErrInactiveSession):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// sendJSON writes a JSON response with the given status code.
func (g *Gateway) sendJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// parseChatRequest parses and validates a ChatRequest from the given reader.
// Returns an error if the JSON is invalid or required fields are missing.
func parseChatRequest(r io.Reader) (*ChatRequest, error) {
	var req ChatRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}

	if req.Message == "" {
		return nil, errors.New("message is required")
	}

	if req.ConversationID == "" {
		return nil, errors.New("conversation_id is required")
	}

	return &req, nil
}
