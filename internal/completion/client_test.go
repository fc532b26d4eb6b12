package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/chat-gateway/internal/store"
)

// sseHandler writes the given chunks as an SSE stream followed by [DONE].
func sseHandler(chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, content := range chunks {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", content)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func TestClient_Generate(t *testing.T) {
	var gotRequest chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		w.Header().Set("Content-Type", "text/event-stream")
		// Comment lines and role-only deltas must not corrupt the reply
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := New(server.URL, "test-key", "test-model", nil)

	messages := []store.Message{
		{Role: store.RoleSystem, Content: store.SystemPrompt},
		{Role: store.RoleUser, Content: "say hello"},
	}

	reply, err := client.Generate(context.Background(), messages)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", reply)

	// The request carries the whole transcript and the fixed sampling knobs
	assert.Equal(t, "test-model", gotRequest.Model)
	assert.Equal(t, messages, gotRequest.Messages)
	assert.Equal(t, 1.0, gotRequest.Temperature)
	assert.Equal(t, 1.0, gotRequest.TopP)
	assert.Equal(t, 1024, gotRequest.MaxTokens)
	assert.True(t, gotRequest.Stream)
}

func TestClient_Generate_ChunkingDoesNotChangeReply(t *testing.T) {
	coarse := httptest.NewServer(sseHandler("streaming is just concatenation"))
	defer coarse.Close()
	fine := httptest.NewServer(sseHandler("stream", "ing is", " just conc", "atenation"))
	defer fine.Close()

	messages := []store.Message{{Role: store.RoleUser, Content: "hi"}}

	fromCoarse, err := New(coarse.URL, "k", "m", nil).Generate(context.Background(), messages)
	require.NoError(t, err)
	fromFine, err := New(fine.URL, "k", "m", nil).Generate(context.Background(), messages)
	require.NoError(t, err)

	assert.Equal(t, fromCoarse, fromFine)
	assert.Equal(t, "streaming is just concatenation", fromFine)
}

func TestClient_Generate_EmptyStream(t *testing.T) {
	server := httptest.NewServer(sseHandler())
	defer server.Close()

	client := New(server.URL, "test-key", "test-model", nil)

	reply, err := client.Generate(context.Background(), []store.Message{{Role: store.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "", reply)
}

func TestClient_Generate_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(server.URL, "bad-key", "test-model", nil)

	_, err := client.Generate(context.Background(), []store.Message{{Role: store.RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestClient_Generate_ConnectionFailed(t *testing.T) {
	server := httptest.NewServer(sseHandler("unreachable"))
	server.Close() // nothing listening anymore

	client := New(server.URL, "test-key", "test-model", nil)

	_, err := client.Generate(context.Background(), []store.Message{{Role: store.RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestClient_Generate_MalformedChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {this is not json\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := New(server.URL, "test-key", "test-model", nil)

	_, err := client.Generate(context.Background(), []store.Message{{Role: store.RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestClient_Generate_ContextCanceled(t *testing.T) {
	firstChunk := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		w.(http.Flusher).Flush()
		close(firstChunk)
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := New(server.URL, "test-key", "test-model", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := client.Generate(ctx, []store.Message{{Role: store.RoleUser, Content: "hi"}})
		errCh <- err
	}()

	// Cancel once the stream is known to be mid-flight
	<-firstChunk
	cancel()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUpstream)
	case <-time.After(5 * time.Second):
		t.Fatal("Generate did not return after context cancellation")
	}
}

func TestNew_Defaults(t *testing.T) {
	client := New("", "test-key", "", nil)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, DefaultModel, client.model)

	// Trailing slashes must not produce double-slash URLs
	client = New("https://example.com/v1/", "test-key", "m", nil)
	assert.Equal(t, "https://example.com/v1", client.baseURL)
}
