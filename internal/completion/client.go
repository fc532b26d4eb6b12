// ABOUTME: Streaming chat completion client for OpenAI-compatible APIs
// ABOUTME: Drains the SSE response into a single aggregated reply string

package completion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/2389/chat-gateway/internal/store"
)

// ErrUpstream is returned when the completion service cannot produce a reply
var ErrUpstream = errors.New("completion request failed")

// DefaultBaseURL points at Groq's OpenAI-compatible API.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// DefaultModel is used when the configuration does not name a model.
const DefaultModel = "llama-3.1-8b-instant"

// Sampling parameters are fixed for every request.
const (
	temperature = 1.0
	topP        = 1.0
	maxTokens   = 1024
)

// Client streams chat completions from an OpenAI-compatible endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *slog.Logger
}

// New creates a completion client. Empty baseURL and model fall back to the
// Groq defaults. A nil logger falls back to slog.Default().
func New(baseURL, apiKey, model string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		logger:     logger.With("component", "completion"),
	}
}

// chatRequest is the OpenAI-compatible chat completions request body.
type chatRequest struct {
	Model       string          `json:"model"`
	Messages    []store.Message `json:"messages"`
	Temperature float64         `json:"temperature"`
	TopP        float64         `json:"top_p"`
	MaxTokens   int             `json:"max_tokens"`
	Stream      bool            `json:"stream"`
}

// streamChunk is one SSE data payload from a streamed completion.
type streamChunk struct {
	Choices []streamChoice `json:"choices"`
}

type streamChoice struct {
	Delta streamDelta `json:"delta"`
}

type streamDelta struct {
	Content string `json:"content"`
}

// Generate sends the full transcript to the completion endpoint and drains
// the streamed reply into one string. It blocks until the stream is
// exhausted; cancel ctx to abort mid-stream. Every failure (connection,
// non-200 status, malformed chunk, interrupted stream) is reported as
// ErrUpstream with the cause in the message.
func (c *Client) Generate(ctx context.Context, messages []store.Message) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
		Stream:      true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %v", ErrUpstream, err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: building request: %v", ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	reply, err := c.drainStream(resp.Body)
	if err != nil {
		return "", err
	}

	c.logger.Debug("completion finished", "model", c.model, "reply_chars", len(reply))
	return reply, nil
}

// drainStream reads SSE lines until the [DONE] marker, concatenating each
// chunk's delta content in arrival order.
func (c *Client) drainStream(body io.Reader) (string, error) {
	var reply strings.Builder

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		// Skip empty lines and non-data lines (SSE comments, event names)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		if line == "data: [DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk); err != nil {
			return "", fmt.Errorf("%w: decoding stream chunk: %v", ErrUpstream, err)
		}
		if len(chunk.Choices) > 0 {
			reply.WriteString(chunk.Choices[0].Delta.Content)
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: reading stream: %v", ErrUpstream, err)
	}

	return reply.String(), nil
}
