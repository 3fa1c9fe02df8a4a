// Package ollama implements pkg/llm's Client against Ollama's /api/chat
// endpoint, which streams newline-delimited JSON chunks.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gridmind/iso/pkg/llm"
)

// DefaultBaseURL is the default Ollama API URL.
const DefaultBaseURL = "http://localhost:11434"

// Client wraps Ollama's chat API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds configuration for the Ollama client.
type Config struct {
	// BaseURL is the Ollama API URL (e.g., "http://localhost:11434").
	// Defaults to DefaultBaseURL if empty.
	BaseURL string
}

// chatRequest is the request body for Ollama's chat API.
type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatChunk is one NDJSON line of Ollama's streaming response.
type chatChunk struct {
	Model     string      `json:"model"`
	CreatedAt time.Time   `json:"created_at"`
	Message   chatMessage `json:"message"`
	Done      bool        `json:"done"`
	DoneReason string     `json:"done_reason,omitempty"`

	PromptEvalCount    int   `json:"prompt_eval_count,omitempty"`
	EvalCount          int   `json:"eval_count,omitempty"`
	TotalDuration      int64 `json:"total_duration,omitempty"`
	PromptEvalDuration int64 `json:"prompt_eval_duration,omitempty"`
}

// NewClient creates a new Ollama chat client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// Streaming responses can be long-lived; rely on ctx for
			// cancellation rather than a client timeout.
		},
	}, nil
}

// Name returns the canonical provider name.
func (c *Client) Name() string {
	return "ollama"
}

// ChatStream starts a streaming chat completion against /api/chat.
func (c *Client) ChatStream(ctx context.Context, req *llm.ChatRequest) (*llm.Stream, error) {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: llm.RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body := chatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
		Options:  buildOptions(req),
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending chat request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(respBody))
	}

	stream := llm.NewStream()
	go c.readStream(ctx, resp.Body, stream)
	return stream, nil
}

// readStream decodes NDJSON chunks off the response body into the stream.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, stream *llm.Stream) {
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			stream.Fail(fmt.Errorf("decoding stream chunk: %w", err))
			return
		}

		out := llm.StreamChunk{
			Model:     chunk.Model,
			CreatedAt: chunk.CreatedAt,
			Text:      chunk.Message.Content,
			Done:      chunk.Done,
		}

		if chunk.Done {
			out.StopReason = chunk.DoneReason
			if out.StopReason == "" {
				out.StopReason = llm.StopReasonStop
			}
			if chunk.PromptEvalCount > 0 || chunk.EvalCount > 0 || chunk.TotalDuration > 0 {
				out.Usage = &llm.Usage{
					PromptTokens:     chunk.PromptEvalCount,
					CompletionTokens: chunk.EvalCount,
					TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
					TotalDurationNs:  chunk.TotalDuration,
					PromptDurationNs: chunk.PromptEvalDuration,
				}
			}
		}

		stream.Send(out)

		if chunk.Done {
			stream.CloseSend()
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			stream.Fail(ctx.Err())
			return
		}
		stream.Fail(fmt.Errorf("reading stream: %w", err))
		return
	}

	// Body ended without a done chunk.
	stream.Fail(llm.ErrStreamTruncated)
}

// buildOptions maps unified generation parameters to Ollama's options map.
func buildOptions(req *llm.ChatRequest) map[string]any {
	opts := make(map[string]any)
	if req.Temperature != nil {
		opts["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		opts["top_p"] = *req.TopP
	}
	if req.TopK != nil {
		opts["top_k"] = *req.TopK
	}
	if req.MaxTokens != nil {
		opts["num_predict"] = *req.MaxTokens
	}
	if req.Seed != nil {
		opts["seed"] = *req.Seed
	}
	if len(req.Stop) > 0 {
		opts["stop"] = req.Stop
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

var _ llm.Client = (*Client)(nil)
