// Package openai implements pkg/llm's Client against OpenAI-compatible
// /v1/chat/completions endpoints, which stream SSE events.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gridmind/iso/pkg/llm"
	"github.com/gridmind/iso/pkg/sse"
)

// DefaultBaseURL is the default OpenAI API URL.
const DefaultBaseURL = "https://api.openai.com"

// Client wraps an OpenAI-compatible chat completions API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config holds configuration for the OpenAI client.
type Config struct {
	// BaseURL is the API URL. Defaults to DefaultBaseURL if empty; point
	// it at any OpenAI-compatible server.
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string
}

type chatRequest struct {
	Model         string          `json:"model"`
	Messages      []chatMessage   `json:"messages"`
	Stream        bool            `json:"stream"`
	StreamOptions *streamOptions  `json:"stream_options,omitempty"`
	MaxTokens     *int            `json:"max_tokens,omitempty"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	Stop          []string        `json:"stop,omitempty"`
	Seed          *int            `json:"seed,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatChunk is one decoded SSE data payload of the streaming response.
type chatChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewClient creates a new OpenAI-compatible chat client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			// Streaming responses can be long-lived; rely on ctx for
			// cancellation rather than a client timeout.
		},
	}, nil
}

// Name returns the canonical provider name.
func (c *Client) Name() string {
	return "openai"
}

// ChatStream starts a streaming chat completion against /v1/chat/completions.
func (c *Client) ChatStream(ctx context.Context, req *llm.ChatRequest) (*llm.Stream, error) {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: llm.RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body := chatRequest{
		Model:         req.Model,
		Messages:      messages,
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		Stop:          req.Stop,
		Seed:          req.Seed,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending chat request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(respBody))
	}

	stream := llm.NewStream()
	go c.readStream(ctx, resp.Body, stream)
	return stream, nil
}

// readStream parses SSE events off the response body into the stream.
// The terminal "[DONE]" sentinel closes the stream; the final chunk before
// it carries the finish reason and usage.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, stream *llm.Stream) {
	defer body.Close()

	reader := sse.NewReader(body)
	var finalUsage *llm.Usage
	var finalModel string
	finalStopReason := llm.StopReasonStop

	for {
		event, err := reader.Next()
		if err != nil {
			if ctx.Err() != nil {
				stream.Fail(ctx.Err())
				return
			}
			stream.Fail(fmt.Errorf("reading stream: %w", err))
			return
		}
		if event == nil {
			break
		}

		// The terminal sentinel. Some compatible servers skip the
		// finish_reason chunk, so treat the sentinel itself as final.
		if event.Data == "[DONE]" {
			stream.Send(llm.StreamChunk{
				Model:      finalModel,
				Done:       true,
				StopReason: finalStopReason,
				Usage:      finalUsage,
			})
			stream.CloseSend()
			return
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(event.Data), &chunk); err != nil {
			stream.Fail(fmt.Errorf("decoding stream chunk: %w", err))
			return
		}

		finalModel = chunk.Model
		if chunk.Usage != nil {
			finalUsage = &llm.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}

		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.FinishReason != nil {
			finalStopReason = *choice.FinishReason
			continue
		}

		if choice.Delta.Content != "" {
			stream.Send(llm.StreamChunk{
				Model: chunk.Model,
				Text:  choice.Delta.Content,
			})
		}
	}

	// Stream ended without the [DONE] sentinel following a finish reason.
	stream.Fail(llm.ErrStreamTruncated)
}

var _ llm.Client = (*Client)(nil)
