package llm

import "context"

// Client is the outbound chat interface implemented per provider.
type Client interface {
	// Name returns the canonical provider name (e.g., "ollama", "openai").
	Name() string

	// ChatStream starts a streaming chat completion. Cancelling ctx
	// aborts the stream; the stream then terminates with ctx's error.
	ChatStream(ctx context.Context, req *ChatRequest) (*Stream, error)
}
