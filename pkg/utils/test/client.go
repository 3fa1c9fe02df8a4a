package testutils

import (
	"context"
	"fmt"

	"github.com/gridmind/iso/pkg/llm"
)

// MockClient is a test model client that streams a scripted response.
type MockClient struct {
	// Response is the text streamed back, split into rune-sized fragments
	// when Fragments is zero.
	Response string

	// Fragments splits Response into this many chunks (at least 1).
	Fragments int

	// FailStart causes ChatStream to return an error.
	FailStart bool

	// FailMidStream aborts the stream after the first fragment.
	FailMidStream bool

	// Requests records every request received.
	Requests []*llm.ChatRequest
}

func NewMockClient(response string) *MockClient {
	return &MockClient{Response: response}
}

func (m *MockClient) Name() string {
	return "mock"
}

func (m *MockClient) ChatStream(ctx context.Context, req *llm.ChatRequest) (*llm.Stream, error) {
	if m.FailStart {
		return nil, fmt.Errorf("mock stream start failure")
	}

	m.Requests = append(m.Requests, req)

	stream := llm.NewStream()
	go func() {
		fragments := m.splitResponse()
		for i, f := range fragments {
			if m.FailMidStream && i == 1 {
				stream.Fail(fmt.Errorf("mock mid-stream failure"))
				return
			}
			if ctx.Err() != nil {
				stream.Fail(ctx.Err())
				return
			}
			stream.Send(llm.StreamChunk{Model: req.Model, Text: f})
		}

		stream.Send(llm.StreamChunk{
			Model:      req.Model,
			Done:       true,
			StopReason: llm.StopReasonStop,
			Usage:      &llm.Usage{CompletionTokens: len(m.Response)},
		})
		stream.CloseSend()
	}()

	return stream, nil
}

func (m *MockClient) splitResponse() []string {
	n := m.Fragments
	if n <= 1 {
		return []string{m.Response}
	}

	runes := []rune(m.Response)
	size := (len(runes) + n - 1) / n
	var fragments []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		fragments = append(fragments, string(runes[start:end]))
	}
	return fragments
}

var _ llm.Client = (*MockClient)(nil)
