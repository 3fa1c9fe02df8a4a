package llm

import (
	"errors"
	"time"
)

// ErrStreamTruncated is returned when a stream ends without a final chunk.
var ErrStreamTruncated = errors.New("stream ended without final chunk")

// StreamChunk represents a single fragment of a streaming response.
type StreamChunk struct {
	// Model that generated the chunk
	Model string `json:"model"`

	// Chunk timestamp
	CreatedAt time.Time `json:"created_at,omitempty"`

	// Text is the partial content of this chunk.
	Text string `json:"text"`

	// Whether this is the final chunk
	Done bool `json:"done"`

	// Stop reason (only present on final chunk)
	StopReason string `json:"stop_reason,omitempty"`

	// Usage metrics (typically only present on final chunk)
	Usage *Usage `json:"usage,omitempty"`
}

// Stream yields the ordered fragments of one model response. The producer
// goroutine closes the stream after sending a final chunk (Done=true) or
// recording an error; consumers read via Next or Collect.
type Stream struct {
	ch  chan StreamChunk
	err error
}

// NewStream creates a stream with a small fragment buffer. Providers send
// chunks with Send and finish with CloseSend or Fail.
func NewStream() *Stream {
	return &Stream{
		ch: make(chan StreamChunk, 16),
	}
}

// Send delivers a chunk to the consumer.
func (s *Stream) Send(c StreamChunk) {
	s.ch <- c
}

// CloseSend marks the stream complete. Call after the final chunk.
func (s *Stream) CloseSend() {
	close(s.ch)
}

// Fail records a terminal error and closes the stream.
func (s *Stream) Fail(err error) {
	s.err = err
	close(s.ch)
}

// Next returns the next chunk, or nil once the stream is exhausted.
// After a nil chunk, the returned error is the stream's terminal error,
// if any.
func (s *Stream) Next() (*StreamChunk, error) {
	c, ok := <-s.ch
	if !ok {
		return nil, s.err
	}
	return &c, nil
}

// Collect consumes the whole stream synchronously, forwarding each
// fragment's text to onDelta (if non-nil), and returns the accumulated
// completion. A stream that errors or ends without a final chunk returns
// an error and no completion.
func (s *Stream) Collect(onDelta func(string)) (*Completion, error) {
	var completion Completion
	var sawFinal bool

	for {
		chunk, err := s.Next()
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			break
		}

		if chunk.Text != "" {
			completion.Text += chunk.Text
			if onDelta != nil {
				onDelta(chunk.Text)
			}
		}

		if chunk.Model != "" {
			completion.Model = chunk.Model
		}

		if chunk.Done {
			sawFinal = true
			completion.StopReason = chunk.StopReason
			completion.Usage = chunk.Usage
		}
	}

	if !sawFinal {
		return nil, ErrStreamTruncated
	}

	return &completion, nil
}
