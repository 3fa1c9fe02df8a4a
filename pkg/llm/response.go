package llm

// Stop reasons reported on the final stream chunk.
const (
	StopReasonStop   = "stop"
	StopReasonLength = "length"
)

// Usage contains token counts and timing information.
type Usage struct {
	// Token counts
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	// Timing (provider-specific, but normalized to nanoseconds where possible)
	TotalDurationNs  int64 `json:"total_duration_ns,omitempty"`
	PromptDurationNs int64 `json:"prompt_duration_ns,omitempty"`
}

// Completion is the accumulated result of a fully consumed stream.
type Completion struct {
	// Model that generated the response
	Model string `json:"model"`

	// Text is the complete response content.
	Text string `json:"text"`

	// StopReason reports why generation ended.
	StopReason string `json:"stop_reason,omitempty"`

	// Usage metrics, when the provider reports them.
	Usage *Usage `json:"usage,omitempty"`
}
