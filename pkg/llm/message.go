// Package llm defines the model client contract: a provider-agnostic chat
// request, a cancellable response stream of ordered text fragments, and the
// Client interface implemented per provider.
package llm

// Message roles understood by the chat providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a chat request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a message with the given role and content.
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content}
}
