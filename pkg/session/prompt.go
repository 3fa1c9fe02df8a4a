package session

import (
	"strings"

	"github.com/gridmind/iso/pkg/assembler"
	"github.com/gridmind/iso/pkg/llm"
	"github.com/gridmind/iso/pkg/persona"
	"github.com/gridmind/iso/pkg/turn"
)

// renderRequest turns a persona and an assembled window into the chat
// request for the model. The system prompt carries the persona sections
// and the semantically recalled memories; the recent window and the
// incoming text become the chat messages.
func renderRequest(p *persona.Persona, w *assembler.Window) *llm.ChatRequest {
	var system strings.Builder
	system.WriteString(p.SystemPrompt)

	if p.Intro != "" {
		system.WriteString("\n\n")
		system.WriteString(p.Intro)
	}
	if p.Focus != "" {
		system.WriteString("\n\n")
		system.WriteString(p.Focus)
	}

	if semantic := w.Semantic(); len(semantic) > 0 {
		system.WriteString("\n\nRelevant memories from earlier in this conversation:")
		for _, t := range semantic {
			system.WriteString("\n- ")
			system.WriteString(t.MemoryString())
		}
	}

	messages := make([]llm.Message, 0, len(w.Recent())+1)
	for _, t := range w.Recent() {
		messages = append(messages, llm.NewMessage(messageRole(t.Role), t.Text))
	}
	messages = append(messages, llm.NewMessage(llm.RoleUser, w.Incoming))

	return &llm.ChatRequest{
		Model:       p.ModelIdentity,
		Messages:    messages,
		System:      system.String(),
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		TopP:        p.TopP,
		TopK:        p.TopK,
		Seed:        p.Seed,
	}
}

// messageRole maps a chronicle role onto a chat role. Error turns read as
// user context so the model sees the abort happened.
func messageRole(r turn.Role) string {
	if r == turn.RoleAgent {
		return llm.RoleAssistant
	}
	return llm.RoleUser
}
