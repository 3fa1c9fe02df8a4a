// Package persona loads per-agent configuration: the system prompt, model
// identity, window parameters, and sampling options that shape an agent's
// behavior. Personas are TOML files, one per agent, validated strictly at
// load time.
package persona

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Defaults applied when a persona omits window parameters.
const (
	DefaultRecentN          = 8
	DefaultSemanticK        = 4
	DefaultMaxContextTurns  = 32
	DefaultMaxContextTokens = 8192
)

// Persona is one agent's resolved configuration. It is read-only after
// load; sessions resolve a persona once at start and never observe
// mid-session edits.
type Persona struct {
	// AgentID identifies the agent and partitions its memory.
	AgentID string `toml:"agent_id"`

	// SystemPrompt is the base system prompt for the model.
	SystemPrompt string `toml:"system_prompt"`

	// ModelIdentity is the model the persona targets (e.g. "llama3.2").
	ModelIdentity string `toml:"model_identity"`

	// Intro and Focus are optional prompt sections rendered after the
	// system prompt.
	Intro string `toml:"intro"`
	Focus string `toml:"focus"`

	// Window parameters consumed by the assembler.
	RecentN          int `toml:"recent_n"`
	SemanticK        int `toml:"semantic_k"`
	MaxContextTurns  int `toml:"max_context_turns"`
	MaxContextTokens int `toml:"max_context_tokens"`

	// Sampling options forwarded to the model client. Nil means the
	// model's default.
	Temperature *float64 `toml:"temperature"`
	TopP        *float64 `toml:"top_p"`
	TopK        *int     `toml:"top_k"`
	MaxTokens   *int     `toml:"max_tokens"`
	Seed        *int     `toml:"seed"`
}

// Load reads and validates a persona TOML file. Unknown keys are
// rejected rather than silently ignored.
func Load(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading persona file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates persona TOML content.
func Parse(data []byte) (*Persona, error) {
	var p Persona
	md, err := toml.Decode(string(data), &p)
	if err != nil {
		return nil, fmt.Errorf("decoding persona: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown persona key %q", undecoded[0].String())
	}

	p.applyDefaults()

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

func (p *Persona) applyDefaults() {
	if p.RecentN == 0 {
		p.RecentN = DefaultRecentN
	}
	if p.SemanticK == 0 {
		p.SemanticK = DefaultSemanticK
	}
	if p.MaxContextTurns == 0 {
		p.MaxContextTurns = DefaultMaxContextTurns
	}
	if p.MaxContextTokens == 0 {
		p.MaxContextTokens = DefaultMaxContextTokens
	}
}

// Validate checks required fields and window parameter ranges.
func (p *Persona) Validate() error {
	if p.AgentID == "" {
		return fmt.Errorf("persona agent_id is required")
	}
	if p.ModelIdentity == "" {
		return fmt.Errorf("persona %q: model_identity is required", p.AgentID)
	}
	if p.RecentN < 0 {
		return fmt.Errorf("persona %q: recent_n must be positive", p.AgentID)
	}
	if p.SemanticK < 0 {
		return fmt.Errorf("persona %q: semantic_k must be positive", p.AgentID)
	}
	if p.MaxContextTurns < 0 {
		return fmt.Errorf("persona %q: max_context_turns must be positive", p.AgentID)
	}
	if p.MaxContextTokens < 0 {
		return fmt.Errorf("persona %q: max_context_tokens must be positive", p.AgentID)
	}
	return nil
}
