package eventstream

import (
	"time"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnPersisted is emitted after a conversation turn is persisted.
	EventTypeTurnPersisted = "iso.turn.persisted"
)

// TurnPersistedEvent is a transport-neutral event payload for a persisted
// conversation turn (the user turn and the agent turn committed together).
type TurnPersistedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Source        EventSource  `json:"source"`
	TurnMeta      TurnMeta     `json:"turn_meta"`
}

// EventSource identifies where the turn originated.
type EventSource struct {
	AgentID       string `json:"agent_id"`
	UserID        string `json:"user_id"`
	ModelIdentity string `json:"model_identity"`
	Provider      string `json:"provider"`
}

// TurnMeta captures the committed turn ids and processing timing.
type TurnMeta struct {
	UserTurnID  uint64    `json:"user_turn_id"`
	AgentTurnID uint64    `json:"agent_turn_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Aborted     bool      `json:"aborted,omitempty"`
}
