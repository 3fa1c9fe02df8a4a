// Package turn defines the conversation turn: the immutable unit of record
// shared by the chronological log and the semantic index. A conversation is
// the ordered sequence of turns for one (agent, user) pair.
package turn

import (
	"fmt"
	"time"
)

// Role identifies the author of a turn.
type Role string

const (
	// RoleUser is a turn authored by the human user.
	RoleUser Role = "user"

	// RoleAgent is a turn authored by the agent persona.
	RoleAgent Role = "agent"

	// RoleError records an aborted or failed exchange.
	RoleError Role = "error"
)

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAgent, RoleError:
		return true
	}
	return false
}

// Record is the pre-commit portion of a turn: what the caller supplies
// before the chronicle assigns an ID.
type Record struct {
	Role      Role
	Text      string
	Timestamp time.Time
}

// Turn is one committed conversation turn. Immutable once written; IDs are
// strictly increasing within a conversation.
type Turn struct {
	// ID is the chronicle-assigned turn id, unique per (AgentID, UserID).
	ID uint64

	// AgentID and UserID identify the conversation.
	AgentID string
	UserID  string

	Role      Role
	Text      string
	Timestamp time.Time
}

// Key returns the conversation key for an (agent, user) pair.
func Key(agentID, userID string) string {
	return agentID + "/" + userID
}

// DocumentID returns the stable id used for this turn's vector document.
func (t *Turn) DocumentID() string {
	return fmt.Sprintf("%s/%s/%d", t.AgentID, t.UserID, t.ID)
}

// MemoryString renders the turn for inclusion in a prompt memory section.
func (t *Turn) MemoryString() string {
	return fmt.Sprintf("%s @ %s: %s", t.Role, t.Timestamp.Format("2006-01-02 15:04"), t.Text)
}
