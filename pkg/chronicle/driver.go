// Package chronicle provides the append-only chronological store for
// conversation turns.
//
// The chronicle is the source of truth for exact history: every turn of a
// (agent, user) conversation is appended in order and never mutated. Turn
// IDs are allocated here, strictly increasing per conversation. The
// semantic index (pkg/recall) is derived from the chronicle and may lag
// behind it; it is never ahead.
//
// Drivers are pluggable via configuration:
//
//	[storage]
//	driver = "sqlite"   # or "postgres", "inmemory"
package chronicle

import (
	"context"

	"github.com/gridmind/iso/pkg/turn"
)

// Driver persists and retrieves conversation turns for (agent, user) pairs.
type Driver interface {
	// Append commits a new turn to the conversation and returns it with
	// its allocated ID. Allocation and insertion happen atomically with
	// respect to concurrent readers: a reader never observes a partially
	// written turn. A persistence failure is returned wrapped in ErrWrite
	// and nothing is committed.
	Append(ctx context.Context, agentID, userID string, rec turn.Record) (*turn.Turn, error)

	// Get retrieves a single turn by its ID.
	// Returns ErrNotFound if the turn does not exist.
	Get(ctx context.Context, agentID, userID string, id uint64) (*turn.Turn, error)

	// ReadAll returns every turn of the conversation in append order.
	// An unknown conversation yields an empty slice, not an error.
	ReadAll(ctx context.Context, agentID, userID string) ([]*turn.Turn, error)

	// ReadRecent returns the last n turns in chronological order.
	// Fewer turns than n yields all of them; an unknown conversation
	// yields an empty slice.
	ReadRecent(ctx context.Context, agentID, userID string, n int) ([]*turn.Turn, error)

	// Close releases driver resources.
	Close() error
}
