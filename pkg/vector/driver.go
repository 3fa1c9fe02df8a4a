// Package vector provides interfaces and implementations for vector storage
// over indexed conversation turns.
package vector

import (
	"context"
	"time"
)

// Document represents an indexed turn with its embedding and metadata.
// It is the persisted form of a memory record: one Document per turn once
// indexed, partitioned by (AgentID, UserID).
type Document struct {
	// ID is the unique document identifier (turn.DocumentID).
	ID string

	// AgentID and UserID partition the index per conversation.
	AgentID string
	UserID  string

	// TurnID is the chronicle turn this document corresponds to.
	TurnID uint64

	// Role is the turn's author role.
	Role string

	// Text is the raw turn content used for embedding.
	Text string

	// Timestamp is the turn's commit time, used to break score ties in
	// favor of more recent turns.
	Timestamp time.Time

	// Embedding is the vector representation of the text.
	Embedding []float32
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score is the similarity score (higher = more similar).
	Score float32
}

// Filter restricts queries and pruning to one conversation partition.
type Filter struct {
	AgentID string
	UserID  string
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add stores documents with their embeddings. Documents with an
	// existing ID are updated in place.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK documents most similar to the embedding within
	// the filtered partition, ranked by score descending with ties broken
	// by more recent timestamp. An empty or unpopulated index yields an
	// empty result, never an error.
	Query(ctx context.Context, embedding []float32, filter Filter, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs. Unknown IDs are skipped.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Prune removes the oldest documents of a partition (by turn ID)
	// until at most keep remain. Returns the number removed.
	Prune(ctx context.Context, filter Filter, keep int) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}
