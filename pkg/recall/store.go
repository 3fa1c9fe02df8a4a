// Package recall provides the semantic memory store: turns are embedded and
// indexed into a vector store, then retrieved by similarity to a query text.
//
// The semantic index is derived from the chronicle and never authoritative.
// Index failures degrade recall quality but never block turn persistence.
package recall

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gridmind/iso/pkg/embeddings"
	"github.com/gridmind/iso/pkg/turn"
	"github.com/gridmind/iso/pkg/vector"
)

// DefaultMaxRecords is the per-conversation cap on indexed turns.
const DefaultMaxRecords = 4096

// Match is one semantic retrieval hit.
type Match struct {
	// TurnID is the chronicle turn the match corresponds to.
	TurnID uint64

	// Role is the turn's author role.
	Role turn.Role

	// Text is the turn content.
	Text string

	// Timestamp is the turn's commit time.
	Timestamp time.Time

	// Score is the similarity score (higher = more similar).
	Score float32
}

// Config holds configuration for the recall store.
type Config struct {
	// Embedder generates text embeddings for indexing and querying.
	Embedder embeddings.Embedder

	// VectorDriver is the vector store backend.
	VectorDriver vector.Driver

	// MaxRecords caps the number of indexed turns per conversation.
	// Oldest turns are pruned once the cap is exceeded.
	// Defaults to DefaultMaxRecords.
	MaxRecords int

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Store embeds turns and indexes them for similarity retrieval.
type Store struct {
	embedder   embeddings.Embedder
	driver     vector.Driver
	maxRecords int
	logger     *zap.Logger
}

// NewStore creates a recall store over the given embedder and vector driver.
func NewStore(c Config) (*Store, error) {
	if c.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if c.VectorDriver == nil {
		return nil, fmt.Errorf("vector driver is required")
	}

	maxRecords := c.MaxRecords
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}

	return &Store{
		embedder:   c.Embedder,
		driver:     c.VectorDriver,
		maxRecords: maxRecords,
		logger:     c.Logger,
	}, nil
}

// Index embeds a committed turn and adds it to the vector store.
// Indexing the same turn twice updates the document in place.
func (s *Store) Index(ctx context.Context, t *turn.Turn) error {
	if t.Text == "" {
		s.logger.Debug("skipping index for empty turn",
			zap.String("doc_id", t.DocumentID()),
		)
		return nil
	}

	embedding, err := s.embedder.Embed(ctx, t.Text)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEmbed, t.DocumentID(), err)
	}

	doc := vector.Document{
		ID:        t.DocumentID(),
		AgentID:   t.AgentID,
		UserID:    t.UserID,
		TurnID:    t.ID,
		Role:      string(t.Role),
		Text:      t.Text,
		Timestamp: t.Timestamp,
		Embedding: embedding,
	}

	if err := s.driver.Add(ctx, []vector.Document{doc}); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIndex, t.DocumentID(), err)
	}

	s.logger.Debug("indexed turn",
		zap.String("doc_id", t.DocumentID()),
		zap.Int("embedding_dim", len(embedding)),
	)

	pruned, err := s.driver.Prune(ctx, vector.Filter{AgentID: t.AgentID, UserID: t.UserID}, s.maxRecords)
	if err != nil {
		s.logger.Warn("pruning semantic index failed",
			zap.String("agent_id", t.AgentID),
			zap.String("user_id", t.UserID),
			zap.Error(err),
		)
	} else if pruned > 0 {
		s.logger.Debug("pruned semantic index",
			zap.String("agent_id", t.AgentID),
			zap.String("user_id", t.UserID),
			zap.Int("pruned", pruned),
		)
	}

	return nil
}

// Query embeds the query text and returns up to topK matches from the
// conversation's partition, ranked by score descending. An empty index
// returns no matches and no error.
func (s *Store) Query(ctx context.Context, agentID, userID, text string, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrEmbed, err)
	}

	results, err := s.driver.Query(ctx, embedding, vector.Filter{AgentID: agentID, UserID: userID}, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			TurnID:    r.TurnID,
			Role:      turn.Role(r.Role),
			Text:      r.Text,
			Timestamp: r.Timestamp,
			Score:     r.Score,
		})
	}

	s.logger.Debug("semantic query",
		zap.String("agent_id", agentID),
		zap.String("user_id", userID),
		zap.Int("matches", len(matches)),
	)

	return matches, nil
}

// Forget removes a conversation's documents matching the given IDs.
func (s *Store) Forget(ctx context.Context, ids []string) error {
	return s.driver.Delete(ctx, ids)
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	if err := s.embedder.Close(); err != nil {
		return err
	}
	return s.driver.Close()
}
