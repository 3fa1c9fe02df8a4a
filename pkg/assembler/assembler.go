// Package assembler builds the context window for a model call: the last N
// turns of a conversation in chronological order, followed by the top-K
// semantically similar earlier turns, deduplicated by turn ID and truncated
// to a configured turn and token budget.
//
// Windows are built fresh per incoming turn and never cached; the
// underlying stores may have changed between calls.
package assembler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gridmind/iso/pkg/chronicle"
	"github.com/gridmind/iso/pkg/recall"
	"github.com/gridmind/iso/pkg/turn"
)

// Window is the transient merged context for one model call. The first
// RecentCount entries of Turns are the recent window in chronological
// order; the remainder are semantic matches in descending score order.
type Window struct {
	Turns       []*turn.Turn
	RecentCount int
	Incoming    string
	Truncated   bool
}

// Recent returns the chronological portion of the window.
func (w *Window) Recent() []*turn.Turn {
	return w.Turns[:w.RecentCount]
}

// Semantic returns the retrieved portion of the window.
func (w *Window) Semantic() []*turn.Turn {
	return w.Turns[w.RecentCount:]
}

// Config holds the per-session window parameters, resolved once from the
// persona and read-only thereafter.
type Config struct {
	// RecentN is the size of the recent chronological window.
	RecentN int

	// SemanticK is the number of semantic matches to retrieve.
	SemanticK int

	// MaxTurns bounds the total number of turns in the window.
	// Zero means no turn bound.
	MaxTurns int

	// MaxTokens bounds the estimated token count of the window.
	// Zero means no token bound.
	MaxTokens int
}

// Assembler merges chronological and semantic retrieval into a bounded
// context window.
type Assembler struct {
	chronicle chronicle.Driver
	recall    *recall.Store
	config    Config
	tokens    *estimator
	logger    *zap.Logger
}

// New creates an Assembler over the given stores.
func New(chron chronicle.Driver, rec *recall.Store, c Config, logger *zap.Logger) (*Assembler, error) {
	if chron == nil {
		return nil, fmt.Errorf("chronicle driver is required")
	}

	return &Assembler{
		chronicle: chron,
		recall:    rec,
		config:    c,
		tokens:    newEstimator(),
		logger:    logger,
	}, nil
}

// Build assembles the context window for an incoming turn. A failed
// semantic query degrades to a recent-only window; an empty conversation
// yields a window containing only the incoming text.
func (a *Assembler) Build(ctx context.Context, agentID, userID, incoming string) (*Window, error) {
	recent, err := a.chronicle.ReadRecent(ctx, agentID, userID, a.config.RecentN)
	if err != nil {
		return nil, fmt.Errorf("reading recent turns: %w", err)
	}

	matches := a.queryMatches(ctx, agentID, userID, incoming)

	w := &Window{
		Turns:       recent,
		RecentCount: len(recent),
		Incoming:    incoming,
	}

	seen := make(map[uint64]struct{}, len(recent))
	for _, t := range recent {
		seen[t.ID] = struct{}{}
	}

	// Matches arrive ranked by score descending; append in that order,
	// skipping turns already in the recent window.
	for _, m := range matches {
		if _, ok := seen[m.TurnID]; ok {
			continue
		}
		seen[m.TurnID] = struct{}{}

		t, err := a.chronicle.Get(ctx, agentID, userID, m.TurnID)
		if err != nil {
			// The index should never be ahead of the chronicle. Exclude
			// the orphan rather than fail the request.
			a.logger.Warn("semantic match missing from chronicle, excluding",
				zap.String("agent_id", agentID),
				zap.String("user_id", userID),
				zap.Uint64("turn_id", m.TurnID),
				zap.Error(err),
			)
			continue
		}

		w.Turns = append(w.Turns, t)
	}

	a.truncate(w)

	a.logger.Debug("assembled context window",
		zap.String("agent_id", agentID),
		zap.String("user_id", userID),
		zap.Int("recent", w.RecentCount),
		zap.Int("semantic", len(w.Turns)-w.RecentCount),
		zap.Bool("truncated", w.Truncated),
	)

	return w, nil
}

// queryMatches runs the semantic query, absorbing failures into an empty
// match set.
func (a *Assembler) queryMatches(ctx context.Context, agentID, userID, incoming string) []recall.Match {
	if a.recall == nil || a.config.SemanticK <= 0 {
		return nil
	}

	matches, err := a.recall.Query(ctx, agentID, userID, incoming, a.config.SemanticK)
	if err != nil {
		a.logger.Warn("semantic query failed, degrading to recent-only window",
			zap.String("agent_id", agentID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil
	}

	return matches
}

// truncate enforces the turn and token budgets. Lowest-scored semantic
// matches are dropped first; recent turns are dropped oldest-first only
// when the budget is smaller than the recent window itself.
func (a *Assembler) truncate(w *Window) {
	if a.config.MaxTurns > 0 {
		for len(w.Turns) > a.config.MaxTurns {
			a.dropOne(w)
		}
	}

	if a.config.MaxTokens > 0 {
		budget := a.config.MaxTokens - a.tokens.Count(w.Incoming)
		for len(w.Turns) > 0 && a.windowTokens(w) > budget {
			a.dropOne(w)
		}
	}
}

// dropOne removes the lowest-priority turn from the window: the last
// semantic match if any remain, otherwise the oldest recent turn.
func (a *Assembler) dropOne(w *Window) {
	w.Truncated = true

	if len(w.Turns) > w.RecentCount {
		w.Turns = w.Turns[:len(w.Turns)-1]
		return
	}

	w.Turns = w.Turns[1:]
	w.RecentCount--
}

func (a *Assembler) windowTokens(w *Window) int {
	total := 0
	for _, t := range w.Turns {
		total += a.tokens.Count(t.Text)
	}
	return total
}
