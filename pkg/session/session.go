// Package session runs conversation turns end to end for one agent: it
// assembles context, streams the model response, commits the exchanged
// turns to the chronicle, queues them for semantic indexing, and publishes
// a turn event.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gridmind/iso/pkg/assembler"
	"github.com/gridmind/iso/pkg/chronicle"
	"github.com/gridmind/iso/pkg/eventstream"
	"github.com/gridmind/iso/pkg/llm"
	"github.com/gridmind/iso/pkg/persona"
	"github.com/gridmind/iso/pkg/recall"
	"github.com/gridmind/iso/pkg/turn"
)

// Config holds the collaborators and policy for a session engine.
type Config struct {
	// Persona is the agent configuration, resolved once and read-only.
	Persona *persona.Persona

	// Chronicle is the append-only turn log.
	Chronicle chronicle.Driver

	// Assembler builds the context window per incoming turn.
	Assembler *assembler.Assembler

	// Indexer queues committed turns for semantic indexing. Optional;
	// without it turns are only chronologically retrievable.
	Indexer *recall.Indexer

	// Client is the model client.
	Client llm.Client

	// Publisher receives turn events. Optional.
	Publisher eventstream.Publisher

	// CommitAborted records an error-role turn when a stream is
	// cancelled or fails mid-response. When false, nothing is committed.
	CommitAborted bool

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Result is the outcome of one processed turn.
type Result struct {
	// SessionID identifies this engine instance.
	SessionID string

	// UserTurn and AgentTurn are the committed turns.
	UserTurn  *turn.Turn
	AgentTurn *turn.Turn

	// Text is the complete agent response.
	Text string

	// StopReason and Usage come from the model's final chunk.
	StopReason string
	Usage      *llm.Usage
}

// Engine processes turns for one agent. Turns within a conversation are
// strictly sequential; distinct conversations proceed concurrently.
type Engine struct {
	config    Config
	sessionID string

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	logger *zap.Logger
}

// NewEngine creates a session engine for the configured persona.
func NewEngine(c Config) (*Engine, error) {
	if c.Persona == nil {
		return nil, fmt.Errorf("persona is required")
	}
	if c.Chronicle == nil {
		return nil, fmt.Errorf("chronicle driver is required")
	}
	if c.Assembler == nil {
		return nil, fmt.Errorf("assembler is required")
	}
	if c.Client == nil {
		return nil, fmt.Errorf("model client is required")
	}

	return &Engine{
		config:    c,
		sessionID: uuid.NewString(),
		locks:     make(map[string]*sync.Mutex),
		logger:    c.Logger,
	}, nil
}

// SessionID returns this engine's id.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// ProcessTurn runs one conversation turn end to end. Fragments of the
// model response are forwarded to onDelta as they arrive (if non-nil).
// The user and agent turns are committed only after the full response;
// a cancelled or failed stream commits nothing unless CommitAborted is
// set, in which case an error-role turn records the abort.
func (e *Engine) ProcessTurn(ctx context.Context, userID, text string, onDelta func(string)) (*Result, error) {
	agentID := e.config.Persona.AgentID
	startedAt := time.Now()

	lock := e.conversationLock(agentID, userID)
	lock.Lock()
	defer lock.Unlock()

	window, err := e.config.Assembler.Build(ctx, agentID, userID, text)
	if err != nil {
		return nil, fmt.Errorf("assembling context: %w", err)
	}

	req := renderRequest(e.config.Persona, window)

	stream, err := e.config.Client.ChatStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("starting model stream: %w", err)
	}

	completion, err := stream.Collect(onDelta)
	if err != nil {
		e.logger.Warn("model stream aborted",
			zap.String("agent_id", agentID),
			zap.String("user_id", userID),
			zap.Error(err),
		)

		if e.config.CommitAborted {
			if abortErr := e.commitAborted(ctx, agentID, userID, err); abortErr != nil {
				return nil, abortErr
			}
		}

		return nil, err
	}

	userTurn, agentTurn, err := e.commitExchange(ctx, agentID, userID, text, completion.Text)
	if err != nil {
		return nil, err
	}

	e.publishTurn(ctx, userTurn, agentTurn, startedAt, false)

	e.logger.Info("turn processed",
		zap.String("agent_id", agentID),
		zap.String("user_id", userID),
		zap.Uint64("user_turn_id", userTurn.ID),
		zap.Uint64("agent_turn_id", agentTurn.ID),
		zap.String("stop_reason", completion.StopReason),
	)

	return &Result{
		SessionID:  e.sessionID,
		UserTurn:   userTurn,
		AgentTurn:  agentTurn,
		Text:       completion.Text,
		StopReason: completion.StopReason,
		Usage:      completion.Usage,
	}, nil
}

// commitExchange appends the user turn then the agent turn and queues both
// for indexing. A failed append propagates chronicle.ErrWrite and leaves
// the model response uncommitted.
func (e *Engine) commitExchange(ctx context.Context, agentID, userID, userText, agentText string) (*turn.Turn, *turn.Turn, error) {
	now := time.Now()

	userTurn, err := e.config.Chronicle.Append(ctx, agentID, userID, turn.Record{
		Role:      turn.RoleUser,
		Text:      userText,
		Timestamp: now,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("committing user turn: %w", err)
	}

	agentTurn, err := e.config.Chronicle.Append(ctx, agentID, userID, turn.Record{
		Role:      turn.RoleAgent,
		Text:      agentText,
		Timestamp: time.Now(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("committing agent turn: %w", err)
	}

	if e.config.Indexer != nil {
		e.config.Indexer.Enqueue(userTurn)
		e.config.Indexer.Enqueue(agentTurn)
	}

	return userTurn, agentTurn, nil
}

// commitAborted records an error-role turn for an aborted exchange.
func (e *Engine) commitAborted(ctx context.Context, agentID, userID string, cause error) error {
	t, err := e.config.Chronicle.Append(ctx, agentID, userID, turn.Record{
		Role:      turn.RoleError,
		Text:      fmt.Sprintf("response aborted: %v", cause),
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("committing aborted turn: %w", err)
	}

	e.logger.Info("aborted turn recorded",
		zap.String("agent_id", agentID),
		zap.String("user_id", userID),
		zap.Uint64("turn_id", t.ID),
	)

	return nil
}

// publishTurn emits a TurnPersisted event. Publish failures are logged,
// never fatal to the turn.
func (e *Engine) publishTurn(ctx context.Context, userTurn, agentTurn *turn.Turn, startedAt time.Time, aborted bool) {
	if e.config.Publisher == nil {
		return
	}

	completedAt := time.Now()
	event := &eventstream.TurnPersistedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeTurnPersisted,
		EventID:       uuid.NewString(),
		EmittedAt:     completedAt,
		Source: eventstream.EventSource{
			AgentID:       userTurn.AgentID,
			UserID:        userTurn.UserID,
			ModelIdentity: e.config.Persona.ModelIdentity,
			Provider:      e.config.Client.Name(),
		},
		TurnMeta: eventstream.TurnMeta{
			UserTurnID:  userTurn.ID,
			AgentTurnID: agentTurn.ID,
			StartedAt:   startedAt,
			CompletedAt: completedAt,
			DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
			Aborted:     aborted,
		},
	}

	if err := e.config.Publisher.PublishTurn(ctx, event); err != nil {
		e.logger.Warn("publishing turn event failed",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
	}
}

// conversationLock returns the mutex serializing one conversation. The
// map keeps one mutex per conversation ever seen and never evicts; an
// engine serves a single agent for the life of the process, so the set
// is bounded by that agent's user population.
func (e *Engine) conversationLock(agentID, userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := turn.Key(agentID, userID)
	lock, ok := e.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[key] = lock
	}
	return lock
}
