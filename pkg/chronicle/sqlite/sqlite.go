// Package sqlite provides a SQLite-backed chronicle driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/gridmind/iso/pkg/chronicle"
	"github.com/gridmind/iso/pkg/turn"
)

// Driver implements chronicle.Driver using SQLite.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite chronicle driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

// NewDriver creates a new SQLite-backed chronicle.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL keeps readers unblocked during appends; readers see only
	// committed turns.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS turns (
			agent_id TEXT NOT NULL,
			user_id  TEXT NOT NULL,
			turn_id  INTEGER NOT NULL,
			role     TEXT NOT NULL,
			text     TEXT NOT NULL,
			ts       INTEGER NOT NULL,
			PRIMARY KEY (agent_id, user_id, turn_id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating turns table: %w", err)
	}

	logger.Info("sqlite chronicle initialized",
		zap.String("db_path", c.DBPath),
	)

	return &Driver{db: db, logger: logger}, nil
}

// Append commits a new turn, allocating the next turn ID inside a
// transaction so allocation is serialized per conversation even under
// concurrent writers.
func (d *Driver) Append(ctx context.Context, agentID, userID string, rec turn.Record) (*turn.Turn, error) {
	if !rec.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", chronicle.ErrInvalidRecord, rec.Role)
	}
	if rec.Text == "" {
		return nil, fmt.Errorf("%w: empty text", chronicle.ErrInvalidRecord)
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %v", chronicle.ErrWrite, err)
	}
	defer tx.Rollback()

	var nextID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(turn_id), 0) + 1 FROM turns WHERE agent_id = ? AND user_id = ?`,
		agentID, userID,
	).Scan(&nextID)
	if err != nil {
		return nil, fmt.Errorf("%w: allocating turn id: %v", chronicle.ErrWrite, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns (agent_id, user_id, turn_id, role, text, ts) VALUES (?, ?, ?, ?, ?, ?)`,
		agentID, userID, nextID, string(rec.Role), rec.Text, ts.UnixNano(),
	); err != nil {
		return nil, fmt.Errorf("%w: inserting turn: %v", chronicle.ErrWrite, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing transaction: %v", chronicle.ErrWrite, err)
	}

	t := &turn.Turn{
		ID:        nextID,
		AgentID:   agentID,
		UserID:    userID,
		Role:      rec.Role,
		Text:      rec.Text,
		Timestamp: ts,
	}

	d.logger.Debug("appended turn",
		zap.String("conversation", turn.Key(agentID, userID)),
		zap.Uint64("turn_id", nextID),
		zap.String("role", string(rec.Role)),
	)

	return t, nil
}

// Get retrieves a single turn by ID.
func (d *Driver) Get(ctx context.Context, agentID, userID string, id uint64) (*turn.Turn, error) {
	var role, text string
	var tsNano int64

	err := d.db.QueryRowContext(ctx,
		`SELECT role, text, ts FROM turns WHERE agent_id = ? AND user_id = ? AND turn_id = ?`,
		agentID, userID, id,
	).Scan(&role, &text, &tsNano)

	switch err {
	case nil:
	case sql.ErrNoRows:
		return nil, chronicle.ErrNotFound{AgentID: agentID, UserID: userID, ID: id}
	default:
		return nil, fmt.Errorf("querying turn: %w", err)
	}

	return &turn.Turn{
		ID:        id,
		AgentID:   agentID,
		UserID:    userID,
		Role:      turn.Role(role),
		Text:      text,
		Timestamp: time.Unix(0, tsNano),
	}, nil
}

// ReadAll returns all turns of the conversation in append order.
func (d *Driver) ReadAll(ctx context.Context, agentID, userID string) ([]*turn.Turn, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT turn_id, role, text, ts FROM turns
		 WHERE agent_id = ? AND user_id = ?
		 ORDER BY turn_id ASC`,
		agentID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows, agentID, userID)
}

// ReadRecent returns the last n turns in chronological order.
func (d *Driver) ReadRecent(ctx context.Context, agentID, userID string, n int) ([]*turn.Turn, error) {
	if n <= 0 {
		return []*turn.Turn{}, nil
	}

	// Fetch the newest n descending, then reverse to chronological order.
	rows, err := d.db.QueryContext(ctx,
		`SELECT turn_id, role, text, ts FROM turns
		 WHERE agent_id = ? AND user_id = ?
		 ORDER BY turn_id DESC
		 LIMIT ?`,
		agentID, userID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent turns: %w", err)
	}
	defer rows.Close()

	turns, err := scanTurns(rows, agentID, userID)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

// Close releases the database connection.
func (d *Driver) Close() error {
	return d.db.Close()
}

func scanTurns(rows *sql.Rows, agentID, userID string) ([]*turn.Turn, error) {
	turns := []*turn.Turn{}
	for rows.Next() {
		var id uint64
		var role, text string
		var tsNano int64
		if err := rows.Scan(&id, &role, &text, &tsNano); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, &turn.Turn{
			ID:        id,
			AgentID:   agentID,
			UserID:    userID,
			Role:      turn.Role(role),
			Text:      text,
			Timestamp: time.Unix(0, tsNano),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}

	return turns, nil
}
