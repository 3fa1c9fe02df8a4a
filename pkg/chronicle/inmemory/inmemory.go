// Package inmemory provides an in-process chronicle driver.
//
// Conversations are plain slices guarded by a RWMutex. This is the
// local-dev and test story; persistent deployments use the sqlite or
// postgres drivers.
package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gridmind/iso/pkg/chronicle"
	"github.com/gridmind/iso/pkg/turn"
)

// Driver implements chronicle.Driver using in-process data structures.
type Driver struct {
	mu sync.RWMutex

	// conversations maps turn.Key(agent, user) -> turns in append order.
	conversations map[string][]*turn.Turn
}

// NewDriver creates an in-memory chronicle.
func NewDriver() *Driver {
	return &Driver{
		conversations: make(map[string][]*turn.Turn),
	}
}

// Append commits a new turn under the conversation's write lock.
func (d *Driver) Append(_ context.Context, agentID, userID string, rec turn.Record) (*turn.Turn, error) {
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

	d.mu.Lock()
	defer d.mu.Unlock()

	key := turn.Key(agentID, userID)
	t := &turn.Turn{
		ID:        uint64(len(d.conversations[key])) + 1,
		AgentID:   agentID,
		UserID:    userID,
		Role:      rec.Role,
		Text:      rec.Text,
		Timestamp: ts,
	}
	d.conversations[key] = append(d.conversations[key], t)

	return t, nil
}

// Get retrieves a single turn by ID.
func (d *Driver) Get(_ context.Context, agentID, userID string, id uint64) (*turn.Turn, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	turns := d.conversations[turn.Key(agentID, userID)]
	if id == 0 || id > uint64(len(turns)) {
		return nil, chronicle.ErrNotFound{AgentID: agentID, UserID: userID, ID: id}
	}

	return turns[id-1], nil
}

// ReadAll returns a copy of the conversation in append order.
func (d *Driver) ReadAll(_ context.Context, agentID, userID string) ([]*turn.Turn, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	turns := d.conversations[turn.Key(agentID, userID)]

	// Return a copy to avoid callers mutating internal state.
	result := make([]*turn.Turn, len(turns))
	copy(result, turns)

	return result, nil
}

// ReadRecent returns the last n turns in chronological order.
func (d *Driver) ReadRecent(_ context.Context, agentID, userID string, n int) ([]*turn.Turn, error) {
	if n <= 0 {
		return []*turn.Turn{}, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	turns := d.conversations[turn.Key(agentID, userID)]
	if n > len(turns) {
		n = len(turns)
	}

	result := make([]*turn.Turn, n)
	copy(result, turns[len(turns)-n:])

	return result, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

var _ chronicle.Driver = (*Driver)(nil)
