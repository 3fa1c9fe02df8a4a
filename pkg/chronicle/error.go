package chronicle

import (
	"errors"
	"fmt"
)

// ErrWrite is returned when an append could not be persisted. A wrapped
// ErrWrite is fatal to the turn being processed: the caller must not
// proceed to a model call with missing history.
var ErrWrite = errors.New("chronicle write failed")

// ErrInvalidRecord is returned when a record fails validation before any
// write is attempted (unknown role, empty text).
var ErrInvalidRecord = errors.New("invalid turn record")

// ErrNotFound is returned when a turn doesn't exist in the store.
type ErrNotFound struct {
	AgentID string
	UserID  string
	ID      uint64
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("turn not found: %s/%s #%d", e.AgentID, e.UserID, e.ID)
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}
