package testutils

import (
	"context"
	"fmt"

	"github.com/gridmind/iso/pkg/chronicle"
	"github.com/gridmind/iso/pkg/turn"
)

// FailingChronicle wraps a chronicle driver and fails Append on demand,
// for exercising write-failure propagation.
type FailingChronicle struct {
	chronicle.Driver

	// FailAppend causes Append to return a wrapped chronicle.ErrWrite.
	FailAppend bool
}

func NewFailingChronicle(inner chronicle.Driver) *FailingChronicle {
	return &FailingChronicle{Driver: inner}
}

func (f *FailingChronicle) Append(ctx context.Context, agentID, userID string, rec turn.Record) (*turn.Turn, error) {
	if f.FailAppend {
		return nil, fmt.Errorf("%w: mock append failure", chronicle.ErrWrite)
	}
	return f.Driver.Append(ctx, agentID, userID, rec)
}

var _ chronicle.Driver = (*FailingChronicle)(nil)
