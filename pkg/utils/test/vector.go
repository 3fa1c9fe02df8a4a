package testutils

import (
	"context"
	"fmt"
	"sort"

	"github.com/gridmind/iso/pkg/vector"
)

// MockVectorDriver is an in-memory test vector driver. Query returns the
// configured Results filtered by partition, ignoring the embedding.
type MockVectorDriver struct {
	Documents []vector.Document
	Results   []vector.QueryResult

	// FailQuery causes Query to return an error.
	FailQuery bool

	// FailAdd causes Add to return an error.
	FailAdd bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	if m.FailAdd {
		return fmt.Errorf("mock add failure")
	}
	m.Documents = append(m.Documents, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, filter vector.Filter, topK int) ([]vector.QueryResult, error) {
	if m.FailQuery {
		return nil, fmt.Errorf("mock query failure")
	}

	var results []vector.QueryResult
	for _, r := range m.Results {
		if r.AgentID == filter.AgentID && r.UserID == filter.UserID {
			results = append(results, r)
		}
	}

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	var docs []vector.Document
	for _, id := range ids {
		for _, d := range m.Documents {
			if d.ID == id {
				docs = append(docs, d)
			}
		}
	}
	return docs, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []string) error {
	remove := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		remove[id] = struct{}{}
	}

	kept := m.Documents[:0]
	for _, d := range m.Documents {
		if _, ok := remove[d.ID]; !ok {
			kept = append(kept, d)
		}
	}
	m.Documents = kept
	return nil
}

func (m *MockVectorDriver) Prune(ctx context.Context, filter vector.Filter, keep int) (int, error) {
	var partition []vector.Document
	for _, d := range m.Documents {
		if d.AgentID == filter.AgentID && d.UserID == filter.UserID {
			partition = append(partition, d)
		}
	}

	excess := len(partition) - keep
	if excess <= 0 {
		return 0, nil
	}

	sort.Slice(partition, func(i, j int) bool { return partition[i].TurnID < partition[j].TurnID })

	ids := make([]string, 0, excess)
	for _, d := range partition[:excess] {
		ids = append(ids, d.ID)
	}

	if err := m.Delete(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

var _ vector.Driver = (*MockVectorDriver)(nil)
