package search

import "context"

// MockIndex is a configurable mock for testing retrieval.
type MockIndex struct {
	// SearchFunc is called when Search is invoked. If nil, returns an empty
	// result list and nil error.
	SearchFunc func(ctx context.Context, q Query) ([]Result, error)

	// SearchCalls counts invocations; Queries records each query received.
	SearchCalls int
	Queries     []Query
}

// Search implements Index.
func (m *MockIndex) Search(ctx context.Context, q Query) ([]Result, error) {
	m.SearchCalls++
	m.Queries = append(m.Queries, q)
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, q)
	}
	return []Result{}, nil
}

var _ Index = (*MockIndex)(nil)
