package search

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/insight-cli/internal/model"
)

// --- Provider Mock ---

type mockProvider struct {
	mock.Mock
	name string
}

func newMockProvider(name string) *mockProvider {
	return &mockProvider{name: name}
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SearchResult), args.Error(1)
}

// --- Querier Mock ---

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Query(ctx context.Context, query string) []model.SearchResult {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.SearchResult)
}

func hits(urls ...string) []model.SearchResult {
	out := make([]model.SearchResult, len(urls))
	for i, u := range urls {
		out[i] = model.SearchResult{Title: "hit", URL: u}
	}
	return out
}
