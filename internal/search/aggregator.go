package search

import (
	"context"
	"strings"

	"github.com/sells-group/insight-cli/internal/model"
)

// Aggregator runs queries through a chain, stopping each query at the first
// provider with results.
type Aggregator struct {
	chain *Chain
}

// NewAggregator creates an aggregator over chain.
func NewAggregator(chain *Chain) *Aggregator {
	return &Aggregator{chain: chain}
}

// Search runs every distinct query once and concatenates the results in
// query order. Nothing is cached between calls.
func (a *Aggregator) Search(ctx context.Context, queries []string) []model.SearchResult {
	seen := make(map[string]bool, len(queries))
	var out []model.SearchResult
	for _, q := range queries {
		if strings.TrimSpace(q) == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, a.chain.Run(ctx, q, NonEmpty)...)
	}
	return out
}

// Query runs a single query.
func (a *Aggregator) Query(ctx context.Context, query string) []model.SearchResult {
	return a.Search(ctx, []string{query})
}
