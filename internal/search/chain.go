package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/insight-cli/internal/metrics"
	"github.com/sells-group/insight-cli/internal/model"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 10 * time.Second

// Accept decides whether the results gathered so far end the chain.
type Accept func(results []model.SearchResult) bool

// NonEmpty accepts any non-empty result set.
func NonEmpty(results []model.SearchResult) bool {
	return len(results) > 0
}

// Chain tries providers in priority order.
type Chain struct {
	providers []Provider
	timeout   time.Duration
}

// NewChain creates a chain over providers. A non-positive timeout uses
// DefaultTimeout.
func NewChain(providers []Provider, timeout time.Duration) *Chain {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Chain{providers: providers, timeout: timeout}
}

// Providers returns the provider names in priority order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Run issues query against each provider until accept is satisfied and
// returns the union of every tried provider's results, in priority order.
func (c *Chain) Run(ctx context.Context, query string, accept Accept) []model.SearchResult {
	if accept == nil {
		accept = NonEmpty
	}

	var all []model.SearchResult
	for _, p := range c.providers {
		if ctx.Err() != nil {
			break
		}
		results, err := c.call(ctx, p, query)
		metrics.RecordProvider(p.Name(), len(results), err)
		if err != nil {
			logProviderError(p.Name(), query, err)
			continue
		}
		all = append(all, results...)
		if accept(all) {
			break
		}
	}
	return all
}

func (c *Chain) call(ctx context.Context, p Provider, query string) ([]model.SearchResult, error) {
	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results, err := p.Search(pctx, query)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if results[i].Provider == "" {
			results[i].Provider = p.Name()
		}
	}
	return results, nil
}

func logProviderError(provider, query string, err error) {
	kind := KindOf(err)
	fields := []zap.Field{
		zap.String("provider", provider),
		zap.String("query", query),
		zap.String("kind", kind.String()),
		zap.Error(err),
	}
	if kind == KindConfig {
		zap.L().Error("search: provider not configured", fields...)
		return
	}
	zap.L().Warn("search: provider failed", fields...)
}
