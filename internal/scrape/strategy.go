// Package scrape fetches company web pages through an ordered chain of
// strategies and crawls same-host links breadth first.
package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/insight-cli/internal/metrics"
)

// ErrAllToolsFailed is returned when every strategy yields empty content.
var ErrAllToolsFailed = eris.New("all scrape tools failed")

// Strategy names, in default chain order.
const (
	StrategyStatic    = "static"
	StrategyRendered  = "rendered"
	StrategyAutomated = "automated"
	StrategyBulk      = "bulk"
	StrategyAI        = "ai"
)

// DefaultStrategies is the default chain order.
var DefaultStrategies = []string{StrategyStatic, StrategyRendered, StrategyAutomated, StrategyBulk, StrategyAI}

// Strategy fetches the content of a single URL.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, url string) (string, error)
}

// Select returns the strategies named in names, in that order.
func Select(names []string, available map[string]Strategy) ([]Strategy, error) {
	out := make([]Strategy, 0, len(names))
	for _, n := range names {
		s, ok := available[n]
		if !ok {
			return nil, eris.Errorf("scrape: unknown strategy %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

// Chain tries strategies in order and stops at the first non-empty content.
type Chain struct {
	strategies []Strategy
}

// NewChain creates a Chain over strategies.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Names returns the strategy names in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Fetch returns the content and the name of the strategy that produced it.
// Later strategies are never invoked once one succeeds.
func (c *Chain) Fetch(ctx context.Context, url string) (string, string, error) {
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return "", "", eris.Wrap(err, "scrape: fetch")
		}

		content, err := s.Fetch(ctx, url)
		metrics.RecordStrategy(s.Name(), len(content), err)
		if err != nil {
			zap.L().Warn("scrape: strategy failed, trying next",
				zap.String("strategy", s.Name()),
				zap.String("url", url),
				zap.Error(err),
			)
			continue
		}
		if strings.TrimSpace(content) == "" {
			zap.L().Debug("scrape: strategy returned empty content",
				zap.String("strategy", s.Name()),
				zap.String("url", url),
			)
			continue
		}
		return content, s.Name(), nil
	}
	return "", "", eris.Wrapf(ErrAllToolsFailed, "scrape: %s", url)
}
