package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/insight-cli/internal/model"
)

func testRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"haiku": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"sonnet": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Perplexity: PerplexityRate{PerQuery: 0.005},
		Firecrawl:  FirecrawlRate{PlanMonthly: 19.0, CreditsIncluded: 3000},
	}
}

func TestClaude(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name  string
		model string
		usage model.TokenUsage
		want  float64
	}{
		{
			name:  "haiku simple",
			model: "haiku",
			usage: model.TokenUsage{InputTokens: 1000000, OutputTokens: 100000},
			want:  0.80 + 0.40,
		},
		{
			name:  "sonnet simple",
			model: "sonnet",
			usage: model.TokenUsage{InputTokens: 1000000, OutputTokens: 1000000},
			want:  3.00 + 15.00,
		},
		{
			name:  "cache write and read",
			model: "sonnet",
			usage: model.TokenUsage{CacheCreationTokens: 1000000, CacheReadTokens: 1000000},
			want:  3.00*1.25 + 3.00*0.1,
		},
		{
			name:  "unknown model",
			model: "gpt-4",
			usage: model.TokenUsage{InputTokens: 1000000},
			want:  0,
		},
		{
			name:  "zero tokens",
			model: "haiku",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.Claude(tt.model, tt.usage), 0.0001)
		})
	}
}

func TestPerplexityQuery(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())
	assert.InDelta(t, 0.005, calc.PerplexityQuery(), 0.0001)
}

func TestFirecrawlScrape(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())
	assert.InDelta(t, 19.0/3000, calc.FirecrawlScrape(), 0.000001)

	empty := NewCalculator(Rates{})
	assert.InDelta(t, 0.0, empty.FirecrawlScrape(), 0.000001)
}

func TestDefaultRates(t *testing.T) {
	t.Parallel()
	rates := DefaultRates()
	assert.Contains(t, rates.Anthropic, "claude-haiku-4-5-20251001")
	assert.Contains(t, rates.Anthropic, "claude-sonnet-4-5-20250929")
	assert.Greater(t, rates.Perplexity.PerQuery, 0.0)
}
