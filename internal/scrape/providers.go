package scrape

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/insight-cli/pkg/firecrawl"
	"github.com/sells-group/insight-cli/pkg/gemini"
	"github.com/sells-group/insight-cli/pkg/jina"
)

// Rendered fetches JavaScript-rendered content through the Jina Reader.
type Rendered struct {
	client jina.Client
}

// NewRendered creates a Rendered strategy.
func NewRendered(client jina.Client) *Rendered {
	return &Rendered{client: client}
}

func (r *Rendered) Name() string { return StrategyRendered }

func (r *Rendered) Fetch(ctx context.Context, targetURL string) (string, error) {
	resp, err := r.client.Read(ctx, targetURL)
	if err != nil {
		return "", eris.Wrap(err, "rendered: read")
	}
	return resp.Data.Content, nil
}

// Bulk fetches through the Firecrawl scrape API.
type Bulk struct {
	client firecrawl.Client
}

// NewBulk creates a Bulk strategy.
func NewBulk(client firecrawl.Client) *Bulk {
	return &Bulk{client: client}
}

func (b *Bulk) Name() string { return StrategyBulk }

func (b *Bulk) Fetch(ctx context.Context, targetURL string) (string, error) {
	resp, err := b.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     targetURL,
		Formats: []string{"html"},
	})
	if err != nil {
		return "", eris.Wrap(err, "bulk: scrape")
	}
	if !resp.Success {
		return "", eris.New("bulk: scrape not successful")
	}
	return resp.Data.Content(), nil
}

// AI asks Gemini to read the page with its URL-context tool.
type AI struct {
	client gemini.Client
}

// NewAI creates an AI strategy.
func NewAI(client gemini.Client) *AI {
	return &AI{client: client}
}

func (a *AI) Name() string { return StrategyAI }

func (a *AI) Fetch(ctx context.Context, targetURL string) (string, error) {
	ans, err := a.client.FetchURL(ctx, targetURL)
	if err != nil {
		return "", eris.Wrap(err, "ai: fetch url")
	}
	return ans.Text, nil
}
