package search

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/insight-cli/internal/model"
	"github.com/sells-group/insight-cli/pkg/brave"
	"github.com/sells-group/insight-cli/pkg/exa"
	"github.com/sells-group/insight-cli/pkg/gemini"
	"github.com/sells-group/insight-cli/pkg/googlecse"
	"github.com/sells-group/insight-cli/pkg/jina"
	"github.com/sells-group/insight-cli/pkg/serpapi"
)

// Provider names accepted in search.providers and linkedin.providers.
const (
	ProviderBrave     = "brave"
	ProviderSerpAPI   = "serpapi"
	ProviderGoogleCSE = "google_cse"
	ProviderExa       = "exa"
	ProviderJina      = "jina"
	ProviderGemini    = "gemini"
)

// DefaultResults is the number of hits requested from providers that take
// a count.
const DefaultResults = 10

const maxSnippetRunes = 500

// Select returns the providers named in names, in that order.
func Select(names []string, available map[string]Provider) ([]Provider, error) {
	out := make([]Provider, 0, len(names))
	for _, n := range names {
		p, ok := available[n]
		if !ok {
			return nil, eris.Errorf("search: unknown provider %q", n)
		}
		out = append(out, p)
	}
	return out, nil
}

// Brave searches the Brave web index.
type Brave struct {
	Client brave.Client
	Count  int
}

func (p *Brave) Name() string { return ProviderBrave }

func (p *Brave) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	resp, err := p.Client.WebSearch(ctx, query, countOr(p.Count))
	if err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, 0, len(resp.Web.Results))
	for _, r := range resp.Web.Results {
		out = append(out, result(ProviderBrave, r.Title, r.URL, r.Description))
	}
	return out, nil
}

// SerpAPI searches Google organic results through SerpAPI.
type SerpAPI struct {
	Client serpapi.Client
	Num    int
}

func (p *SerpAPI) Name() string { return ProviderSerpAPI }

func (p *SerpAPI) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	resp, err := p.Client.Search(ctx, query, countOr(p.Num))
	if err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		out = append(out, result(ProviderSerpAPI, r.Title, r.Link, r.Snippet))
	}
	return out, nil
}

// GoogleCSE searches a Google Programmable Search Engine.
type GoogleCSE struct {
	Client googlecse.Client
	Num    int
}

func (p *GoogleCSE) Name() string { return ProviderGoogleCSE }

func (p *GoogleCSE) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	resp, err := p.Client.Search(ctx, query, countOr(p.Num))
	if err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, 0, len(resp.Items))
	for _, r := range resp.Items {
		out = append(out, result(ProviderGoogleCSE, r.Title, r.Link, r.Snippet))
	}
	return out, nil
}

// Exa runs an Exa neural search with page text.
type Exa struct {
	Client exa.Client
	Num    int
}

func (p *Exa) Name() string { return ProviderExa }

func (p *Exa) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	resp, err := p.Client.Search(ctx, exa.SearchRequest{
		Query:      query,
		NumResults: countOr(p.Num),
		Contents:   &exa.Contents{Text: true},
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, result(ProviderExa, r.Title, r.URL, r.Snippet()))
	}
	return out, nil
}

// Jina searches through Jina AI Search.
type Jina struct {
	Client jina.Client
}

func (p *Jina) Name() string { return ProviderJina }

func (p *Jina) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	resp, err := p.Client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, 0, len(resp.Data))
	for _, r := range resp.Data {
		snippet := r.Description
		if snippet == "" {
			snippet = r.Content
		}
		out = append(out, result(ProviderJina, r.Title, r.URL, snippet))
	}
	return out, nil
}

// Gemini asks Gemini with Google Search grounding and returns the grounding
// sources. The answer text becomes the snippet of the first source.
type Gemini struct {
	Client gemini.Client
}

func (p *Gemini) Name() string { return ProviderGemini }

func (p *Gemini) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	ans, err := p.Client.GroundedSearch(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, 0, len(ans.Sources))
	for i, s := range ans.Sources {
		snippet := ""
		if i == 0 {
			snippet = ans.Text
		}
		out = append(out, result(ProviderGemini, s.Title, s.URI, snippet))
	}
	return out, nil
}

func result(provider, title, url, snippet string) model.SearchResult {
	return model.SearchResult{
		Title:    strings.TrimSpace(title),
		URL:      strings.TrimSpace(url),
		Snippet:  truncateRunes(strings.TrimSpace(snippet), maxSnippetRunes),
		Provider: provider,
	}
}

func countOr(n int) int {
	if n > 0 {
		return n
	}
	return DefaultResults
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
