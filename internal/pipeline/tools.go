package pipeline

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/insight-cli/internal/catalogue"
	"github.com/sells-group/insight-cli/internal/model"
	"github.com/sells-group/insight-cli/internal/search"
	"github.com/sells-group/insight-cli/pkg/anthropic"
	"github.com/sells-group/insight-cli/pkg/perplexity"
)

// ErrUnknownTool is returned when the model calls a tool that is not registered.
var ErrUnknownTool = eris.New("pipeline: unknown tool")

// ToolName identifies a tool offered to the report model.
type ToolName string

const (
	ToolNewsfinder         ToolName = "newsfinder"
	ToolLinkedInSearch     ToolName = "linkedin_search"
	ToolTrendFetcher       ToolName = "trend_fetcher"
	ToolProductCatalogue   ToolName = "product_catalogue"
	ToolWebSearch          ToolName = "web_search"
	ToolSerpAPIWebSearch   ToolName = "serpapi_web_search"
	ToolGoogleCustomSearch ToolName = "google_custom_search"
)

type tool struct {
	def  anthropic.ToolDefinition
	call func(ctx context.Context, input json.RawMessage) (string, error)
}

// ToolRegistry maps tool names to typed handlers.
type ToolRegistry struct {
	tools map[ToolName]tool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[ToolName]tool)}
}

// Register adds a tool whose input decodes into In. The handler's result
// is returned to the model as JSON, or verbatim when it is a string.
func Register[In any](r *ToolRegistry, name ToolName, description string, properties map[string]any, required []string, handler func(ctx context.Context, in In) (any, error)) {
	r.tools[name] = tool{
		def: anthropic.ToolDefinition{
			Name:        string(name),
			Description: description,
			Properties:  properties,
			Required:    required,
		},
		call: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var in In
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &in); err != nil {
					return "", eris.Wrapf(err, "tool %s: decode input", name)
				}
			}
			out, err := handler(ctx, in)
			if err != nil {
				return "", eris.Wrapf(err, "tool %s", name)
			}
			if s, ok := out.(string); ok {
				return s, nil
			}
			b, err := json.Marshal(out)
			if err != nil {
				return "", eris.Wrapf(err, "tool %s: encode result", name)
			}
			return string(b), nil
		},
	}
}

// Names returns the registered tool names in sorted order.
func (r *ToolRegistry) Names() []ToolName {
	names := make([]ToolName, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tools)
}

// Definitions returns the tool definitions in name order.
func (r *ToolRegistry) Definitions() []anthropic.ToolDefinition {
	if r == nil {
		return nil
	}
	defs := make([]anthropic.ToolDefinition, 0, len(r.tools))
	for _, n := range r.Names() {
		defs = append(defs, r.tools[n].def)
	}
	return defs
}

// Call runs the named tool.
func (r *ToolRegistry) Call(ctx context.Context, name string, input json.RawMessage) (string, error) {
	if r == nil {
		return "", eris.Wrapf(ErrUnknownTool, "%q", name)
	}
	t, ok := r.tools[ToolName(name)]
	if !ok {
		return "", eris.Wrapf(ErrUnknownTool, "%q", name)
	}
	return t.call(ctx, input)
}

// LinkedInLookup resolves a company on LinkedIn. LinkedInResolver
// implements it.
type LinkedInLookup interface {
	Resolve(ctx context.Context, company string, wantContacts bool) (*model.LinkedInResult, error)
}

// TrendFetcher answers a market-trend question in prose.
type TrendFetcher interface {
	Trends(ctx context.Context, topic string) (string, error)
}

// PerplexityTrends fetches trends through Perplexity chat completions.
type PerplexityTrends struct {
	Client perplexity.Client
	Model  string
}

// Trends implements TrendFetcher.
func (p *PerplexityTrends) Trends(ctx context.Context, topic string) (string, error) {
	resp, err := p.Client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model: p.Model,
		Messages: []perplexity.Message{
			{Role: "system", Content: "Be precise and concise. Cite recent sources."},
			{Role: "user", Content: "Summarize current market trends for: " + topic},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "trends: perplexity")
	}
	return resp.Text(), nil
}

// ToolDeps are the capabilities behind the report tools. A nil field
// leaves its tool unregistered.
type ToolDeps struct {
	News      NewsFetcher
	LinkedIn  LinkedInLookup
	Trends    TrendFetcher
	Catalogue catalogue.Catalogue
	Web       search.Querier
	SerpAPI   search.Provider
	GoogleCSE search.Provider
}

type companyInput struct {
	Company string `json:"company"`
}

type queryInput struct {
	Query string `json:"query"`
}

type topicInput struct {
	Topic string `json:"topic"`
}

type catalogueInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// DefaultTools registers a tool for every non-nil dependency.
func DefaultTools(deps ToolDeps) *ToolRegistry {
	r := NewToolRegistry()

	if deps.News != nil {
		Register(r, ToolNewsfinder, "Find recent news articles about a company.",
			map[string]any{"company": stringProp("Company name")}, []string{"company"},
			func(ctx context.Context, in companyInput) (any, error) {
				if strings.TrimSpace(in.Company) == "" {
					return nil, eris.New("company is required")
				}
				return deps.News.News(ctx, in.Company)
			})
	}
	if deps.LinkedIn != nil {
		Register(r, ToolLinkedInSearch, "Look up a company's LinkedIn page, size, industry and location.",
			map[string]any{"company": stringProp("Company name")}, []string{"company"},
			func(ctx context.Context, in companyInput) (any, error) {
				return deps.LinkedIn.Resolve(ctx, in.Company, false)
			})
	}
	if deps.Trends != nil {
		Register(r, ToolTrendFetcher, "Summarize current market trends for a sector or product.",
			map[string]any{"topic": stringProp("Sector, market or product")}, []string{"topic"},
			func(ctx context.Context, in topicInput) (any, error) {
				if strings.TrimSpace(in.Topic) == "" {
					return nil, eris.New("topic is required")
				}
				return deps.Trends.Trends(ctx, in.Topic)
			})
	}
	if deps.Catalogue != nil {
		Register(r, ToolProductCatalogue, "Find our products that fit the company's needs.",
			map[string]any{
				"query": stringProp("Needs, sector or keywords"),
				"limit": map[string]any{"type": "integer", "description": "Maximum products to return"},
			}, []string{"query"},
			func(_ context.Context, in catalogueInput) (any, error) {
				return deps.Catalogue.Match(in.Query, in.Limit), nil
			})
	}
	if deps.Web != nil {
		Register(r, ToolWebSearch, "Search the web.",
			map[string]any{"query": stringProp("Search query")}, []string{"query"},
			func(ctx context.Context, in queryInput) (any, error) {
				return nonNilResults(deps.Web.Query(ctx, in.Query)), nil
			})
	}
	if deps.SerpAPI != nil {
		registerProvider(r, ToolSerpAPIWebSearch, "Search Google through SerpAPI.", deps.SerpAPI)
	}
	if deps.GoogleCSE != nil {
		registerProvider(r, ToolGoogleCustomSearch, "Search with Google Custom Search.", deps.GoogleCSE)
	}
	return r
}

func registerProvider(r *ToolRegistry, name ToolName, description string, p search.Provider) {
	Register(r, name, description,
		map[string]any{"query": stringProp("Search query")}, []string{"query"},
		func(ctx context.Context, in queryInput) (any, error) {
			if strings.TrimSpace(in.Query) == "" {
				return nil, eris.New("query is required")
			}
			results, err := p.Search(ctx, in.Query)
			if err != nil {
				return nil, err
			}
			return nonNilResults(results), nil
		})
}

func nonNilResults(results []model.SearchResult) []model.SearchResult {
	if results == nil {
		return []model.SearchResult{}
	}
	return results
}
