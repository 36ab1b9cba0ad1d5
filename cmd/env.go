package main

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/insight-cli/internal/catalogue"
	"github.com/sells-group/insight-cli/internal/cost"
	"github.com/sells-group/insight-cli/internal/events"
	"github.com/sells-group/insight-cli/internal/pipeline"
	"github.com/sells-group/insight-cli/internal/scrape"
	"github.com/sells-group/insight-cli/internal/search"
	"github.com/sells-group/insight-cli/internal/store"
	anthropicpkg "github.com/sells-group/insight-cli/pkg/anthropic"
	"github.com/sells-group/insight-cli/pkg/brave"
	"github.com/sells-group/insight-cli/pkg/exa"
	"github.com/sells-group/insight-cli/pkg/firecrawl"
	"github.com/sells-group/insight-cli/pkg/gemini"
	"github.com/sells-group/insight-cli/pkg/googlecse"
	"github.com/sells-group/insight-cli/pkg/jina"
	"github.com/sells-group/insight-cli/pkg/perplexity"
	"github.com/sells-group/insight-cli/pkg/serpapi"
)

// clients holds the API clients built from configuration. Clients with a
// blank key are still built; their calls fail with a missing-credential
// error that the provider chains treat as an empty result.
type clients struct {
	Anthropic  anthropicpkg.Client
	Jina       jina.Client
	Firecrawl  firecrawl.Client
	Perplexity perplexity.Client
	Brave      brave.Client
	SerpAPI    serpapi.Client
	GoogleCSE  googlecse.Client
	Exa        exa.Client
	Gemini     gemini.Client
}

func newClients(ctx context.Context) (*clients, error) {
	var anthropicOpts []option.RequestOption
	if cfg.Anthropic.TimeoutSecs > 0 {
		anthropicOpts = append(anthropicOpts, option.WithRequestTimeout(seconds(cfg.Anthropic.TimeoutSecs)))
	}

	jinaOpts := []jina.Option{jina.WithBaseURL(cfg.Jina.BaseURL)}
	if cfg.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}

	braveOpts := []brave.Option{brave.WithBaseURL(cfg.Brave.BaseURL)}
	if cfg.Brave.RatePerSec > 0 {
		braveOpts = append(braveOpts, brave.WithRateLimit(cfg.Brave.RatePerSec))
	}

	geminiClient, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:  cfg.Gemini.Key,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "init gemini")
	}

	return &clients{
		Anthropic:  anthropicpkg.NewClient(cfg.Anthropic.Key, anthropicOpts...),
		Jina:       jina.NewClient(cfg.Jina.Key, jinaOpts...),
		Firecrawl:  firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL)),
		Perplexity: perplexity.NewClient(cfg.Perplexity.Key, perplexity.WithBaseURL(cfg.Perplexity.BaseURL), perplexity.WithModel(cfg.Perplexity.Model)),
		Brave:      brave.NewClient(cfg.Brave.Key, braveOpts...),
		SerpAPI:    serpapi.NewClient(cfg.SerpAPI.Key, serpapi.WithBaseURL(cfg.SerpAPI.BaseURL)),
		GoogleCSE:  googlecse.NewClient(cfg.GoogleCSE.Keys, cfg.GoogleCSE.CX, googlecse.WithBaseURL(cfg.GoogleCSE.BaseURL)),
		Exa:        exa.NewClient(cfg.Exa.Key, exa.WithBaseURL(cfg.Exa.BaseURL)),
		Gemini:     geminiClient,
	}, nil
}

// searchProviders maps every provider name to its adapter.
func (c *clients) searchProviders() map[string]search.Provider {
	return map[string]search.Provider{
		search.ProviderBrave:     &search.Brave{Client: c.Brave, Count: cfg.Brave.ResultsPerPage},
		search.ProviderSerpAPI:   &search.SerpAPI{Client: c.SerpAPI},
		search.ProviderGoogleCSE: &search.GoogleCSE{Client: c.GoogleCSE},
		search.ProviderExa:       &search.Exa{Client: c.Exa},
		search.ProviderJina:      &search.Jina{Client: c.Jina},
		search.ProviderGemini:    &search.Gemini{Client: c.Gemini},
	}
}

// strategies maps every scrape strategy name to its implementation.
func (c *clients) strategies() map[string]scrape.Strategy {
	timeout := seconds(cfg.Scrape.TimeoutSecs)
	return map[string]scrape.Strategy{
		scrape.StrategyStatic:    scrape.NewStatic(timeout, cfg.Crawl.UserAgent),
		scrape.StrategyRendered:  scrape.NewRendered(c.Jina),
		scrape.StrategyAutomated: scrape.NewAutomated(timeout),
		scrape.StrategyBulk:      scrape.NewBulk(c.Firecrawl),
		scrape.StrategyAI:        scrape.NewAI(c.Gemini),
	}
}

func newChain(providers map[string]search.Provider, names []string) (*search.Chain, error) {
	selected, err := search.Select(names, providers)
	if err != nil {
		return nil, err
	}
	return search.NewChain(selected, seconds(cfg.Search.TimeoutSecs)), nil
}

func newScraper(c *clients, calc *cost.Calculator) (*pipeline.Scraper, error) {
	selected, err := scrape.Select(cfg.Scrape.Strategies, c.strategies())
	if err != nil {
		return nil, err
	}

	var excludes *scrape.PathMatcher
	if len(cfg.Crawl.ExcludePaths) > 0 {
		excludes = scrape.NewPathMatcher(cfg.Crawl.ExcludePaths)
	}
	crawler := scrape.NewCrawler(scrape.CrawlConfig{
		MaxPages:  cfg.Crawl.MaxPages,
		Timeout:   seconds(cfg.Crawl.TimeoutSecs),
		UserAgent: cfg.Crawl.UserAgent,
		Excludes:  excludes,
	})

	return pipeline.NewScraper(scrape.NewChain(selected...), crawler, c.Anthropic, cfg.Anthropic.HaikuModel, cfg.Scrape.MaxContentChars, calc), nil
}

func newLinkedIn(c *clients) (*pipeline.LinkedInResolver, error) {
	chain, err := newChain(c.searchProviders(), cfg.LinkedIn.Providers)
	if err != nil {
		return nil, eris.Wrap(err, "linkedin providers")
	}
	return pipeline.NewLinkedInResolver(chain), nil
}

// pipelineEnv holds the store, the event publisher and the stages needed
// by the run, batch and serve commands.
type pipelineEnv struct {
	Store    store.Store
	Events   events.Publisher
	Scraper  *pipeline.Scraper
	LinkedIn *pipeline.LinkedInResolver
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Events != nil {
		pe.Events.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates the configuration for mode, opens the store and
// wires every stage. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	c, err := newClients(ctx)
	if err != nil {
		return nil, err
	}
	calc := cost.NewCalculator(cost.DefaultRates())

	scraper, err := newScraper(c, calc)
	if err != nil {
		return nil, err
	}
	resolver, err := newLinkedIn(c)
	if err != nil {
		return nil, err
	}

	providers := c.searchProviders()
	webChain, err := newChain(providers, cfg.Search.Providers)
	if err != nil {
		return nil, eris.Wrap(err, "search providers")
	}
	aggregator := search.NewAggregator(webChain)

	queries := search.DefaultQueryMap()
	if cfg.Search.QueryMapPath != "" {
		queries, err = search.LoadQueryMap(cfg.Search.QueryMapPath)
		if err != nil {
			return nil, err
		}
	}

	products, err := catalogue.Load(cfg.Catalogue.Path)
	if err != nil {
		return nil, err
	}

	news := &pipeline.BraveNews{Client: c.Brave, Count: cfg.Brave.NewsCount}
	tools := pipeline.DefaultTools(pipeline.ToolDeps{
		News:      news,
		LinkedIn:  resolver,
		Trends:    &pipeline.PerplexityTrends{Client: c.Perplexity, Model: cfg.Perplexity.Model},
		Catalogue: products,
		Web:       aggregator,
		SerpAPI:   providers[search.ProviderSerpAPI],
		GoogleCSE: providers[search.ProviderGoogleCSE],
	})

	publisher, err := initEvents()
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		publisher.Close()
		return nil, err
	}

	maxRetries := cfg.Pipeline.MaxRetries
	if maxRetries == 0 {
		maxRetries = -1
	}

	p := pipeline.New(pipeline.Stages{
		Scraper:     scraper,
		LinkedIn:    resolver,
		Synthesizer: pipeline.NewSynthesizer(c.Anthropic, cfg.Anthropic.SonnetModel, news, cfg.Pipeline.ExcerptChars, calc),
		Targeted:    search.NewTargeted(aggregator, queries),
		Renderer:    pipeline.NewRenderer(c.Anthropic, cfg.Anthropic.SonnetModel, tools, cfg.Report.MaxToolRounds, cfg.Report.Brand, calc),
	}, pipeline.Options{
		Store:      st,
		Events:     publisher,
		MaxRetries: maxRetries,
		ToolMode:   cfg.Report.ToolMode,
	})

	zap.L().Info("pipeline ready",
		zap.Strings("strategies", cfg.Scrape.Strategies),
		zap.Strings("search_providers", webChain.Providers()),
		zap.Strings("linkedin_providers", cfg.LinkedIn.Providers),
		zap.Strings("tools", toolNames(tools)),
		zap.Int("catalogue_products", products.Len()),
	)

	return &pipelineEnv{
		Store:    st,
		Events:   publisher,
		Scraper:  scraper,
		LinkedIn: resolver,
		Pipeline: p,
	}, nil
}

func toolNames(r *pipeline.ToolRegistry) []string {
	if r == nil {
		return nil
	}
	names := r.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

// initEvents connects to NATS when configured.
func initEvents() (events.Publisher, error) {
	if cfg.NATS.URL == "" {
		return events.Nop{}, nil
	}
	p, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		return nil, err
	}
	zap.L().Info("publishing run events", zap.String("nats_url", cfg.NATS.URL))
	return p, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
