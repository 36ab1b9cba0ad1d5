package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Brave      BraveConfig      `yaml:"brave" mapstructure:"brave"`
	SerpAPI    SerpAPIConfig    `yaml:"serpapi" mapstructure:"serpapi"`
	GoogleCSE  GoogleCSEConfig  `yaml:"google_cse" mapstructure:"google_cse"`
	Exa        ExaConfig        `yaml:"exa" mapstructure:"exa"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	LinkedIn   LinkedInConfig   `yaml:"linkedin" mapstructure:"linkedin"`
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
	Catalogue  CatalogueConfig  `yaml:"catalogue" mapstructure:"catalogue"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	NATS       NATSConfig       `yaml:"nats" mapstructure:"nats"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// BraveConfig holds Brave Search API settings.
type BraveConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec     float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	NewsCount      int     `yaml:"news_count" mapstructure:"news_count"`
	ResultsPerPage int     `yaml:"results_per_page" mapstructure:"results_per_page"`
}

// SerpAPIConfig holds SerpAPI settings.
type SerpAPIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GoogleCSEConfig holds Google Custom Search settings. Keys are rotated
// when one is rate limited.
type GoogleCSEConfig struct {
	Keys    []string `yaml:"keys" mapstructure:"keys"`
	CX      string   `yaml:"cx" mapstructure:"cx"`
	BaseURL string   `yaml:"base_url" mapstructure:"base_url"`
}

// ExaConfig holds Exa search settings.
type ExaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SearchConfig configures the search aggregator and targeted search.
type SearchConfig struct {
	Providers    []string `yaml:"providers" mapstructure:"providers"`
	TimeoutSecs  int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	QueryMapPath string   `yaml:"query_map_path" mapstructure:"query_map_path"`
}

// LinkedInConfig configures the LinkedIn resolver.
type LinkedInConfig struct {
	Providers []string `yaml:"providers" mapstructure:"providers"`
}

// CrawlConfig configures the internal crawl.
type CrawlConfig struct {
	DefaultDepth int      `yaml:"default_depth" mapstructure:"default_depth"`
	MaxPages     int      `yaml:"max_pages" mapstructure:"max_pages"`
	TimeoutSecs  int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent    string   `yaml:"user_agent" mapstructure:"user_agent"`
	ExcludePaths []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// ScrapeConfig configures the strategy chain and content extraction.
type ScrapeConfig struct {
	Strategies      []string `yaml:"strategies" mapstructure:"strategies"`
	TimeoutSecs     int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxContentChars int      `yaml:"max_content_chars" mapstructure:"max_content_chars"`
}

// PipelineConfig configures the controller.
type PipelineConfig struct {
	MaxRetries   int `yaml:"max_retries" mapstructure:"max_retries"`
	ExcerptChars int `yaml:"excerpt_chars" mapstructure:"excerpt_chars"`
}

// ReportConfig configures report rendering.
type ReportConfig struct {
	ToolMode      bool   `yaml:"tool_mode" mapstructure:"tool_mode"`
	MaxToolRounds int    `yaml:"max_tool_rounds" mapstructure:"max_tool_rounds"`
	Brand         string `yaml:"brand" mapstructure:"brand"`
}

// CatalogueConfig locates the product catalogue used by the report tools.
type CatalogueConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// NATSConfig configures progress event publishing. Empty URL disables it.
type NATSConfig struct {
	URL           string `yaml:"url" mapstructure:"url"`
	SubjectPrefix string `yaml:"subject_prefix" mapstructure:"subject_prefix"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "insight.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrency", 4)
	v.SetDefault("crawl.default_depth", 1)
	v.SetDefault("crawl.max_pages", 25)
	v.SetDefault("crawl.timeout_secs", 10)
	v.SetDefault("crawl.user_agent", "Mozilla/5.0 (compatible; InsightBot/1.0)")
	v.SetDefault("scrape.strategies", []string{"static", "rendered", "automated", "bulk", "ai"})
	v.SetDefault("scrape.timeout_secs", 10)
	v.SetDefault("scrape.max_content_chars", 20000)
	v.SetDefault("search.providers", []string{"brave", "serpapi", "google_cse"})
	v.SetDefault("search.timeout_secs", 10)
	v.SetDefault("linkedin.providers", []string{"exa", "serpapi", "google_cse"})
	v.SetDefault("pipeline.max_retries", 3)
	v.SetDefault("pipeline.excerpt_chars", 4000)
	v.SetDefault("report.tool_mode", false)
	v.SetDefault("report.max_tool_rounds", 5)
	v.SetDefault("report.brand", "Delta Proje")
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.timeout_secs", 120)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("brave.base_url", "https://api.search.brave.com/res/v1")
	v.SetDefault("brave.rate_per_sec", 1.0)
	v.SetDefault("brave.news_count", 3)
	v.SetDefault("brave.results_per_page", 10)
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("google_cse.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("exa.base_url", "https://api.exa.ai")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("nats.subject_prefix", "insight.runs")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode needs. Modes: "pipeline"
// (run, batch), "scrape", "linkedin", "serve", "store".
func (c *Config) Validate(mode string) error {
	var errs []string

	requireStore := func() {
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	}
	requireAnthropic := func() {
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	}
	requireProviders := func(section string, names []string) {
		if len(names) == 0 {
			errs = append(errs, section+".providers must not be empty")
		}
	}

	switch mode {
	case "pipeline":
		requireStore()
		requireAnthropic()
		requireProviders("search", c.Search.Providers)
		requireProviders("linkedin", c.LinkedIn.Providers)
		if c.Pipeline.MaxRetries < 0 {
			errs = append(errs, "pipeline.max_retries must be >= 0")
		}
		if c.Report.MaxToolRounds < 1 {
			errs = append(errs, "report.max_tool_rounds must be >= 1")
		}
		if c.Batch.MaxConcurrency < 1 || c.Batch.MaxConcurrency > 50 {
			errs = append(errs, "batch.max_concurrency must be between 1 and 50")
		}
	case "scrape":
		requireAnthropic()
		if len(c.Scrape.Strategies) == 0 {
			errs = append(errs, "scrape.strategies must not be empty")
		}
	case "linkedin":
		requireProviders("linkedin", c.LinkedIn.Providers)
	case "serve":
		requireStore()
		requireAnthropic()
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "store":
		requireStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Crawl.MaxPages < 0 {
		errs = append(errs, "crawl.max_pages must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
