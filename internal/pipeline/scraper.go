package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/insight-cli/internal/cost"
	"github.com/sells-group/insight-cli/internal/model"
	"github.com/sells-group/insight-cli/internal/scrape"
	"github.com/sells-group/insight-cli/pkg/anthropic"
)

// Fetcher returns the primary content of a page and the strategy that
// produced it. scrape.Chain implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (content, strategy string, err error)
}

// Crawler walks a site breadth first. scrape.Crawler implements it.
type Crawler interface {
	Crawl(ctx context.Context, startURL, seed string, depth int) ([]model.CrawledPage, error)
}

const extractionSystem = `Extract company facts from the website content the user sends.
Return only a JSON object with these keys:
- company_name: the company's name
- summary: two or three sentences on what the company does
- sector: the industry sector
- products_or_services: the main products or services
- sales_signals: anything suggesting buying intent, growth, hiring or pain points
Use an empty string for anything the content does not state.`

const extractionPrompt = `Website: %s

Content:
%s`

// Scraper fetches a company site, optionally crawls it, and extracts
// structured facts with one language-model call.
type Scraper struct {
	fetcher    Fetcher
	crawler    Crawler
	ai         anthropic.Client
	model      string
	maxContent int
	calc       *cost.Calculator
}

// NewScraper creates a Scraper. A nil crawler disables crawling and
// maxContentRunes <= 0 uses scrape.MaxContentRunes.
func NewScraper(fetcher Fetcher, crawler Crawler, ai anthropic.Client, modelID string, maxContentRunes int, calc *cost.Calculator) *Scraper {
	if maxContentRunes <= 0 {
		maxContentRunes = scrape.MaxContentRunes
	}
	return &Scraper{
		fetcher:    fetcher,
		crawler:    crawler,
		ai:         ai,
		model:      modelID,
		maxContent: maxContentRunes,
		calc:       calc,
	}
}

// Scrape runs the strategy chain on url and, when depth > 0, crawls the
// site and appends the crawled bodies. It fails only when no strategy
// produced content.
func (s *Scraper) Scrape(ctx context.Context, url string, depth int) (*model.ScrapeResult, error) {
	start := time.Now()
	log := zap.L().With(zap.String("url", url), zap.String("stage", "scraping"))

	content, strategy, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, eris.Wrap(err, "scraper: fetch")
	}
	log.Info("scraper: primary content fetched",
		zap.String("strategy", strategy),
		zap.Int("content_len", len(content)),
	)

	result := &model.ScrapeResult{
		URL:      url,
		HTML:     content,
		Strategy: strategy,
	}
	if strategy == scrape.StrategyBulk && s.calc != nil {
		result.TokenUsage.Cost += s.calc.FirecrawlScrape()
	}

	texts := []string{scrape.MainText(content, url)}

	if depth > 0 && s.crawler != nil {
		pages, crawlErr := s.crawler.Crawl(ctx, url, content, depth)
		if crawlErr != nil {
			log.Warn("scraper: crawl failed", zap.Error(crawlErr))
		}
		result.PagesCrawled = len(pages)

		var b strings.Builder
		b.WriteString(content)
		for _, p := range pages {
			// The start page is already the primary content.
			if p.Depth == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n\n<!-- page: %s -->\n", p.URL)
			b.WriteString(p.Body)
			texts = append(texts, scrape.MainText(p.Body, p.URL))
		}
		result.HTML = b.String()
		log.Info("scraper: crawl complete", zap.Int("pages", len(pages)), zap.Int("depth", depth))
	}

	text := scrape.TruncateRunes(strings.Join(nonEmpty(texts), "\n\n"), s.maxContent)
	result.Language = scrape.DetectLanguage(text)

	facts, usage := s.extract(ctx, url, text)
	result.Extracted = facts
	result.TokenUsage.Add(usage)
	result.DurationMs = time.Since(start).Milliseconds()
	return result, nil
}

// extract asks the model for CompanyFacts. Call and parse failures yield a
// blank record.
func (s *Scraper) extract(ctx context.Context, url, text string) (model.CompanyFacts, model.TokenUsage) {
	var facts model.CompanyFacts
	if s.ai == nil || strings.TrimSpace(text) == "" {
		return facts, model.TokenUsage{}
	}

	resp, err := s.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: 1024,
		System:    anthropic.BuildCachedSystemBlocks(extractionSystem),
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(extractionPrompt, url, text)},
		},
	})
	if err != nil {
		zap.L().Warn("scraper: extraction call failed", zap.String("url", url), zap.Error(err))
		return facts, model.TokenUsage{}
	}
	usage := usageOf(resp, s.model, "scraping", s.calc)

	if !decodeObject(resp.Text(), &facts) {
		zap.L().Warn("scraper: extraction response is not JSON", zap.String("url", url))
		return model.CompanyFacts{}, usage
	}
	return facts, usage
}

func nonEmpty(ss []string) []string {
	out := ss[:0]
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
