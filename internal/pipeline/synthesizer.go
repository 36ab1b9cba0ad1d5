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
	"github.com/sells-group/insight-cli/pkg/anthropic"
	"github.com/sells-group/insight-cli/pkg/brave"
)

// DefaultExcerptRunes bounds each JSON excerpt embedded in the synthesis prompt.
const DefaultExcerptRunes = 4000

// NewsFetcher returns recent news about a company.
type NewsFetcher interface {
	News(ctx context.Context, company string) ([]model.SearchResult, error)
}

// BraveNews fetches news through the Brave news endpoint.
type BraveNews struct {
	Client brave.Client
	Count  int
}

// News implements NewsFetcher.
func (b *BraveNews) News(ctx context.Context, company string) ([]model.SearchResult, error) {
	count := b.Count
	if count <= 0 {
		count = 3
	}
	resp, err := b.Client.NewsSearch(ctx, company, count)
	if err != nil {
		return nil, eris.Wrap(err, "news: brave")
	}
	out := make([]model.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		snippet := r.Description
		if age := firstNonEmpty(r.PageAge, r.Age); age != "" {
			snippet = strings.TrimSpace(snippet + " (" + age + ")")
		}
		out = append(out, model.SearchResult{
			Title:    r.Title,
			URL:      r.URL,
			Snippet:  snippet,
			Provider: "brave_news",
		})
	}
	return out, nil
}

// Analysis is the output of one synthesis call.
type Analysis struct {
	Data       model.Analysis
	JSON       string
	News       []model.SearchResult
	TokenUsage model.TokenUsage
	DurationMs int64
}

const synthesisPrompt = `You are a B2B sales analyst. Using only the data below, write a sales analysis of %s.

Return only a JSON object with these keys:
%s

Use an empty string or empty list for anything the data does not support. Do not invent people, figures or customers.

Website data:
%s

LinkedIn data:
%s

Recent news:
%s

Additional search results:
%s`

// Synthesizer merges scrape, LinkedIn, news and search data into an analysis.
type Synthesizer struct {
	ai       anthropic.Client
	model    string
	news     NewsFetcher
	excerpts int
	calc     *cost.Calculator
}

// NewSynthesizer creates a Synthesizer. A nil news fetcher skips news.
func NewSynthesizer(ai anthropic.Client, modelID string, news NewsFetcher, excerptRunes int, calc *cost.Calculator) *Synthesizer {
	if excerptRunes <= 0 {
		excerptRunes = DefaultExcerptRunes
	}
	return &Synthesizer{ai: ai, model: modelID, news: news, excerpts: excerptRunes, calc: calc}
}

// Analyze runs one synthesis call. The model's decision_makers are always
// replaced with the LinkedIn contacts.
func (s *Synthesizer) Analyze(ctx context.Context, sr *model.ScrapeResult, li *model.LinkedInResult, company string, extra []model.SearchResult) (*Analysis, error) {
	start := time.Now()
	log := zap.L().With(zap.String("company", company), zap.String("stage", "synthesizing"))

	news := []model.SearchResult{}
	if s.news != nil {
		got, err := s.news.News(ctx, company)
		if err != nil {
			log.Warn("synthesizer: news fetch failed", zap.Error(err))
		} else if got != nil {
			news = got
		}
	}

	prompt := fmt.Sprintf(synthesisPrompt,
		company,
		"- "+strings.Join(model.SchemaFields(), "\n- "),
		excerpt(scrapeView(sr), s.excerpts),
		excerpt(li, s.excerpts),
		excerpt(news, s.excerpts),
		excerpt(extra, s.excerpts),
	)

	resp, err := s.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: 4096,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "synthesizer: create message")
	}
	usage := usageOf(resp, s.model, "synthesizing", s.calc)

	data := model.Analysis{}
	if !decodeObject(resp.Text(), &data) || data == nil {
		log.Warn("synthesizer: response is not a JSON object, using empty analysis")
		data = model.Analysis{}
	}

	var contacts []model.Contact
	if li != nil {
		contacts = li.Contacts
	}
	data.SetDecisionMakers(contacts)

	out := &Analysis{
		Data:       data,
		JSON:       data.JSON(),
		News:       news,
		TokenUsage: usage,
		DurationMs: time.Since(start).Milliseconds(),
	}
	log.Info("synthesizer: analysis complete",
		zap.Int("fields", len(data)),
		zap.Int("news", len(news)),
		zap.Int("extra_results", len(extra)),
		zap.Int64("duration_ms", out.DurationMs),
	)
	return out, nil
}

// scrapeView drops the raw HTML from the prompt excerpt; the extracted
// facts carry the content.
func scrapeView(sr *model.ScrapeResult) any {
	if sr == nil {
		return nil
	}
	return struct {
		URL          string             `json:"url"`
		Language     string             `json:"language,omitempty"`
		PagesCrawled int                `json:"pages_crawled"`
		Extracted    model.CompanyFacts `json:"extracted"`
	}{sr.URL, sr.Language, sr.PagesCrawled, sr.Extracted}
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
