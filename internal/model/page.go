package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CrawledPage represents a page fetched during the internal crawl.
type CrawledPage struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Depth      int    `json:"depth"`
	StatusCode int    `json:"status_code"`
}

// SearchResult is a single hit returned by a search provider.
type SearchResult struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
	Provider string `json:"provider"`
}

// Text is a string field that also accepts JSON arrays and scalars.
// Language-model output often returns a list where prose was asked for;
// lists are joined with ", " instead of failing the whole record.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = Text(flatten(v))
	return nil
}

func flatten(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s := flatten(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		b, _ := json.Marshal(x)
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

// CompanyFacts is the structured record extracted from scraped content.
type CompanyFacts struct {
	CompanyName        Text `json:"company_name"`
	Summary            Text `json:"summary"`
	Sector             Text `json:"sector"`
	ProductsOrServices Text `json:"products_or_services"`
	SalesSignals       Text `json:"sales_signals"`
}

// IsBlank reports whether no field was extracted.
func (f CompanyFacts) IsBlank() bool {
	return f == CompanyFacts{}
}

// ScrapeResult is the output of the scrape stage.
type ScrapeResult struct {
	URL          string       `json:"url"`
	HTML         string       `json:"html"`
	Strategy     string       `json:"strategy"`
	PagesCrawled int          `json:"pages_crawled"`
	Language     string       `json:"language,omitempty"`
	Extracted    CompanyFacts `json:"extracted"`
	TokenUsage   TokenUsage   `json:"token_usage"`
	DurationMs   int64        `json:"duration_ms"`
}
