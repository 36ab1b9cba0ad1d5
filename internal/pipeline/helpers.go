package pipeline

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/insight-cli/internal/cost"
	"github.com/sells-group/insight-cli/internal/model"
	"github.com/sells-group/insight-cli/internal/scrape"
	"github.com/sells-group/insight-cli/pkg/anthropic"
)

// cleanJSON strips markdown code fences and trims text to the span between
// the first "{" and the last "}".
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// decodeObject decodes a model response into v. The raw text is tried
// first, then the cleaned object span. It reports whether either parsed.
func decodeObject(text string, v any) bool {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return false
	}
	if json.Unmarshal([]byte(raw), v) == nil {
		return true
	}
	cleaned := cleanJSON(raw)
	return cleaned != raw && json.Unmarshal([]byte(cleaned), v) == nil
}

// cleanHTML strips a markdown fence around a rendered document.
func cleanHTML(text string) string {
	text = strings.TrimSpace(text)
	for _, fence := range []string{"```html", "```"} {
		if strings.HasPrefix(text, fence) {
			text = strings.TrimPrefix(text, fence)
			if idx := strings.LastIndex(text, "```"); idx >= 0 {
				text = text[:idx]
			}
			break
		}
	}
	return strings.TrimSpace(text)
}

// excerpt serializes v as JSON and keeps at most n runes.
func excerpt(v any, n int) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return scrape.TruncateRunes(string(b), n)
}

// ErrInvalidURL reports a company URL that cannot be fetched over HTTP.
var ErrInvalidURL = eris.New("pipeline: invalid url")

// NormalizeURL trims raw and prefixes https:// when the scheme is missing.
// Only http and https URLs with a host are accepted.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", eris.Wrap(ErrInvalidURL, "url is required")
	}
	candidate := raw
	switch {
	case strings.HasPrefix(raw, "//"):
		candidate = "https:" + raw
	case !strings.Contains(raw, "://"):
		candidate = "https://" + raw
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return "", eris.Wrapf(ErrInvalidURL, "%q", raw)
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return "", eris.Wrapf(ErrInvalidURL, "%q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return "", eris.Wrapf(ErrInvalidURL, "%q: missing host", raw)
	}
	return candidate, nil
}

// hostName returns the host of rawURL without a leading "www.".
func hostName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// companyName picks the query name, then the scraped name, then the host.
func companyName(q model.CompanyQuery, sr *model.ScrapeResult) string {
	if name := strings.TrimSpace(q.Name); name != "" {
		return name
	}
	if sr != nil {
		if name := strings.TrimSpace(string(sr.Extracted.CompanyName)); name != "" {
			return name
		}
	}
	return hostName(q.URL)
}

// usageOf converts the token counts of resp, prices them and logs the cost.
func usageOf(resp *anthropic.MessageResponse, modelID, stage string, calc *cost.Calculator) model.TokenUsage {
	if resp == nil {
		return model.TokenUsage{}
	}
	u := model.TokenUsage{
		InputTokens:         int(resp.Usage.InputTokens),
		OutputTokens:        int(resp.Usage.OutputTokens),
		CacheCreationTokens: int(resp.Usage.CacheCreationInputTokens),
		CacheReadTokens:     int(resp.Usage.CacheReadInputTokens),
	}
	if calc != nil {
		u.Cost = calc.Claude(modelID, u)
	}
	resp.Usage.LogCost(modelID, stage)
	return u
}
