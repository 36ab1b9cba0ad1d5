// Package gemini wraps the Gemini API for grounded web search and URL
// reading. Both operations run a single GenerateContent call with the
// GoogleSearch and URLContext tools enabled.
package gemini

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/sells-group/insight-cli/internal/resilience"
)

const defaultModel = "gemini-2.5-flash"

// Client runs grounded Gemini requests.
type Client interface {
	GroundedSearch(ctx context.Context, query string) (*Answer, error)
	FetchURL(ctx context.Context, url string) (*Answer, error)
}

// Answer is the model text plus the web sources it was grounded on.
type Answer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// Source is one grounding chunk.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Config holds client settings.
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API base URL.
	BaseURL string
	Retry   *resilience.Policy
}

// generator is the subset of *genai.Models the client calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type sdkClient struct {
	models generator
	model  string
	retry  resilience.Policy
}

// NewClient creates a Gemini client. A blank API key is not an error here;
// every call then fails with resilience.ErrMissingCredential.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	c := &sdkClient{
		model: strings.TrimSpace(cfg.Model),
		retry: resilience.DefaultPolicy(),
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if cfg.Retry != nil {
		c.retry = *cfg.Retry
	}
	c.retry.OnRetry = resilience.LogRetries("gemini", "generate")
	c.retry.Retryable = func(err error) bool {
		var te *resilience.TransientError
		return errors.As(err, &te)
	}

	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return c, nil
	}

	cc := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: new client")
	}
	c.models = gc.Models
	return c, nil
}

func (c *sdkClient) GroundedSearch(ctx context.Context, query string) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, eris.New("gemini: empty query")
	}
	return c.generate(ctx, searchPrompt(query))
}

func (c *sdkClient) FetchURL(ctx context.Context, url string) (*Answer, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, eris.New("gemini: empty url")
	}
	return c.generate(ctx, fetchPrompt(url))
}

func (c *sdkClient) generate(ctx context.Context, prompt string) (*Answer, error) {
	if c.models == nil {
		return nil, resilience.MissingCredential("gemini")
	}

	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
			{URLContext: &genai.URLContext{}},
		},
		CandidateCount: 1,
	}

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
		if err != nil {
			return nil, classifyErr(err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	return &Answer{
		Text:    strings.TrimSpace(resp.Text()),
		Sources: extractSources(resp),
	}, nil
}

func searchPrompt(query string) string {
	return strings.TrimSpace(`
Search the web for the query below. Reply with a concise list of the most
relevant findings, one per line, each with the page title and URL.
Do not invent sources.

Query: ` + query)
}

func fetchPrompt(url string) string {
	return strings.TrimSpace(`
Read the page at the URL below and return its main textual content as plain
text. Keep headings, product names, people and figures. Drop navigation,
cookie banners and footers. If the page cannot be read, return nothing.

URL: ` + url)
}

// classifyErr marks rate limits, server errors and temporary network
// failures as transient.
func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return resilience.NewTransientError(err, apiErr.Code)
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return resilience.NewTransientError(err, 0)
	}
	return err
}

func extractSources(resp *genai.GenerateContentResponse) []Source {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	cand := resp.Candidates[0]

	seen := make(map[string]bool)
	var out []Source
	add := func(uri, title string) {
		uri = strings.TrimSpace(uri)
		if uri == "" || seen[uri] {
			return
		}
		seen[uri] = true
		out = append(out, Source{URI: uri, Title: strings.TrimSpace(title)})
	}

	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil {
				continue
			}
			add(chunk.Web.URI, chunk.Web.Title)
		}
	}
	if cand.URLContextMetadata != nil {
		for _, m := range cand.URLContextMetadata.URLMetadata {
			if m == nil {
				continue
			}
			add(m.RetrievedURL, "")
		}
	}
	return out
}
