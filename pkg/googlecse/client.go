// Package googlecse provides a client for the Google Custom Search JSON API.
package googlecse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/insight-cli/internal/resilience"
)

const defaultBaseURL = "https://www.googleapis.com/customsearch/v1"

// Client performs Custom Search queries.
type Client interface {
	Search(ctx context.Context, query string, num int) (*SearchResponse, error)
}

// SearchResponse is the subset of the Custom Search response the pipeline
// reads.
type SearchResponse struct {
	Items []Item `json:"items"`
}

// Item is a single search hit.
type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetryPolicy overrides the retry policy for transient failures.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

type httpClient struct {
	keys    []string
	cx      string
	baseURL string
	http    *http.Client
	retry   resilience.Policy
}

// NewClient creates a Custom Search client. When a key is rate limited the
// query moves on to the next key; the daily quota is per key.
func NewClient(keys []string, cx string, opts ...Option) Client {
	var usable []string
	for _, k := range keys {
		if k != "" {
			usable = append(usable, k)
		}
	}
	c := &httpClient{
		keys:    usable,
		cx:      cx,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry: resilience.DefaultPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	c.retry.OnRetry = resilience.LogRetries("google_cse", "search")
	// 429 rotates keys instead of backing off on the same key.
	c.retry.Retryable = func(err error) bool {
		return resilience.IsTransient(err) && resilience.StatusCode(err) != http.StatusTooManyRequests
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string, num int) (*SearchResponse, error) {
	if len(c.keys) == 0 || c.cx == "" {
		return nil, resilience.MissingCredential("google_cse")
	}

	var lastErr error
	for i, key := range c.keys {
		resp, err := c.searchWithKey(ctx, key, query, num)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if resilience.StatusCode(err) != http.StatusTooManyRequests || ctx.Err() != nil {
			break
		}
		zap.L().Warn("google_cse: key rate limited, rotating",
			zap.Int("key_index", i),
			zap.Int("keys", len(c.keys)),
		)
	}
	return nil, eris.Wrap(lastErr, "google_cse: search")
}

func (c *httpClient) searchWithKey(ctx context.Context, key, query string, num int) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("key", key)
	params.Set("cx", c.cx)
	params.Set("q", query)
	if num > 0 {
		// The API caps num at 10.
		params.Set("num", strconv.Itoa(min(num, 10)))
	}
	reqURL := c.baseURL + "?" + params.Encode()

	body, err := resilience.FetchBody(ctx, c.http, c.retry, "google_cse", func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
	if err != nil {
		return nil, err
	}

	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "unmarshal response")
	}
	return &out, nil
}
