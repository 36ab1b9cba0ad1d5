// Package brave provides a client for the Brave Search web and news APIs.
package brave

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/insight-cli/internal/resilience"
)

const defaultBaseURL = "https://api.search.brave.com/res/v1"

// Client performs Brave Search operations.
type Client interface {
	WebSearch(ctx context.Context, query string, count int) (*WebResponse, error)
	NewsSearch(ctx context.Context, query string, count int) (*NewsResponse, error)
}

// WebResponse is the response from GET /web/search.
type WebResponse struct {
	Web struct {
		Results []Result `json:"results"`
	} `json:"web"`
}

// NewsResponse is the response from GET /news/search.
type NewsResponse struct {
	Results []Result `json:"results"`
}

// Result is a single web or news hit.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Age         string `json:"age,omitempty"`
	PageAge     string `json:"page_age,omitempty"`
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

// WithRateLimit sets the request rate allowed by the subscription. The free
// plan allows one request per second.
func WithRateLimit(perSecond float64) Option {
	return func(c *httpClient) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithRetryPolicy overrides the retry policy for transient failures.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.Policy
}

// NewClient creates a Brave Search client. The limiter is shared by every
// caller of the returned client because the quota belongs to the key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(1, 1),
		retry:   resilience.DefaultPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	c.retry.OnRetry = resilience.LogRetries("brave", "search")
	return c
}

func (c *httpClient) WebSearch(ctx context.Context, query string, count int) (*WebResponse, error) {
	var out WebResponse
	if err := c.get(ctx, "/web/search", query, count, &out); err != nil {
		return nil, eris.Wrap(err, "brave: web search")
	}
	return &out, nil
}

func (c *httpClient) NewsSearch(ctx context.Context, query string, count int) (*NewsResponse, error) {
	var out NewsResponse
	if err := c.get(ctx, "/news/search", query, count, &out); err != nil {
		return nil, eris.Wrap(err, "brave: news search")
	}
	return &out, nil
}

func (c *httpClient) get(ctx context.Context, path, query string, count int, out any) error {
	if c.apiKey == "" {
		return resilience.MissingCredential("brave")
	}

	params := url.Values{}
	params.Set("q", query)
	if count > 0 {
		params.Set("count", strconv.Itoa(count))
	}
	reqURL := c.baseURL + path + "?" + params.Encode()

	body, err := resilience.FetchBody(ctx, c.http, c.retry, "brave", func(ctx context.Context) (*http.Request, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Subscription-Token", c.apiKey)
		return req, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
