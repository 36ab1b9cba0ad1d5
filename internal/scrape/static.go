package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultUserAgent identifies the static fetcher and the crawler.
const DefaultUserAgent = "Mozilla/5.0 (compatible; InsightBot/1.0; +https://github.com/sells-group/insight-cli)"

// maxPageBytes bounds a single page body.
const maxPageBytes = 2 << 20

// Static fetches raw HTML with a plain GET.
type Static struct {
	client    *http.Client
	userAgent string
}

// NewStatic creates a Static strategy.
func NewStatic(timeout time.Duration, userAgent string) *Static {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Static{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

func (s *Static) Name() string { return StrategyStatic }

// Fetch returns the page HTML decoded to UTF-8.
func (s *Static) Fetch(ctx context.Context, targetURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "static: create request")
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	return readPage(s.client, req, StrategyStatic)
}

// readPage executes req and returns the decoded body, failing on blocks and
// error statuses.
func readPage(client *http.Client, req *http.Request, name string) (string, error) {
	resp, err := client.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "%s: fetch", name)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", eris.Wrapf(err, "%s: read body", name)
	}

	if block := DetectBlock(resp.StatusCode, resp.Header, body); block != BlockNone {
		return "", eris.Errorf("%s: blocked (%s)", name, block)
	}
	if resp.StatusCode >= 400 {
		return "", eris.Errorf("%s: status %d", name, resp.StatusCode)
	}

	return DecodeHTML(body, resp.Header.Get("Content-Type")), nil
}
