package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/sells-group/insight-cli/internal/model"
)

// CrawlConfig bounds a crawl.
type CrawlConfig struct {
	// MaxPages caps the number of pages fetched. 0 means no cap.
	MaxPages int
	// Timeout bounds each page request.
	Timeout   time.Duration
	UserAgent string
	// Excludes filters discovered links. Nil uses DefaultExcludePatterns.
	Excludes *PathMatcher
}

// Crawler walks same-host links breadth first, honoring robots.txt.
type Crawler struct {
	http    *http.Client
	cfg     CrawlConfig
	matcher *PathMatcher
}

// NewCrawler creates a Crawler.
func NewCrawler(cfg CrawlConfig) *Crawler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	matcher := cfg.Excludes
	if matcher == nil {
		matcher = NewPathMatcher(nil)
	}
	return &Crawler{
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			CheckRedirect: sameHostRedirect,
		},
		cfg:     cfg,
		matcher: matcher,
	}
}

type crawlItem struct {
	url   string
	depth int
}

// maxRedirects matches the net/http default.
const maxRedirects = 10

// sameHostRedirect stops a redirect chain that leaves the original host.
func sameHostRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return eris.Errorf("stopped after %d redirects", maxRedirects)
	}
	if !strings.EqualFold(req.URL.Hostname(), via[0].URL.Hostname()) {
		return eris.Errorf("redirect off host to %s", req.URL.Host)
	}
	return nil
}

// Crawl walks every same-host page reachable from startURL within depth
// hops, in BFS order. seed is the start page body already fetched by the
// caller; when it is HTML it becomes the depth 0 page and startURL is not
// requested again. Pages that fail to load are logged and skipped.
func (c *Crawler) Crawl(ctx context.Context, startURL, seed string, depth int) ([]model.CrawledPage, error) {
	start, err := url.Parse(startURL)
	if err != nil || start.Host == "" {
		return nil, eris.Errorf("crawl: invalid start url %q", startURL)
	}
	start.Fragment = ""
	if start.Path == "" {
		start.Path = "/"
	}
	host := strings.ToLower(start.Host)

	robots := c.fetchRobots(ctx, start)

	visited := map[string]bool{canonicalURL(start): true}
	queue := []crawlItem{{url: start.String(), depth: 0}}
	var pages []model.CrawledPage

	for len(queue) > 0 {
		if ctx.Err() != nil {
			break
		}
		if c.cfg.MaxPages > 0 && len(pages) >= c.cfg.MaxPages {
			break
		}

		item := queue[0]
		queue = queue[1:]

		var (
			page *model.CrawledPage
			body string
		)
		if item.depth == 0 && looksLikeHTML(seed) {
			body = seed
			page = &model.CrawledPage{URL: item.url, Title: Title(seed), Body: seed}
		} else {
			if !robots.allows(item.url) {
				zap.L().Debug("crawl: disallowed by robots.txt", zap.String("url", item.url))
				continue
			}
			page, body, err = c.fetch(ctx, item)
			if err != nil {
				zap.L().Debug("crawl: fetch failed, skipping",
					zap.String("url", item.url),
					zap.Error(err),
				)
				continue
			}
		}
		pages = append(pages, *page)

		if item.depth >= depth {
			continue
		}
		for _, link := range extractLinks(body, item.url, host) {
			key := canonicalKey(link)
			if visited[key] || c.matcher.IsExcluded(link) {
				continue
			}
			visited[key] = true
			queue = append(queue, crawlItem{url: link, depth: item.depth + 1})
		}
	}

	zap.L().Debug("crawl: complete",
		zap.String("url", start.String()),
		zap.Int("depth", depth),
		zap.Int("pages", len(pages)),
	)
	return pages, nil
}

// canonicalURL is the visited-set key for u: lower-case scheme and host,
// no fragment, "/" for an empty path and no trailing slash elsewhere.
func canonicalURL(u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	c.Fragment = ""
	c.RawFragment = ""
	c.RawPath = ""
	c.Path = strings.TrimRight(c.Path, "/")
	if c.Path == "" {
		c.Path = "/"
	}
	return c.String()
}

func canonicalKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return canonicalURL(u)
}

func (c *Crawler) fetch(ctx context.Context, item crawlItem) (*model.CrawledPage, string, error) {
	rctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, item.url, nil)
	if err != nil {
		return nil, "", eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", eris.Wrap(err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, "", eris.Errorf("status %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "html") && !strings.HasPrefix(ct, "text/") {
		return nil, "", eris.Errorf("unsupported content type %q", ct)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, "", eris.Wrap(err, "read body")
	}
	body := DecodeHTML(raw, ct)

	return &model.CrawledPage{
		URL:        item.url,
		Title:      Title(body),
		Body:       body,
		Depth:      item.depth,
		StatusCode: resp.StatusCode,
	}, body, nil
}

// robotsRules wraps the group that applies to the crawler. A nil group
// allows everything.
type robotsRules struct {
	group *robotstxt.Group
}

func (r robotsRules) allows(rawURL string) bool {
	if r.group == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	return r.group.Test(p)
}

// fetchRobots loads robots.txt for start's host. A network failure or a 5xx
// response leaves the crawl unrestricted.
func (c *Crawler) fetchRobots(ctx context.Context, start *url.URL) robotsRules {
	robotsURL := start.Scheme + "://" + start.Host + "/robots.txt"

	rctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return robotsRules{}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		zap.L().Debug("crawl: robots.txt unavailable", zap.String("url", robotsURL), zap.Error(err))
		return robotsRules{}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return robotsRules{}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return robotsRules{}
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		zap.L().Debug("crawl: robots.txt unparseable", zap.String("url", robotsURL), zap.Error(err))
		return robotsRules{}
	}
	return robotsRules{group: data.FindGroup(c.cfg.UserAgent)}
}

// extractLinks returns the distinct same-host http(s) links in body,
// resolved against pageURL and stripped of fragments. Links that differ
// only by a trailing slash or host case count once.
func extractLinks(body, pageURL, host string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !strings.EqualFold(abs.Host, host) {
			return
		}
		abs.Fragment = ""
		link := abs.String()
		if key := canonicalURL(abs); !seen[key] {
			seen[key] = true
			links = append(links, link)
		}
	})
	return links
}
