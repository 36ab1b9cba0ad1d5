package scrape

import (
	"context"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	utls "github.com/refraction-networking/utls"
	"github.com/rotisserie/eris"
)

// Automated impersonates a desktop browser session: a randomized TLS
// client hello, a rotating user agent, browser headers and a cookie jar
// that persists across the redirects of one fetch.
type Automated struct {
	transport http.RoundTripper
	timeout   time.Duration
}

// NewAutomated creates an Automated strategy.
func NewAutomated(timeout time.Duration) *Automated {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Automated{transport: browserTransport(), timeout: timeout}
}

func (a *Automated) Name() string { return StrategyAutomated }

// Fetch loads targetURL in a fresh session and returns the decoded HTML.
func (a *Automated) Fetch(ctx context.Context, targetURL string) (string, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return "", eris.Wrap(err, "automated: cookie jar")
	}
	client := &http.Client{
		Timeout:   a.timeout,
		Transport: a.transport,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return eris.New("automated: too many redirects")
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "automated: create request")
	}
	setBrowserHeaders(req)

	return readPage(client, req, StrategyAutomated)
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", randomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,tr;q=0.8,de;q=0.7")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
}

// browserTransport dials TLS with a randomized uTLS client hello. ALPN is
// left out so the server negotiates HTTP/1.1, which http.Transport speaks
// over a custom TLS connection.
func browserTransport() *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}

	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		uConn := utls.UClient(tcpConn, &utls.Config{ServerName: host}, utls.HelloRandomizedNoALPN)
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, eris.Wrap(err, "automated: tls handshake")
		}
		return uConn, nil
	}
	return transport
}
