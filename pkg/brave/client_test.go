package brave

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/insight-cli/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key",
		WithBaseURL(srv.URL),
		WithRateLimit(1000),
		WithRetryPolicy(resilience.Policy{Attempts: 2, Backoff: time.Millisecond}),
	)
}

func TestWebSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/web/search", r.URL.Path)
		assert.Equal(t, "Acme valves", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("count"))
		assert.Equal(t, "test-key", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"title":"Acme Valves","url":"https://acme.com","description":"Industrial valves since 1987"}
		]}}`))
	})

	resp, err := c.WebSearch(context.Background(), "Acme valves", 10)
	require.NoError(t, err)
	require.Len(t, resp.Web.Results, 1)
	assert.Equal(t, "Acme Valves", resp.Web.Results[0].Title)
	assert.Equal(t, "https://acme.com", resp.Web.Results[0].URL)
	assert.Equal(t, "Industrial valves since 1987", resp.Web.Results[0].Description)
}

func TestNewsSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news/search", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("count"))
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Acme opens plant","url":"https://news.example/acme","description":"New plant","age":"2 days ago"}
		]}`))
	})

	resp, err := c.NewsSearch(context.Background(), "Acme", 3)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Acme opens plant", resp.Results[0].Title)
	assert.Equal(t, "2 days ago", resp.Results[0].Age)
}

func TestSearch_OmitsZeroCount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("count"))
		_, _ = w.Write([]byte(`{"web":{"results":[]}}`))
	})

	resp, err := c.WebSearch(context.Background(), "Acme", 0)
	require.NoError(t, err)
	assert.Empty(t, resp.Web.Results)
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"type":"ErrorResponse"}`, "401"},
		{"rate limited", http.StatusTooManyRequests, `{}`, "429"},
		{"malformed", http.StatusOK, `{nope`, "unmarshal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.WebSearch(context.Background(), "Acme", 5)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSearch_MissingKey(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls.Add(1) }))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL))
	_, err := c.NewsSearch(context.Background(), "Acme", 3)
	require.ErrorIs(t, err, resilience.ErrMissingCredential)
	assert.Zero(t, calls.Load())
}

func TestSearch_RateLimiterHonoursContext(t *testing.T) {
	c := NewClient("test-key", WithBaseURL("http://127.0.0.1:0"), WithRateLimit(0.001))
	hc := c.(*httpClient)
	// Drain the single token so the next call has to wait.
	require.True(t, hc.limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.WebSearch(ctx, "Acme", 1)
	require.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	hc := NewClient("k").(*httpClient)
	assert.Equal(t, defaultBaseURL, hc.baseURL)
	assert.Equal(t, 10*time.Second, hc.http.Timeout)
	assert.NotNil(t, hc.limiter)
}
