package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/insight-cli/internal/model"
	"github.com/sells-group/insight-cli/internal/resilience"
)

func TestChainRun_StopsAtFirstAccepted(t *testing.T) {
	p1, p2, p3 := newMockProvider("p1"), newMockProvider("p2"), newMockProvider("p3")
	p1.On("Search", mock.Anything, "acme").Return(hits("https://a.com"), nil).Once()

	c := NewChain([]Provider{p1, p2, p3}, time.Second)
	got := c.Run(context.Background(), "acme", NonEmpty)

	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].Provider)
	p1.AssertExpectations(t)
	p2.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	p3.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestChainRun_ErrorTreatedAsEmpty(t *testing.T) {
	p1, p2, p3 := newMockProvider("p1"), newMockProvider("p2"), newMockProvider("p3")
	p1.On("Search", mock.Anything, "acme").Return(nil, resilience.MissingCredential("p1")).Once()
	p2.On("Search", mock.Anything, "acme").Return(nil, errors.New("boom")).Once()
	p3.On("Search", mock.Anything, "acme").Return(hits("https://c.com"), nil).Once()

	got := NewChain([]Provider{p1, p2, p3}, time.Second).Run(context.Background(), "acme", nil)

	require.Len(t, got, 1)
	assert.Equal(t, "https://c.com", got[0].URL)
	assert.Equal(t, "p3", got[0].Provider)
}

func TestChainRun_UnionUntilAccepted(t *testing.T) {
	p1, p2, p3 := newMockProvider("p1"), newMockProvider("p2"), newMockProvider("p3")
	p1.On("Search", mock.Anything, "q").Return(hits("https://example.com/x"), nil).Once()
	p2.On("Search", mock.Anything, "q").Return(hits("https://www.linkedin.com/company/acme"), nil).Once()

	hasLinkedIn := func(rs []model.SearchResult) bool {
		for _, r := range rs {
			if strings.Contains(r.URL, "linkedin.com") {
				return true
			}
		}
		return false
	}

	got := NewChain([]Provider{p1, p2, p3}, time.Second).Run(context.Background(), "q", hasLinkedIn)

	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].Provider)
	assert.Equal(t, "p2", got[1].Provider)
	p3.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestChainRun_AllEmpty(t *testing.T) {
	p1, p2 := newMockProvider("p1"), newMockProvider("p2")
	p1.On("Search", mock.Anything, "q").Return([]model.SearchResult{}, nil).Once()
	p2.On("Search", mock.Anything, "q").Return(nil, nil).Once()

	got := NewChain([]Provider{p1, p2}, 0).Run(context.Background(), "q", NonEmpty)
	assert.Empty(t, got)
}

func TestChainRun_PerProviderTimeout(t *testing.T) {
	slow, fast := newMockProvider("slow"), newMockProvider("fast")
	slow.On("Search", mock.Anything, "q").Return(nil, context.DeadlineExceeded).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		<-ctx.Done()
	}).Once()
	fast.On("Search", mock.Anything, "q").Return(hits("https://fast.com"), nil).Once()

	got := NewChain([]Provider{slow, fast}, 20*time.Millisecond).Run(context.Background(), "q", NonEmpty)

	require.Len(t, got, 1)
	assert.Equal(t, "fast", got[0].Provider)
}

func TestChainRun_CancelledContext(t *testing.T) {
	p1 := newMockProvider("p1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, NewChain([]Provider{p1}, time.Second).Run(ctx, "q", NonEmpty))
	p1.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestChainProviders(t *testing.T) {
	c := NewChain([]Provider{newMockProvider("brave"), newMockProvider("serpapi")}, 0)
	assert.Equal(t, []string{"brave", "serpapi"}, c.Providers())
	assert.Equal(t, DefaultTimeout, c.timeout)
}
