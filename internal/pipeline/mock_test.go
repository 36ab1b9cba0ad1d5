package pipeline

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/insight-cli/internal/catalogue"
	"github.com/sells-group/insight-cli/internal/model"
	"github.com/sells-group/insight-cli/internal/search"
	"github.com/sells-group/insight-cli/pkg/anthropic"
)

// --- Fetcher Mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (string, string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.String(1), args.Error(2)
}

// --- Crawler Mock ---

type mockCrawler struct {
	mock.Mock
}

func (m *mockCrawler) Crawl(ctx context.Context, startURL, seed string, depth int) ([]model.CrawledPage, error) {
	args := m.Called(ctx, startURL, seed, depth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CrawledPage), args.Error(1)
}

// --- Strategy Mock ---

type mockStrategy struct {
	mock.Mock
	name string
}

func (m *mockStrategy) Name() string { return m.name }

func (m *mockStrategy) Fetch(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

// --- LinkedIn Chain Mock ---

type mockLinkedInChain struct {
	mock.Mock
}

func (m *mockLinkedInChain) Run(ctx context.Context, query string, accept search.Accept) []model.SearchResult {
	args := m.Called(ctx, query, accept)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.SearchResult)
}

// --- Provider Mock ---

type mockProvider struct {
	mock.Mock
	name string
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SearchResult), args.Error(1)
}

// --- Stage Mocks ---

type mockScrapeStage struct {
	mock.Mock
}

func (m *mockScrapeStage) Scrape(ctx context.Context, url string, depth int) (*model.ScrapeResult, error) {
	args := m.Called(ctx, url, depth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScrapeResult), args.Error(1)
}

type mockLinkedInLookup struct {
	mock.Mock
}

func (m *mockLinkedInLookup) Resolve(ctx context.Context, company string, wantContacts bool) (*model.LinkedInResult, error) {
	args := m.Called(ctx, company, wantContacts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LinkedInResult), args.Error(1)
}

type mockAnalyzeStage struct {
	mock.Mock
}

func (m *mockAnalyzeStage) Analyze(ctx context.Context, sr *model.ScrapeResult, li *model.LinkedInResult, company string, extra []model.SearchResult) (*Analysis, error) {
	args := m.Called(ctx, sr, li, company, extra)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Analysis), args.Error(1)
}

type mockTargeted struct {
	mock.Mock
}

func (m *mockTargeted) Search(ctx context.Context, company string, missing []string) []model.SearchResult {
	args := m.Called(ctx, company, missing)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.SearchResult)
}

type mockRenderStage struct {
	mock.Mock
}

func (m *mockRenderStage) Render(ctx context.Context, analysisJSON string, toolMode bool) (*model.Report, error) {
	args := m.Called(ctx, analysisJSON, toolMode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

// --- Tool Dependency Mocks ---

type mockNews struct {
	mock.Mock
}

func (m *mockNews) News(ctx context.Context, company string) ([]model.SearchResult, error) {
	args := m.Called(ctx, company)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SearchResult), args.Error(1)
}

type mockTrends struct {
	mock.Mock
}

func (m *mockTrends) Trends(ctx context.Context, topic string) (string, error) {
	args := m.Called(ctx, topic)
	return args.String(0), args.Error(1)
}

type mockCatalogue struct {
	mock.Mock
}

func (m *mockCatalogue) Match(query string, limit int) []catalogue.Product {
	args := m.Called(query, limit)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]catalogue.Product)
}

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Query(ctx context.Context, query string) []model.SearchResult {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.SearchResult)
}

// --- Response helpers ---

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content:    []anthropic.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
		Usage:      anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

func toolUseResponse(text string, uses ...anthropic.ToolUse) *anthropic.MessageResponse {
	resp := &anthropic.MessageResponse{StopReason: "tool_use", Usage: anthropic.TokenUsage{InputTokens: 100, OutputTokens: 20}}
	if text != "" {
		resp.Content = append(resp.Content, anthropic.ContentBlock{Type: "text", Text: text})
	}
	for _, u := range uses {
		resp.Content = append(resp.Content, anthropic.ContentBlock{Type: "tool_use", ID: u.ID, Name: u.Name, Input: u.Input})
	}
	return resp
}

func toolUse(id string, name ToolName, input string) anthropic.ToolUse {
	return anthropic.ToolUse{ID: id, Name: string(name), Input: json.RawMessage(input)}
}

func results(urls ...string) []model.SearchResult {
	out := make([]model.SearchResult, len(urls))
	for i, u := range urls {
		out[i] = model.SearchResult{Title: "hit", URL: u, Snippet: "snippet"}
	}
	return out
}
