package main

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/insight-cli/internal/model"
)

type mockAnalyzer struct{ mock.Mock }

func (m *mockAnalyzer) Run(ctx context.Context, q model.CompanyQuery) (*model.PipelineResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PipelineResult), args.Error(1)
}

type mockScraper struct{ mock.Mock }

func (m *mockScraper) Scrape(ctx context.Context, url string, depth int) (*model.ScrapeResult, error) {
	args := m.Called(ctx, url, depth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScrapeResult), args.Error(1)
}

type mockLinkedIn struct{ mock.Mock }

func (m *mockLinkedIn) Resolve(ctx context.Context, company string, wantContacts bool) (*model.LinkedInResult, error) {
	args := m.Called(ctx, company, wantContacts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LinkedInResult), args.Error(1)
}
