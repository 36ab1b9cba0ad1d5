package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/insight-cli/internal/catalogue"
	"github.com/sells-group/insight-cli/internal/model"
	"github.com/sells-group/insight-cli/internal/search"
	"github.com/sells-group/insight-cli/pkg/perplexity"
	perplexitymocks "github.com/sells-group/insight-cli/pkg/perplexity/mocks"
)

func TestDefaultTools_RegistersOnlyAvailable(t *testing.T) {
	r := DefaultTools(ToolDeps{News: &mockNews{}, Catalogue: &mockCatalogue{}})

	assert.Equal(t, []ToolName{ToolNewsfinder, ToolProductCatalogue}, r.Names())
	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "newsfinder", defs[0].Name)
	assert.Equal(t, []string{"company"}, defs[0].Required)
}

func TestDefaultTools_All(t *testing.T) {
	r := DefaultTools(ToolDeps{
		News:      &mockNews{},
		LinkedIn:  &mockLinkedInLookup{},
		Trends:    &mockTrends{},
		Catalogue: &mockCatalogue{},
		Web:       &mockQuerier{},
		SerpAPI:   &mockProvider{name: search.ProviderSerpAPI},
		GoogleCSE: &mockProvider{name: search.ProviderGoogleCSE},
	})
	assert.Equal(t, 7, r.Len())
}

func TestToolRegistry_UnknownTool(t *testing.T) {
	r := DefaultTools(ToolDeps{})

	_, err := r.Call(context.Background(), "crystal_ball", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)

	var nilRegistry *ToolRegistry
	_, err = nilRegistry.Call(context.Background(), "newsfinder", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
	assert.Equal(t, 0, nilRegistry.Len())
}

func TestToolRegistry_BadInput(t *testing.T) {
	r := DefaultTools(ToolDeps{News: &mockNews{}})

	_, err := r.Call(context.Background(), string(ToolNewsfinder), json.RawMessage(`{"company":`))
	assert.Error(t, err)
}

func TestTool_Newsfinder(t *testing.T) {
	news := &mockNews{}
	news.On("News", mock.Anything, "Acme").Return(results("https://news.example/1"), nil)
	r := DefaultTools(ToolDeps{News: news})

	out, err := r.Call(context.Background(), string(ToolNewsfinder), json.RawMessage(`{"company":"Acme"}`))

	require.NoError(t, err)
	var got []model.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "https://news.example/1", got[0].URL)

	_, err = r.Call(context.Background(), string(ToolNewsfinder), json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestTool_LinkedInSearchSkipsContacts(t *testing.T) {
	li := &mockLinkedInLookup{}
	li.On("Resolve", mock.Anything, "Acme", false).Return(&model.LinkedInResult{LinkedInURL: "https://linkedin.com/company/acme"}, nil)
	r := DefaultTools(ToolDeps{LinkedIn: li})

	out, err := r.Call(context.Background(), string(ToolLinkedInSearch), json.RawMessage(`{"company":"Acme"}`))

	require.NoError(t, err)
	assert.Contains(t, out, "https://linkedin.com/company/acme")
	li.AssertExpectations(t)
}

func TestTool_TrendFetcherReturnsProse(t *testing.T) {
	trends := &mockTrends{}
	trends.On("Trends", mock.Anything, "industrial valves").Return("Demand is rising.", nil)
	r := DefaultTools(ToolDeps{Trends: trends})

	out, err := r.Call(context.Background(), string(ToolTrendFetcher), json.RawMessage(`{"topic":"industrial valves"}`))

	require.NoError(t, err)
	assert.Equal(t, "Demand is rising.", out)
}

func TestTool_ProductCatalogue(t *testing.T) {
	cat := catalogue.New([]catalogue.Product{
		{Name: "Line Monitor", Category: "IoT", Keywords: []string{"automotive", "production"}},
		{Name: "Payroll", Category: "HR"},
	})
	r := DefaultTools(ToolDeps{Catalogue: cat})

	out, err := r.Call(context.Background(), string(ToolProductCatalogue), json.RawMessage(`{"query":"automotive production","limit":1}`))

	require.NoError(t, err)
	var got []catalogue.Product
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Line Monitor", got[0].Name)
}

func TestTool_WebSearchNeverNull(t *testing.T) {
	web := &mockQuerier{}
	web.On("Query", mock.Anything, "acme valves").Return(nil)
	r := DefaultTools(ToolDeps{Web: web})

	out, err := r.Call(context.Background(), string(ToolWebSearch), json.RawMessage(`{"query":"acme valves"}`))

	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestTool_ProviderErrorsSurface(t *testing.T) {
	serp := &mockProvider{name: search.ProviderSerpAPI}
	serp.On("Search", mock.Anything, "acme").Return(nil, errors.New("quota"))
	cse := &mockProvider{name: search.ProviderGoogleCSE}
	cse.On("Search", mock.Anything, "acme").Return(results("https://acme.example"), nil)
	r := DefaultTools(ToolDeps{SerpAPI: serp, GoogleCSE: cse})

	_, err := r.Call(context.Background(), string(ToolSerpAPIWebSearch), json.RawMessage(`{"query":"acme"}`))
	assert.ErrorContains(t, err, "quota")

	out, err := r.Call(context.Background(), string(ToolGoogleCustomSearch), json.RawMessage(`{"query":"acme"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "https://acme.example")

	_, err = r.Call(context.Background(), string(ToolGoogleCustomSearch), json.RawMessage(`{"query":" "}`))
	assert.Error(t, err)
}

func TestPerplexityTrends(t *testing.T) {
	client := perplexitymocks.NewMockClient(t)
	client.On("ChatCompletion", mock.Anything, mock.MatchedBy(func(req perplexity.ChatCompletionRequest) bool {
		return len(req.Messages) == 2 && req.Messages[1].Content == "Summarize current market trends for: valves"
	})).Return(&perplexity.ChatCompletionResponse{Choices: []perplexity.Choice{{Message: perplexity.Message{Content: "Up."}}}}, nil)

	got, err := (&PerplexityTrends{Client: client}).Trends(context.Background(), "valves")

	require.NoError(t, err)
	assert.Equal(t, "Up.", got)
}

func TestPerplexityTrends_Error(t *testing.T) {
	client := perplexitymocks.NewMockClient(t)
	client.On("ChatCompletion", mock.Anything, mock.Anything).Return(nil, errors.New("401"))

	_, err := (&PerplexityTrends{Client: client}).Trends(context.Background(), "valves")
	assert.Error(t, err)
}
