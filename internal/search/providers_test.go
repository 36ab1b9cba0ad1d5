package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/insight-cli/internal/model"
	"github.com/sells-group/insight-cli/pkg/brave"
	bravemocks "github.com/sells-group/insight-cli/pkg/brave/mocks"
	"github.com/sells-group/insight-cli/pkg/exa"
	examocks "github.com/sells-group/insight-cli/pkg/exa/mocks"
	"github.com/sells-group/insight-cli/pkg/gemini"
	geminimocks "github.com/sells-group/insight-cli/pkg/gemini/mocks"
	"github.com/sells-group/insight-cli/pkg/googlecse"
	googlecsemocks "github.com/sells-group/insight-cli/pkg/googlecse/mocks"
	"github.com/sells-group/insight-cli/pkg/jina"
	"github.com/sells-group/insight-cli/pkg/serpapi"
	serpapimocks "github.com/sells-group/insight-cli/pkg/serpapi/mocks"
)

type stubJina struct {
	resp *jina.SearchResponse
	err  error
}

func (s *stubJina) Read(context.Context, string) (*jina.ReadResponse, error) {
	return nil, errors.New("not implemented")
}

func (s *stubJina) Search(context.Context, string, ...jina.SearchOption) (*jina.SearchResponse, error) {
	return s.resp, s.err
}

func TestBraveProvider(t *testing.T) {
	c := bravemocks.NewMockClient(t)
	resp := &brave.WebResponse{}
	resp.Web.Results = []brave.Result{{Title: " Acme ", URL: "https://acme.com", Description: "Valves"}}
	c.On("WebSearch", mock.Anything, "acme", DefaultResults).Return(resp, nil).Once()

	got, err := (&Brave{Client: c}).Search(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, []model.SearchResult{{Title: "Acme", URL: "https://acme.com", Snippet: "Valves", Provider: ProviderBrave}}, got)
}

func TestSerpAPIProvider(t *testing.T) {
	c := serpapimocks.NewMockClient(t)
	c.On("Search", mock.Anything, "acme", 5).Return(&serpapi.SearchResponse{
		OrganicResults: []serpapi.OrganicResult{{Title: "Acme", Link: "https://acme.com", Snippet: "Pumps"}},
	}, nil).Once()

	got, err := (&SerpAPI{Client: c, Num: 5}).Search(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ProviderSerpAPI, got[0].Provider)
	assert.Equal(t, "Pumps", got[0].Snippet)
}

func TestGoogleCSEProvider_Error(t *testing.T) {
	c := googlecsemocks.NewMockClient(t)
	c.On("Search", mock.Anything, "acme", DefaultResults).Return(nil, errors.New("quota")).Once()

	_, err := (&GoogleCSE{Client: c}).Search(context.Background(), "acme")
	assert.Error(t, err)
}

func TestGoogleCSEProvider(t *testing.T) {
	c := googlecsemocks.NewMockClient(t)
	c.On("Search", mock.Anything, "acme", DefaultResults).Return(&googlecse.SearchResponse{
		Items: []googlecse.Item{{Title: "Acme", Link: "https://acme.com/about", Snippet: "About"}},
	}, nil).Once()

	got, err := (&GoogleCSE{Client: c}).Search(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.com/about", got[0].URL)
}

func TestExaProvider_TruncatesSnippet(t *testing.T) {
	c := examocks.NewMockClient(t)
	long := strings.Repeat("ü", 2*maxSnippetRunes)
	c.On("Search", mock.Anything, mock.MatchedBy(func(r exa.SearchRequest) bool {
		return r.Query == "acme" && r.Contents != nil && r.Contents.Text
	})).Return(&exa.SearchResponse{Results: []exa.Result{{Title: "Acme", URL: "https://linkedin.com/company/acme", Text: long}}}, nil).Once()

	got, err := (&Exa{Client: c}).Search(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, maxSnippetRunes, len([]rune(got[0].Snippet)))
}

func TestJinaProvider(t *testing.T) {
	p := &Jina{Client: &stubJina{resp: &jina.SearchResponse{Data: []jina.SearchResult{
		{Title: "A", URL: "https://a.com", Content: "content only"},
		{Title: "B", URL: "https://b.com", Description: "desc", Content: "ignored"},
	}}}}

	got, err := p.Search(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "content only", got[0].Snippet)
	assert.Equal(t, "desc", got[1].Snippet)
}

func TestGeminiProvider(t *testing.T) {
	c := geminimocks.NewMockClient(t)
	c.On("GroundedSearch", mock.Anything, "acme news").Return(&gemini.Answer{
		Text:    "Acme opened a plant.",
		Sources: []gemini.Source{{URI: "https://n.com/1", Title: "One"}, {URI: "https://n.com/2", Title: "Two"}},
	}, nil).Once()

	got, err := (&Gemini{Client: c}).Search(context.Background(), "acme news")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Acme opened a plant.", got[0].Snippet)
	assert.Empty(t, got[1].Snippet)
}

func TestSelect(t *testing.T) {
	available := map[string]Provider{
		ProviderBrave:   &Brave{},
		ProviderSerpAPI: &SerpAPI{},
	}

	got, err := Select([]string{"serpapi", "brave"}, available)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ProviderSerpAPI, got[0].Name())

	_, err = Select([]string{"bing"}, available)
	assert.ErrorContains(t, err, `unknown provider "bing"`)
}
