package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTargetedSearch_StopsAtFirstFragmentWithResults(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, "Acme R&D investment").Return(hits("https://acme.com/rd")).Once()

	got := NewTargeted(q, nil).Search(context.Background(), "Acme", []string{"r_and_d"})

	require.Len(t, got, 1)
	q.AssertExpectations(t)
	q.AssertNotCalled(t, "Query", mock.Anything, "Acme research and development")
	q.AssertNotCalled(t, "Query", mock.Anything, "Acme innovation")
}

func TestTargetedSearch_TriesFragmentsInRankOrder(t *testing.T) {
	q := &mockQuerier{}
	var order []string
	record := func(args mock.Arguments) { order = append(order, args.String(1)) }
	q.On("Query", mock.Anything, "Acme R&D investment").Return(nil).Run(record).Once()
	q.On("Query", mock.Anything, "Acme research and development").Return(nil).Run(record).Once()
	q.On("Query", mock.Anything, "Acme innovation").Return(hits("https://acme.com/innovation")).Run(record).Once()

	got := NewTargeted(q, nil).Search(context.Background(), "Acme", []string{"r_and_d"})

	require.Len(t, got, 1)
	assert.Equal(t, []string{"Acme R&D investment", "Acme research and development", "Acme innovation"}, order)
}

func TestTargetedSearch_NeverRepeatsQuery(t *testing.T) {
	// growth_signals and a custom field share the "investment" fragment.
	qm := DefaultQueryMap()
	qm["capex"] = []string{"investment"}

	q := &mockQuerier{}
	q.On("Query", mock.Anything, "Acme growth signals").Return(nil).Once()
	q.On("Query", mock.Anything, "Acme investment").Return(nil).Once()
	q.On("Query", mock.Anything, "Acme expansion").Return(nil).Once()
	q.On("Query", mock.Anything, "Acme hiring").Return(nil).Once()

	got := NewTargeted(q, qm).Search(context.Background(), "Acme", []string{"growth_signals", "capex", "growth_signals"})

	assert.Empty(t, got)
	q.AssertNumberOfCalls(t, "Query", 4)
}

func TestTargetedSearch_UnmappedFieldUsesName(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, "Acme certifications").Return(hits("https://acme.com/iso")).Once()

	got := NewTargeted(q, nil).Search(context.Background(), "Acme", []string{"certifications"})
	assert.Len(t, got, 1)
	q.AssertExpectations(t)
}

func TestTargetedSearch_ConcatenatesInFieldOrder(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, "Acme foundation year").Return(hits("https://acme.com/history")).Once()
	q.On("Query", mock.Anything, "Acme customer references").Return(hits("https://acme.com/refs")).Once()

	got := NewTargeted(q, nil).Search(context.Background(), "Acme", []string{"foundation", "references"})

	require.Len(t, got, 2)
	assert.Equal(t, "https://acme.com/history", got[0].URL)
	assert.Equal(t, "https://acme.com/refs", got[1].URL)
}

func TestLoadQueryMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queries.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
r_and_d:
  - "Ar-Ge yatırımı"
certifications:
  - "ISO 9001"
`), 0o600))

	qm, err := LoadQueryMap(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ar-Ge yatırımı"}, qm.Fragments("r_and_d"))
	assert.Equal(t, []string{"ISO 9001"}, qm.Fragments("certifications"))
	assert.Equal(t, []string{"foundation year", "established"}, qm.Fragments("foundation"))
}

func TestLoadQueryMap_Errors(t *testing.T) {
	_, err := LoadQueryMap(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("r_and_d: [unclosed"), 0o600))
	_, err = LoadQueryMap(path)
	assert.Error(t, err)

	qm, err := LoadQueryMap("")
	require.NoError(t, err)
	assert.Equal(t, DefaultQueryMap(), qm)
}
