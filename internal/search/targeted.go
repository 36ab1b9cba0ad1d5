package search

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/insight-cli/internal/model"
)

// QueryMap maps an analysis field to query fragments in rank order.
type QueryMap map[string][]string

// DefaultQueryMap returns the built-in fragments.
func DefaultQueryMap() QueryMap {
	return QueryMap{
		"foundation":            {"foundation year", "established"},
		"production_capacity":   {"production capacity"},
		"production_technology": {"production technology", "manufacturing technology"},
		"machinery":             {"machinery", "equipment"},
		"services":              {"services", "service offerings"},
		"r_and_d":               {"R&D investment", "research and development", "innovation"},
		"references":            {"customer references", "case studies"},
		"decision_makers":       {"leadership team", "executives"},
		"growth_signals":        {"growth signals", "investment", "expansion", "hiring"},
	}
}

// LoadQueryMap reads a YAML field-to-fragments map from path and layers it
// over DefaultQueryMap. An empty path returns the defaults.
func LoadQueryMap(path string) (QueryMap, error) {
	qm := DefaultQueryMap()
	if path == "" {
		return qm, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "search: read query map %s", path)
	}
	var override QueryMap
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, eris.Wrapf(err, "search: parse query map %s", path)
	}
	for field, frags := range override {
		qm[field] = frags
	}
	return qm, nil
}

// Fragments returns the fragments for field. An unmapped field uses its own
// name.
func (qm QueryMap) Fragments(field string) []string {
	if frags := qm[field]; len(frags) > 0 {
		return frags
	}
	return []string{field}
}

// Querier runs a single search query.
type Querier interface {
	Query(ctx context.Context, query string) []model.SearchResult
}

// Targeted composes field-specific queries for a company.
type Targeted struct {
	querier Querier
	queries QueryMap
}

// NewTargeted creates a targeted search over querier. A nil map uses
// DefaultQueryMap.
func NewTargeted(querier Querier, queries QueryMap) *Targeted {
	if queries == nil {
		queries = DefaultQueryMap()
	}
	return &Targeted{querier: querier, queries: queries}
}

// Search tries each missing field's fragments in rank order and keeps the
// results of the first fragment that returns any. A composed query is never
// issued twice within one call.
func (t *Targeted) Search(ctx context.Context, company string, missing []string) []model.SearchResult {
	company = strings.TrimSpace(company)
	issued := make(map[string]bool)
	fields := make(map[string]bool, len(missing))

	var out []model.SearchResult
	for _, field := range missing {
		if fields[field] {
			continue
		}
		fields[field] = true

		resolved := false
		for _, frag := range t.queries.Fragments(field) {
			q := strings.TrimSpace(company + " " + frag)
			if issued[q] {
				continue
			}
			issued[q] = true

			results := t.querier.Query(ctx, q)
			if len(results) > 0 {
				out = append(out, results...)
				resolved = true
				break
			}
		}
		if !resolved {
			zap.L().Info("search: field unresolved",
				zap.String("company", company),
				zap.String("field", field),
			)
		}
	}
	return out
}
