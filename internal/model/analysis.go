package model

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/rotisserie/eris"
)

// Analysis is the structured sales analysis produced by the synthesis stage.
// It is a JSON object because the model may add keys beyond AnalysisFields
// and the watch-list includes keys outside the fixed schema.
type Analysis map[string]any

// AnalysisFields is the fixed schema requested from the language model.
var AnalysisFields = []string{
	"company_summary",
	"sector",
	"products_services",
	"production_technology",
	"machinery",
	"services",
	"r_and_d",
	"decision_makers",
	"linkedin_url",
	"company_size",
	"location",
	"sales_signals",
	"recent_news",
	"risks",
	"actionable_insights",
}

// WatchList holds the fields whose emptiness triggers a retry with targeted search.
var WatchList = []string{
	"foundation",
	"production_capacity",
	"r_and_d",
	"references",
	"decision_makers",
	"growth_signals",
}

// SchemaFields returns AnalysisFields followed by any watch-list field not
// already in the schema.
func SchemaFields() []string {
	out := append([]string(nil), AnalysisFields...)
	seen := make(map[string]bool, len(out))
	for _, f := range out {
		seen[f] = true
	}
	for _, f := range WatchList {
		if !seen[f] {
			out = append(out, f)
		}
	}
	return out
}

// placeholders are string values the model uses to mean "nothing found".
var placeholders = map[string]bool{
	"n/a":                  true,
	"na":                   true,
	"none":                 true,
	"unknown":              true,
	"null":                 true,
	"-":                    true,
	"bilgi yok":            true,
	"no information":       true,
	"no information found": true,
	"not available":        true,
}

// IsEmptyValue reports whether v carries no information.
func IsEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		return s == "" || placeholders[s]
	case bool:
		return !x
	case float64:
		return x == 0
	case int:
		return x == 0
	case json.Number:
		return x == "" || x == "0"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Missing returns the fields of watch that are empty in a, in watch order.
func (a Analysis) Missing(watch []string) []string {
	var missing []string
	for _, f := range watch {
		if IsEmptyValue(a[f]) {
			missing = append(missing, f)
		}
	}
	return missing
}

// SetDecisionMakers replaces decision_makers with contacts. A nil list is
// stored as an empty list so the field is always present.
func (a Analysis) SetDecisionMakers(contacts []Contact) {
	if contacts == nil {
		contacts = []Contact{}
	}
	a["decision_makers"] = contacts
}

// JSON returns the canonical serialization of a. Map keys are sorted by
// encoding/json, so equal analyses serialize identically.
func (a Analysis) JSON() string {
	if a == nil {
		return "{}"
	}
	b, err := json.Marshal(a)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ParseAnalysis decodes s as a JSON object.
func ParseAnalysis(s string) (Analysis, error) {
	var a Analysis
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return nil, eris.Wrap(err, "model: parse analysis")
	}
	if a == nil {
		return nil, eris.New("model: analysis is not an object")
	}
	return a, nil
}
