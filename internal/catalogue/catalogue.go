// Package catalogue matches report topics against a configurable product list.
package catalogue

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Product is one catalogue entry.
type Product struct {
	Name        string   `yaml:"name" json:"name"`
	Category    string   `yaml:"category" json:"category"`
	Description string   `yaml:"description" json:"description"`
	Keywords    []string `yaml:"keywords" json:"keywords"`
	URL         string   `yaml:"url,omitempty" json:"url,omitempty"`
}

// Catalogue finds the products relevant to a free-text query.
type Catalogue interface {
	Match(query string, limit int) []Product
}

// List is an in-memory Catalogue.
type List struct {
	products []Product
}

// New creates a List over products.
func New(products []Product) *List {
	return &List{products: products}
}

// Load reads a catalogue file with a top-level "products" key. An empty
// path yields an empty catalogue.
func Load(path string) (*List, error) {
	if path == "" {
		return New(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalogue: read %s", path)
	}

	var wrapper struct {
		Products []Product `yaml:"products"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "catalogue: parse")
	}
	for i, p := range wrapper.Products {
		if strings.TrimSpace(p.Name) == "" {
			return nil, eris.Errorf("catalogue: product %d has no name", i)
		}
	}
	return New(wrapper.Products), nil
}

// Len returns the number of products.
func (l *List) Len() int { return len(l.products) }

// Match ranks products by how many query terms hit their name, category or
// keywords. Products with no hit are dropped. Ties keep catalogue order.
// A blank query returns the first limit products.
func (l *List) Match(query string, limit int) []Product {
	if limit <= 0 {
		limit = 5
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return head(l.products, limit)
	}

	type scored struct {
		product Product
		score   int
	}
	var hits []scored
	for _, p := range l.products {
		if s := score(p, terms); s > 0 {
			hits = append(hits, scored{product: p, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]Product, 0, min(limit, len(hits)))
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		out = append(out, h.product)
	}
	return out
}

func score(p Product, terms []string) int {
	fields := make(map[string]bool)
	for _, t := range tokenize(p.Name + " " + p.Category) {
		fields[t] = true
	}
	for _, k := range p.Keywords {
		fields[strings.ToLower(strings.TrimSpace(k))] = true
		for _, t := range tokenize(k) {
			fields[t] = true
		}
	}

	n := 0
	for _, t := range terms {
		if fields[t] {
			n++
		}
	}
	return n
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r == '-' || r == '&' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') || r > 127)
	})
}

func head(products []Product, n int) []Product {
	if len(products) < n {
		n = len(products)
	}
	return append([]Product(nil), products[:n]...)
}
