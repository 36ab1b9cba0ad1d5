// Package search runs web searches through an ordered chain of providers.
// A provider failure never fails the caller: it is logged, counted and
// treated as an empty result for that provider.
package search

import (
	"context"
	"errors"

	"github.com/sells-group/insight-cli/internal/model"
	"github.com/sells-group/insight-cli/internal/resilience"
)

// ErrMissingCredential is returned by a provider whose API key is not
// configured.
var ErrMissingCredential = resilience.ErrMissingCredential

// Provider is a single search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]model.SearchResult, error)
}

// Kind classifies a provider error.
type Kind int

const (
	// KindProvider is a permanent upstream failure (4xx, bad payload).
	KindProvider Kind = iota
	// KindConfig is a local configuration problem such as a missing key.
	KindConfig
	// KindTransient is a timeout, rate limit or 5xx that outlived retries.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindTransient:
		return "transient"
	default:
		return "provider"
	}
}

// KindOf classifies err.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return KindConfig
	case errors.Is(err, context.DeadlineExceeded), resilience.IsTransient(err):
		return KindTransient
	default:
		return KindProvider
	}
}
