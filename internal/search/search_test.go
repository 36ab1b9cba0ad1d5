package search

import (
	"context"
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/insight-cli/internal/resilience"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"missing credential", resilience.MissingCredential("brave"), KindConfig},
		{"wrapped missing credential", eris.Wrap(resilience.MissingCredential("exa"), "exa: search"), KindConfig},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"rate limited", resilience.CheckStatus("serpapi", 429, nil), KindTransient},
		{"server error", resilience.CheckStatus("serpapi", 503, nil), KindTransient},
		{"bad request", resilience.CheckStatus("serpapi", 400, nil), KindProvider},
		{"plain", errors.New("unexpected payload"), KindProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "config", KindConfig.String())
	assert.Equal(t, "transient", KindTransient.String())
	assert.Equal(t, "provider", KindProvider.String())
}

func TestErrMissingCredentialAlias(t *testing.T) {
	assert.ErrorIs(t, resilience.MissingCredential("google_cse"), ErrMissingCredential)
}
