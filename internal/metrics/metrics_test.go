package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordProvider(t *testing.T) {
	hit := ProviderCalls.WithLabelValues("test-provider", OutcomeHit)
	empty := ProviderCalls.WithLabelValues("test-provider", OutcomeEmpty)
	failed := ProviderCalls.WithLabelValues("test-provider", OutcomeError)
	baseHit, baseEmpty, baseErr := testutil.ToFloat64(hit), testutil.ToFloat64(empty), testutil.ToFloat64(failed)

	RecordProvider("test-provider", 3, nil)
	RecordProvider("test-provider", 0, nil)
	RecordProvider("test-provider", 5, errors.New("boom"))

	assert.Equal(t, baseHit+1, testutil.ToFloat64(hit))
	assert.Equal(t, baseEmpty+1, testutil.ToFloat64(empty))
	assert.Equal(t, baseErr+1, testutil.ToFloat64(failed))
}

func TestRecordStrategy(t *testing.T) {
	c := StrategyCalls.WithLabelValues("static", OutcomeHit)
	base := testutil.ToFloat64(c)

	RecordStrategy("static", 1024, nil)
	assert.Equal(t, base+1, testutil.ToFloat64(c))
}

func TestRecordRun(t *testing.T) {
	done := RunsTotal.WithLabelValues("done")
	failed := RunsTotal.WithLabelValues("failed")
	baseDone, baseFailed := testutil.ToFloat64(done), testutil.ToFloat64(failed)

	RecordRun("done", 2)
	RecordRun("failed", 0)

	assert.Equal(t, baseDone+1, testutil.ToFloat64(done))
	assert.Equal(t, baseFailed+1, testutil.ToFloat64(failed))
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveStage("scraping", "complete", 1500*time.Millisecond)
	RecordProvider("brave", 1, nil)

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `insight_stage_duration_seconds_bucket{stage="scraping",status="complete"`)
	assert.Contains(t, body, `insight_search_provider_calls_total{outcome="hit",provider="brave"}`)
}
