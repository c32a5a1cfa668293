package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SearchQueriesTotal.WithLabelValues(OutcomeHit).Inc()
	m.SearchQueriesTotal.WithLabelValues(OutcomeHit).Inc()
	m.DocsFailedTotal.Inc()
	m.IndexTerms.Set(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(OutcomeHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocsFailedTotal))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.IndexTerms))

	// A second registration on the same registry must panic.
	assert.Panics(t, func() { New(reg) })
}

func TestHandlerServesGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.CacheHitsTotal.Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "termsearch_cache_hits_total 1"))
}
