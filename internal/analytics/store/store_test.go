package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics"
)

func TestWriteEmptyBatchSkipsDatabase(t *testing.T) {
	s := New(nil)
	assert.NoError(t, s.Write(context.Background(), nil))
	assert.Equal(t, "postgres", s.Name())
}

func TestNullString(t *testing.T) {
	assert.False(t, nullString("").Valid)
	ns := nullString("req-1")
	assert.True(t, ns.Valid)
	assert.Equal(t, "req-1", ns.String)
}

var (
	_ analytics.Sink = (*Store)(nil)
	_ History        = (*Store)(nil)
)

type fakeHistory struct {
	top       []analytics.TermCount
	snapshot  *analytics.AggregatedStats
	err       error
	lastLimit int
}

func (f *fakeHistory) TopTerms(_ context.Context, limit int) ([]analytics.TermCount, error) {
	f.lastLimit = limit
	return f.top, f.err
}

func (f *fakeHistory) LatestSnapshot(context.Context) (*analytics.AggregatedStats, error) {
	return f.snapshot, f.err
}

func serveHistory(h History, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewHistoryHandler(h).Serve(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHistoryHandler(t *testing.T) {
	src := &fakeHistory{
		top:      []analytics.TermCount{{Term: "cat", Count: 3}},
		snapshot: &analytics.AggregatedStats{TotalSearches: 3},
	}
	rec := serveHistory(src, "/api/v1/analytics/history?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, src.lastLimit)

	var body historyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, src.top, body.TopTerms)
	require.NotNil(t, body.LatestSnapshot)
	assert.EqualValues(t, 3, body.LatestSnapshot.TotalSearches)

	serveHistory(src, "/api/v1/analytics/history")
	assert.Equal(t, defaultHistoryLimit, src.lastLimit)
}

func TestHistoryHandlerEmptyStore(t *testing.T) {
	rec := serveHistory(&fakeHistory{}, "/api/v1/analytics/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"top_terms":[],"latest_snapshot":null}`, rec.Body.String())
}

func TestHistoryHandlerErrors(t *testing.T) {
	for _, limit := range []string{"0", "abc", "1001"} {
		rec := serveHistory(&fakeHistory{}, "/api/v1/analytics/history?limit="+limit)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
	rec := serveHistory(&fakeHistory{err: errors.New("conn reset")}, "/api/v1/analytics/history")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
