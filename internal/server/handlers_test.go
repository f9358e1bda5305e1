package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalpot/entitygraph/internal/config"
	"github.com/signalpot/entitygraph/internal/domain"
	"github.com/signalpot/entitygraph/internal/fixture"
	"github.com/signalpot/entitygraph/internal/resolver"
	"github.com/signalpot/entitygraph/internal/upstream"
)

type stubSearcher struct {
	results []upstream.OrgSummary
	err     error
}

func (s stubSearcher) Search(context.Context, string) ([]upstream.OrgSummary, error) {
	return s.results, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResolver() *resolver.Service {
	dataset := fixture.Dataset{
		RootEIN: "340714585",
		Orgs: []fixture.Org{
			{
				EIN: "340714585", Name: "MERCY HEALTH SYSTEM", City: "Cincinnati", State: "OH",
				ObjectID: "obj-1", TaxYear: 2022,
				Relations: []fixture.Relation{
					{TargetEIN: "111111111", Kind: domain.KindSubordinate},
				},
			},
			{EIN: "111111111", Name: "MERCY HOSPITAL EAST", TaxYear: 2022},
		},
	}
	md, si, fs := dataset.Upstreams()
	cfg := config.ResolverConfig{
		Workers:       2,
		MaxDepth:      3,
		RetryAttempts: 1,
		RetryInitial:  time.Millisecond,
		CacheSize:     16,
	}
	return resolver.NewService(md, si, fs, cfg, testLogger(), nil)
}

func newTestRouter(searcher NameSearcher) http.Handler {
	api := NewAPIHandlers(testLogger(), testResolver(), searcher, nil, nil)
	return NewRouter(testLogger(), RouterDependencies{API: api})
}

func TestLookupResolvesGraph(t *testing.T) {
	router := newTestRouter(stubSearcher{})

	req := httptest.NewRequest(http.MethodPost, "/lookup", strings.NewReader(`{"ein": "34-0714585", "depth": 1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var payload struct {
		RootEIN       string `json:"rootEin"`
		TotalEntities int    `json:"totalEntities"`
		Nodes         []struct {
			EIN          string `json:"ein"`
			Completeness string `json:"completeness"`
		} `json:"nodes"`
		Edges []struct {
			SourceEIN string `json:"sourceEin"`
			TargetEIN string `json:"targetEin"`
			Kind      string `json:"kind"`
		} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))

	assert.Equal(t, "34-0714585", payload.RootEIN)
	assert.Equal(t, 2, payload.TotalEntities)
	require.Len(t, payload.Nodes, 2)
	assert.Equal(t, "34-0714585", payload.Nodes[0].EIN)
	assert.Equal(t, "complete", payload.Nodes[0].Completeness)
	require.Len(t, payload.Edges, 1)
	assert.Equal(t, "11-1111111", payload.Edges[0].TargetEIN)
	assert.Equal(t, "subordinate", payload.Edges[0].Kind)
}

func TestLookupDefaultsDepthToOne(t *testing.T) {
	router := newTestRouter(stubSearcher{})

	req := httptest.NewRequest(http.MethodPost, "/lookup", strings.NewReader(`{"ein": "340714585"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLookupValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "missing ein", body: `{}`},
		{name: "malformed ein", body: `{"ein": "not-an-ein"}`},
		{name: "negative depth", body: `{"ein": "340714585", "depth": -2}`},
		{name: "unknown field", body: `{"ein": "340714585", "bogus": true}`},
		{name: "invalid json", body: `{`},
	}

	router := newTestRouter(stubSearcher{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/lookup", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLookupMethodNotAllowed(t *testing.T) {
	router := newTestRouter(stubSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/lookup", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestSearchReturnsResults(t *testing.T) {
	router := newTestRouter(stubSearcher{results: []upstream.OrgSummary{
		{EIN: "340714585", Name: "MERCY HEALTH", City: "Cincinnati", State: "OH"},
	}})

	req := httptest.NewRequest(http.MethodGet, "/search?name=mercy", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Results, 1)
	assert.Equal(t, "MERCY HEALTH", payload.Results[0].Name)
}

func TestSearchRequiresName(t *testing.T) {
	router := newTestRouter(stubSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchUpstreamFailure(t *testing.T) {
	router := newTestRouter(stubSearcher{err: errors.New("propublica down")})

	req := httptest.NewRequest(http.MethodGet, "/search?name=mercy", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestConnectivityNotConfigured(t *testing.T) {
	router := newTestRouter(stubSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/debug/connectivity", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthzWithoutArchive(t *testing.T) {
	router := NewRouter(testLogger(), RouterDependencies{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealthzDegradedArchive(t *testing.T) {
	router := NewRouter(testLogger(), RouterDependencies{
		Health: probeFunc(func(context.Context) error { return errors.New("bolt unreachable") }),
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInboundRequestIDIsHonoured(t *testing.T) {
	router := newTestRouter(stubSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "trace-me-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "trace-me-123", rec.Header().Get("X-Request-Id"))
}

type probeFunc func(ctx context.Context) error

func (f probeFunc) Probe(ctx context.Context) error { return f(ctx) }
