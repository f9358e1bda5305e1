package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalpot/entitygraph/internal/config"
)

func testTransport() *Transport {
	return NewTransport(config.UpstreamConfig{
		UserAgent:      "entitygraph-test",
		RequestTimeout: 5 * time.Second,
	}, nil)
}

func TestOrganizationBuildsRecordFromEnvelope(t *testing.T) {
	var gotPath, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{
			"organization": {
				"ein": 340714585,
				"name": "MERCY  HEALTH\n SYSTEM",
				"city": "CINCINNATI",
				"state": "OH",
				"ntee_code": "E21",
				"revenue_amount": 123456789,
				"latest_object_id": "2024010422167836"
			},
			"filings_with_data": [
				{"tax_prd_yr": 2022, "pdf_url": "https://pp.org/990/340714585_202212_990_2024010422167836.pdf"},
				{"tax_prd_yr": 2021, "pdf_url": "https://pp.org/990/340714585_202112_990_2023011122223333.pdf"},
				{"tax_prd_yr": 2020, "pdf_url": ""}
			],
			"filings_without_data": [
				{"tax_prd_yr": 2019, "pdf_url": "https://pp.org/990/340714585_201912_990_2020010199990000.pdf"}
			]
		}`))
	}))
	defer server.Close()

	client := NewProPublicaClient(testTransport(), server.URL)
	record, err := client.Organization(context.Background(), "340714585")
	require.NoError(t, err)

	assert.Equal(t, "/organizations/340714585.json", gotPath)
	assert.Equal(t, "entitygraph-test", gotUA)
	assert.Equal(t, "MERCY HEALTH SYSTEM", record.Metadata.Name)
	assert.Equal(t, "E21", record.Metadata.Classification)
	require.NotNil(t, record.Metadata.TotalRevenue)
	assert.Equal(t, int64(123456789), *record.Metadata.TotalRevenue)
	assert.Equal(t, 2022, record.Metadata.LatestFilingYear)

	// latest_object_id first, then the PDF URL tails deduplicated in order.
	// PDF-only filings never enter the index; there is no XML to fetch.
	require.Len(t, record.Filings, 2)
	assert.Equal(t, "2024010422167836", record.Filings[0].ObjectID)
	assert.Equal(t, "2023011122223333", record.Filings[1].ObjectID)
	assert.Equal(t, 2021, record.Filings[1].TaxYear)
}

func TestOrganizationEnvelopeErrorMeansNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "no such organization"}`))
	}))
	defer server.Close()

	client := NewProPublicaClient(testTransport(), server.URL)
	_, err := client.Organization(context.Background(), "990000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrganizationStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{status: http.StatusNotFound, want: ErrNotFound},
		{status: http.StatusInternalServerError, want: ErrUnavailable},
		{status: http.StatusTooManyRequests, want: ErrUnavailable},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		client := NewProPublicaClient(testTransport(), server.URL)
		_, err := client.Organization(context.Background(), "340714585")
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
		server.Close()
	}
}

func TestSearchReturnsHitsInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mercy health", r.URL.Query().Get("q"))
		w.Write([]byte(`{"organizations": [
			{"ein": 340714585, "name": "MERCY HEALTH", "city": "CINCINNATI", "state": "OH"},
			{"ein": 111111111, "name": "MERCY HEALTH FOUNDATION"}
		]}`))
	}))
	defer server.Close()

	client := NewProPublicaClient(testTransport(), server.URL)
	results, err := client.Search(context.Background(), "mercy health")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "340714585", results[0].EIN)
	assert.Equal(t, "MERCY HEALTH FOUNDATION", results[1].Name)
}

func TestObjectIDFromPDFURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{url: "https://pp.org/990/340714585_202212_990_2024010422167836.pdf", want: "2024010422167836"},
		{url: "2024010422167836.pdf", want: "2024010422167836"},
		{url: "https://pp.org/990/letters_only.pdf", want: ""},
		{url: "", want: ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, objectIDFromPDFURL(tc.url), tc.url)
	}
}
