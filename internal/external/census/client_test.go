package census

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/internal/region"
	"github.com/mindthegap/govdata/pkg/config"
	"github.com/mindthegap/govdata/pkg/logger"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := &config.Config{
		Census: config.CensusConfig{BaseURL: baseURL, APIKey: "test-key"},
		Pipeline: config.PipelineConfig{
			MaxRetries:     0,
			RequestTimeout: 5 * time.Second,
		},
	}
	return New(cfg, logger.NewNop(), nil)
}

func mustRegion(t *testing.T, code string) region.Region {
	t.Helper()
	r, err := region.Lookup(code)
	require.NoError(t, err)
	return r
}

func TestFetchDemographics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "state:06", r.URL.Query().Get("for"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		// Positional ACS response: header row then value row. All values
		// are strings.
		w.Write([]byte(`[
			["B01003_001E","B01002_001E","B19013_001E","B17001_002E","B17001_001E","B15003_022E","B15003_023E","B15003_024E","B15003_025E","state"],
			["39000000","37.0","84097","4600000","38500000","6000000","2500000","800000","700000","06"]
		]`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	record, failure, err := client.FetchDemographics(context.Background(), mustRegion(t, "CA"))
	require.NoError(t, err)
	require.Nil(t, failure)

	assert.Equal(t, int64(39000000), record.Population)
	assert.InDelta(t, 37.0, record.MedianAge, 0.001)
	assert.InDelta(t, 84097.0, record.MedianIncome, 0.001)
	assert.InDelta(t, 4600000.0/38500000.0*100, record.PovertyRate, 0.001)
	assert.InDelta(t, 10000000.0/39000000.0*100, record.EducationPct, 0.001)
	assert.Empty(t, record.FieldsMissing)
}

func TestFetchDemographicsNullValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Median income is null; everything else present.
		w.Write([]byte(`[
			["B01003_001E","B01002_001E","B19013_001E","B17001_002E","B17001_001E","B15003_022E","B15003_023E","B15003_024E","B15003_025E","state"],
			["1000000","40.1",null,"120000","980000","100000","40000","10000","8000","50"]
		]`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	record, failure, err := client.FetchDemographics(context.Background(), mustRegion(t, "VT"))
	require.NoError(t, err)
	require.Nil(t, failure)

	assert.Equal(t, []string{contracts.FieldMedianIncome}, record.FieldsMissing)
	assert.Zero(t, record.MedianIncome)
	assert.Equal(t, int64(1000000), record.Population)
	assert.True(t, record.PovertyRate > 0)
}

func TestFetchDemographicsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	record, failure, err := client.FetchDemographics(context.Background(), mustRegion(t, "TX"))
	require.NoError(t, err)

	// The adapter degrades to a synthetic default rather than failing.
	require.NotNil(t, failure)
	assert.Equal(t, contracts.SourceCensus, failure.Source)
	assert.Equal(t, 1, failure.Attempts)
	assert.ElementsMatch(t, contracts.DemographicFields(), record.FieldsMissing)
}

func TestFetchDemographicsMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a table"}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	record, failure, err := client.FetchDemographics(context.Background(), mustRegion(t, "NY"))
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.ElementsMatch(t, contracts.DemographicFields(), record.FieldsMissing)
}

func TestFetchDemographicsContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := testClient(t, server.URL)
	_, _, err := client.FetchDemographics(ctx, mustRegion(t, "WA"))
	require.Error(t, err)
}
