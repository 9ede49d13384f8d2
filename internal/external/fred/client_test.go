package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/pkg/config"
	"github.com/mindthegap/govdata/pkg/logger"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := &config.Config{
		FRED: config.FREDConfig{BaseURL: baseURL, APIKey: "test-key"},
		Pipeline: config.PipelineConfig{
			MaxRetries:     0,
			RequestTimeout: 5 * time.Second,
		},
	}
	return New(cfg, logger.NewNop(), nil)
}

// observationsBody builds a FRED observations payload, newest first.
func observationsBody(values ...string) []byte {
	type obs struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	}
	var list []obs
	for i, v := range values {
		list = append(list, obs{Date: fmt.Sprintf("2025-%02d-01", (12-i%12)%12+1), Value: v})
	}
	body, _ := json.Marshal(map[string]interface{}{"observations": list})
	return body
}

func TestFetchEconomic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))

		switch r.URL.Query().Get("series_id") {
		case "CPIAUCSL":
			// 13 months: latest 320.0, a year ago 310.0 -> ~3.23% YoY.
			w.Write(observationsBody("320.0", "319.1", "318.4", "317.6", "316.9",
				"316.0", "315.2", "314.3", "313.5", "312.6", "311.8", "311.0", "310.0"))
		case "MORTGAGE30US":
			w.Write(observationsBody("6.72", "6.80", "6.85"))
		case "GDPC1":
			w.Write(observationsBody("23542.3", "23400.1"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	record, failure, err := client.FetchEconomic(context.Background())
	require.NoError(t, err)
	require.Nil(t, failure)

	assert.InDelta(t, (320.0/310.0-1)*100, record.InflationRate, 0.001)
	assert.InDelta(t, 6.72, record.MortgageRate, 0.001)
	assert.InDelta(t, 23542.3, record.GDPPerCapita, 0.001)
	assert.Empty(t, record.FieldsMissing)
}

func TestFetchEconomicSkipsMissingObservations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("series_id") {
		case "MORTGAGE30US":
			// FRED marks missing weeks with ".". The latest usable value
			// is 6.90.
			w.Write(observationsBody(".", ".", "6.90", "6.95"))
		default:
			// Too short for a CPI delta, present for GDP.
			w.Write(observationsBody("100.0"))
		}
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	record, failure, err := client.FetchEconomic(context.Background())
	require.NoError(t, err)
	require.Nil(t, failure)

	assert.InDelta(t, 6.90, record.MortgageRate, 0.001)
	assert.Equal(t, []string{contracts.FieldInflationRate}, record.FieldsMissing)
	assert.InDelta(t, 100.0, record.GDPPerCapita, 0.001)
}

func TestFetchEconomicPartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("series_id") == "GDPC1" {
			w.Write([]byte(`{"error_code":400,"error_message":"Bad Request"}`))
			return
		}
		w.Write(observationsBody("320.0", "319.0", "318.0", "317.0", "316.0",
			"315.0", "314.0", "313.0", "312.0", "311.0", "310.5", "310.2", "310.0"))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	record, failure, err := client.FetchEconomic(context.Background())
	require.NoError(t, err)

	// One series down marks only its field missing, but still surfaces as
	// a source failure naming the failed series.
	require.NotNil(t, failure)
	assert.Equal(t, contracts.SourceFRED, failure.Source)
	assert.Contains(t, failure.Reason, "GDPC1")
	assert.NotContains(t, failure.Reason, "MORTGAGE30US")
	assert.Equal(t, []string{contracts.FieldGDPPerCapita}, record.FieldsMissing)
	assert.True(t, record.InflationRate > 0)
}

func TestFetchEconomicTotalFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	record, failure, err := client.FetchEconomic(context.Background())
	require.NoError(t, err)

	require.NotNil(t, failure)
	assert.Equal(t, contracts.SourceFRED, failure.Source)
	assert.Equal(t, 1, failure.Attempts)
	assert.ElementsMatch(t, contracts.EconomicFields(), record.FieldsMissing)
}
