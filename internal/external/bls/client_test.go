package bls

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
	"github.com/mindthegap/govdata/internal/region"
	"github.com/mindthegap/govdata/pkg/config"
	"github.com/mindthegap/govdata/pkg/logger"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := &config.Config{
		BLS: config.BLSConfig{BaseURL: baseURL, APIKey: "test-key"},
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

// seriesBody builds a REQUEST_SUCCEEDED payload with the given monthly
// values, newest first.
func seriesBody(values ...float64) []byte {
	type obs struct {
		Year   string `json:"year"`
		Period string `json:"period"`
		Value  string `json:"value"`
	}
	var data []obs
	for i, v := range values {
		data = append(data, obs{
			Year:   "2025",
			Period: fmt.Sprintf("M%02d", 12-i%12),
			Value:  fmt.Sprintf("%.1f", v),
		})
	}
	body, _ := json.Marshal(map[string]interface{}{
		"status": "REQUEST_SUCCEEDED",
		"Results": map[string]interface{}{
			"series": []map[string]interface{}{{"data": data}},
		},
	})
	return body
}

func TestFetchEmployment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, []interface{}{"LAUST060000000003"}, payload["seriesid"])
		assert.Equal(t, "test-key", payload["registrationKey"])

		// 14 months, newest first: latest 5.3, a year ago 4.6.
		w.Write(seriesBody(5.3, 5.2, 5.2, 5.1, 5.0, 4.9, 4.9, 4.8, 4.8, 4.7, 4.7, 4.6, 4.6, 4.5))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	record, failure, err := client.FetchEmployment(context.Background(), mustRegion(t, "CA"))
	require.NoError(t, err)
	require.Nil(t, failure)

	assert.InDelta(t, 5.3, record.UnemploymentRate, 0.001)
	assert.InDelta(t, 0.7, record.UnemploymentChange, 0.001)
	assert.Empty(t, record.FieldsMissing)
}

func TestFetchEmploymentShortSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only 3 months of history: no 12-month delta possible.
		w.Write(seriesBody(3.1, 3.0, 2.9))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	record, failure, err := client.FetchEmployment(context.Background(), mustRegion(t, "VT"))
	require.NoError(t, err)
	require.Nil(t, failure)

	assert.InDelta(t, 3.1, record.UnemploymentRate, 0.001)
	assert.Equal(t, []string{contracts.FieldUnemploymentChange}, record.FieldsMissing)
}

func TestFetchEmploymentRequestNotSucceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"REQUEST_NOT_PROCESSED","Results":{}}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	record, failure, err := client.FetchEmployment(context.Background(), mustRegion(t, "TX"))
	require.NoError(t, err)

	require.NotNil(t, failure)
	assert.Equal(t, contracts.SourceBLS, failure.Source)
	assert.ElementsMatch(t, contracts.EmploymentFields(), record.FieldsMissing)
}

func TestFetchEmploymentServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	record, failure, err := client.FetchEmployment(context.Background(), mustRegion(t, "NY"))
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, 1, failure.Attempts)
	assert.ElementsMatch(t, contracts.EmploymentFields(), record.FieldsMissing)
}
