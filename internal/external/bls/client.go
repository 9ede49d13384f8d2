// Package bls fetches state unemployment series from the Bureau of Labor
// Statistics LAUS API.
package bls

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/internal/region"
	"github.com/mindthegap/govdata/pkg/config"
	"github.com/mindthegap/govdata/pkg/httputil"
	"github.com/mindthegap/govdata/pkg/logger"
	"github.com/mindthegap/govdata/pkg/redis"
)

// BLS allows 25 requests per minute on the public v2 API.
const requestsPerMinute = 25

// monthsForChange is how far back the 12-month delta reaches.
const monthsForChange = 12

// Client is the BLS LAUS adapter.
type Client struct {
	http    *httputil.Client
	cache   *redis.Cache
	baseURL string
	apiKey  string
	retries int
	logger  *logger.Logger
	now     func() time.Time
}

// New creates a BLS client with retry and a 25 req/min token bucket.
func New(cfg *config.Config, log *logger.Logger, cache *redis.Cache) *Client {
	return &Client{
		http: httputil.New(log, cfg.Pipeline.RequestTimeout).
			WithRetry(cfg.Pipeline.MaxRetries, httputil.DefaultRetryConfig().InitialDelay).
			WithRateLimit(requestsPerMinute),
		cache:   cache,
		baseURL: cfg.BLS.BaseURL,
		apiKey:  cfg.BLS.APIKey,
		retries: cfg.Pipeline.MaxRetries,
		logger:  log.WithComponent("bls"),
		now:     time.Now,
	}
}

type seriesRequest struct {
	SeriesID        []string `json:"seriesid"`
	StartYear       string   `json:"startyear"`
	EndYear         string   `json:"endyear"`
	RegistrationKey string   `json:"registrationKey,omitempty"`
}

type seriesResponse struct {
	Status  string `json:"status"`
	Results struct {
		Series []struct {
			Data []observation `json:"data"`
		} `json:"series"`
	} `json:"Results"`
}

// observation is one monthly data point, newest first in the response.
type observation struct {
	Year   string `json:"year"`
	Period string `json:"period"`
	Value  string `json:"value"`
}

// FetchEmployment retrieves the employment record for one region.
//
// Same degradation contract as the other adapters: exhausted retries or a
// malformed payload yield a synthetic default plus a SourceFailure, and
// the error return is reserved for context cancellation.
func (c *Client) FetchEmployment(ctx context.Context, reg region.Region) (contracts.EmploymentRecord, *contracts.SourceFailure, error) {
	cacheKey := redis.ProviderKey(contracts.SourceBLS, reg.Code)
	if c.cache != nil {
		var cached contracts.EmploymentRecord
		if hit, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil, nil
		}
	}

	record, err := c.fetch(ctx, reg)
	if err != nil {
		if ctx.Err() != nil {
			return contracts.EmploymentRecord{}, nil, ctx.Err()
		}
		c.logger.WithError(err).WithField("region", reg.Code).Warn("BLS fetch failed, using defaults")
		return defaultRecord(), &contracts.SourceFailure{
			Source:   contracts.SourceBLS,
			Reason:   err.Error(),
			Attempts: c.retries + 1,
		}, nil
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, record, redis.TTLProvider); err != nil {
			c.logger.WithError(err).Warn("Failed to cache BLS record")
		}
	}
	return record, nil, nil
}

func (c *Client) fetch(ctx context.Context, reg region.Region) (contracts.EmploymentRecord, error) {
	year := c.now().Year()
	payload := seriesRequest{
		SeriesID:        []string{reg.BLSSeriesID()},
		StartYear:       strconv.Itoa(year - 2),
		EndYear:         strconv.Itoa(year),
		RegistrationKey: c.apiKey,
	}

	resp, err := c.http.PostJSON(ctx, c.baseURL+"/timeseries/data/", payload)
	if err != nil {
		return contracts.EmploymentRecord{}, fmt.Errorf("bls request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return contracts.EmploymentRecord{}, fmt.Errorf("bls returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return contracts.EmploymentRecord{}, fmt.Errorf("failed to read bls response: %w", err)
	}

	var parsed seriesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return contracts.EmploymentRecord{}, fmt.Errorf("failed to decode bls response: %w", err)
	}
	if parsed.Status != "REQUEST_SUCCEEDED" {
		return contracts.EmploymentRecord{}, fmt.Errorf("bls request not succeeded: %s", parsed.Status)
	}
	if len(parsed.Results.Series) == 0 || len(parsed.Results.Series[0].Data) == 0 {
		return contracts.EmploymentRecord{}, fmt.Errorf("bls response has no observations for %s", reg.Code)
	}

	return buildRecord(parsed.Results.Series[0].Data)
}

// buildRecord computes the latest rate and the 12-month change from the
// observation list. Observations arrive newest first.
func buildRecord(data []observation) (contracts.EmploymentRecord, error) {
	latest, err := strconv.ParseFloat(data[0].Value, 64)
	if err != nil {
		return contracts.EmploymentRecord{}, fmt.Errorf("unparseable latest observation: %w", err)
	}

	record := contracts.EmploymentRecord{UnemploymentRate: latest}

	if len(data) <= monthsForChange {
		record.FieldsMissing = []string{contracts.FieldUnemploymentChange}
		return record, nil
	}

	yearAgo, err := strconv.ParseFloat(data[monthsForChange].Value, 64)
	if err != nil {
		record.FieldsMissing = []string{contracts.FieldUnemploymentChange}
		return record, nil
	}
	record.UnemploymentChange = latest - yearAgo
	return record, nil
}

// defaultRecord is the synthetic fallback: zero values, everything missing.
func defaultRecord() contracts.EmploymentRecord {
	return contracts.EmploymentRecord{FieldsMissing: contracts.EmploymentFields()}
}
