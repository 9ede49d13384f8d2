// Package fred fetches national economic indicators from the Federal
// Reserve Economic Data API. FRED state-level series require a paid
// tier, so every region shares the national values.
package fred

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/pkg/config"
	"github.com/mindthegap/govdata/pkg/httputil"
	"github.com/mindthegap/govdata/pkg/logger"
	"github.com/mindthegap/govdata/pkg/redis"
)

// Series IDs for the three indicators an economic record carries.
const (
	seriesCPI      = "CPIAUCSL"     // Consumer Price Index, inflation via YoY change
	seriesMortgage = "MORTGAGE30US" // 30-year fixed mortgage average
	seriesGDP      = "GDPC1"        // real GDP, chained dollars
)

// FRED allows 60 requests per minute per key.
const requestsPerMinute = 60

// observationsLimit covers the 13 CPI months a YoY delta needs, with
// slack for missing values.
const observationsLimit = 24

// cacheRegion keys the shared national record in the provider cache.
const cacheRegion = "US"

// Client is the FRED adapter.
type Client struct {
	http    *httputil.Client
	cache   *redis.Cache
	baseURL string
	apiKey  string
	retries int
	logger  *logger.Logger
}

// New creates a FRED client with retry and a 60 req/min token bucket.
func New(cfg *config.Config, log *logger.Logger, cache *redis.Cache) *Client {
	return &Client{
		http: httputil.New(log, cfg.Pipeline.RequestTimeout).
			WithRetry(cfg.Pipeline.MaxRetries, httputil.DefaultRetryConfig().InitialDelay).
			WithRateLimit(requestsPerMinute),
		cache:   cache,
		baseURL: cfg.FRED.BaseURL,
		apiKey:  cfg.FRED.APIKey,
		retries: cfg.Pipeline.MaxRetries,
		logger:  log.WithComponent("fred"),
	}
}

type observationsResponse struct {
	ErrorCode    int    `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"` // "." means missing
	} `json:"observations"`
}

// FetchEconomic retrieves the shared national economic record.
//
// Each series degrades independently: one failing series marks only its
// field missing. A SourceFailure is reported whenever a series failed
// after retries, naming the failed series. The error return is reserved
// for context cancellation.
func (c *Client) FetchEconomic(ctx context.Context) (contracts.EconomicRecord, *contracts.SourceFailure, error) {
	cacheKey := redis.ProviderKey(contracts.SourceFRED, cacheRegion)
	if c.cache != nil {
		var cached contracts.EconomicRecord
		if hit, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil, nil
		}
	}

	var record contracts.EconomicRecord
	var firstErr error
	var failedSeries []string

	cpi, err := c.fetchSeries(ctx, seriesCPI)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return contracts.EconomicRecord{}, nil, ctx.Err()
		}
		firstErr = err
		failedSeries = append(failedSeries, seriesCPI)
		record.FieldsMissing = append(record.FieldsMissing, contracts.FieldInflationRate)
	case len(cpi) < 13:
		record.FieldsMissing = append(record.FieldsMissing, contracts.FieldInflationRate)
	default:
		record.InflationRate = (cpi[0]/cpi[12] - 1) * 100
	}

	mortgage, err := c.fetchSeries(ctx, seriesMortgage)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return contracts.EconomicRecord{}, nil, ctx.Err()
		}
		if firstErr == nil {
			firstErr = err
		}
		failedSeries = append(failedSeries, seriesMortgage)
		record.FieldsMissing = append(record.FieldsMissing, contracts.FieldMortgageRate)
	case len(mortgage) == 0:
		record.FieldsMissing = append(record.FieldsMissing, contracts.FieldMortgageRate)
	default:
		record.MortgageRate = mortgage[0]
	}

	gdp, err := c.fetchSeries(ctx, seriesGDP)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return contracts.EconomicRecord{}, nil, ctx.Err()
		}
		if firstErr == nil {
			firstErr = err
		}
		failedSeries = append(failedSeries, seriesGDP)
		record.FieldsMissing = append(record.FieldsMissing, contracts.FieldGDPPerCapita)
	case len(gdp) == 0:
		record.FieldsMissing = append(record.FieldsMissing, contracts.FieldGDPPerCapita)
	default:
		record.GDPPerCapita = gdp[0]
	}

	var failure *contracts.SourceFailure
	if firstErr != nil {
		c.logger.WithError(firstErr).WithField("series", failedSeries).Warn("FRED series failed after retries")
		failure = &contracts.SourceFailure{
			Source:   contracts.SourceFRED,
			Reason:   fmt.Sprintf("series %s: %v", strings.Join(failedSeries, ","), firstErr),
			Attempts: c.retries + 1,
		}
	}

	if c.cache != nil && failure == nil {
		if err := c.cache.Set(ctx, cacheKey, record, redis.TTLProvider); err != nil {
			c.logger.WithError(err).Warn("Failed to cache FRED record")
		}
	}
	return record, failure, nil
}

// fetchSeries returns the parsed values of one series, newest first.
// "." observations are skipped.
func (c *Client) fetchSeries(ctx context.Context, seriesID string) ([]float64, error) {
	q := url.Values{}
	q.Set("series_id", seriesID)
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")
	q.Set("sort_order", "desc")
	q.Set("limit", strconv.Itoa(observationsLimit))
	q.Set("units", "lin")
	endpoint := fmt.Sprintf("%s/series/observations?%s", c.baseURL, q.Encode())

	var parsed observationsResponse
	if err := c.http.GetJSON(ctx, endpoint, &parsed); err != nil {
		return nil, fmt.Errorf("fred series %s request failed: %w", seriesID, err)
	}
	if parsed.ErrorCode != 0 {
		return nil, fmt.Errorf("fred series %s error %d: %s", seriesID, parsed.ErrorCode, parsed.ErrorMessage)
	}

	var values []float64
	for _, obs := range parsed.Observations {
		if obs.Value == "." {
			continue
		}
		v, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("fred series %s has no usable observations", seriesID)
	}
	return values, nil
}
