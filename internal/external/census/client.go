// Package census fetches state demographics from the Census Bureau ACS API.
package census

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/internal/region"
	"github.com/mindthegap/govdata/pkg/config"
	"github.com/mindthegap/govdata/pkg/httputil"
	"github.com/mindthegap/govdata/pkg/logger"
	"github.com/mindthegap/govdata/pkg/redis"
)

// ACS 5-year estimate variables, positional in the response.
const (
	varPopulation   = "B01003_001E"
	varMedianAge    = "B01002_001E"
	varMedianIncome = "B19013_001E"
	varPovertyBelow = "B17001_002E"
	varPovertyTotal = "B17001_001E"
	varBachelors    = "B15003_022E"
	varMasters      = "B15003_023E"
	varProfessional = "B15003_024E"
	varDoctorate    = "B15003_025E"
)

const (
	acsYear = "2022"
	acsPath = "acs/acs5"

	// Census public API allows 30 requests per minute without a key.
	requestsPerMinute = 30
)

// Client is the Census Bureau ACS adapter.
type Client struct {
	http    *httputil.Client
	cache   *redis.Cache
	baseURL string
	apiKey  string
	retries int
	logger  *logger.Logger
}

// New creates a Census client with retry and a 30 req/min token bucket.
func New(cfg *config.Config, log *logger.Logger, cache *redis.Cache) *Client {
	return &Client{
		http: httputil.New(log, cfg.Pipeline.RequestTimeout).
			WithRetry(cfg.Pipeline.MaxRetries, httputil.DefaultRetryConfig().InitialDelay).
			WithRateLimit(requestsPerMinute),
		cache:   cache,
		baseURL: cfg.Census.BaseURL,
		apiKey:  cfg.Census.APIKey,
		retries: cfg.Pipeline.MaxRetries,
		logger:  log.WithComponent("census"),
	}
}

// FetchDemographics retrieves the demographic record for one region.
//
// A provider failure does not abort the pipeline: after retries are
// exhausted the adapter returns a synthetic default record with every
// field marked missing, plus a SourceFailure describing the fallback.
// The error return is reserved for context cancellation.
func (c *Client) FetchDemographics(ctx context.Context, reg region.Region) (contracts.DemographicRecord, *contracts.SourceFailure, error) {
	cacheKey := redis.ProviderKey(contracts.SourceCensus, reg.Code)
	if c.cache != nil {
		var cached contracts.DemographicRecord
		if hit, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil, nil
		}
	}

	record, err := c.fetch(ctx, reg)
	if err != nil {
		if ctx.Err() != nil {
			return contracts.DemographicRecord{}, nil, ctx.Err()
		}
		c.logger.WithError(err).WithField("region", reg.Code).Warn("Census fetch failed, using defaults")
		return defaultRecord(), &contracts.SourceFailure{
			Source:   contracts.SourceCensus,
			Reason:   err.Error(),
			Attempts: c.retries + 1,
		}, nil
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, record, redis.TTLProvider); err != nil {
			c.logger.WithError(err).Warn("Failed to cache Census record")
		}
	}
	return record, nil, nil
}

func (c *Client) fetch(ctx context.Context, reg region.Region) (contracts.DemographicRecord, error) {
	variables := strings.Join([]string{
		varPopulation, varMedianAge, varMedianIncome,
		varPovertyBelow, varPovertyTotal,
		varBachelors, varMasters, varProfessional, varDoctorate,
	}, ",")

	q := url.Values{}
	q.Set("get", variables)
	q.Set("for", "state:"+reg.FIPS)
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	endpoint := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, acsYear, acsPath, q.Encode())

	// ACS responds with a positional table: a header row of variable
	// names followed by one value row per geography. Values are strings
	// or null.
	var rows [][]*string
	if err := c.http.GetJSON(ctx, endpoint, &rows); err != nil {
		return contracts.DemographicRecord{}, fmt.Errorf("census request failed: %w", err)
	}
	if len(rows) < 2 {
		return contracts.DemographicRecord{}, fmt.Errorf("census response has no data row for %s", reg.Code)
	}

	return parseResponse(rows[0], rows[1])
}

// parseResponse maps the positional header/value rows into a record.
func parseResponse(headers []*string, values []*string) (contracts.DemographicRecord, error) {
	if len(headers) != len(values) {
		return contracts.DemographicRecord{}, fmt.Errorf("census row length mismatch: %d headers, %d values", len(headers), len(values))
	}

	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		if h != nil {
			idx[*h] = i
		}
	}

	var missing []string
	num := func(variable, field string) float64 {
		i, ok := idx[variable]
		if !ok || values[i] == nil {
			missing = append(missing, field)
			return 0
		}
		v, err := strconv.ParseFloat(*values[i], 64)
		if err != nil {
			missing = append(missing, field)
			return 0
		}
		return v
	}

	population := num(varPopulation, contracts.FieldPopulation)
	medianAge := num(varMedianAge, contracts.FieldMedianAge)
	medianIncome := num(varMedianIncome, contracts.FieldMedianIncome)

	record := contracts.DemographicRecord{
		Population:   int64(population),
		MedianAge:    medianAge,
		MedianIncome: medianIncome,
	}

	// Poverty rate is derived from the below/total pair. Either one
	// missing makes the rate missing.
	below := num(varPovertyBelow, contracts.FieldPovertyRate)
	total := num(varPovertyTotal, contracts.FieldPovertyRate)
	if total > 0 && !contracts.Missing(missing, contracts.FieldPovertyRate) {
		record.PovertyRate = below / total * 100
	}

	// Education is the sum of bachelor's and above over total population.
	degrees := num(varBachelors, contracts.FieldEducation) +
		num(varMasters, contracts.FieldEducation) +
		num(varProfessional, contracts.FieldEducation) +
		num(varDoctorate, contracts.FieldEducation)
	if population > 0 && !contracts.Missing(missing, contracts.FieldEducation) {
		record.EducationPct = degrees / population * 100
	} else if population <= 0 {
		missing = append(missing, contracts.FieldEducation)
	}

	record.FieldsMissing = dedupe(missing)
	return record, nil
}

// defaultRecord is the synthetic fallback: zero values, everything missing.
func defaultRecord() contracts.DemographicRecord {
	return contracts.DemographicRecord{FieldsMissing: contracts.DemographicFields()}
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
