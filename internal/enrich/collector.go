package enrich

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/internal/region"
	"github.com/mindthegap/govdata/pkg/logger"
)

// DemographicSource fetches demographic records, degrading to defaults
// on provider failure.
type DemographicSource interface {
	FetchDemographics(ctx context.Context, reg region.Region) (contracts.DemographicRecord, *contracts.SourceFailure, error)
}

// EmploymentSource fetches employment records.
type EmploymentSource interface {
	FetchEmployment(ctx context.Context, reg region.Region) (contracts.EmploymentRecord, *contracts.SourceFailure, error)
}

// EconomicSource fetches the shared national economic record.
type EconomicSource interface {
	FetchEconomic(ctx context.Context) (contracts.EconomicRecord, *contracts.SourceFailure, error)
}

// WealthSource looks up wealth records by region code.
type WealthSource interface {
	Get(ctx context.Context, regionCode string) (contracts.WealthRecord, error)
}

// RegionFailure is one region whose enrichment task failed outright.
// Provider degradation is not a failure; this is reserved for unknown
// codes and cancellation.
type RegionFailure struct {
	Code string
	Err  error
}

// Result is the outcome of one enrichment pass.
type Result struct {
	Profiles []contracts.RegionProfile
	Failed   []RegionFailure
}

// Collector runs the enrichment stage: it fans region codes out over a
// worker pool, gathers the four records per region, and builds profiles.
type Collector struct {
	demographics DemographicSource
	employment   EmploymentSource
	economics    EconomicSource
	wealth       WealthSource
	workers      int
	logger       *logger.Logger
	now          func() time.Time
}

// NewCollector creates a collector with the given worker pool size.
func NewCollector(
	demographics DemographicSource,
	employment EmploymentSource,
	economics EconomicSource,
	wealth WealthSource,
	workers int,
	log *logger.Logger,
) *Collector {
	if workers < 1 {
		workers = 1
	}
	return &Collector{
		demographics: demographics,
		employment:   employment,
		economics:    economics,
		wealth:       wealth,
		workers:      workers,
		logger:       log.WithComponent("collector"),
		now:          time.Now,
	}
}

type enrichOutcome struct {
	code    string
	profile contracts.RegionProfile
	err     error
}

// Enrich builds a profile for every requested region code. Unknown codes
// fail individually without stopping the rest; provider failures degrade
// the affected profile. The returned profiles are sorted by region code.
//
// Cancellation is cooperative: in-flight regions finish or fail
// individually, and the partial Result is returned together with the
// context error. Cancelled regions are listed in Failed.
func (c *Collector) Enrich(ctx context.Context, codes []string) (Result, error) {
	started := c.now()
	c.logger.WithFields(map[string]interface{}{
		"regions": len(codes),
		"workers": c.workers,
	}).Info("Enrichment started")

	// The economic record is national, fetched once and shared by every
	// region's profile.
	econ, econFailure, err := c.economics.FetchEconomic(ctx)
	if err != nil {
		return Result{}, err
	}

	jobs := make(chan string, len(codes))
	outcomes := make(chan enrichOutcome, len(codes))

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for code := range jobs {
				outcomes <- c.enrichOne(ctx, code, econ, econFailure)
			}
		}()
	}

	for _, code := range codes {
		jobs <- code
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var result Result
	var cancelErr error
	for outcome := range outcomes {
		if outcome.err != nil {
			if errors.Is(outcome.err, context.Canceled) || errors.Is(outcome.err, context.DeadlineExceeded) {
				if cancelErr == nil {
					cancelErr = outcome.err
				}
			} else {
				c.logger.WithError(outcome.err).WithField("region", outcome.code).Warn("Region enrichment failed")
			}
			result.Failed = append(result.Failed, RegionFailure{Code: outcome.code, Err: outcome.err})
			continue
		}
		result.Profiles = append(result.Profiles, outcome.profile)
	}

	sort.Slice(result.Profiles, func(i, j int) bool {
		return result.Profiles[i].Identity.Code < result.Profiles[j].Identity.Code
	})
	sort.Slice(result.Failed, func(i, j int) bool {
		return result.Failed[i].Code < result.Failed[j].Code
	})

	if cancelErr != nil {
		c.logger.WithFields(map[string]interface{}{
			"collected": len(result.Profiles),
			"failed":    len(result.Failed),
		}).Warn("Enrichment cancelled, keeping partial results")
		return result, cancelErr
	}

	c.logger.WithFields(map[string]interface{}{
		"succeeded": len(result.Profiles),
		"failed":    len(result.Failed),
		"duration":  c.now().Sub(started),
	}).Info("Enrichment finished")
	return result, nil
}

// enrichOne gathers the records for a single region and builds its profile.
func (c *Collector) enrichOne(ctx context.Context, code string, econ contracts.EconomicRecord, econFailure *contracts.SourceFailure) enrichOutcome {
	reg, err := region.Lookup(code)
	if err != nil {
		return enrichOutcome{code: code, err: err}
	}

	demo, demoFailure, err := c.demographics.FetchDemographics(ctx, reg)
	if err != nil {
		return enrichOutcome{code: code, err: err}
	}

	emp, empFailure, err := c.employment.FetchEmployment(ctx, reg)
	if err != nil {
		return enrichOutcome{code: code, err: err}
	}

	wealth, wealthFailure := c.fetchWealth(ctx, reg.Code)

	var failures []contracts.SourceFailure
	for _, f := range []*contracts.SourceFailure{demoFailure, empFailure, econFailure, wealthFailure} {
		if f != nil {
			failures = append(failures, *f)
		}
	}

	identity := contracts.RegionIdentity{
		Code:       reg.Code,
		Name:       reg.Name,
		FIPS:       reg.FIPS,
		Group:      reg.Group,
		EnrichedAt: c.now().UTC(),
	}
	return enrichOutcome{code: code, profile: Build(identity, demo, emp, econ, wealth, failures)}
}

// fetchWealth degrades a missing or unreachable wealth row to a default
// record. Wealth is an input store, so its absence marks the source
// failed but never fails the region.
func (c *Collector) fetchWealth(ctx context.Context, code string) (contracts.WealthRecord, *contracts.SourceFailure) {
	record, err := c.wealth.Get(ctx, code)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, contracts.ErrRegionNotFound) {
		c.logger.WithError(err).WithField("region", code).Warn("Wealth lookup failed")
	}
	return contracts.WealthRecord{FieldsMissing: contracts.WealthFields()}, &contracts.SourceFailure{
		Source:   contracts.SourceWealth,
		Reason:   err.Error(),
		Attempts: 1,
	}
}
