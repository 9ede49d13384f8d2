// Package jobs holds the scheduled pipeline jobs.
package jobs

import (
	"context"
	"time"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/pkg/logger"
)

// Runner is the slice of the orchestrator the jobs drive.
type Runner interface {
	RunFull(ctx context.Context) (contracts.ExecutionSummary, error)
	RunIncremental(ctx context.Context, codes []string) (contracts.ExecutionSummary, error)
}

// profileLister is the slice of the profile store the incremental job
// needs to find stale regions.
type profileLister interface {
	List(ctx context.Context) ([]contracts.RegionProfile, error)
}

// FullRefreshJob re-enriches every region and rebuilds all artifacts.
// Weekly: government series update monthly at most.
type FullRefreshJob struct {
	orchestrator Runner
	logger       *logger.Logger
}

// NewFullRefresh creates the weekly full refresh job.
func NewFullRefresh(orch Runner, log *logger.Logger) *FullRefreshJob {
	return &FullRefreshJob{orchestrator: orch, logger: log.WithComponent("job.full_refresh")}
}

func (j *FullRefreshJob) Name() string { return "full_refresh" }

// Schedule runs Sundays at 03:00.
func (j *FullRefreshJob) Schedule() string { return "0 3 * * 0" }

func (j *FullRefreshJob) Run(ctx context.Context) error {
	summary, err := j.orchestrator.RunFull(ctx)
	if err != nil {
		return err
	}
	j.logger.WithFields(map[string]interface{}{
		"succeeded": summary.RegionsSucceeded,
		"degraded":  summary.RegionsDegraded,
		"patterns":  summary.PatternCount,
	}).Info("Full refresh finished")
	return nil
}

// IncrementalRefreshJob re-enriches regions whose profiles have gone
// stale and recomputes the downstream artifacts over the merged set.
type IncrementalRefreshJob struct {
	orchestrator Runner
	store        profileLister
	maxAge       time.Duration
	logger       *logger.Logger
}

// NewIncrementalRefresh creates the daily incremental job. Profiles older
// than maxAge count as stale.
func NewIncrementalRefresh(orch Runner, store profileLister, maxAge time.Duration, log *logger.Logger) *IncrementalRefreshJob {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &IncrementalRefreshJob{
		orchestrator: orch,
		store:        store,
		maxAge:       maxAge,
		logger:       log.WithComponent("job.incremental_refresh"),
	}
}

func (j *IncrementalRefreshJob) Name() string { return "incremental_refresh" }

// Schedule runs daily at 04:00.
func (j *IncrementalRefreshJob) Schedule() string { return "0 4 * * *" }

func (j *IncrementalRefreshJob) Run(ctx context.Context) error {
	stale, err := j.staleRegions(ctx)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		j.logger.Info("No stale regions, skipping incremental refresh")
		return nil
	}

	summary, err := j.orchestrator.RunIncremental(ctx, stale)
	if err != nil {
		return err
	}
	j.logger.WithFields(map[string]interface{}{
		"stale":     len(stale),
		"succeeded": summary.RegionsSucceeded,
	}).Info("Incremental refresh finished")
	return nil
}

// staleRegions lists the region codes whose stored profile is older than
// maxAge. Regions with no stored profile at all are handled by the full
// refresh, not here.
func (j *IncrementalRefreshJob) staleRegions(ctx context.Context) ([]string, error) {
	stored, err := j.store.List(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-j.maxAge)
	var stale []string
	for _, p := range stored {
		if p.Identity.EnrichedAt.Before(cutoff) {
			stale = append(stale, p.Identity.Code)
		}
	}
	return stale, nil
}
