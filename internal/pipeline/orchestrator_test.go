package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/internal/enrich"
	"github.com/mindthegap/govdata/internal/learn"
	"github.com/mindthegap/govdata/internal/region"
	"github.com/mindthegap/govdata/internal/storage"
	"github.com/mindthegap/govdata/pkg/logger"
)

// fakeEnricher builds deterministic profiles without provider calls.
// Regions in degrade get a census source failure; unknown codes fail.
type fakeEnricher struct {
	degrade map[string]bool
	err     error
}

func (f *fakeEnricher) Enrich(_ context.Context, codes []string) (enrich.Result, error) {
	if f.err != nil {
		return enrich.Result{}, f.err
	}
	var result enrich.Result
	for _, code := range codes {
		reg, err := region.Lookup(code)
		if err != nil {
			result.Failed = append(result.Failed, enrich.RegionFailure{Code: code, Err: err})
			continue
		}

		demo := contracts.DemographicRecord{
			Population: 1_000_000, MedianIncome: 55_000 + float64(len(code))*1000,
			EducationPct: 30, PovertyRate: 12, MedianAge: 38,
		}
		var failures []contracts.SourceFailure
		if f.degrade[code] {
			demo = contracts.DemographicRecord{FieldsMissing: contracts.DemographicFields()}
			failures = append(failures, contracts.SourceFailure{Source: contracts.SourceCensus, Reason: "timeout", Attempts: 4})
		}

		profile := enrich.Build(
			contracts.RegionIdentity{Code: reg.Code, Name: reg.Name, FIPS: reg.FIPS, Group: reg.Group},
			demo,
			contracts.EmploymentRecord{UnemploymentRate: 4.0},
			contracts.EconomicRecord{InflationRate: 3.0, MortgageRate: 6.5, GDPPerCapita: 23_000},
			contracts.WealthRecord{TopShare: 31, BottomShare: 2.6, Gini: 0.47},
			failures,
		)
		result.Profiles = append(result.Profiles, profile)
	}
	return result, nil
}

// memProfileStore is an in-memory ProfileStore.
type memProfileStore struct {
	mu       sync.Mutex
	profiles map[string]contracts.RegionProfile
	saveErr  error
	listErr  error
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{profiles: make(map[string]contracts.RegionProfile)}
}

func (s *memProfileStore) SaveAll(_ context.Context, profiles []contracts.RegionProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	for _, p := range profiles {
		s.profiles[p.Identity.Code] = p
	}
	return nil
}

func (s *memProfileStore) List(_ context.Context) ([]contracts.RegionProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []contracts.RegionProfile
	for _, r := range region.All() {
		if p, ok := s.profiles[r.Code]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func newOrchestrator(enricher Enricher, store ProfileStore, objects storage.ObjectStore) *Orchestrator {
	return New(enricher, store, objects, learn.DefaultMinerConfig(), learn.DefaultCorpusConfig(), logger.NewNop())
}

func TestRunFullHappyPath(t *testing.T) {
	store := newMemProfileStore()
	objects := storage.NewMemory()
	orch := newOrchestrator(&fakeEnricher{}, store, objects)

	summary, err := orch.RunFull(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 50, summary.RegionsAttempted)
	assert.Equal(t, 50, summary.RegionsSucceeded)
	assert.Zero(t, summary.RegionsFailed)
	assert.Zero(t, summary.RegionsDegraded)
	assert.False(t, summary.Aborted)
	assert.Equal(t, 150, summary.TrainingExamples)
	assert.Equal(t, 5, summary.AggregateCount)
	require.Len(t, summary.Stages, 3)
	for _, stage := range summary.Stages {
		assert.True(t, stage.Successful)
	}

	state, last := orch.Status()
	assert.Equal(t, StateDone, state)
	require.NotNil(t, last)
	assert.Equal(t, summary.RegionsSucceeded, last.RegionsSucceeded)

	// All output documents landed at their deterministic keys.
	_, ok := objects.Get(storage.ProfileKey("CA"))
	assert.True(t, ok)
	_, ok = objects.Get(storage.AggregateKey(region.GroupWest))
	assert.True(t, ok)
	t.Logf("stored %d objects", len(objects.Keys()))
	// 50 profiles + 5 aggregates + 3 corpus docs + 1 summary.
	assert.Len(t, objects.Keys(), 59)
}

func TestRunFullWithDegradedAndFailedRegions(t *testing.T) {
	store := newMemProfileStore()
	objects := storage.NewMemory()
	orch := newOrchestrator(&fakeEnricher{degrade: map[string]bool{"TX": true, "FL": true}}, store, objects)

	summary, err := orch.RunIncremental(context.Background(), []string{"CA", "TX", "FL", "ZZ"})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.RegionsAttempted)
	assert.Equal(t, 3, summary.RegionsSucceeded)
	assert.Equal(t, 2, summary.RegionsDegraded)
	assert.Equal(t, 1, summary.RegionsFailed)
	assert.Equal(t, []string{"ZZ"}, summary.FailedRegions)
	assert.Len(t, summary.SourceFailures, 2)
	assert.False(t, summary.Aborted)

	// Degraded profiles still flow downstream.
	_, ok := objects.Get(storage.ProfileKey("TX"))
	assert.True(t, ok)
}

func TestRunAbortsOnStorageFailure(t *testing.T) {
	store := newMemProfileStore()
	objects := storage.NewMemory()
	objects.SetFailing(true)
	orch := newOrchestrator(&fakeEnricher{}, store, objects)

	summary, err := orch.RunFull(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrStorageUnavailable)

	// The summary still reports what was computed before the abort.
	assert.True(t, summary.Aborted)
	assert.Equal(t, contracts.StageEnrichment, summary.AbortedStage)
	assert.NotEmpty(t, summary.AbortReason)
	assert.Equal(t, 50, summary.RegionsSucceeded)

	state, _ := orch.Status()
	assert.Equal(t, StateAborted, state)
}

func TestRunStageMissingPrerequisite(t *testing.T) {
	orch := newOrchestrator(&fakeEnricher{}, newMemProfileStore(), storage.NewMemory())

	_, err := orch.RunStage(context.Background(), contracts.StageAggregation)
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrMissingPrerequisite)

	_, err = orch.RunStage(context.Background(), contracts.StageLearning)
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrMissingPrerequisite)
}

func TestRunStageResumesFromStore(t *testing.T) {
	store := newMemProfileStore()
	objects := storage.NewMemory()
	orch := newOrchestrator(&fakeEnricher{}, store, objects)

	// Enrichment alone persists profiles but produces no aggregates.
	summary, err := orch.RunStage(context.Background(), contracts.StageEnrichment)
	require.NoError(t, err)
	assert.Equal(t, 50, summary.RegionsSucceeded)
	assert.Zero(t, summary.AggregateCount)

	// A standalone aggregation run resumes from the stored profiles.
	summary, err = orch.RunStage(context.Background(), contracts.StageAggregation)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.AggregateCount)

	summary, err = orch.RunStage(context.Background(), contracts.StageLearning)
	require.NoError(t, err)
	assert.Equal(t, 150, summary.TrainingExamples)
	_, ok := objects.Get(storage.KnowledgeBaseKey(summary.StartedAt))
	assert.True(t, ok)
}

func TestRunIncrementalMergesPriorProfiles(t *testing.T) {
	store := newMemProfileStore()
	objects := storage.NewMemory()
	orch := newOrchestrator(&fakeEnricher{}, store, objects)

	_, err := orch.RunFull(context.Background())
	require.NoError(t, err)

	// Re-enrich two regions; downstream artifacts still cover all 50.
	summary, err := orch.RunIncremental(context.Background(), []string{"CA", "TX"})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.RegionsAttempted)
	assert.Equal(t, 2, summary.RegionsSucceeded)
	assert.Equal(t, 5, summary.AggregateCount)
	assert.Equal(t, 150, summary.TrainingExamples)
}

// partialEnricher simulates cancellation mid-run: the listed regions
// complete before the context error surfaces, the rest are reported
// failed with the cancellation error.
type partialEnricher struct {
	complete []string
}

func (f *partialEnricher) Enrich(_ context.Context, codes []string) (enrich.Result, error) {
	inner := &fakeEnricher{}
	result, _ := inner.Enrich(context.Background(), f.complete)
	for _, code := range codes {
		done := false
		for _, c := range f.complete {
			if c == code {
				done = true
				break
			}
		}
		if !done {
			result.Failed = append(result.Failed, enrich.RegionFailure{Code: code, Err: context.Canceled})
		}
	}
	return result, context.Canceled
}

func TestRunCancelledKeepsPartialResults(t *testing.T) {
	store := newMemProfileStore()
	objects := storage.NewMemory()
	orch := newOrchestrator(&partialEnricher{complete: []string{"CA", "TX"}}, store, objects)

	summary, err := orch.RunFull(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	// The summary reports the partial completion instead of zeroes.
	assert.True(t, summary.Aborted)
	assert.Equal(t, contracts.StageEnrichment, summary.AbortedStage)
	assert.Equal(t, 50, summary.RegionsAttempted)
	assert.Equal(t, 2, summary.RegionsSucceeded)
	assert.Equal(t, 48, summary.RegionsFailed)

	// Completed profiles survive the cancellation.
	stored, listErr := store.List(context.Background())
	require.NoError(t, listErr)
	require.Len(t, stored, 2)

	// The summary document is still written.
	_, ok := objects.Get(storage.SummaryKey(summary.StartedAt))
	assert.True(t, ok)
}

// blockingEnricher parks inside Enrich until released, to hold a run open.
type blockingEnricher struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingEnricher) Enrich(context.Context, []string) (enrich.Result, error) {
	close(b.started)
	<-b.release
	return enrich.Result{}, nil
}

func TestConcurrentRunsRejected(t *testing.T) {
	enricher := &blockingEnricher{started: make(chan struct{}), release: make(chan struct{})}
	orch := newOrchestrator(enricher, newMemProfileStore(), storage.NewMemory())

	done := make(chan error, 1)
	go func() {
		_, err := orch.RunFull(context.Background())
		done <- err
	}()
	<-enricher.started

	_, err := orch.RunIncremental(context.Background(), []string{"CA"})
	assert.ErrorIs(t, err, ErrRunInProgress)
	_, err = orch.RunStage(context.Background(), contracts.StageEnrichment)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(enricher.release)
	require.NoError(t, <-done)
}

func TestRunEnricherErrorAborts(t *testing.T) {
	orch := newOrchestrator(&fakeEnricher{err: fmt.Errorf("provider wiring broken")}, newMemProfileStore(), storage.NewMemory())

	summary, err := orch.RunFull(context.Background())
	require.Error(t, err)
	assert.True(t, summary.Aborted)
	assert.Equal(t, contracts.StageEnrichment, summary.AbortedStage)
}
