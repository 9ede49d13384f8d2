// Package pipeline sequences the enrichment, aggregation, and learning
// stages and records an execution summary per run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mindthegap/govdata/internal/aggregate"
	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/internal/enrich"
	"github.com/mindthegap/govdata/internal/learn"
	"github.com/mindthegap/govdata/internal/region"
	"github.com/mindthegap/govdata/internal/storage"
	"github.com/mindthegap/govdata/pkg/logger"
)

// State is the orchestrator's run state.
type State string

const (
	StateIdle        State = "idle"
	StateEnriching   State = "enriching"
	StateAggregating State = "aggregating"
	StateLearning    State = "learning"
	StateDone        State = "done"
	StateAborted     State = "aborted"
)

// ErrRunInProgress is returned when a run is requested while another run
// is still executing. Runs never overlap.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Enricher runs the enrichment stage over a set of region codes.
type Enricher interface {
	Enrich(ctx context.Context, codes []string) (enrich.Result, error)
}

// ProfileStore persists enriched profiles between runs.
type ProfileStore interface {
	SaveAll(ctx context.Context, profiles []contracts.RegionProfile) error
	List(ctx context.Context) ([]contracts.RegionProfile, error)
}

// Orchestrator coordinates the three pipeline stages. All per-run state
// lives in a runContext constructed per invocation; the orchestrator
// itself only tracks the current state and the last summary.
type Orchestrator struct {
	enricher  Enricher
	store     ProfileStore
	objects   storage.ObjectStore
	minerCfg  learn.MinerConfig
	corpusCfg learn.CorpusConfig
	logger    *logger.Logger
	now       func() time.Time

	// runMu serializes runs; mu guards the observable state.
	runMu       sync.Mutex
	mu          sync.Mutex
	state       State
	lastSummary *contracts.ExecutionSummary
}

// New creates an orchestrator.
func New(
	enricher Enricher,
	store ProfileStore,
	objects storage.ObjectStore,
	minerCfg learn.MinerConfig,
	corpusCfg learn.CorpusConfig,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		enricher:  enricher,
		store:     store,
		objects:   objects,
		minerCfg:  minerCfg,
		corpusCfg: corpusCfg,
		logger:    log.WithComponent("pipeline"),
		now:       time.Now,
	}
}

// Status reports the current state and the last run's summary, if any.
func (o *Orchestrator) Status() (State, *contracts.ExecutionSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == "" {
		return StateIdle, o.lastSummary
	}
	return o.state, o.lastSummary
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// runContext carries one run's intermediate artifacts between stages.
// There is no package-level cached state; every run starts empty.
type runContext struct {
	profiles   []contracts.RegionProfile
	aggregates []contracts.RegionalAggregate
	patterns   []contracts.CorrelationPattern
	summary    contracts.ExecutionSummary
}

// RunFull enriches every supported region, then aggregates and learns.
func (o *Orchestrator) RunFull(ctx context.Context) (contracts.ExecutionSummary, error) {
	var codes []string
	for _, r := range region.All() {
		codes = append(codes, r.Code)
	}
	return o.run(ctx, codes)
}

// RunIncremental re-enriches only the given regions and recomputes the
// downstream artifacts over the merged profile set.
func (o *Orchestrator) RunIncremental(ctx context.Context, codes []string) (contracts.ExecutionSummary, error) {
	return o.run(ctx, codes)
}

// RunStage runs a single stage. Aggregation and learning load their
// prerequisite profiles from the store; an empty store fails with
// contracts.ErrMissingPrerequisite before any work happens.
func (o *Orchestrator) RunStage(ctx context.Context, stage string) (contracts.ExecutionSummary, error) {
	if !o.runMu.TryLock() {
		return contracts.ExecutionSummary{}, ErrRunInProgress
	}
	defer o.runMu.Unlock()

	switch stage {
	case contracts.StageEnrichment:
		var codes []string
		for _, r := range region.All() {
			codes = append(codes, r.Code)
		}
		rc := &runContext{summary: contracts.ExecutionSummary{StartedAt: o.now().UTC()}}
		err := o.enrichStage(ctx, rc, codes, nil)
		return o.finish(ctx, rc, err)

	case contracts.StageAggregation:
		rc, err := o.resumeContext(ctx)
		if err != nil {
			return contracts.ExecutionSummary{}, err
		}
		err = o.aggregateStage(ctx, rc)
		return o.finish(ctx, rc, err)

	case contracts.StageLearning:
		rc, err := o.resumeContext(ctx)
		if err != nil {
			return contracts.ExecutionSummary{}, err
		}
		rc.aggregates = aggregate.Compute(rc.profiles, o.now().UTC())
		err = o.learnStage(ctx, rc)
		return o.finish(ctx, rc, err)

	default:
		return contracts.ExecutionSummary{}, fmt.Errorf("unknown stage %q", stage)
	}
}

// resumeContext loads stored profiles as the prerequisite for a
// standalone aggregation or learning run.
func (o *Orchestrator) resumeContext(ctx context.Context) (*runContext, error) {
	stored, err := o.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: no stored profiles; run enrichment first", contracts.ErrMissingPrerequisite)
	}
	return &runContext{
		profiles: stored,
		summary:  contracts.ExecutionSummary{StartedAt: o.now().UTC()},
	}, nil
}

// run executes the full stage sequence over the given region codes.
func (o *Orchestrator) run(ctx context.Context, codes []string) (contracts.ExecutionSummary, error) {
	if !o.runMu.TryLock() {
		return contracts.ExecutionSummary{}, ErrRunInProgress
	}
	defer o.runMu.Unlock()

	rc := &runContext{summary: contracts.ExecutionSummary{StartedAt: o.now().UTC()}}

	incremental := len(codes) < len(region.All())
	var prior []contracts.RegionProfile
	if incremental {
		stored, err := o.store.List(ctx)
		if err != nil {
			return o.finish(ctx, rc, o.abort(rc, contracts.StageEnrichment, err))
		}
		prior = stored
	}

	if err := o.enrichStage(ctx, rc, codes, prior); err != nil {
		return o.finish(ctx, rc, err)
	}
	if err := o.aggregateStage(ctx, rc); err != nil {
		return o.finish(ctx, rc, err)
	}
	err := o.learnStage(ctx, rc)
	return o.finish(ctx, rc, err)
}

// enrichStage runs enrichment, persists the profiles, and uploads the
// per-region documents. prior profiles (incremental runs) are merged in,
// superseded by freshly enriched ones.
func (o *Orchestrator) enrichStage(ctx context.Context, rc *runContext, codes []string, prior []contracts.RegionProfile) error {
	o.setState(StateEnriching)
	started := o.now()

	result, runErr := o.enricher.Enrich(ctx, codes)

	rc.profiles = mergeProfiles(prior, result.Profiles)
	rc.summary.RegionsAttempted = len(codes)
	rc.summary.RegionsSucceeded = len(result.Profiles)
	rc.summary.RegionsFailed = len(result.Failed)
	for _, f := range result.Failed {
		rc.summary.FailedRegions = append(rc.summary.FailedRegions, f.Code)
	}
	for _, p := range result.Profiles {
		if p.Quality.Degraded() {
			rc.summary.RegionsDegraded++
			rc.summary.SourceFailures = append(rc.summary.SourceFailures, p.Quality.SourceFailures...)
		}
	}

	if runErr != nil {
		// Cancellation keeps completed work: the counts above reflect the
		// partial result, and collected profiles are persisted before the
		// abort is recorded.
		if len(result.Profiles) > 0 {
			if saveErr := o.store.SaveAll(context.WithoutCancel(ctx), result.Profiles); saveErr != nil {
				o.logger.WithError(saveErr).Warn("Failed to persist partial enrichment result")
			}
		}
		return o.abort(rc, contracts.StageEnrichment, runErr)
	}

	if err := o.store.SaveAll(ctx, result.Profiles); err != nil {
		return o.abort(rc, contracts.StageEnrichment, err)
	}
	for _, p := range result.Profiles {
		body, err := storage.MarshalDocument(p)
		if err != nil {
			return o.abort(rc, contracts.StageEnrichment, err)
		}
		if err := o.objects.Put(ctx, storage.ProfileKey(p.Identity.Code), body, "application/json"); err != nil {
			return o.abort(rc, contracts.StageEnrichment, err)
		}
	}

	rc.summary.Stages = append(rc.summary.Stages, contracts.StageResult{
		Stage:      contracts.StageEnrichment,
		Duration:   o.now().Sub(started),
		ItemCount:  len(result.Profiles),
		Successful: true,
	})
	return nil
}

// aggregateStage computes and uploads the per-group aggregates.
func (o *Orchestrator) aggregateStage(ctx context.Context, rc *runContext) error {
	o.setState(StateAggregating)
	started := o.now()

	rc.aggregates = aggregate.Compute(rc.profiles, o.now().UTC())
	rc.summary.AggregateCount = len(rc.aggregates)

	for _, agg := range rc.aggregates {
		body, err := storage.MarshalDocument(agg)
		if err != nil {
			return o.abort(rc, contracts.StageAggregation, err)
		}
		if err := o.objects.Put(ctx, storage.AggregateKey(agg.Group), body, "application/json"); err != nil {
			return o.abort(rc, contracts.StageAggregation, err)
		}
	}

	rc.summary.Stages = append(rc.summary.Stages, contracts.StageResult{
		Stage:      contracts.StageAggregation,
		Duration:   o.now().Sub(started),
		ItemCount:  len(rc.aggregates),
		Successful: true,
	})
	return nil
}

// learnStage mines patterns, generates the corpus, and uploads the
// training set (both serializations) and the knowledge base.
func (o *Orchestrator) learnStage(ctx context.Context, rc *runContext) error {
	o.setState(StateLearning)
	started := o.now()
	runDate := o.now().UTC()

	rc.patterns = learn.MinePatterns(rc.profiles, o.minerCfg)
	trainingSet, kb := learn.Generate(rc.profiles, rc.aggregates, rc.patterns, runDate, o.corpusCfg)
	rc.summary.PatternCount = len(rc.patterns)
	rc.summary.TrainingExamples = len(trainingSet)

	jsonBody, err := storage.MarshalTrainingSetJSON(trainingSet)
	if err != nil {
		return o.abort(rc, contracts.StageLearning, err)
	}
	jsonlBody, err := storage.MarshalTrainingSetJSONL(trainingSet)
	if err != nil {
		return o.abort(rc, contracts.StageLearning, err)
	}
	kbBody, err := storage.MarshalDocument(kb)
	if err != nil {
		return o.abort(rc, contracts.StageLearning, err)
	}

	uploads := []struct {
		key  string
		body []byte
	}{
		{storage.TrainingSetKey(runDate), jsonBody},
		{storage.TrainingSetJSONLKey(runDate), jsonlBody},
		{storage.KnowledgeBaseKey(runDate), kbBody},
	}
	for _, u := range uploads {
		if err := o.objects.Put(ctx, u.key, u.body, "application/json"); err != nil {
			return o.abort(rc, contracts.StageLearning, err)
		}
	}

	rc.summary.Stages = append(rc.summary.Stages, contracts.StageResult{
		Stage:      contracts.StageLearning,
		Duration:   o.now().Sub(started),
		ItemCount:  len(trainingSet),
		Successful: true,
	})
	return nil
}

// abort marks the summary aborted at the given stage and returns the
// causing error. Already-computed counts stay in the summary.
func (o *Orchestrator) abort(rc *runContext, stage string, err error) error {
	rc.summary.Aborted = true
	rc.summary.AbortedStage = stage
	rc.summary.AbortReason = err.Error()
	rc.summary.Stages = append(rc.summary.Stages, contracts.StageResult{
		Stage:      stage,
		Successful: false,
	})
	o.logger.WithError(err).WithField("stage", stage).Error("Pipeline stage aborted")
	return err
}

// finish stamps the summary, persists it best-effort, and records it as
// the last run.
func (o *Orchestrator) finish(ctx context.Context, rc *runContext, runErr error) (contracts.ExecutionSummary, error) {
	rc.summary.FinishedAt = o.now().UTC()

	if runErr != nil {
		o.setState(StateAborted)
	} else {
		o.setState(StateDone)
	}

	// The summary upload is best effort: a failing summary write never
	// masks the run's own outcome, and a cancelled run still records one.
	if body, err := storage.MarshalDocument(rc.summary); err == nil {
		if err := o.objects.Put(context.WithoutCancel(ctx), storage.SummaryKey(rc.summary.StartedAt), body, "application/json"); err != nil {
			o.logger.WithError(err).Warn("Failed to upload execution summary")
		}
	}

	o.mu.Lock()
	summary := rc.summary
	o.lastSummary = &summary
	o.mu.Unlock()

	o.logger.WithFields(map[string]interface{}{
		"succeeded": summary.RegionsSucceeded,
		"degraded":  summary.RegionsDegraded,
		"failed":    summary.RegionsFailed,
		"patterns":  summary.PatternCount,
		"aborted":   summary.Aborted,
		"duration":  summary.Duration(),
	}).Info("Pipeline run finished")
	return summary, runErr
}

// mergeProfiles overlays fresh profiles onto prior ones, keyed by region
// code, and returns the result sorted by code.
func mergeProfiles(prior, fresh []contracts.RegionProfile) []contracts.RegionProfile {
	if len(prior) == 0 {
		return fresh
	}
	byCode := make(map[string]contracts.RegionProfile, len(prior)+len(fresh))
	for _, p := range prior {
		byCode[p.Identity.Code] = p
	}
	for _, p := range fresh {
		byCode[p.Identity.Code] = p
	}

	merged := make([]contracts.RegionProfile, 0, len(byCode))
	for _, r := range region.All() {
		if p, ok := byCode[r.Code]; ok {
			merged = append(merged, p)
		}
	}
	return merged
}
