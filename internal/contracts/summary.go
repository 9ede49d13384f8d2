package contracts

import "time"

// Stage names as they appear in execution summaries and status reports.
const (
	StageEnrichment  = "enrichment"
	StageAggregation = "aggregation"
	StageLearning    = "learning"
)

// StageResult records the outcome of one pipeline stage.
type StageResult struct {
	Stage      string        `json:"stage"`
	Duration   time.Duration `json:"duration"`
	ItemCount  int           `json:"item_count"`
	Successful bool          `json:"successful"`
}

// ExecutionSummary is the durable record of one pipeline run.
type ExecutionSummary struct {
	StartedAt         time.Time       `json:"started_at"`
	FinishedAt        time.Time       `json:"finished_at"`
	RegionsAttempted  int             `json:"regions_attempted"`
	RegionsSucceeded  int             `json:"regions_succeeded"`
	RegionsDegraded   int             `json:"regions_degraded"`
	RegionsFailed     int             `json:"regions_failed"`
	FailedRegions     []string        `json:"failed_regions,omitempty"`
	SourceFailures    []SourceFailure `json:"source_failures,omitempty"`
	Stages            []StageResult   `json:"stages"`
	AggregateCount    int             `json:"aggregate_count"`
	PatternCount      int             `json:"pattern_count"`
	TrainingExamples  int             `json:"training_examples"`
	Aborted           bool            `json:"aborted"`
	AbortedStage      string          `json:"aborted_stage,omitempty"`
	AbortReason       string          `json:"abort_reason,omitempty"`
}

// Duration returns the total wall-clock time of the run.
func (s ExecutionSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
