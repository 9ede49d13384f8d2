package contracts

import "time"

// Training example categories. Every profile contributes one example per
// category to the training set.
const (
	CategoryOverview   = "overview"
	CategoryInequality = "inequality_explanation"
	CategoryComparison = "comparison_fact"
)

// Few-shot bucket names.
const (
	BucketComparison = "comparison"
	BucketInequality = "inequality_explanation"
	BucketTrend      = "trend"
)

// TrainingExample is one query/answer pair in the generated training set.
type TrainingExample struct {
	Query    string            `json:"query"`
	Answer   string            `json:"answer"`
	Region   string            `json:"region"`
	Group    string            `json:"group"`
	Category string            `json:"category"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// KnowledgeBase is the distilled corpus handed to the downstream consumer:
// region-group facts keyed by group, mined patterns, few-shot example
// groups keyed by bucket, and a system instruction summarizing the
// strongest relationships.
type KnowledgeBase struct {
	RegionFacts map[string][]string          `json:"region_facts"`
	Patterns    []CorrelationPattern         `json:"patterns"`
	FewShot     map[string][]TrainingExample `json:"few_shot_examples"`
	Instruction string                       `json:"instruction"`
	GeneratedAt time.Time                    `json:"generated_at"`
}
