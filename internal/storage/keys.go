package storage

import (
	"fmt"
	"strings"
	"time"
)

// Deterministic object keys. Every pipeline output lands at a key
// derivable from region code, group name, or run date alone.

// ProfileKey is the key for one region's profile document.
func ProfileKey(regionCode string) string {
	return fmt.Sprintf("profiles/%s/profile.json", regionCode)
}

// AggregateKey is the key for one region-group's aggregate document.
func AggregateKey(group string) string {
	return fmt.Sprintf("aggregates/%s.json", slug(group))
}

// TrainingSetKey is the key for the run-dated training set, JSON form.
func TrainingSetKey(runDate time.Time) string {
	return fmt.Sprintf("corpus/%s/training-set.json", runDate.UTC().Format("2006-01-02"))
}

// TrainingSetJSONLKey is the key for the JSONL form of the same set.
func TrainingSetJSONLKey(runDate time.Time) string {
	return fmt.Sprintf("corpus/%s/training-set.jsonl", runDate.UTC().Format("2006-01-02"))
}

// KnowledgeBaseKey is the key for the run-dated knowledge base.
func KnowledgeBaseKey(runDate time.Time) string {
	return fmt.Sprintf("corpus/%s/knowledge-base.json", runDate.UTC().Format("2006-01-02"))
}

// SummaryKey is the key for one run's execution summary.
func SummaryKey(startedAt time.Time) string {
	return fmt.Sprintf("runs/summary-%s.json", startedAt.UTC().Format("20060102T150405Z"))
}

func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}
