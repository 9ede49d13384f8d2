package learn

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mindthegap/govdata/internal/contracts"
)

// CorpusConfig tunes knowledge-base assembly.
type CorpusConfig struct {
	FewShotPerBucket int // cap per few-shot bucket
	TopPatterns      int // patterns quoted in the instruction
	InstructionLimit int // instruction character budget
}

// DefaultCorpusConfig returns the standard corpus settings.
func DefaultCorpusConfig() CorpusConfig {
	return CorpusConfig{FewShotPerBucket: 4, TopPatterns: 5, InstructionLimit: 4000}
}

const instructionPreamble = `You are an assistant answering questions about US regional economics.
Ground every answer in the region facts and correlation patterns below.
When a region's data quality is degraded, say so rather than guessing.`

// Generate turns profiles, aggregates, and mined patterns into the
// training set and the consolidated knowledge base. Both outputs are
// deterministic for fixed inputs.
func Generate(
	profiles []contracts.RegionProfile,
	aggregates []contracts.RegionalAggregate,
	patterns []contracts.CorrelationPattern,
	generatedAt time.Time,
	cfg CorpusConfig,
) ([]contracts.TrainingExample, contracts.KnowledgeBase) {
	if cfg.FewShotPerBucket <= 0 {
		cfg = DefaultCorpusConfig()
	}

	sorted := make([]contracts.RegionProfile, len(profiles))
	copy(sorted, profiles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Identity.Code < sorted[j].Identity.Code })

	var trainingSet []contracts.TrainingExample
	for _, p := range sorted {
		trainingSet = append(trainingSet,
			overviewExample(p),
			inequalityExample(p),
			comparisonExample(p, aggregates),
		)
	}

	kb := contracts.KnowledgeBase{
		RegionFacts: groupFacts(aggregates),
		Patterns:    patterns,
		FewShot:     fewShot(trainingSet, sorted, cfg.FewShotPerBucket),
		GeneratedAt: generatedAt,
	}
	kb.Instruction = instruction(patterns, kb.FewShot, cfg)
	return trainingSet, kb
}

// overviewExample renders the per-region summary Q/A pair.
func overviewExample(p contracts.RegionProfile) contracts.TrainingExample {
	return contracts.TrainingExample{
		Query:    fmt.Sprintf("Give me an economic overview of %s.", p.Identity.Name),
		Answer:   insightSummary(p),
		Region:   p.Identity.Code,
		Group:    p.Identity.Group,
		Category: contracts.CategoryOverview,
		Metadata: map[string]string{
			"fields": strings.Join([]string{
				contracts.FieldPopulation, contracts.FieldMedianIncome,
				contracts.FieldEducation, contracts.FieldHealthScore,
			}, ","),
		},
	}
}

// inequalityExample explains the region's inequality figures.
func inequalityExample(p contracts.RegionProfile) contracts.TrainingExample {
	var answer string
	if _, ok := p.Field(contracts.FieldInequalityIndex); ok {
		answer = fmt.Sprintf(
			"%s has an inequality index of %.1f out of 100. The top 1%% holds %.1f%% of net worth while the bottom 50%% holds %.1f%%, with a Gini coefficient of %.2f.",
			p.Identity.Name, p.Derived.InequalityIndex, p.Wealth.TopShare, p.Wealth.BottomShare, p.Wealth.Gini,
		)
	} else {
		answer = fmt.Sprintf("Wealth distribution data for %s is currently unavailable, so its inequality index cannot be computed.", p.Identity.Name)
	}
	return contracts.TrainingExample{
		Query:    fmt.Sprintf("How unequal is wealth distribution in %s?", p.Identity.Name),
		Answer:   answer,
		Region:   p.Identity.Code,
		Group:    p.Identity.Group,
		Category: contracts.CategoryInequality,
		Metadata: map[string]string{
			"fields": strings.Join([]string{
				contracts.FieldInequalityIndex, contracts.FieldTopShare,
				contracts.FieldBottomShare, contracts.FieldGini,
			}, ","),
		},
	}
}

// comparisonExample positions the region against its group's averages.
func comparisonExample(p contracts.RegionProfile, aggregates []contracts.RegionalAggregate) contracts.TrainingExample {
	answer := fmt.Sprintf("%s belongs to the %s region group.", p.Identity.Name, p.Identity.Group)
	income, incomeOK := p.Field(contracts.FieldMedianIncome)
	for _, agg := range aggregates {
		if agg.Group != p.Identity.Group {
			continue
		}
		if stats, ok := agg.Stats[contracts.FieldMedianIncome]; ok && incomeOK {
			relation := "above"
			if income < stats.Mean {
				relation = "below"
			}
			answer = fmt.Sprintf(
				"%s Its median household income of $%.0f is %s the %s group average of $%.0f across %d states.",
				answer, income, relation, agg.Group, stats.Mean, agg.ProfileCount,
			)
		}
		break
	}
	return contracts.TrainingExample{
		Query:    fmt.Sprintf("How does %s compare to its region group?", p.Identity.Name),
		Answer:   answer,
		Region:   p.Identity.Code,
		Group:    p.Identity.Group,
		Category: contracts.CategoryComparison,
		Metadata: map[string]string{"fields": contracts.FieldMedianIncome},
	}
}

// insightSummary renders the fixed-template insight sentences for one
// profile. Missing fields render as explicit unavailability rather than
// zeros.
func insightSummary(p contracts.RegionProfile) string {
	var parts []string

	if pop, ok := p.Field(contracts.FieldPopulation); ok {
		parts = append(parts, fmt.Sprintf("%s has a population of %.0f.", p.Identity.Name, pop))
	} else {
		parts = append(parts, fmt.Sprintf("%s's population figure is unavailable.", p.Identity.Name))
	}

	if income, ok := p.Field(contracts.FieldMedianIncome); ok {
		parts = append(parts, fmt.Sprintf("Median household income is $%.0f.", income))
	}
	if educ, ok := p.Field(contracts.FieldEducation); ok {
		parts = append(parts, fmt.Sprintf("%.1f%% of residents hold a bachelor's degree or higher.", educ))
	}
	if poverty, ok := p.Field(contracts.FieldPovertyRate); ok {
		parts = append(parts, fmt.Sprintf("The poverty rate is %.1f%%.", poverty))
	}
	if unemployment, ok := p.Field(contracts.FieldUnemploymentRate); ok {
		parts = append(parts, fmt.Sprintf("Unemployment stands at %.1f%%.", unemployment))
	}

	if score, ok := p.Field(contracts.FieldHealthScore); ok {
		parts = append(parts, fmt.Sprintf("Overall the state is classified as %s with an economic health score of %.1f.",
			p.Derived.Classification, score))
	} else {
		parts = append(parts, "An economic health score cannot be computed from the available data.")
	}

	if p.Quality.Degraded() {
		parts = append(parts, fmt.Sprintf("Note: data from %s could not be retrieved for this profile.",
			strings.Join(p.Quality.FailedSources(), ", ")))
	}
	return strings.Join(parts, " ")
}

// groupFacts condenses each region-group's aggregate statistics into the
// knowledge base's fact strings, keyed by group.
func groupFacts(aggregates []contracts.RegionalAggregate) map[string][]string {
	facts := make(map[string][]string, len(aggregates))
	for _, agg := range aggregates {
		list := []string{fmt.Sprintf("%s covers %d profiled states: %s.",
			agg.Group, agg.ProfileCount, strings.Join(agg.Members, ", "))}
		if s, ok := agg.Stats[contracts.FieldMedianIncome]; ok {
			list = append(list, fmt.Sprintf("Median household income averages $%.0f (median $%.0f) across %d states.",
				s.Mean, s.Median, s.Count))
		}
		if s, ok := agg.Stats[contracts.FieldUnemploymentRate]; ok {
			list = append(list, fmt.Sprintf("Unemployment averages %.1f%%.", s.Mean))
		}
		if s, ok := agg.Stats[contracts.FieldInequalityIndex]; ok {
			list = append(list, fmt.Sprintf("The average inequality index is %.1f out of 100.", s.Mean))
		}
		if s, ok := agg.Stats[contracts.FieldHealthScore]; ok {
			list = append(list, fmt.Sprintf("The average economic health score is %.1f.", s.Mean))
		}
		facts[agg.Group] = list
	}
	return facts
}

// fewShot buckets training examples, capped per bucket with at least one
// example per classification present when possible.
func fewShot(trainingSet []contracts.TrainingExample, profiles []contracts.RegionProfile, cap int) map[string][]contracts.TrainingExample {
	classOf := make(map[string]contracts.Classification, len(profiles))
	for _, p := range profiles {
		classOf[p.Identity.Code] = p.Derived.Classification
	}

	buckets := map[string]string{
		contracts.BucketComparison: contracts.CategoryComparison,
		contracts.BucketInequality: contracts.CategoryInequality,
		contracts.BucketTrend:      contracts.CategoryOverview,
	}

	out := make(map[string][]contracts.TrainingExample, len(buckets))
	for _, bucket := range []string{contracts.BucketComparison, contracts.BucketInequality, contracts.BucketTrend} {
		category := buckets[bucket]

		var candidates []contracts.TrainingExample
		for _, ex := range trainingSet {
			if ex.Category == category {
				candidates = append(candidates, ex)
			}
		}

		// First pass keeps classification diversity, second fills the
		// remaining slots in region order.
		var picked []contracts.TrainingExample
		seenClass := make(map[contracts.Classification]bool)
		for _, ex := range candidates {
			class := classOf[ex.Region]
			if !seenClass[class] && len(picked) < cap {
				seenClass[class] = true
				picked = append(picked, ex)
			}
		}
		for _, ex := range candidates {
			if len(picked) >= cap {
				break
			}
			if !containsExample(picked, ex) {
				picked = append(picked, ex)
			}
		}
		out[bucket] = picked
	}
	return out
}

func containsExample(list []contracts.TrainingExample, ex contracts.TrainingExample) bool {
	for _, e := range list {
		if e.Region == ex.Region && e.Category == ex.Category {
			return true
		}
	}
	return false
}

// instruction builds the consumer-facing system instruction: preamble,
// the strongest patterns, and one few-shot sample per bucket, truncated
// to the character budget.
func instruction(patterns []contracts.CorrelationPattern, fewShot map[string][]contracts.TrainingExample, cfg CorpusConfig) string {
	var b strings.Builder
	b.WriteString(instructionPreamble)

	if len(patterns) > 0 {
		b.WriteString("\n\nKnown correlation patterns:\n")
		for i, p := range patterns {
			if i >= cfg.TopPatterns {
				break
			}
			fmt.Fprintf(&b, "- %s (confidence %.2f)\n", p.Description, p.Confidence)
		}
	}

	var samples []contracts.TrainingExample
	for _, bucket := range []string{contracts.BucketComparison, contracts.BucketInequality, contracts.BucketTrend} {
		if examples := fewShot[bucket]; len(examples) > 0 {
			samples = append(samples, examples[0])
		}
	}
	if len(samples) > 0 {
		b.WriteString("\nExample answers:\n")
		for _, ex := range samples {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", ex.Query, ex.Answer)
		}
	}

	out := b.String()
	// The limit counts characters, and a cut must not split a rune.
	if runes := []rune(out); len(runes) > cfg.InstructionLimit {
		out = string(runes[:cfg.InstructionLimit])
	}
	return out
}
