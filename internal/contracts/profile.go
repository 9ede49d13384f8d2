package contracts

import (
	"sort"
	"time"
)

// RegionIdentity identifies one region (a US state). Immutable once created.
type RegionIdentity struct {
	Code       string    `json:"code"`  // two-letter code, e.g. "CA"
	Name       string    `json:"name"`  // display name
	FIPS       string    `json:"fips"`  // Census FIPS code
	Group      string    `json:"group"` // region-group, e.g. "West"
	EnrichedAt time.Time `json:"enriched_at"`
}

// Classification buckets a region by its economic health score.
type Classification string

const (
	ClassProsperous Classification = "Prosperous" // score >= 75
	ClassHealthy    Classification = "Healthy"    // 60 <= score < 75
	ClassStrained   Classification = "Strained"   // 40 <= score < 60
	ClassDistressed Classification = "Distressed" // score < 40
)

// DerivedMetrics are composite indicators computed from the merged records.
type DerivedMetrics struct {
	InequalityIndex float64        `json:"inequality_index"` // 0-100
	HealthScore     float64        `json:"health_score"`     // 0-100
	Classification  Classification `json:"classification"`
}

// DataQuality summarizes completeness of one profile: the union of all
// input records' missing fields plus any adapter fallbacks.
type DataQuality struct {
	FieldsMissing  []string        `json:"fields_missing,omitempty"`
	SourceFailures []SourceFailure `json:"source_failures,omitempty"`
}

// Degraded reports whether any source fell back to synthetic defaults.
func (q DataQuality) Degraded() bool {
	return len(q.SourceFailures) > 0
}

// FailedSources returns the sorted list of sources that fell back.
func (q DataQuality) FailedSources() []string {
	sources := make([]string, 0, len(q.SourceFailures))
	for _, f := range q.SourceFailures {
		sources = append(sources, f.Source)
	}
	sort.Strings(sources)
	return sources
}

// RegionProfile is the canonical merged view of one region. It is fully
// rebuildable from its four input records and never mutated after
// construction; re-enrichment produces a new value.
type RegionProfile struct {
	Identity    RegionIdentity    `json:"identity"`
	Demographic DemographicRecord `json:"demographics"`
	Employment  EmploymentRecord  `json:"employment"`
	Economic    EconomicRecord    `json:"economics"`
	Wealth      WealthRecord      `json:"wealth"`
	Derived     DerivedMetrics    `json:"derived_metrics"`
	Quality     DataQuality       `json:"data_quality"`
}

// Field returns the value of a canonical numeric field and whether it is
// present (not listed in the owning record's FieldsMissing set). Derived
// fields are present only when their inputs were.
func (p RegionProfile) Field(name string) (float64, bool) {
	switch name {
	case FieldPopulation:
		return float64(p.Demographic.Population), !Missing(p.Demographic.FieldsMissing, name)
	case FieldMedianAge:
		return p.Demographic.MedianAge, !Missing(p.Demographic.FieldsMissing, name)
	case FieldMedianIncome:
		return p.Demographic.MedianIncome, !Missing(p.Demographic.FieldsMissing, name)
	case FieldPovertyRate:
		return p.Demographic.PovertyRate, !Missing(p.Demographic.FieldsMissing, name)
	case FieldEducation:
		return p.Demographic.EducationPct, !Missing(p.Demographic.FieldsMissing, name)
	case FieldUnemploymentRate:
		return p.Employment.UnemploymentRate, !Missing(p.Employment.FieldsMissing, name)
	case FieldUnemploymentChange:
		return p.Employment.UnemploymentChange, !Missing(p.Employment.FieldsMissing, name)
	case FieldInflationRate:
		return p.Economic.InflationRate, !Missing(p.Economic.FieldsMissing, name)
	case FieldMortgageRate:
		return p.Economic.MortgageRate, !Missing(p.Economic.FieldsMissing, name)
	case FieldGDPPerCapita:
		return p.Economic.GDPPerCapita, !Missing(p.Economic.FieldsMissing, name)
	case FieldTopShare:
		return p.Wealth.TopShare, !Missing(p.Wealth.FieldsMissing, name)
	case FieldBottomShare:
		return p.Wealth.BottomShare, !Missing(p.Wealth.FieldsMissing, name)
	case FieldGini:
		return p.Wealth.Gini, !Missing(p.Wealth.FieldsMissing, name)
	case FieldInequalityIndex:
		return p.Derived.InequalityIndex, !Missing(p.Quality.FieldsMissing, name)
	case FieldHealthScore:
		return p.Derived.HealthScore, !Missing(p.Quality.FieldsMissing, name)
	default:
		return 0, false
	}
}

// AllFields lists every canonical numeric field a profile can carry,
// including derived fields. Order is fixed for deterministic iteration.
func AllFields() []string {
	return []string{
		FieldPopulation, FieldMedianAge, FieldMedianIncome, FieldPovertyRate, FieldEducation,
		FieldUnemploymentRate, FieldUnemploymentChange,
		FieldInflationRate, FieldMortgageRate, FieldGDPPerCapita,
		FieldTopShare, FieldBottomShare, FieldGini,
		FieldInequalityIndex, FieldHealthScore,
	}
}
