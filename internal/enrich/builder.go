// Package enrich builds region profiles: it merges the provider records
// for one region and computes the derived composite metrics.
package enrich

import (
	"sort"

	"github.com/mindthegap/govdata/internal/contracts"
)

// Reference bounds for score normalization. Fixed constants, not learned
// from data: incomes map 30k..100k onto 0..100, unemployment 2%..12%,
// education (bachelor's and above) 15%..50%.
const (
	incomeLow  = 30_000.0
	incomeHigh = 100_000.0

	unemploymentLow  = 2.0
	unemploymentHigh = 12.0

	educationLow  = 15.0
	educationHigh = 50.0
)

// Build merges the four input records into a RegionProfile and computes
// the derived metrics. Pure function of its inputs: no I/O, no clock
// reads beyond the identity's EnrichedAt, so identical inputs produce
// identical profiles.
func Build(
	identity contracts.RegionIdentity,
	demo contracts.DemographicRecord,
	emp contracts.EmploymentRecord,
	econ contracts.EconomicRecord,
	wealth contracts.WealthRecord,
	failures []contracts.SourceFailure,
) contracts.RegionProfile {
	profile := contracts.RegionProfile{
		Identity:    identity,
		Demographic: demo,
		Employment:  emp,
		Economic:    econ,
		Wealth:      wealth,
	}

	missing := unionMissing(demo.FieldsMissing, emp.FieldsMissing, econ.FieldsMissing, wealth.FieldsMissing)

	// Inequality index: wealth-share spread relative to income, on a
	// 0-100 scale. Needs both wealth shares and median income.
	inequalityOK := !contracts.Missing(wealth.FieldsMissing, contracts.FieldTopShare) &&
		!contracts.Missing(wealth.FieldsMissing, contracts.FieldBottomShare) &&
		!contracts.Missing(demo.FieldsMissing, contracts.FieldMedianIncome)
	if inequalityOK {
		income := demo.MedianIncome
		if income < 1 {
			income = 1
		}
		profile.Derived.InequalityIndex = clamp(0, 100, (wealth.TopShare-wealth.BottomShare)/income*100)
	} else {
		missing = append(missing, contracts.FieldInequalityIndex)
	}

	// Health score: equal-weight composite of income, employment,
	// education, and inequality, each on a 0-100 scale with higher
	// meaning healthier.
	healthOK := inequalityOK &&
		!contracts.Missing(demo.FieldsMissing, contracts.FieldEducation) &&
		!contracts.Missing(emp.FieldsMissing, contracts.FieldUnemploymentRate)
	if healthOK {
		score := 0.25*norm(demo.MedianIncome, incomeLow, incomeHigh) +
			0.25*(100-norm(emp.UnemploymentRate, unemploymentLow, unemploymentHigh)) +
			0.25*norm(demo.EducationPct, educationLow, educationHigh) +
			0.25*(100-profile.Derived.InequalityIndex)
		profile.Derived.HealthScore = clamp(0, 100, score)
		profile.Derived.Classification = Classify(profile.Derived.HealthScore)
	} else {
		missing = append(missing, contracts.FieldHealthScore)
	}

	profile.Quality = contracts.DataQuality{
		FieldsMissing:  missing,
		SourceFailures: failures,
	}
	return profile
}

// Classify maps a health score onto its classification bucket.
// Boundaries are inclusive on the lower bound.
func Classify(score float64) contracts.Classification {
	switch {
	case score >= 75:
		return contracts.ClassProsperous
	case score >= 60:
		return contracts.ClassHealthy
	case score >= 40:
		return contracts.ClassStrained
	default:
		return contracts.ClassDistressed
	}
}

// norm maps value onto 0-100 linearly between low and high, clamped.
func norm(value, low, high float64) float64 {
	return clamp(0, 100, (value-low)/(high-low)*100)
}

func clamp(low, high, value float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

// unionMissing merges the missing-field sets, deduplicated and sorted
// for deterministic output.
func unionMissing(sets ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, set := range sets {
		for _, field := range set {
			if !seen[field] {
				seen[field] = true
				out = append(out, field)
			}
		}
	}
	sort.Strings(out)
	return out
}
