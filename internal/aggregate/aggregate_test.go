package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/internal/region"
)

func profileWithIncome(code, group string, income float64) contracts.RegionProfile {
	return contracts.RegionProfile{
		Identity:    contracts.RegionIdentity{Code: code, Name: code, Group: group},
		Demographic: contracts.DemographicRecord{MedianIncome: income},
		Employment:  contracts.EmploymentRecord{FieldsMissing: contracts.EmploymentFields()},
		Economic:    contracts.EconomicRecord{FieldsMissing: contracts.EconomicFields()},
		Wealth:      contracts.WealthRecord{FieldsMissing: contracts.WealthFields()},
	}
}

func TestComputeKnownStatistics(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	profiles := []contracts.RegionProfile{
		profileWithIncome("CA", region.GroupWest, 10),
		profileWithIncome("OR", region.GroupWest, 20),
		profileWithIncome("WA", region.GroupWest, 30),
	}

	aggregates := Compute(profiles, now)
	require.Len(t, aggregates, 1)

	agg := aggregates[0]
	assert.Equal(t, region.GroupWest, agg.Group)
	assert.Equal(t, []string{"CA", "OR", "WA"}, agg.Members)
	assert.Equal(t, 3, agg.ProfileCount)
	assert.Equal(t, now, agg.ComputedAt)

	stats, ok := agg.Stats[contracts.FieldMedianIncome]
	require.True(t, ok)
	assert.InDelta(t, 20.0, stats.Mean, 0.0001)
	assert.InDelta(t, 20.0, stats.Median, 0.0001)
	assert.InDelta(t, 8.1650, stats.StdDev, 0.0001)
	assert.Equal(t, 3, stats.Count)
}

func TestComputeEvenMemberMedian(t *testing.T) {
	profiles := []contracts.RegionProfile{
		profileWithIncome("CT", region.GroupNortheast, 10),
		profileWithIncome("ME", region.GroupNortheast, 20),
		profileWithIncome("NH", region.GroupNortheast, 40),
		profileWithIncome("VT", region.GroupNortheast, 80),
	}

	aggregates := Compute(profiles, time.Now())
	require.Len(t, aggregates, 1)
	assert.InDelta(t, 30.0, aggregates[0].Stats[contracts.FieldMedianIncome].Median, 0.0001)
}

func TestComputeMissingEverywhereProducesNoEntry(t *testing.T) {
	profiles := []contracts.RegionProfile{
		profileWithIncome("CA", region.GroupWest, 10),
		profileWithIncome("OR", region.GroupWest, 20),
	}

	aggregates := Compute(profiles, time.Now())
	require.Len(t, aggregates, 1)

	// Unemployment is in fields_missing for every member, so the
	// aggregate carries no entry for it rather than a zero.
	_, ok := aggregates[0].Stats[contracts.FieldUnemploymentRate]
	assert.False(t, ok)
}

func TestComputePartiallyMissingUsesPresentOnly(t *testing.T) {
	present := profileWithIncome("CA", region.GroupWest, 10)
	absent := profileWithIncome("OR", region.GroupWest, 0)
	absent.Demographic.FieldsMissing = []string{contracts.FieldMedianIncome}

	aggregates := Compute([]contracts.RegionProfile{present, absent}, time.Now())
	require.Len(t, aggregates, 1)

	stats := aggregates[0].Stats[contracts.FieldMedianIncome]
	assert.Equal(t, 1, stats.Count)
	assert.InDelta(t, 10.0, stats.Mean, 0.0001)
}

func TestComputeGroupsSplit(t *testing.T) {
	profiles := []contracts.RegionProfile{
		profileWithIncome("CA", region.GroupWest, 10),
		profileWithIncome("TX", region.GroupSouthwest, 20),
		profileWithIncome("NY", region.GroupNortheast, 30),
	}

	aggregates := Compute(profiles, time.Now())
	require.Len(t, aggregates, 3)

	// Canonical group order.
	assert.Equal(t, region.GroupNortheast, aggregates[0].Group)
	assert.Equal(t, region.GroupSouthwest, aggregates[1].Group)
	assert.Equal(t, region.GroupWest, aggregates[2].Group)
}
