// Package aggregate rolls region profiles up into per-group statistics.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/internal/region"
)

// Compute builds one RegionalAggregate per region-group present in the
// input. For every canonical field, statistics are computed over the
// members where the field is present; a field missing from every member
// gets no stats entry at all. Deterministic for a fixed input set.
func Compute(profiles []contracts.RegionProfile, computedAt time.Time) []contracts.RegionalAggregate {
	byGroup := make(map[string][]contracts.RegionProfile)
	for _, p := range profiles {
		byGroup[p.Identity.Group] = append(byGroup[p.Identity.Group], p)
	}

	var aggregates []contracts.RegionalAggregate
	for _, group := range region.Groups() {
		members, ok := byGroup[group]
		if !ok {
			continue
		}

		codes := make([]string, 0, len(members))
		for _, m := range members {
			codes = append(codes, m.Identity.Code)
		}
		sort.Strings(codes)

		stats := make(map[string]contracts.FieldStats)
		for _, field := range contracts.AllFields() {
			var values []float64
			for _, m := range members {
				if v, present := m.Field(field); present {
					values = append(values, v)
				}
			}
			if len(values) == 0 {
				continue
			}
			stats[field] = fieldStats(values)
		}

		aggregates = append(aggregates, contracts.RegionalAggregate{
			Group:        group,
			Members:      codes,
			Stats:        stats,
			ComputedAt:   computedAt,
			ProfileCount: len(members),
		})
	}
	return aggregates
}

// fieldStats computes mean, median, and population standard deviation.
func fieldStats(values []float64) contracts.FieldStats {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	var sumSq float64
	for _, v := range sorted {
		d := v - mean
		sumSq += d * d
	}

	return contracts.FieldStats{
		Mean:   mean,
		Median: median(sorted),
		StdDev: math.Sqrt(sumSq / float64(len(sorted))),
		Count:  len(sorted),
	}
}

// median of an already-sorted slice.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
