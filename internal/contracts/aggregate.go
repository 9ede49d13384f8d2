package contracts

import "time"

// FieldStats are summary statistics for one canonical field across the
// members of a region-group. Count is the number of members where the
// field was present; fields missing everywhere produce no entry at all.
type FieldStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

// RegionalAggregate is the statistical rollup of one region-group.
type RegionalAggregate struct {
	Group        string                `json:"group"`
	Members      []string              `json:"members"` // region codes, sorted
	Stats        map[string]FieldStats `json:"stats"`   // keyed by canonical field
	ComputedAt   time.Time             `json:"computed_at"`
	ProfileCount int                   `json:"profile_count"`
}
