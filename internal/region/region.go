// Package region holds the static table of supported regions: the 50 US
// states, their Census FIPS codes, and their region-group assignment.
package region

import (
	"fmt"
	"sort"

	"github.com/mindthegap/govdata/internal/contracts"
)

// Region-group names. Every supported region belongs to exactly one.
const (
	GroupNortheast = "Northeast"
	GroupSoutheast = "Southeast"
	GroupMidwest   = "Midwest"
	GroupSouthwest = "Southwest"
	GroupWest      = "West"
)

// Region is one entry in the static region table.
type Region struct {
	Code  string // two-letter USPS code
	Name  string
	FIPS  string // two-digit Census FIPS code
	Group string
}

// BLSSeriesID returns the LAUS statewide unemployment rate series for the
// region, derived from its FIPS code.
func (r Region) BLSSeriesID() string {
	return fmt.Sprintf("LAUST%s0000000003", r.FIPS)
}

var table = []Region{
	{"AL", "Alabama", "01", GroupSoutheast},
	{"AK", "Alaska", "02", GroupWest},
	{"AZ", "Arizona", "04", GroupSouthwest},
	{"AR", "Arkansas", "05", GroupSoutheast},
	{"CA", "California", "06", GroupWest},
	{"CO", "Colorado", "08", GroupWest},
	{"CT", "Connecticut", "09", GroupNortheast},
	{"DE", "Delaware", "10", GroupSoutheast},
	{"FL", "Florida", "12", GroupSoutheast},
	{"GA", "Georgia", "13", GroupSoutheast},
	{"HI", "Hawaii", "15", GroupWest},
	{"ID", "Idaho", "16", GroupWest},
	{"IL", "Illinois", "17", GroupMidwest},
	{"IN", "Indiana", "18", GroupMidwest},
	{"IA", "Iowa", "19", GroupMidwest},
	{"KS", "Kansas", "20", GroupMidwest},
	{"KY", "Kentucky", "21", GroupSoutheast},
	{"LA", "Louisiana", "22", GroupSoutheast},
	{"ME", "Maine", "23", GroupNortheast},
	{"MD", "Maryland", "24", GroupSoutheast},
	{"MA", "Massachusetts", "25", GroupNortheast},
	{"MI", "Michigan", "26", GroupMidwest},
	{"MN", "Minnesota", "27", GroupMidwest},
	{"MS", "Mississippi", "28", GroupSoutheast},
	{"MO", "Missouri", "29", GroupMidwest},
	{"MT", "Montana", "30", GroupWest},
	{"NE", "Nebraska", "31", GroupMidwest},
	{"NV", "Nevada", "32", GroupWest},
	{"NH", "New Hampshire", "33", GroupNortheast},
	{"NJ", "New Jersey", "34", GroupNortheast},
	{"NM", "New Mexico", "35", GroupSouthwest},
	{"NY", "New York", "36", GroupNortheast},
	{"NC", "North Carolina", "37", GroupSoutheast},
	{"ND", "North Dakota", "38", GroupMidwest},
	{"OH", "Ohio", "39", GroupMidwest},
	{"OK", "Oklahoma", "40", GroupSouthwest},
	{"OR", "Oregon", "41", GroupWest},
	{"PA", "Pennsylvania", "42", GroupNortheast},
	{"RI", "Rhode Island", "44", GroupNortheast},
	{"SC", "South Carolina", "45", GroupSoutheast},
	{"SD", "South Dakota", "46", GroupMidwest},
	{"TN", "Tennessee", "47", GroupSoutheast},
	{"TX", "Texas", "48", GroupSouthwest},
	{"UT", "Utah", "49", GroupWest},
	{"VT", "Vermont", "50", GroupNortheast},
	{"VA", "Virginia", "51", GroupSoutheast},
	{"WA", "Washington", "53", GroupWest},
	{"WV", "West Virginia", "54", GroupSoutheast},
	{"WI", "Wisconsin", "55", GroupMidwest},
	{"WY", "Wyoming", "56", GroupWest},
}

var byCode = func() map[string]Region {
	m := make(map[string]Region, len(table))
	for _, r := range table {
		m[r.Code] = r
	}
	return m
}()

// Lookup resolves a two-letter region code. Unknown codes return
// contracts.ErrUnknownRegion.
func Lookup(code string) (Region, error) {
	r, ok := byCode[code]
	if !ok {
		return Region{}, fmt.Errorf("%w: %q", contracts.ErrUnknownRegion, code)
	}
	return r, nil
}

// All returns every supported region in code order.
func All() []Region {
	out := make([]Region, len(table))
	copy(out, table)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Groups returns the region-group names in canonical order.
func Groups() []string {
	return []string{GroupNortheast, GroupSoutheast, GroupMidwest, GroupSouthwest, GroupWest}
}

// Members returns the codes of every region in the given group, sorted.
func Members(group string) []string {
	var codes []string
	for _, r := range table {
		if r.Group == group {
			codes = append(codes, r.Code)
		}
	}
	sort.Strings(codes)
	return codes
}
