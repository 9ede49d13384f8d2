package region

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindthegap/govdata/internal/contracts"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		wantName string
		wantFIPS string
		wantGrp  string
		wantErr  bool
	}{
		{name: "california", code: "CA", wantName: "California", wantFIPS: "06", wantGrp: GroupWest},
		{name: "texas is southwest", code: "TX", wantName: "Texas", wantFIPS: "48", wantGrp: GroupSouthwest},
		{name: "maryland is southeast", code: "MD", wantName: "Maryland", wantFIPS: "24", wantGrp: GroupSoutheast},
		{name: "unknown code", code: "ZZ", wantErr: true},
		{name: "lowercase not accepted", code: "ca", wantErr: true},
		{name: "dc not supported", code: "DC", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Lookup(tt.code)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, contracts.ErrUnknownRegion))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, r.Name)
			assert.Equal(t, tt.wantFIPS, r.FIPS)
			assert.Equal(t, tt.wantGrp, r.Group)
		})
	}
}

func TestBLSSeriesID(t *testing.T) {
	ca, err := Lookup("CA")
	require.NoError(t, err)
	assert.Equal(t, "LAUST060000000003", ca.BLSSeriesID())

	wy, err := Lookup("WY")
	require.NoError(t, err)
	assert.Equal(t, "LAUST560000000003", wy.BLSSeriesID())
}

func TestAllCoversFiftyStates(t *testing.T) {
	all := All()
	require.Len(t, all, 50)

	// Sorted by code and free of duplicates.
	seen := make(map[string]bool)
	prev := ""
	for _, r := range all {
		assert.Greater(t, r.Code, prev)
		assert.False(t, seen[r.Code])
		seen[r.Code] = true
		prev = r.Code
	}
}

func TestGroupsPartitionAllRegions(t *testing.T) {
	total := 0
	for _, g := range Groups() {
		members := Members(g)
		assert.NotEmpty(t, members, "group %s has no members", g)
		for _, code := range members {
			r, err := Lookup(code)
			require.NoError(t, err)
			assert.Equal(t, g, r.Group)
		}
		total += len(members)
	}
	assert.Equal(t, 50, total)
}
