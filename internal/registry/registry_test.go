package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LookupOrCreate(t *testing.T) {
	reg := New()

	rec, created := reg.LookupOrCreate("6TGTKYDC")
	require.True(t, created)
	require.NotNil(t, rec)
	assert.Equal(t, "6TGTKYDC", rec.Identity)

	again, created := reg.LookupOrCreate("6TGTKYDC")
	assert.False(t, created)
	assert.Same(t, rec, again)
	assert.Equal(t, 1, reg.Len())
}

// Two device names carrying the same serial collapse into one record
// whose names render sorted, with one path entry per contributing name.
func Test_MultipathAggregation(t *testing.T) {
	reg := New()

	rec, _ := reg.LookupOrCreate("6TGTKYDC")
	rec.Merge("da34", "mpr0", "scbus  0 target  34 lun  0")
	rec, created := reg.LookupOrCreate("6TGTKYDC")
	require.False(t, created)
	rec.Merge("da10", "mpr1", "scbus  1 target  10 lun  0")

	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, "da10,da34", rec.Names())
	assert.Equal(t, "mpr0,mpr1", rec.Drivers())
	assert.Equal(t, 2, rec.PathCount())
}

// The rendered output must not depend on enumeration order.
func Test_AggregationOrderIndependence(t *testing.T) {
	type obs struct{ name, driver, path string }
	observations := []obs{
		{"da10", "mpr1", "scbus 1 target 10 lun 0"},
		{"da34", "mpr0", "scbus 0 target 34 lun 0"},
		{"da7", "mpr0", "scbus 0 target 7 lun 0"},
	}
	permutations := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}

	var rendered []string
	for _, perm := range permutations {
		reg := New()
		for _, i := range perm {
			rec, _ := reg.LookupOrCreate("SERIAL1")
			rec.Merge(observations[i].name, observations[i].driver, observations[i].path)
		}
		recs := reg.Records()
		require.Len(t, recs, 1)
		rendered = append(rendered, recs[0].Names()+"|"+recs[0].Drivers()+"|"+recs[0].Paths())
	}
	for _, r := range rendered[1:] {
		assert.Equal(t, rendered[0], r)
	}
	assert.Equal(t, "da10,da34,da7|mpr0,mpr1|scbus 0 target 34 lun 0,scbus 0 target 7 lun 0,scbus 1 target 10 lun 0", rendered[0])
}

func Test_MergeIdempotent(t *testing.T) {
	reg := New()
	rec, _ := reg.LookupOrCreate("X")

	for i := 0; i < 3; i++ {
		rec.Merge("da0", "mpr0", "scbus 0 target 0 lun 0")
	}

	assert.Equal(t, "da0", rec.Names())
	assert.Equal(t, "mpr0", rec.Drivers())
	assert.Equal(t, 1, rec.PathCount())
}

func Test_FirstWriterWins(t *testing.T) {
	reg := New()
	rec, _ := reg.LookupOrCreate("X")

	rec.SetVendor("SEAGATE")
	rec.SetVendor("HGST")
	assert.Equal(t, "SEAGATE", rec.Vendor)

	rec.SetProduct("")
	rec.SetProduct("ST8000NM0045")
	rec.SetProduct("other")
	assert.Equal(t, "ST8000NM0045", rec.Product)

	rec.SetRevision("N003")
	rec.SetRevision("N004")
	assert.Equal(t, "N003", rec.Revision)

	rec.SetSize("8T")
	rec.SetSize("4T")
	assert.Equal(t, "8T", rec.Size)
}

func Test_InsertionOrderPreserved(t *testing.T) {
	reg := New()
	for _, id := range []string{"C", "A", "B"} {
		reg.LookupOrCreate(id)
	}

	recs := reg.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "C", recs[0].Identity)
	assert.Equal(t, "A", recs[1].Identity)
	assert.Equal(t, "B", recs[2].Identity)
}
