package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelops/recon/internal/mapping"
)

func TestUnknownRateImprovement_Agency(t *testing.T) {
	dir, resolver := seedDimData(t)

	metrics, err := UnknownRateImprovement([]int{2025}, DimAgency, dir, dir, resolver)
	require.NoError(t, err)
	require.Len(t, metrics, 1)

	m := metrics[0]
	assert.Equal(t, 2025, m.Year)
	// Raw mode: Electra's AG001 already names a canonical agency, but
	// HotelRunner's private HR1 id does not. 180 of 380 gross is unknown.
	assert.InDelta(t, 0.4737, m.RawUnknownRate, 1e-9)
	assert.Zero(t, m.CanonUnknownRate, "the name mapping resolves HR1 rows")
	assert.InDelta(t, 100.00, m.ImprovementPct, 1e-9)
}

func TestUnknownRateImprovement_Channel(t *testing.T) {
	dir, resolver := seedDimData(t)

	metrics, err := UnknownRateImprovement([]int{2025}, DimChannel, dir, dir, resolver)
	require.NoError(t, err)
	require.Len(t, metrics, 1)

	m := metrics[0]
	assert.Greater(t, m.RawUnknownRate, 0.0, "raw channel values are not canonical names")
	assert.Greater(t, m.RawUnknownRate, m.CanonUnknownRate)
	assert.Greater(t, m.ImprovementPct, 0.0)
}

func TestUnknownRateImprovement_RejectsUnknownDim(t *testing.T) {
	dir, resolver := seedDimData(t)

	_, err := UnknownRateImprovement([]int{2025}, "region", dir, dir, resolver)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dim")
}

func TestUnknownRateImprovement_EmptyResolverLeavesRateFlat(t *testing.T) {
	dir, _ := seedDimData(t)

	metrics, err := UnknownRateImprovement([]int{2025}, DimAgency, dir, dir, &mapping.Resolver{})
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.InDelta(t, 1.0, metrics[0].RawUnknownRate, 1e-9,
		"without mapping tables no dimension value is recognized")
	assert.Equal(t, metrics[0].RawUnknownRate, metrics[0].CanonUnknownRate)
	assert.Zero(t, metrics[0].ImprovementPct)
}
