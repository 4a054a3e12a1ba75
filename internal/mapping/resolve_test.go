package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelops/recon/internal/model"
)

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	dir := t.TempDir()
	agencies := writeMapping(t, dir, "mapping_agencies.csv",
		"source_system,source_agency_id,source_agency_name,canon_agency_id,canon_agency_name,notes\n"+
			"electra,AG001,Atlas Partners,AG001,Atlas Partners,\n"+
			"hotelrunner,,Atlas Partners Ltd,AG001,Atlas Partners,\n"+
			"hotelrunner,,Beacon Agency,AG002,Beacon Agency,\n")
	channels := writeMapping(t, dir, "mapping_channels.csv",
		"source_system,source_channel,canon_channel\n"+
			"hotelrunner,booking.com,OTA\n"+
			"hotelrunner,beacon agency,AGENCY\n")
	rulesPath := filepath.Join(dir, "mapping_rules.json")
	require.NoError(t, os.WriteFile(rulesPath, []byte(`{"agency_rules": [
		{"source_system": "hotelrunner", "field": "agency_name", "op": "contains", "value": "cedar", "canon_agency_id": "AG003", "canon_agency_name": "Cedar Travel"},
		{"source_system": "hotelrunner", "field": "agency_name", "op": "contains", "value": "beacon", "canon_agency_id": "AG099", "canon_agency_name": "Never Reached"}
	]}`), 0o644))

	resolver, err := NewResolver(agencies, channels, rulesPath)
	require.NoError(t, err)
	return resolver
}

func TestResolveAgency(t *testing.T) {
	r := testResolver(t)

	tests := []struct {
		name       string
		system     string
		sourceID   string
		sourceName string
		channel    string
		wantID     string
		wantReason string
		wantNil    bool
	}{
		{
			name:       "id match",
			system:     "electra",
			sourceID:   "AG001",
			sourceName: "whatever",
			wantID:     "AG001",
			wantReason: ReasonCSVMatchID,
		},
		{
			name:       "name match only when id empty",
			system:     "hotelrunner",
			sourceName: "Atlas Partners Ltd",
			wantID:     "AG001",
			wantReason: ReasonCSVMatchName,
		},
		{
			name:       "unknown id does not fall through to name",
			system:     "electra",
			sourceID:   "AG999",
			sourceName: "Atlas Partners",
			wantNil:    true,
		},
		{
			name:       "csv name entry beats a rule matching the same entity",
			system:     "hotelrunner",
			sourceName: "Beacon Agency",
			wantID:     "AG002",
			wantReason: ReasonCSVMatchName,
		},
		{
			name:       "rule fallback when csv misses",
			system:     "hotelrunner",
			sourceName: "Cedar Travel Co",
			wantID:     "AG003",
			wantReason: "rule:contains:cedar",
		},
		{
			name:    "no match at all",
			system:  "hotelrunner",
			channel: "unknown-channel",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.ResolveAgency(tt.system, tt.sourceID, tt.sourceName, tt.channel)
			if tt.wantNil {
				assert.Nil(t, res)
				return
			}
			require.NotNil(t, res)
			assert.Equal(t, tt.wantID, res.CanonID)
			assert.Equal(t, tt.wantReason, res.Reason)
		})
	}
}

func TestResolveChannel(t *testing.T) {
	r := testResolver(t)

	assert.Equal(t, "OTA", r.ResolveChannel("hotelrunner", "Booking.com", ""))
	assert.Equal(t, "", r.ResolveChannel("hotelrunner", "unknown", "Beacon Agency"),
		"a present but unmapped channel does not fall back to the agency name")
	assert.Equal(t, "AGENCY", r.ResolveChannel("hotelrunner", "", "Beacon Agency"),
		"empty channel falls back to the agency name")
	assert.Equal(t, "", r.ResolveChannel("hotelrunner", "", ""))
}

func TestEnrichRows(t *testing.T) {
	r := testResolver(t)

	electra := r.EnrichElectra([]model.ElectraRow{
		{Date: "2025-01-05", Year: 2025, AgencyID: "AG001", AgencyName: "Atlas Partners", GrossSales: 450},
		{Date: "2025-01-05", Year: 2025, AgencyID: "TOTAL", AgencyName: "TOTAL", GrossSales: 450},
	})
	require.Len(t, electra, 2)
	assert.Equal(t, "AG001", electra[0].CanonAgencyID)
	assert.Equal(t, ReasonCSVMatchID, electra[0].AgencyReason)
	assert.Empty(t, electra[1].CanonAgencyID, "TOTAL sentinel rows stay unmapped")

	hr := r.EnrichHotelRunner([]model.HotelRunnerRow{
		{Date: "2025-01-05", Year: 2025, BookingID: "BK-1", AgencyName: "Beacon Agency", Channel: "booking.com", GrossSales: 300},
	})
	require.Len(t, hr, 1)
	assert.Equal(t, "AG002", hr[0].CanonAgencyID)
	assert.Equal(t, "OTA", hr[0].CanonChannel)
	assert.Equal(t, model.SourceHotelRunner, hr[0].Source)
}
