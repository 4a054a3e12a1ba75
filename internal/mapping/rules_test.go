package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelops/recon/internal/pipeline"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapping_rules.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRules_MissingFileLoadsEmpty(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Nil(t, rules)
}

func TestLoadRules_DefaultReasonTags(t *testing.T) {
	path := writeRules(t, `{"agency_rules": [
		{"source_system": "hotelrunner", "field": "agency_name", "op": "contains", "value": "Atlas Partners", "canon_agency_id": "AG001", "canon_agency_name": "Atlas Partners"},
		{"source_system": "hotelrunner", "field": "channel", "op": "regex", "value": "^wholesaler", "canon_agency_id": "AG005", "canon_agency_name": "Elm Holidays"}
	]}`)

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "rule:contains:atlas partners", rules[0].Reason)
	assert.Equal(t, "rule:regex:^wholesaler", rules[1].Reason)
}

func TestLoadRules_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "not an object",
			content: `["rule"]`,
			wantMsg: "must be an object",
		},
		{
			name:    "invalid source system",
			content: `{"agency_rules": [{"source_system": "expedia", "field": "channel", "op": "contains", "value": "x", "canon_agency_id": "AG001"}]}`,
			wantMsg: "invalid rule source_system",
		},
		{
			name:    "invalid field",
			content: `{"agency_rules": [{"source_system": "electra", "field": "city", "op": "contains", "value": "x", "canon_agency_id": "AG001"}]}`,
			wantMsg: "invalid rule field",
		},
		{
			name:    "invalid op",
			content: `{"agency_rules": [{"source_system": "electra", "field": "channel", "op": "startswith", "value": "x", "canon_agency_id": "AG001"}]}`,
			wantMsg: "invalid rule op",
		},
		{
			name:    "empty value",
			content: `{"agency_rules": [{"source_system": "electra", "field": "channel", "op": "contains", "value": "", "canon_agency_id": "AG001"}]}`,
			wantMsg: "rule value cannot be empty",
		},
		{
			name:    "missing canonical target",
			content: `{"agency_rules": [{"source_system": "electra", "field": "channel", "op": "contains", "value": "x"}]}`,
			wantMsg: "rule missing canonical target",
		},
		{
			name:    "bad regex",
			content: `{"agency_rules": [{"source_system": "electra", "field": "channel", "op": "regex", "value": "[", "canon_agency_id": "AG001"}]}`,
			wantMsg: "invalid regex rule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRules(writeRules(t, tt.content))
			require.Error(t, err)
			assert.True(t, pipeline.IsKind(err, pipeline.KindMapping))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestApplyRules(t *testing.T) {
	path := writeRules(t, `{"agency_rules": [
		{"source_system": "hotelrunner", "field": "agency_name", "op": "contains", "value": "atlas", "canon_agency_id": "AG001", "canon_agency_name": "Atlas Partners"},
		{"source_system": "hotelrunner", "field": "agency_name", "op": "contains", "value": "atlas partners", "canon_agency_id": "AG099", "canon_agency_name": "Never Reached"},
		{"source_system": "hotelrunner", "field": "channel", "op": "regex", "value": "^wholesaler", "canon_agency_id": "AG005", "canon_agency_name": "Elm Holidays"},
		{"source_system": "electra", "field": "agency_id", "op": "regex", "value": "^AGX-", "canon_agency_id": "AG002", "canon_agency_name": "Beacon Agency"}
	]}`)
	rules, err := LoadRules(path)
	require.NoError(t, err)

	tests := []struct {
		name       string
		system     string
		agencyID   string
		agencyName string
		channel    string
		wantID     string
		wantNil    bool
	}{
		{
			name:       "contains matches over normalized text, first match wins",
			system:     "hotelrunner",
			agencyName: "ATLAS-PARTNERS LTD",
			wantID:     "AG001",
		},
		{
			name:    "regex matches case-insensitively",
			system:  "hotelrunner",
			channel: "WholesalerX",
			wantID:  "AG005",
		},
		{
			name:     "regex anchors apply to the raw value",
			system:   "electra",
			agencyID: "AGX-17",
			wantID:   "AG002",
		},
		{
			name:    "empty field value never matches",
			system:  "hotelrunner",
			channel: "",
			wantNil: true,
		},
		{
			name:       "system must match",
			system:     "electra",
			agencyName: "Atlas Partners",
			wantNil:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := ApplyRules(rules, tt.system, tt.agencyID, tt.agencyName, tt.channel)
			if tt.wantNil {
				assert.Nil(t, match)
				return
			}
			require.NotNil(t, match)
			assert.Equal(t, tt.wantID, match.CanonID)
		})
	}
}
