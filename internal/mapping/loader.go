// Package mapping resolves source-native agency and channel identities to
// their canonical cross-source targets: CSV table first, deterministic
// fallback rules second, and every decision carries a reason tag.
package mapping

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/pipeline"
)

// ValidCanonChannels are the accepted canonical channel values.
var ValidCanonChannels = map[string]bool{
	"DIRECT": true,
	"WEB":    true,
	"WALKIN": true,
	"OTA":    true,
	"AGENCY": true,
}

// AgencyEntry is one row of the agency mapping table.
type AgencyEntry struct {
	SourceSystem   string
	SourceID       string
	SourceName     string
	SourceNameNorm string
	CanonID        string
	CanonName      string
	Notes          string
}

// ChannelEntry is one row of the channel mapping table.
type ChannelEntry struct {
	SourceSystem      string
	SourceChannel     string
	SourceChannelNorm string
	CanonChannel      string
}

// Bundle is the loaded mapping state: entries plus exact-key lookup maps.
// Within one bundle every (system, key) maps to exactly one canonical
// target; the loader rejects duplicates and ambiguities.
type Bundle struct {
	AgencyEntries  []AgencyEntry
	ChannelEntries []ChannelEntry
	agencyByID     map[[2]string]AgencyEntry
	agencyByName   map[[2]string]AgencyEntry
	channelByValue map[[2]string]ChannelEntry
}

// NormalizeName reduces a name for deterministic matching: lowercase,
// non-alphanumeric runs to single spaces, trimmed.
func NormalizeName(value string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

func normalizeSystem(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func normalizeSourceID(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func validSystem(system string) bool {
	return system == model.SourceElectra || system == model.SourceHotelRunner
}

func readMappingCSV(path string, expected []string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.KindMapping, err, "mapping file not found: %s", path)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	all, err := reader.ReadAll()
	if err != nil {
		return nil, pipeline.Wrap(pipeline.KindMapping, err, "malformed mapping file: %s", path)
	}
	if len(all) == 0 {
		return nil, &pipeline.Error{Kind: pipeline.KindMapping, Msg: "mapping file missing columns", Path: path, Missing: expected}
	}
	header := all[0]
	have := map[string]int{}
	for i, col := range header {
		have[strings.TrimSpace(col)] = i
	}
	var missing []string
	for _, col := range expected {
		if _, ok := have[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &pipeline.Error{Kind: pipeline.KindMapping, Msg: "mapping file missing columns", Path: path, Missing: missing}
	}

	rows := make([]map[string]string, 0, len(all)-1)
	for _, rec := range all[1:] {
		row := make(map[string]string, len(header))
		for col, i := range have {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func loadAgencyEntries(path string) ([]AgencyEntry, map[[2]string]AgencyEntry, map[[2]string]AgencyEntry, error) {
	rows, err := readMappingCSV(path, []string{
		"source_system", "source_agency_id", "source_agency_name",
		"canon_agency_id", "canon_agency_name", "notes",
	})
	if err != nil {
		return nil, nil, nil, err
	}

	var entries []AgencyEntry
	byID := map[[2]string]AgencyEntry{}
	byName := map[[2]string]AgencyEntry{}

	// Line numbers are 1-based with the header on line 1.
	for i, row := range rows {
		line := i + 2
		system := normalizeSystem(row["source_system"])
		if !validSystem(system) {
			return nil, nil, nil, pipeline.Errorf(pipeline.KindMapping,
				"invalid source_system at %s:%d: %s", path, line, system)
		}

		entry := AgencyEntry{
			SourceSystem: system,
			SourceID:     normalizeSourceID(row["source_agency_id"]),
			SourceName:   strings.TrimSpace(row["source_agency_name"]),
			CanonID:      strings.TrimSpace(row["canon_agency_id"]),
			CanonName:    strings.TrimSpace(row["canon_agency_name"]),
			Notes:        strings.TrimSpace(row["notes"]),
		}
		entry.SourceNameNorm = NormalizeName(entry.SourceName)

		if entry.SourceID == "" && entry.SourceNameNorm == "" {
			return nil, nil, nil, pipeline.Errorf(pipeline.KindMapping,
				"mapping row missing source id and source name at %s:%d", path, line)
		}
		if entry.CanonID == "" && entry.CanonName == "" {
			return nil, nil, nil, pipeline.Errorf(pipeline.KindMapping,
				"mapping row missing canonical id and canonical name at %s:%d", path, line)
		}

		if entry.SourceID != "" {
			key := [2]string{system, entry.SourceID}
			if prev, ok := byID[key]; ok {
				if prev.CanonID == entry.CanonID && prev.CanonName == entry.CanonName {
					return nil, nil, nil, pipeline.Errorf(pipeline.KindMapping,
						"duplicate agency id mapping at %s:%d: (%s, %s)", path, line, system, entry.SourceID)
				}
				return nil, nil, nil, pipeline.Errorf(pipeline.KindMapping,
					"ambiguous agency id mapping at %s:%d: (%s, %s) -> %s/%s and %s/%s",
					path, line, system, entry.SourceID, prev.CanonID, prev.CanonName, entry.CanonID, entry.CanonName)
			}
			byID[key] = entry
		}
		if entry.SourceNameNorm != "" {
			key := [2]string{system, entry.SourceNameNorm}
			if prev, ok := byName[key]; ok {
				if prev.CanonID == entry.CanonID && prev.CanonName == entry.CanonName {
					return nil, nil, nil, pipeline.Errorf(pipeline.KindMapping,
						"duplicate agency name mapping at %s:%d: (%s, %s)", path, line, system, entry.SourceNameNorm)
				}
				return nil, nil, nil, pipeline.Errorf(pipeline.KindMapping,
					"ambiguous agency name mapping at %s:%d: (%s, %s) -> %s/%s and %s/%s",
					path, line, system, entry.SourceNameNorm, prev.CanonID, prev.CanonName, entry.CanonID, entry.CanonName)
			}
			byName[key] = entry
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.SourceSystem != b.SourceSystem {
			return a.SourceSystem < b.SourceSystem
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if a.SourceNameNorm != b.SourceNameNorm {
			return a.SourceNameNorm < b.SourceNameNorm
		}
		if a.CanonID != b.CanonID {
			return a.CanonID < b.CanonID
		}
		return a.CanonName < b.CanonName
	})
	return entries, byID, byName, nil
}

func loadChannelEntries(path string) ([]ChannelEntry, map[[2]string]ChannelEntry, error) {
	rows, err := readMappingCSV(path, []string{"source_system", "source_channel", "canon_channel"})
	if err != nil {
		return nil, nil, err
	}

	var entries []ChannelEntry
	byValue := map[[2]string]ChannelEntry{}
	for i, row := range rows {
		line := i + 2
		system := normalizeSystem(row["source_system"])
		if !validSystem(system) {
			return nil, nil, pipeline.Errorf(pipeline.KindMapping,
				"invalid source_system at %s:%d: %s", path, line, system)
		}

		sourceChannel := strings.TrimSpace(row["source_channel"])
		sourceChannelNorm := NormalizeName(sourceChannel)
		if sourceChannelNorm == "" {
			return nil, nil, pipeline.Errorf(pipeline.KindMapping,
				"channel mapping missing source_channel at %s:%d", path, line)
		}

		canonChannel := strings.ToUpper(strings.TrimSpace(row["canon_channel"]))
		if !ValidCanonChannels[canonChannel] {
			accepted := make([]string, 0, len(ValidCanonChannels))
			for c := range ValidCanonChannels {
				accepted = append(accepted, c)
			}
			sort.Strings(accepted)
			return nil, nil, pipeline.Errorf(pipeline.KindMapping,
				"invalid canon_channel at %s:%d: %s; expected one of [%s]",
				path, line, canonChannel, strings.Join(accepted, ", "))
		}

		entry := ChannelEntry{
			SourceSystem:      system,
			SourceChannel:     sourceChannel,
			SourceChannelNorm: sourceChannelNorm,
			CanonChannel:      canonChannel,
		}
		key := [2]string{system, sourceChannelNorm}
		if prev, ok := byValue[key]; ok {
			if prev.CanonChannel == canonChannel {
				return nil, nil, pipeline.Errorf(pipeline.KindMapping,
					"duplicate channel mapping at %s:%d: (%s, %s)", path, line, system, sourceChannelNorm)
			}
			return nil, nil, pipeline.Errorf(pipeline.KindMapping,
				"ambiguous channel mapping at %s:%d: (%s, %s) -> %s and %s",
				path, line, system, sourceChannelNorm, prev.CanonChannel, canonChannel)
		}
		byValue[key] = entry
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.SourceSystem != b.SourceSystem {
			return a.SourceSystem < b.SourceSystem
		}
		if a.SourceChannelNorm != b.SourceChannelNorm {
			return a.SourceChannelNorm < b.SourceChannelNorm
		}
		return a.CanonChannel < b.CanonChannel
	})
	return entries, byValue, nil
}

// Load reads the agency and channel mapping tables. The agency table is
// required; a missing channel table loads as empty. Tables are read fresh
// on every invocation so corrections take effect on the next run.
func Load(agenciesPath, channelsPath string) (*Bundle, error) {
	agencies, byID, byName, err := loadAgencyEntries(agenciesPath)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{
		AgencyEntries:  agencies,
		agencyByID:     byID,
		agencyByName:   byName,
		channelByValue: map[[2]string]ChannelEntry{},
	}
	if channelsPath != "" {
		if _, statErr := os.Stat(channelsPath); statErr == nil {
			channels, byValue, err := loadChannelEntries(channelsPath)
			if err != nil {
				return nil, err
			}
			bundle.ChannelEntries = channels
			bundle.channelByValue = byValue
		}
	}
	return bundle, nil
}

// LookupAgencyByID returns the entry for a non-empty source id, if any.
func (b *Bundle) LookupAgencyByID(system, sourceID string) (AgencyEntry, bool) {
	e, ok := b.agencyByID[[2]string{normalizeSystem(system), normalizeSourceID(sourceID)}]
	return e, ok
}

// LookupAgencyByName returns the entry for a normalized source name, if any.
func (b *Bundle) LookupAgencyByName(system, sourceName string) (AgencyEntry, bool) {
	e, ok := b.agencyByName[[2]string{normalizeSystem(system), NormalizeName(sourceName)}]
	return e, ok
}

// LookupChannel returns the channel entry for a normalized value, if any.
func (b *Bundle) LookupChannel(system, value string) (ChannelEntry, bool) {
	e, ok := b.channelByValue[[2]string{normalizeSystem(system), NormalizeName(value)}]
	return e, ok
}

// CanonAgencyValues returns the set of canonical agency ids and names the
// bundle can resolve to. Used to test whether a dimension value is a known
// canonical identity.
func (b *Bundle) CanonAgencyValues() map[string]bool {
	out := map[string]bool{}
	for _, e := range b.AgencyEntries {
		if e.CanonID != "" {
			out[e.CanonID] = true
		}
		if e.CanonName != "" {
			out[e.CanonName] = true
		}
	}
	return out
}

// String summarizes the bundle for logging.
func (b *Bundle) String() string {
	return fmt.Sprintf("mapping.Bundle{agencies: %d, channels: %d}", len(b.AgencyEntries), len(b.ChannelEntries))
}
