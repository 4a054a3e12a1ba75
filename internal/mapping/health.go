package mapping

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hotelops/recon/internal/model"
)

// UnmappedEntity is one source agency or channel with no canonical target,
// deduped across rows with occurrence counts and the years it was seen in.
type UnmappedEntity struct {
	System      string
	ItemType    string
	SourceID    string
	SourceName  string
	Channel     string
	Years       string
	Occurrences int
}

// Collision reports either one source key resolving to multiple canonical
// targets, or many source keys resolving to one canonical target. The
// many-to-one case is legal; it is reported for human review.
type Collision struct {
	MappingType   string
	CollisionType string
	SourceSystem  string
	SourceValue   string
	CanonValue    string
}

// DriftEntry flags a canonical agency present in only one source's data
// for the observed years.
type DriftEntry struct {
	Presence  string
	CanonID   string
	CanonName string
	Years     string
}

// Suggestion scores a known canonical name against an unmapped entity.
type Suggestion struct {
	Entity    UnmappedEntity
	CanonID   string
	CanonName string
	Score     float64
}

func sortedYears(years map[int]bool) string {
	keys := make([]int, 0, len(years))
	for y := range years {
		keys = append(keys, y)
	}
	sort.Ints(keys)
	parts := make([]string, 0, len(keys))
	for _, y := range keys {
		parts = append(parts, strconv.Itoa(y))
	}
	return strings.Join(parts, ",")
}

// FindUnmapped scans enriched rows for entities lacking a canonical
// target. TOTAL sentinel rows are excluded.
func FindUnmapped(rows []EnrichedRow) []UnmappedEntity {
	type key struct {
		itemType string
		sourceID string
		nameNorm string
	}
	type acc struct {
		entity UnmappedEntity
		years  map[int]bool
	}
	seen := map[key]*acc{}

	for _, row := range rows {
		if row.AgencyID == model.TotalAgencyID {
			continue
		}

		if (row.AgencyID != "" || row.AgencyName != "") && row.CanonAgencyID == "" && row.CanonAgencyName == "" {
			k := key{"agency", row.AgencyID, NormalizeName(row.AgencyName)}
			item, ok := seen[k]
			if !ok {
				item = &acc{
					entity: UnmappedEntity{
						System:     row.Source,
						ItemType:   "agency",
						SourceID:   row.AgencyID,
						SourceName: row.AgencyName,
					},
					years: map[int]bool{},
				}
				seen[k] = item
			}
			item.entity.Occurrences++
			item.years[row.Year] = true
		}

		if row.Channel != "" && row.CanonChannel == "" {
			k := key{"channel", "", NormalizeName(row.Channel)}
			item, ok := seen[k]
			if !ok {
				item = &acc{
					entity: UnmappedEntity{
						System:   row.Source,
						ItemType: "channel",
						Channel:  row.Channel,
					},
					years: map[int]bool{},
				}
				seen[k] = item
			}
			item.entity.Occurrences++
			item.years[row.Year] = true
		}
	}

	out := make([]UnmappedEntity, 0, len(seen))
	for _, item := range seen {
		item.entity.Years = sortedYears(item.years)
		out = append(out, item.entity)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.System != b.System {
			return a.System < b.System
		}
		if a.ItemType != b.ItemType {
			return a.ItemType < b.ItemType
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if a.SourceName != b.SourceName {
			return a.SourceName < b.SourceName
		}
		return a.Channel < b.Channel
	})
	return out
}

// FindCollisions reports collision candidates from the loaded tables.
func FindCollisions(bundle *Bundle) []Collision {
	var out []Collision

	bySource := map[[3]string]map[string]bool{}
	for _, e := range bundle.AgencyEntries {
		canon := e.CanonID + "/" + e.CanonName
		if e.SourceID != "" {
			k := [3]string{"agency", e.SourceSystem, "id:" + e.SourceID}
			if bySource[k] == nil {
				bySource[k] = map[string]bool{}
			}
			bySource[k][canon] = true
		}
		if e.SourceNameNorm != "" {
			k := [3]string{"agency", e.SourceSystem, "name:" + e.SourceNameNorm}
			if bySource[k] == nil {
				bySource[k] = map[string]bool{}
			}
			bySource[k][canon] = true
		}
	}
	sourceKeys := make([][3]string, 0, len(bySource))
	for k := range bySource {
		sourceKeys = append(sourceKeys, k)
	}
	sort.Slice(sourceKeys, func(i, j int) bool {
		a, b := sourceKeys[i], sourceKeys[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})
	for _, k := range sourceKeys {
		targets := bySource[k]
		if len(targets) > 1 {
			out = append(out, Collision{
				MappingType:   k[0],
				CollisionType: "source_to_multiple_canon",
				SourceSystem:  k[1],
				SourceValue:   k[2],
				CanonValue:    joinSortedSet(targets, "; "),
			})
		}
	}

	byCanon := map[[2]string]map[string]bool{}
	for _, e := range bundle.AgencyEntries {
		canon := e.CanonID
		if canon == "" {
			canon = e.CanonName
		}
		source := e.SourceID
		if source == "" {
			source = e.SourceNameNorm
		}
		k := [2]string{e.SourceSystem, canon}
		if byCanon[k] == nil {
			byCanon[k] = map[string]bool{}
		}
		byCanon[k][source] = true
	}
	canonKeys := make([][2]string, 0, len(byCanon))
	for k := range byCanon {
		canonKeys = append(canonKeys, k)
	}
	sort.Slice(canonKeys, func(i, j int) bool {
		a, b := canonKeys[i], canonKeys[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
	for _, k := range canonKeys {
		sources := byCanon[k]
		if len(sources) > 1 {
			out = append(out, Collision{
				MappingType:   "agency",
				CollisionType: "many_sources_to_one_canon",
				SourceSystem:  k[0],
				SourceValue:   joinSortedSet(sources, "; "),
				CanonValue:    k[1],
			})
		}
	}

	byCanonChannel := map[[2]string]map[string]bool{}
	for _, e := range bundle.ChannelEntries {
		k := [2]string{e.SourceSystem, e.CanonChannel}
		if byCanonChannel[k] == nil {
			byCanonChannel[k] = map[string]bool{}
		}
		byCanonChannel[k][e.SourceChannelNorm] = true
	}
	channelKeys := make([][2]string, 0, len(byCanonChannel))
	for k := range byCanonChannel {
		channelKeys = append(channelKeys, k)
	}
	sort.Slice(channelKeys, func(i, j int) bool {
		a, b := channelKeys[i], channelKeys[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
	for _, k := range channelKeys {
		sources := byCanonChannel[k]
		if len(sources) > 1 {
			out = append(out, Collision{
				MappingType:   "channel",
				CollisionType: "many_sources_to_one_canon",
				SourceSystem:  k[0],
				SourceValue:   joinSortedSet(sources, "; "),
				CanonValue:    k[1],
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.MappingType != b.MappingType {
			return a.MappingType < b.MappingType
		}
		if a.CollisionType != b.CollisionType {
			return a.CollisionType < b.CollisionType
		}
		if a.SourceSystem != b.SourceSystem {
			return a.SourceSystem < b.SourceSystem
		}
		if a.CanonValue != b.CanonValue {
			return a.CanonValue < b.CanonValue
		}
		return a.SourceValue < b.SourceValue
	})
	return out
}

func joinSortedSet(set map[string]bool, sep string) string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, sep)
}

// DriftReport compares the canonical agencies each source contributes and
// flags one-sided presence per year set.
func DriftReport(electraRows, hrRows []EnrichedRow) []DriftEntry {
	collect := func(rows []EnrichedRow) map[[2]string]map[int]bool {
		out := map[[2]string]map[int]bool{}
		for _, row := range rows {
			if row.CanonAgencyID == "" && row.CanonAgencyName == "" {
				continue
			}
			k := [2]string{row.CanonAgencyID, row.CanonAgencyName}
			if out[k] == nil {
				out[k] = map[int]bool{}
			}
			out[k][row.Year] = true
		}
		return out
	}
	electra := collect(electraRows)
	hr := collect(hrRows)

	var out []DriftEntry
	appendOnly := func(presence string, own, other map[[2]string]map[int]bool) {
		var keys [][2]string
		for k := range own {
			if _, ok := other[k]; !ok {
				keys = append(keys, k)
			}
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i][0] != keys[j][0] {
				return keys[i][0] < keys[j][0]
			}
			return keys[i][1] < keys[j][1]
		})
		for _, k := range keys {
			out = append(out, DriftEntry{
				Presence:  presence,
				CanonID:   k[0],
				CanonName: k[1],
				Years:     sortedYears(own[k]),
			})
		}
	}
	appendOnly("electra_only", electra, hr)
	appendOnly("hotelrunner_only", hr, electra)
	return out
}

// jaccard computes token-set similarity between two normalized names.
func jaccard(a, b string) float64 {
	tokensA := map[string]bool{}
	for _, t := range strings.Fields(a) {
		tokensA[t] = true
	}
	tokensB := map[string]bool{}
	for _, t := range strings.Fields(b) {
		tokensB[t] = true
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	intersection := 0
	for t := range tokensA {
		if tokensB[t] {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection
	return float64(intersection) / float64(union)
}

// SuggestUnmappedCandidates scores every known canonical name for the
// entity's source system by Jaccard similarity over normalized-name token
// sets and returns the top-N candidates per entity.
func SuggestUnmappedCandidates(bundle *Bundle, unmapped []UnmappedEntity, topN int) []Suggestion {
	type canonTarget struct {
		id   string
		name string
	}
	bySystem := map[string][]canonTarget{}
	seen := map[[3]string]bool{}
	for _, e := range bundle.AgencyEntries {
		k := [3]string{e.SourceSystem, e.CanonID, e.CanonName}
		if seen[k] {
			continue
		}
		seen[k] = true
		bySystem[e.SourceSystem] = append(bySystem[e.SourceSystem], canonTarget{e.CanonID, e.CanonName})
	}

	var out []Suggestion
	for _, entity := range unmapped {
		entityNorm := NormalizeName(entity.SourceName)
		if entityNorm == "" {
			entityNorm = NormalizeName(entity.Channel)
		}
		if entityNorm == "" {
			continue
		}

		candidates := make([]Suggestion, 0, len(bySystem[entity.System]))
		for _, target := range bySystem[entity.System] {
			score := jaccard(entityNorm, NormalizeName(target.name))
			if score <= 0 {
				continue
			}
			candidates = append(candidates, Suggestion{
				Entity:    entity,
				CanonID:   target.id,
				CanonName: target.name,
				Score:     score,
			})
		}
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Score != candidates[j].Score {
				return candidates[i].Score > candidates[j].Score
			}
			return candidates[i].CanonID < candidates[j].CanonID
		})
		if topN > 0 && len(candidates) > topN {
			candidates = candidates[:topN]
		}
		out = append(out, candidates...)
	}
	return out
}
