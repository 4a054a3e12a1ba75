package mapping

import (
	"github.com/hotelops/recon/internal/model"
)

// Reason tags attached to successful CSV lookups. Rule matches carry the
// rule's own reason tag.
const (
	ReasonCSVMatchID   = "csv_match:id"
	ReasonCSVMatchName = "csv_match:name"
)

// Resolver combines the CSV mapping bundle with the fallback rules. The
// rules are consulted only when both CSV lookups fail.
type Resolver struct {
	Bundle *Bundle
	Rules  []Rule
}

// AgencyResolution is one explained agency mapping decision.
type AgencyResolution struct {
	CanonID   string
	CanonName string
	Reason    string
}

// ResolveAgency maps one source agency to its canonical identity. The id
// lookup applies only when the source id is non-empty; the name lookup only
// when it is empty, so a known id never silently falls through to a name
// that belongs to a different entity.
func (r *Resolver) ResolveAgency(system, sourceID, sourceName, channel string) *AgencyResolution {
	if r.Bundle != nil {
		if normalizeSourceID(sourceID) != "" {
			if entry, ok := r.Bundle.LookupAgencyByID(system, sourceID); ok {
				return &AgencyResolution{CanonID: entry.CanonID, CanonName: entry.CanonName, Reason: ReasonCSVMatchID}
			}
		} else if NormalizeName(sourceName) != "" {
			if entry, ok := r.Bundle.LookupAgencyByName(system, sourceName); ok {
				return &AgencyResolution{CanonID: entry.CanonID, CanonName: entry.CanonName, Reason: ReasonCSVMatchName}
			}
		}
	}
	if match := ApplyRules(r.Rules, system, sourceID, sourceName, channel); match != nil {
		return &AgencyResolution{CanonID: match.CanonID, CanonName: match.CanonName, Reason: match.Reason}
	}
	return nil
}

// ResolveChannel maps a source channel value to its canonical channel,
// falling back to the agency name when the channel is absent.
func (r *Resolver) ResolveChannel(system, channel, agencyName string) string {
	if r.Bundle == nil {
		return ""
	}
	if NormalizeName(channel) != "" {
		if entry, ok := r.Bundle.LookupChannel(system, channel); ok {
			return entry.CanonChannel
		}
		return ""
	}
	if NormalizeName(agencyName) != "" {
		if entry, ok := r.Bundle.LookupChannel(system, agencyName); ok {
			return entry.CanonChannel
		}
	}
	return ""
}

// EnrichedRow is a normalized sales row annotated with canonical identity
// and the reason each mapping decision was made.
type EnrichedRow struct {
	Source          string
	Date            string
	AgencyID        string
	AgencyName      string
	Channel         string
	CanonAgencyID   string
	CanonAgencyName string
	CanonChannel    string
	AgencyReason    string
	Year            int
	GrossSales      float64
	NetSales        float64
}

func (r *Resolver) enrich(row EnrichedRow) EnrichedRow {
	if res := r.ResolveAgency(row.Source, row.AgencyID, row.AgencyName, row.Channel); res != nil {
		row.CanonAgencyID = res.CanonID
		row.CanonAgencyName = res.CanonName
		row.AgencyReason = res.Reason
	}
	row.CanonChannel = r.ResolveChannel(row.Source, row.Channel, row.AgencyName)
	return row
}

// EnrichElectra annotates normalized Electra rows.
func (r *Resolver) EnrichElectra(rows []model.ElectraRow) []EnrichedRow {
	out := make([]EnrichedRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.enrich(EnrichedRow{
			Source:     model.SourceElectra,
			Date:       row.Date,
			Year:       row.Year,
			AgencyID:   row.AgencyID,
			AgencyName: row.AgencyName,
			GrossSales: row.GrossSales,
			NetSales:   row.NetSales,
		}))
	}
	return out
}

// EnrichHotelRunner annotates normalized HotelRunner rows.
func (r *Resolver) EnrichHotelRunner(rows []model.HotelRunnerRow) []EnrichedRow {
	out := make([]EnrichedRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.enrich(EnrichedRow{
			Source:     model.SourceHotelRunner,
			Date:       row.Date,
			Year:       row.Year,
			AgencyID:   row.AgencyID,
			AgencyName: row.AgencyName,
			Channel:    row.Channel,
			GrossSales: row.GrossSales,
			NetSales:   row.NetSales,
		}))
	}
	return out
}

// NewResolver loads the mapping tables and rules from their configured
// paths in one step.
func NewResolver(agenciesPath, channelsPath, rulesPath string) (*Resolver, error) {
	bundle, err := Load(agenciesPath, channelsPath)
	if err != nil {
		return nil, err
	}
	rules, err := LoadRules(rulesPath)
	if err != nil {
		return nil, err
	}
	return &Resolver{Bundle: bundle, Rules: rules}, nil
}
