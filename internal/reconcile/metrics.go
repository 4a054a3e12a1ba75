package reconcile

import (
	"math"
	"sort"

	"github.com/hotelops/recon/internal/mapping"
)

// UnknownRateMetric measures, for one year, how much gross remains
// attributed to unrecognized dimension values before and after the mapping
// engine runs. Rates are fractions of total gross; the improvement is the
// relative reduction in percent.
type UnknownRateMetric struct {
	Year             int
	RawUnknownRate   float64
	CanonUnknownRate float64
	ImprovementPct   float64
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// UnknownRateImprovement runs the by-dimension attribution twice, once with
// raw source values and once through the mapping engine, and reports the
// share of gross landing on unrecognized dimension values in each mode.
func UnknownRateImprovement(years []int, dim, electraRoot, hrRoot string, resolver *mapping.Resolver) ([]UnknownRateMetric, error) {
	dimClean, err := validateDim(dim)
	if err != nil {
		return nil, err
	}
	yearsNorm := uniqueSortedYears(years)

	known := map[string]bool{}
	if dimClean == DimAgency {
		if resolver.Bundle != nil {
			known = resolver.Bundle.CanonAgencyValues()
		}
	} else {
		for c := range mapping.ValidCanonChannels {
			known[c] = true
		}
	}

	collect := func(mode string) (map[dimKey]float64, error) {
		electra, err := readElectraDailyByDim(yearsNorm, electraRoot, dimClean, resolver, mode)
		if err != nil {
			return nil, err
		}
		hr, err := readHotelRunnerDailyByDim(yearsNorm, hrRoot, dimClean, resolver, mode)
		if err != nil {
			return nil, err
		}
		for k, v := range hr {
			electra[k] += v
		}
		return electra, nil
	}

	raw, err := collect(DimModeRaw)
	if err != nil {
		return nil, err
	}
	canon, err := collect(DimModeCanonical)
	if err != nil {
		return nil, err
	}

	type yearAgg struct {
		total        float64
		rawUnknown   float64
		canonUnknown float64
	}
	byYear := map[int]*yearAgg{}
	agg := func(year int) *yearAgg {
		a, ok := byYear[year]
		if !ok {
			a = &yearAgg{}
			byYear[year] = a
		}
		return a
	}
	for k, gross := range raw {
		a := agg(k.year)
		a.total += math.Abs(gross)
		if !known[k.dim] {
			a.rawUnknown += math.Abs(gross)
		}
	}
	for k, gross := range canon {
		if !known[k.dim] {
			agg(k.year).canonUnknown += math.Abs(gross)
		}
	}

	out := make([]UnknownRateMetric, 0, len(byYear))
	for year, a := range byYear {
		m := UnknownRateMetric{Year: year}
		if a.total > 0 {
			m.RawUnknownRate = round4(a.rawUnknown / a.total)
			m.CanonUnknownRate = round4(a.canonUnknown / a.total)
		}
		if m.RawUnknownRate > 0 {
			m.ImprovementPct = round2((m.RawUnknownRate - m.CanonUnknownRate) / m.RawUnknownRate * 100)
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}
