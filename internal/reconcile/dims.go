package reconcile

import (
	"path/filepath"
	"sort"

	"github.com/hotelops/recon/internal/mapping"
	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/normalize"
)

type dimKey struct {
	year int
	date string
	dim  string
}

// electraDimValue picks the dimension value for one enriched Electra row.
// TOTAL sentinel rows never contribute to a dimension.
func electraDimValue(row mapping.EnrichedRow, dim string) string {
	if row.AgencyID == model.TotalAgencyID {
		return ""
	}
	if dim == DimAgency {
		if row.CanonAgencyID != "" {
			return row.CanonAgencyID
		}
		if row.CanonAgencyName != "" {
			return row.CanonAgencyName
		}
		if row.AgencyID != "" {
			return row.AgencyID
		}
		return row.AgencyName
	}
	if row.CanonChannel != "" {
		return row.CanonChannel
	}
	return row.AgencyName
}

func hotelRunnerDimValue(row mapping.EnrichedRow, dim string) string {
	if dim == DimAgency {
		if row.CanonAgencyID != "" {
			return row.CanonAgencyID
		}
		if row.CanonAgencyName != "" {
			return row.CanonAgencyName
		}
		if row.AgencyID != "" {
			return row.AgencyID
		}
		if row.AgencyName != "" {
			return row.AgencyName
		}
		if row.Channel != "" {
			return normalize.SlugifyAgencyID(row.Channel)
		}
		return ""
	}
	if row.CanonChannel != "" {
		return row.CanonChannel
	}
	if row.Channel != "" {
		return row.Channel
	}
	return row.AgencyName
}

func enrichForMode(resolver *mapping.Resolver, mode string, enrich func(*mapping.Resolver) []mapping.EnrichedRow) []mapping.EnrichedRow {
	if mode == DimModeRaw {
		// Raw mode keeps source-native dimension values: enrich with an
		// empty resolver so no canonical fields attach.
		return enrich(&mapping.Resolver{})
	}
	return enrich(resolver)
}

func readElectraDailyByDim(years []int, normalizedRoot, dim string, resolver *mapping.Resolver, mode string) (map[dimKey]float64, error) {
	if err := normalize.ValidateYearsExist(model.SourceElectra, years, normalizedRoot); err != nil {
		return nil, err
	}
	out := map[dimKey]float64{}
	for _, year := range years {
		rows, err := normalize.ReadElectraYear(filepath.Join(normalizedRoot, normalize.ElectraYearFile(year)))
		if err != nil {
			return nil, err
		}
		enriched := enrichForMode(resolver, mode, func(r *mapping.Resolver) []mapping.EnrichedRow {
			return r.EnrichElectra(rows)
		})
		for _, row := range enriched {
			dimValue := electraDimValue(row, dim)
			if dimValue == "" {
				continue
			}
			out[dimKey{year, row.Date, dimValue}] += row.GrossSales
		}
	}
	return out, nil
}

func readHotelRunnerDailyByDim(years []int, normalizedRoot, dim string, resolver *mapping.Resolver, mode string) (map[dimKey]float64, error) {
	if err := normalize.ValidateYearsExist(model.SourceHotelRunner, years, normalizedRoot); err != nil {
		return nil, err
	}
	out := map[dimKey]float64{}
	for _, year := range years {
		rows, err := normalize.ReadHotelRunnerYear(filepath.Join(normalizedRoot, normalize.HotelRunnerYearFile(year)))
		if err != nil {
			return nil, err
		}
		enriched := enrichForMode(resolver, mode, func(r *mapping.Resolver) []mapping.EnrichedRow {
			return r.EnrichHotelRunner(rows)
		})
		for _, row := range enriched {
			dimValue := hotelRunnerDimValue(row, dim)
			if dimValue == "" {
				continue
			}
			out[dimKey{year, row.Date, dimValue}] += row.GrossSales
		}
	}
	return out, nil
}

// ByDimDaily reconciles daily gross sales split by canonical (or raw)
// agency/channel dimension values, running the full reason cascade per
// (year, dim_value) trajectory.
func ByDimDaily(years []int, dim string, electraRoot, hrRoot string, resolver *mapping.Resolver, mode string) ([]model.ReconRow, []model.YearRollup, error) {
	dimClean, err := validateDim(dim)
	if err != nil {
		return nil, nil, err
	}
	if mode == "" {
		mode = DimModeCanonical
	}
	yearsNorm := uniqueSortedYears(years)

	electraByDim, err := readElectraDailyByDim(yearsNorm, electraRoot, dimClean, resolver, mode)
	if err != nil {
		return nil, nil, err
	}
	hrByDim, err := readHotelRunnerDailyByDim(yearsNorm, hrRoot, dimClean, resolver, mode)
	if err != nil {
		return nil, nil, err
	}

	keys := map[dimKey]bool{}
	for k := range electraByDim {
		keys[k] = true
	}
	for k := range hrByDim {
		keys[k] = true
	}
	ordered := make([]dimKey, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.year != b.year {
			return a.year < b.year
		}
		if a.date != b.date {
			return a.date < b.date
		}
		return a.dim < b.dim
	})

	rows := make([]model.ReconRow, 0, len(ordered))
	for _, k := range ordered {
		electraGross := round2(electraByDim[k])
		hrGross := round2(hrByDim[k])
		delta := round2(electraGross - hrGross)
		status := statusFromDelta(delta)
		reason := model.ReasonUnknown
		if status == model.StatusMatch {
			reason = model.ReasonRounding
		}
		rows = append(rows, model.ReconRow{
			Date:         k.date,
			Year:         k.year,
			DimValue:     k.dim,
			ElectraGross: electraGross,
			HRGross:      hrGross,
			Delta:        delta,
			Status:       status,
			ReasonCode:   reason,
		})
	}

	classifyDaily(rows)
	return rows, YearRollups(rows), nil
}

// ByDimMonthly aggregates the daily by-dimension rows to months and
// re-derives status. Monthly reasons stay ROUNDING/UNKNOWN: adjacent-day
// timing evidence does not survive aggregation.
func ByDimMonthly(years []int, dim string, electraRoot, hrRoot string, resolver *mapping.Resolver, mode string) ([]model.ReconRow, []model.YearRollup, error) {
	daily, _, err := ByDimDaily(years, dim, electraRoot, hrRoot, resolver, mode)
	if err != nil {
		return nil, nil, err
	}

	type monthKey struct {
		year  int
		month string
		dim   string
	}
	type monthAgg struct {
		electra float64
		hr      float64
	}
	byMonth := map[monthKey]*monthAgg{}
	for _, row := range daily {
		month := row.Date
		if len(month) > 7 {
			month = month[:7]
		}
		k := monthKey{row.Year, month, row.DimValue}
		agg, ok := byMonth[k]
		if !ok {
			agg = &monthAgg{}
			byMonth[k] = agg
		}
		agg.electra += row.ElectraGross
		agg.hr += row.HRGross
	}

	ordered := make([]monthKey, 0, len(byMonth))
	for k := range byMonth {
		ordered = append(ordered, k)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.year != b.year {
			return a.year < b.year
		}
		if a.month != b.month {
			return a.month < b.month
		}
		return a.dim < b.dim
	})

	rows := make([]model.ReconRow, 0, len(ordered))
	for _, k := range ordered {
		agg := byMonth[k]
		electraGross := round2(agg.electra)
		hrGross := round2(agg.hr)
		delta := round2(electraGross - hrGross)
		status := statusFromDelta(delta)
		reason := model.ReasonUnknown
		if status == model.StatusMatch {
			reason = model.ReasonRounding
		}
		rows = append(rows, model.ReconRow{
			Month:        k.month,
			Year:         k.year,
			DimValue:     k.dim,
			ElectraGross: electraGross,
			HRGross:      hrGross,
			Delta:        delta,
			Status:       status,
			ReasonCode:   reason,
		})
	}
	return rows, YearRollups(rows), nil
}
