// Package reconcile computes and explains daily/monthly discrepancies
// between Electra and HotelRunner gross sales. All functions are pure
// reads over normalized data: no state survives a run.
package reconcile

import (
	"math"
	"path/filepath"
	"sort"

	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/normalize"
	"github.com/hotelops/recon/internal/pipeline"
)

// Classification tolerances. Deltas are dollars after rounding to cents.
const (
	roundingTolerance = 1.00
	timingTolerance   = 1.00
	feeTargetRatio    = 0.03
	feeRatioTolerance = 0.0025
	feeMinBase        = 20.00
)

// Dimensions the engine can split on.
const (
	DimAgency  = "agency"
	DimChannel = "channel"
)

// Dimension value modes: canonical applies the mapping engine; raw keeps
// source-native values (used for unknown-rate baselines).
const (
	DimModeCanonical = "canonical"
	DimModeRaw       = "raw"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func validateDim(dim string) (string, error) {
	if dim != DimAgency && dim != DimChannel {
		return "", pipeline.Errorf(pipeline.KindReconcile,
			"unsupported dim: %s; expected one of [agency, channel]", dim)
	}
	return dim, nil
}

func uniqueSortedYears(years []int) []int {
	set := map[int]bool{}
	for _, y := range years {
		set[y] = true
	}
	out := make([]int, 0, len(set))
	for y := range set {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

type dayKey struct {
	year int
	date string
}

// readElectraDailyTotals sums Electra TOTAL sentinel rows per day. A year
// without TOTAL rows is an error: the summary side is required.
func readElectraDailyTotals(years []int, normalizedRoot string) (map[dayKey]float64, error) {
	if err := normalize.ValidateYearsExist(model.SourceElectra, years, normalizedRoot); err != nil {
		return nil, err
	}
	out := map[dayKey]float64{}
	for _, year := range years {
		path := filepath.Join(normalizedRoot, normalize.ElectraYearFile(year))
		rows, err := normalize.ReadElectraYear(path)
		if err != nil {
			return nil, err
		}
		found := false
		for _, row := range rows {
			if row.AgencyID != model.TotalAgencyID {
				continue
			}
			found = true
			out[dayKey{year, row.Date}] += row.GrossSales
		}
		if !found {
			return nil, pipeline.Errorf(pipeline.KindReconcile,
				"electra TOTAL rows missing for year=%d: %s", year, path)
		}
	}
	return out, nil
}

func readHotelRunnerDailyTotals(years []int, normalizedRoot string) (map[dayKey]float64, error) {
	if err := normalize.ValidateYearsExist(model.SourceHotelRunner, years, normalizedRoot); err != nil {
		return nil, err
	}
	out := map[dayKey]float64{}
	for _, year := range years {
		rows, err := normalize.ReadHotelRunnerYear(filepath.Join(normalizedRoot, normalize.HotelRunnerYearFile(year)))
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out[dayKey{year, row.Date}] += row.GrossSales
		}
	}
	return out, nil
}

func statusFromDelta(delta float64) string {
	if math.Abs(delta) <= roundingTolerance {
		return model.StatusMatch
	}
	return model.StatusMismatch
}

func isTimingPair(delta, neighborDelta float64) bool {
	if math.Abs(delta) <= roundingTolerance || math.Abs(neighborDelta) <= roundingTolerance {
		return false
	}
	return math.Abs(delta+neighborDelta) <= timingTolerance
}

// isFeeLike reports whether the delta looks like a ~3% commission against
// either side's gross. Bases under the noise floor are ignored.
func isFeeLike(delta, electraGross, hrGross float64) bool {
	amount := math.Abs(delta)
	if amount <= roundingTolerance {
		return false
	}
	for _, base := range []float64{math.Abs(electraGross), math.Abs(hrGross)} {
		if base < feeMinBase {
			continue
		}
		if math.Abs(amount/base-feeTargetRatio) <= feeRatioTolerance {
			return true
		}
	}
	return false
}

// classifyDaily applies the TIMING and FEE cascade over daily rows grouped
// by (year, dim_value). Rows arrive with ROUNDING/UNKNOWN pre-set from
// their MATCH status; only unexplained mismatches are reclassified.
func classifyDaily(rows []model.ReconRow) {
	type bucketKey struct {
		year int
		dim  string
	}
	buckets := map[bucketKey][]*model.ReconRow{}
	for i := range rows {
		k := bucketKey{rows[i].Year, rows[i].DimValue}
		buckets[k] = append(buckets[k], &rows[i])
	}

	for _, bucket := range buckets {
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].Date < bucket[j].Date })
		for idx, row := range bucket {
			if row.Status != model.StatusMismatch {
				continue
			}
			timing := false
			if idx > 0 && isTimingPair(row.Delta, bucket[idx-1].Delta) {
				timing = true
			}
			if idx+1 < len(bucket) && isTimingPair(row.Delta, bucket[idx+1].Delta) {
				timing = true
			}
			if timing {
				row.ReasonCode = model.ReasonTiming
			}
		}
		for _, row := range bucket {
			if row.Status != model.StatusMismatch || row.ReasonCode != model.ReasonUnknown {
				continue
			}
			if isFeeLike(row.Delta, row.ElectraGross, row.HRGross) {
				row.ReasonCode = model.ReasonFee
			}
		}
	}
}

// Daily reconciles daily gross sales between the sources using Electra's
// TOTAL sentinel rows against HotelRunner's per-booking sums.
func Daily(years []int, electraRoot, hrRoot string) ([]model.ReconRow, []model.YearRollup, error) {
	yearsNorm := uniqueSortedYears(years)
	electraByDay, err := readElectraDailyTotals(yearsNorm, electraRoot)
	if err != nil {
		return nil, nil, err
	}
	hrByDay, err := readHotelRunnerDailyTotals(yearsNorm, hrRoot)
	if err != nil {
		return nil, nil, err
	}

	keys := map[dayKey]bool{}
	for k := range electraByDay {
		keys[k] = true
	}
	for k := range hrByDay {
		keys[k] = true
	}
	ordered := make([]dayKey, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].year != ordered[j].year {
			return ordered[i].year < ordered[j].year
		}
		return ordered[i].date < ordered[j].date
	})

	rows := make([]model.ReconRow, 0, len(ordered))
	for _, k := range ordered {
		electraGross := round2(electraByDay[k])
		hrGross := round2(hrByDay[k])
		delta := round2(electraGross - hrGross)
		status := statusFromDelta(delta)
		reason := model.ReasonUnknown
		if status == model.StatusMatch {
			reason = model.ReasonRounding
		}
		rows = append(rows, model.ReconRow{
			Date:         k.date,
			Year:         k.year,
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

// Monthly reconciles monthly gross sales. Monthly totals carry status only;
// the TIMING/FEE cascade is a daily concept.
func Monthly(years []int, electraRoot, hrRoot string) ([]model.ReconRow, []model.YearRollup, error) {
	yearsNorm := uniqueSortedYears(years)
	electraByDay, err := readElectraDailyTotals(yearsNorm, electraRoot)
	if err != nil {
		return nil, nil, err
	}
	hrByDay, err := readHotelRunnerDailyTotals(yearsNorm, hrRoot)
	if err != nil {
		return nil, nil, err
	}

	type monthKey struct {
		year  int
		month string
	}
	type monthAgg struct {
		electra float64
		hr      float64
	}
	byMonth := map[monthKey]*monthAgg{}
	addDay := func(k dayKey, electra, hr float64) {
		month := k.date
		if len(month) > 7 {
			month = month[:7]
		}
		mk := monthKey{k.year, month}
		agg, ok := byMonth[mk]
		if !ok {
			agg = &monthAgg{}
			byMonth[mk] = agg
		}
		agg.electra += electra
		agg.hr += hr
	}
	seen := map[dayKey]bool{}
	for k, v := range electraByDay {
		addDay(k, v, hrByDay[k])
		seen[k] = true
	}
	for k, v := range hrByDay {
		if !seen[k] {
			addDay(k, 0, v)
		}
	}

	ordered := make([]monthKey, 0, len(byMonth))
	for k := range byMonth {
		ordered = append(ordered, k)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].year != ordered[j].year {
			return ordered[i].year < ordered[j].year
		}
		return ordered[i].month < ordered[j].month
	})

	rows := make([]model.ReconRow, 0, len(ordered))
	for _, k := range ordered {
		agg := byMonth[k]
		electraGross := round2(agg.electra)
		hrGross := round2(agg.hr)
		delta := round2(electraGross - hrGross)
		rows = append(rows, model.ReconRow{
			Month:        k.month,
			Year:         k.year,
			ElectraGross: electraGross,
			HRGross:      hrGross,
			Delta:        delta,
			Status:       statusFromDelta(delta),
		})
	}
	return rows, YearRollups(rows), nil
}
