// Package analytics summarizes normalized Electra sales: per-year totals,
// per-agency totals, and consistency checks between the agency breakdown
// and the TOTAL sentinel rows.
package analytics

import (
	"math"
	"path/filepath"
	"sort"

	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/normalize"
	"github.com/hotelops/recon/internal/pipeline"
)

// crossCheckTolerance bounds the allowed drift between summed per-agency
// gross and the TOTAL sentinel gross for one day.
const crossCheckTolerance = 1e-6

// YearSummary is the per-year Electra rollup from TOTAL sentinel rows.
type YearSummary struct {
	Year       int
	Days       int
	GrossTotal float64
	NetTotal   float64
}

// AgencyTotal is one agency's gross and net across a year.
type AgencyTotal struct {
	Year       int
	AgencyID   string
	AgencyName string
	GrossTotal float64
	NetTotal   float64
}

// CrossCheckIssue is one day where the agency breakdown disagrees with the
// TOTAL sentinel beyond tolerance.
type CrossCheckIssue struct {
	Year        int
	Date        string
	TotalGross  float64
	AgencyGross float64
	Delta       float64
}

// Report bundles the Electra analytics output for a set of years.
type Report struct {
	Summaries    []YearSummary
	AgencyTotals []AgencyTotal
	Issues       []CrossCheckIssue
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func readYears(years []int, normalizedRoot string) (map[int][]model.ElectraRow, error) {
	if err := normalize.ValidateYearsExist(model.SourceElectra, years, normalizedRoot); err != nil {
		return nil, err
	}
	out := map[int][]model.ElectraRow{}
	for _, year := range years {
		rows, err := normalize.ReadElectraYear(filepath.Join(normalizedRoot, normalize.ElectraYearFile(year)))
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row.GrossSales < 0 {
				return nil, pipeline.Errorf(pipeline.KindReconcile,
					"negative gross_sales in normalized data: year=%d date=%s agency=%s",
					year, row.Date, row.AgencyID)
			}
		}
		out[year] = rows
	}
	return out, nil
}

// crossCheck compares per-day agency sums against the TOTAL sentinel. Years
// carrying only one side of the data (summary-only or breakdown-only) are
// skipped: there is nothing to compare.
func crossCheck(year int, rows []model.ElectraRow) []CrossCheckIssue {
	totals := map[string]float64{}
	agencies := map[string]float64{}
	hasTotal, hasAgency := false, false
	for _, row := range rows {
		if row.AgencyID == model.TotalAgencyID {
			totals[row.Date] += row.GrossSales
			hasTotal = true
		} else {
			agencies[row.Date] += row.GrossSales
			hasAgency = true
		}
	}
	if !hasTotal || !hasAgency {
		return nil
	}

	dates := map[string]bool{}
	for d := range totals {
		dates[d] = true
	}
	for d := range agencies {
		dates[d] = true
	}
	ordered := make([]string, 0, len(dates))
	for d := range dates {
		ordered = append(ordered, d)
	}
	sort.Strings(ordered)

	var issues []CrossCheckIssue
	for _, date := range ordered {
		// Only days present on both sides are comparable.
		total, hasT := totals[date]
		agency, hasA := agencies[date]
		if !hasT || !hasA {
			continue
		}
		delta := total - agency
		if math.Abs(delta) > crossCheckTolerance {
			issues = append(issues, CrossCheckIssue{
				Year:        year,
				Date:        date,
				TotalGross:  round2(total),
				AgencyGross: round2(agency),
				Delta:       round2(delta),
			})
		}
	}
	return issues
}

// Summarize computes the Electra analytics report for the given years.
func Summarize(years []int, normalizedRoot string) (*Report, error) {
	byYear, err := readYears(years, normalizedRoot)
	if err != nil {
		return nil, err
	}
	orderedYears := make([]int, 0, len(byYear))
	for y := range byYear {
		orderedYears = append(orderedYears, y)
	}
	sort.Ints(orderedYears)

	report := &Report{}
	for _, year := range orderedYears {
		rows := byYear[year]

		summary := YearSummary{Year: year}
		days := map[string]bool{}
		type agencyKey struct {
			id   string
			name string
		}
		agencyAgg := map[agencyKey]*AgencyTotal{}
		for _, row := range rows {
			if row.AgencyID == model.TotalAgencyID {
				summary.GrossTotal += row.GrossSales
				summary.NetTotal += row.NetSales
				days[row.Date] = true
				continue
			}
			k := agencyKey{row.AgencyID, row.AgencyName}
			agg, ok := agencyAgg[k]
			if !ok {
				agg = &AgencyTotal{Year: year, AgencyID: row.AgencyID, AgencyName: row.AgencyName}
				agencyAgg[k] = agg
			}
			agg.GrossTotal += row.GrossSales
			agg.NetTotal += row.NetSales
		}
		summary.Days = len(days)
		summary.GrossTotal = round2(summary.GrossTotal)
		summary.NetTotal = round2(summary.NetTotal)
		report.Summaries = append(report.Summaries, summary)

		totals := make([]AgencyTotal, 0, len(agencyAgg))
		for _, agg := range agencyAgg {
			agg.GrossTotal = round2(agg.GrossTotal)
			agg.NetTotal = round2(agg.NetTotal)
			totals = append(totals, *agg)
		}
		sort.Slice(totals, func(i, j int) bool {
			if totals[i].GrossTotal != totals[j].GrossTotal {
				return totals[i].GrossTotal > totals[j].GrossTotal
			}
			return totals[i].AgencyID < totals[j].AgencyID
		})
		report.AgencyTotals = append(report.AgencyTotals, totals...)

		report.Issues = append(report.Issues, crossCheck(year, rows)...)
	}
	return report, nil
}
