package reconcile

import (
	"math"
	"sort"

	"github.com/hotelops/recon/internal/model"
)

// YearRollups aggregates reconciliation rows into per-year match/mismatch
// counts and the total absolute mismatch amount, sorted by year.
func YearRollups(rows []model.ReconRow) []model.YearRollup {
	byYear := map[int]*model.YearRollup{}
	for _, row := range rows {
		agg, ok := byYear[row.Year]
		if !ok {
			agg = &model.YearRollup{Year: row.Year}
			byYear[row.Year] = agg
		}
		if row.Status == model.StatusMatch {
			agg.MatchCount++
		} else {
			agg.MismatchCount++
			agg.MismatchAbsTotal += math.Abs(row.Delta)
		}
	}

	out := make([]model.YearRollup, 0, len(byYear))
	for _, agg := range byYear {
		agg.MismatchAbsTotal = round2(agg.MismatchAbsTotal)
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
