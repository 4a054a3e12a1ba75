package reconcile

import (
	"fmt"
	"math"
	"sort"

	"github.com/hotelops/recon/internal/model"
)

// Anomaly detection parameters. The detector compares each period against
// the trailing average of the previous windowSize observed periods and
// flags relative moves beyond spikeThreshold.
const (
	windowSize     = 3
	spikeThreshold = 0.20
	topNMismatch   = 3
)

type seriesPoint struct {
	period string
	value  float64
}

// detectSeriesAnomalies walks one (dim_value, source) series in period order
// and flags spikes and drops against the trailing window average.
func detectSeriesAnomalies(dimValue, seriesName string, points []seriesPoint) []model.AnomalyRecord {
	var out []model.AnomalyRecord
	for i := range points {
		if i < windowSize {
			continue
		}
		sum := 0.0
		for _, p := range points[i-windowSize : i] {
			sum += p.value
		}
		avg := sum / windowSize
		if avg <= 0 {
			continue
		}
		pct := (points[i].value - avg) / avg
		if math.Abs(pct) <= spikeThreshold {
			continue
		}
		anomalyType := model.AnomalySpike
		if pct < 0 {
			anomalyType = model.AnomalyDrop
		}
		out = append(out, model.AnomalyRecord{
			Period:      points[i].period,
			DimValue:    dimValue,
			AnomalyType: anomalyType,
			Explanation: fmt.Sprintf("%s gross %.2f vs trailing %d-period avg %.2f (%+.1f%%)",
				seriesName, points[i].value, windowSize, avg, pct*100),
			SeverityScore: round2(math.Abs(pct) * 100),
		})
	}
	return out
}

// DetectAnomalies flags irregularities in dimensioned reconciliation rows:
// spikes and drops against the trailing window, dimension values appearing
// mid-series, and the largest mismatch contributors per period.
func DetectAnomalies(rows []model.ReconRow) []model.AnomalyRecord {
	var out []model.AnomalyRecord

	periods := map[string]bool{}
	for _, row := range rows {
		periods[row.Period()] = true
	}
	orderedPeriods := make([]string, 0, len(periods))
	for p := range periods {
		orderedPeriods = append(orderedPeriods, p)
	}
	sort.Strings(orderedPeriods)
	firstPeriod := ""
	if len(orderedPeriods) > 0 {
		firstPeriod = orderedPeriods[0]
	}

	type series struct {
		electra []seriesPoint
		hr      []seriesPoint
	}
	byDim := map[string]*series{}
	firstSeen := map[string]model.ReconRow{}
	dims := []string{}
	for _, row := range sortedByPeriod(rows) {
		if row.DimValue == "" {
			continue
		}
		s, ok := byDim[row.DimValue]
		if !ok {
			s = &series{}
			byDim[row.DimValue] = s
			firstSeen[row.DimValue] = row
			dims = append(dims, row.DimValue)
		}
		s.electra = append(s.electra, seriesPoint{row.Period(), row.ElectraGross})
		s.hr = append(s.hr, seriesPoint{row.Period(), row.HRGross})
	}
	sort.Strings(dims)

	for _, dim := range dims {
		s := byDim[dim]
		out = append(out, detectSeriesAnomalies(dim, model.SourceElectra, s.electra)...)
		out = append(out, detectSeriesAnomalies(dim, model.SourceHotelRunner, s.hr)...)

		first := firstSeen[dim]
		if first.Period() != firstPeriod {
			out = append(out, model.AnomalyRecord{
				Period:      first.Period(),
				DimValue:    dim,
				AnomalyType: model.AnomalyNewDimValue,
				Explanation: fmt.Sprintf("dimension value first observed in %s", first.Period()),
				SeverityScore: round2(math.Max(
					math.Abs(first.ElectraGross), math.Abs(first.HRGross))),
			})
		}
	}

	out = append(out, topMismatchContributors(rows)...)

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.DimValue != b.DimValue {
			return a.DimValue < b.DimValue
		}
		if a.AnomalyType != b.AnomalyType {
			return a.AnomalyType < b.AnomalyType
		}
		return a.SeverityScore > b.SeverityScore
	})
	return out
}

// topMismatchContributors ranks mismatched rows per period by absolute
// delta and flags the largest contributors.
func topMismatchContributors(rows []model.ReconRow) []model.AnomalyRecord {
	byPeriod := map[string][]model.ReconRow{}
	for _, row := range rows {
		if row.Status != model.StatusMismatch || row.DimValue == "" {
			continue
		}
		byPeriod[row.Period()] = append(byPeriod[row.Period()], row)
	}

	var out []model.AnomalyRecord
	for period, mismatches := range byPeriod {
		sort.Slice(mismatches, func(i, j int) bool {
			di, dj := math.Abs(mismatches[i].Delta), math.Abs(mismatches[j].Delta)
			if di != dj {
				return di > dj
			}
			return mismatches[i].DimValue < mismatches[j].DimValue
		})
		if len(mismatches) > topNMismatch {
			mismatches = mismatches[:topNMismatch]
		}
		for rank, row := range mismatches {
			out = append(out, model.AnomalyRecord{
				Period:      period,
				DimValue:    row.DimValue,
				AnomalyType: model.AnomalyTopMismatchContributor,
				Explanation: fmt.Sprintf("rank %d mismatch contributor: delta %+.2f (%s)",
					rank+1, row.Delta, row.ReasonCode),
				SeverityScore: round2(math.Abs(row.Delta)),
			})
		}
	}
	return out
}

func sortedByPeriod(rows []model.ReconRow) []model.ReconRow {
	out := make([]model.ReconRow, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period() != out[j].Period() {
			return out[i].Period() < out[j].Period()
		}
		return out[i].DimValue < out[j].DimValue
	})
	return out
}
