package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/reconcile"
)

// RenderTable renders a fixed-width text table with a styled header row.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	pad := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			width := 0
			if i < len(widths) {
				width = widths[i]
			}
			parts[i] = TableCellStyle.Render(fmt.Sprintf("%-*s", width, cell))
		}
		return strings.Join(parts, "")
	}

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(pad(headers)))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(pad(row))
		b.WriteString("\n")
	}
	return b.String()
}

func styleStatus(status string) string {
	if status == model.StatusMatch {
		return SuccessStyle.Render(status)
	}
	return ErrorStyle.Render(status)
}

// RenderReconRows renders reconciliation rows with colored statuses.
func RenderReconRows(rows []model.ReconRow, dimensioned bool) string {
	headers := []string{"PERIOD", "ELECTRA", "HOTELRUNNER", "DELTA", "STATUS", "REASON"}
	if dimensioned {
		headers = append([]string{"DIM VALUE"}, headers...)
	}

	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := []string{
			row.Period(),
			fmt.Sprintf("%.2f", row.ElectraGross),
			fmt.Sprintf("%.2f", row.HRGross),
			fmt.Sprintf("%+.2f", row.Delta),
			styleStatus(row.Status),
			row.ReasonCode,
		}
		if dimensioned {
			line = append([]string{row.DimValue}, line...)
		}
		cells = append(cells, line)
	}
	return RenderTable(headers, cells)
}

// RenderYearRollups renders the per-year reconciliation summary.
func RenderYearRollups(rollups []model.YearRollup) string {
	cells := make([][]string, 0, len(rollups))
	for _, r := range rollups {
		cells = append(cells, []string{
			fmt.Sprintf("%d", r.Year),
			fmt.Sprintf("%d", r.MatchCount),
			fmt.Sprintf("%d", r.MismatchCount),
			fmt.Sprintf("%.2f", r.MismatchAbsTotal),
		})
	}
	return RenderTable([]string{"YEAR", "MATCHES", "MISMATCHES", "MISMATCH ABS TOTAL"}, cells)
}

// RenderAnomalies renders anomaly records, most severe styling on type.
func RenderAnomalies(anomalies []model.AnomalyRecord) string {
	cells := make([][]string, 0, len(anomalies))
	for _, a := range anomalies {
		anomalyType := a.AnomalyType
		switch anomalyType {
		case model.AnomalySpike, model.AnomalyDrop:
			anomalyType = WarningStyle.Render(anomalyType)
		case model.AnomalyTopMismatchContributor:
			anomalyType = ErrorStyle.Render(anomalyType)
		default:
			anomalyType = InfoStyle.Render(anomalyType)
		}
		cells = append(cells, []string{
			a.Period,
			a.DimValue,
			anomalyType,
			fmt.Sprintf("%.2f", a.SeverityScore),
			a.Explanation,
		})
	}
	return RenderTable([]string{"PERIOD", "DIM VALUE", "TYPE", "SEVERITY", "EXPLANATION"}, cells)
}

// RenderUnknownRates renders mapping coverage metrics per year.
func RenderUnknownRates(metrics []reconcile.UnknownRateMetric) string {
	cells := make([][]string, 0, len(metrics))
	for _, m := range metrics {
		cells = append(cells, []string{
			fmt.Sprintf("%d", m.Year),
			fmt.Sprintf("%.4f", m.RawUnknownRate),
			fmt.Sprintf("%.4f", m.CanonUnknownRate),
			fmt.Sprintf("%.2f%%", m.ImprovementPct),
		})
	}
	return RenderTable([]string{"YEAR", "RAW UNKNOWN", "MAPPED UNKNOWN", "IMPROVEMENT"}, cells)
}
