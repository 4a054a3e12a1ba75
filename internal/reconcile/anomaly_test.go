package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelops/recon/internal/model"
)

func monthRow(month, dim string, electra, hr float64) model.ReconRow {
	delta := round2(electra - hr)
	status := statusFromDelta(delta)
	return model.ReconRow{
		Month: month, Year: 2025, DimValue: dim,
		ElectraGross: electra, HRGross: hr, Delta: delta, Status: status,
	}
}

func TestDetectAnomalies_SpikeDropAndNewDim(t *testing.T) {
	rows := []model.ReconRow{
		monthRow("2025-01", "AG001", 100, 100),
		monthRow("2025-02", "AG001", 100, 100),
		monthRow("2025-03", "AG001", 100, 100),
		monthRow("2025-04", "AG001", 150, 150),
		monthRow("2025-05", "AG001", 80, 80),
		monthRow("2025-03", "AG002", 50, 50),
		monthRow("2025-04", "AG002", 50, 50),
	}

	// Electra and HotelRunner track each other here, so every series
	// anomaly fires once per source.
	anomalies := DetectAnomalies(rows)
	require.Len(t, anomalies, 5)

	newDim := anomalies[0]
	assert.Equal(t, model.AnomalyNewDimValue, newDim.AnomalyType)
	assert.Equal(t, "2025-03", newDim.Period)
	assert.Equal(t, "AG002", newDim.DimValue)
	assert.Equal(t, "dimension value first observed in 2025-03", newDim.Explanation)
	assert.InDelta(t, 50.00, newDim.SeverityScore, 1e-9)

	for _, spike := range anomalies[1:3] {
		assert.Equal(t, model.AnomalySpike, spike.AnomalyType)
		assert.Equal(t, "2025-04", spike.Period)
		assert.Equal(t, "AG001", spike.DimValue)
		assert.InDelta(t, 50.00, spike.SeverityScore, 1e-9, "150 vs trailing avg 100")
		assert.Contains(t, spike.Explanation, "gross 150.00 vs trailing 3-period avg 100.00 (+50.0%)")
	}

	for _, drop := range anomalies[3:5] {
		assert.Equal(t, model.AnomalyDrop, drop.AnomalyType)
		assert.Equal(t, "2025-05", drop.Period)
		assert.InDelta(t, 31.43, drop.SeverityScore, 1e-9, "80 vs trailing avg 116.67")
	}
}

func TestDetectAnomalies_ThresholdIsStrict(t *testing.T) {
	base := []model.ReconRow{
		monthRow("2025-01", "AG001", 100, 100),
		monthRow("2025-02", "AG001", 100, 100),
		monthRow("2025-03", "AG001", 100, 100),
	}

	atThreshold := append(append([]model.ReconRow{}, base...),
		monthRow("2025-04", "AG001", 120, 120))
	assert.Empty(t, DetectAnomalies(atThreshold), "a move of exactly 20% is not flagged")

	pastThreshold := append(append([]model.ReconRow{}, base...),
		monthRow("2025-04", "AG001", 121, 121))
	anomalies := DetectAnomalies(pastThreshold)
	require.Len(t, anomalies, 2)
	assert.Equal(t, model.AnomalySpike, anomalies[0].AnomalyType)
	assert.InDelta(t, 21.00, anomalies[0].SeverityScore, 1e-9)
}

func TestDetectAnomalies_NeedsFullTrailingWindow(t *testing.T) {
	rows := []model.ReconRow{
		monthRow("2025-01", "AG001", 100, 100),
		monthRow("2025-02", "AG001", 100, 100),
		monthRow("2025-03", "AG001", 500, 500),
	}
	assert.Empty(t, DetectAnomalies(rows), "no flags before three trailing periods exist")
}

func TestDetectAnomalies_SkipsNonPositiveBaseline(t *testing.T) {
	rows := []model.ReconRow{
		monthRow("2025-01", "AG001", 0, 0),
		monthRow("2025-02", "AG001", 0, 0),
		monthRow("2025-03", "AG001", 0, 0),
		monthRow("2025-04", "AG001", 500, 500),
	}
	assert.Empty(t, DetectAnomalies(rows))
}

func TestTopMismatchContributors(t *testing.T) {
	rows := []model.ReconRow{
		monthRow("2025-01", "A", 1100, 1000),
		monthRow("2025-01", "B", 940, 1000),
		monthRow("2025-01", "C", 1030, 1000),
		monthRow("2025-01", "D", 1005, 1000),
		monthRow("2025-01", "E", 1000.50, 1000),
	}
	rows[2].ReasonCode = model.ReasonFee

	anomalies := topMismatchContributors(rows)
	require.Len(t, anomalies, 3, "top three by absolute delta; matches excluded")

	assert.Equal(t, "A", anomalies[0].DimValue)
	assert.Equal(t, "rank 1 mismatch contributor: delta +100.00 ()", anomalies[0].Explanation)
	assert.InDelta(t, 100.00, anomalies[0].SeverityScore, 1e-9)

	assert.Equal(t, "B", anomalies[1].DimValue)
	assert.Equal(t, "rank 2 mismatch contributor: delta -60.00 ()", anomalies[1].Explanation)

	assert.Equal(t, "C", anomalies[2].DimValue)
	assert.Contains(t, anomalies[2].Explanation, "(FEE)")
	assert.Equal(t, model.AnomalyTopMismatchContributor, anomalies[2].AnomalyType)
}

func TestDetectAnomalies_SortedOutput(t *testing.T) {
	rows := []model.ReconRow{
		monthRow("2025-01", "A", 100, 100),
		monthRow("2025-02", "A", 100, 100),
		monthRow("2025-03", "A", 100, 100),
		monthRow("2025-04", "A", 200, 100),
		monthRow("2025-04", "B", 50, 50),
	}

	anomalies := DetectAnomalies(rows)
	require.NotEmpty(t, anomalies)
	for i := 1; i < len(anomalies); i++ {
		assert.LessOrEqual(t, anomalies[i-1].Period, anomalies[i].Period)
	}
}
