package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/normalize"
	"github.com/hotelops/recon/internal/pipeline"
)

func electraTotal(date string, gross float64) model.ElectraRow {
	return model.ElectraRow{
		Date: date, Year: 2025,
		AgencyID: model.TotalAgencyID, AgencyName: model.TotalAgencyID,
		GrossSales: gross, Currency: "USD",
	}
}

func hrBooking(date, bookingID string, gross float64) model.HotelRunnerRow {
	return model.HotelRunnerRow{
		Date: date, Year: 2025, BookingID: bookingID,
		AgencyID: "AG001", AgencyName: "Atlas Partners", Channel: "booking.com",
		GrossSales: gross, Currency: "USD",
	}
}

// seedTotals writes normalized files where Electra and HotelRunner disagree
// in four characteristic ways: a sub-dollar delta, an adjacent-day swap, a
// 3% commission-shaped delta, and an unexplained gap.
func seedTotals(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	_, err := normalize.WriteElectraYearly([]model.ElectraRow{
		electraTotal("2025-01-05", 100.75),
		electraTotal("2025-01-10", 150.00),
		electraTotal("2025-01-11", 100.00),
		electraTotal("2025-01-15", 103.00),
		electraTotal("2025-01-20", 107.00),
	}, dir)
	require.NoError(t, err)

	_, err = normalize.WriteHotelRunnerYearly([]model.HotelRunnerRow{
		hrBooking("2025-01-05", "BK-1", 100.00),
		hrBooking("2025-01-10", "BK-2", 100.00),
		hrBooking("2025-01-11", "BK-3", 150.00),
		hrBooking("2025-01-15", "BK-4", 100.00),
		hrBooking("2025-01-20", "BK-5", 100.00),
	}, dir)
	require.NoError(t, err)
	return dir
}

func TestDaily_ReasonCascade(t *testing.T) {
	dir := seedTotals(t)

	rows, rollups, err := Daily([]int{2025}, dir, dir)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	byDate := map[string]model.ReconRow{}
	for _, row := range rows {
		byDate[row.Date] = row
	}

	assert.Equal(t, model.StatusMatch, byDate["2025-01-05"].Status)
	assert.Equal(t, model.ReasonRounding, byDate["2025-01-05"].ReasonCode)

	assert.Equal(t, model.StatusMismatch, byDate["2025-01-10"].Status)
	assert.Equal(t, model.ReasonTiming, byDate["2025-01-10"].ReasonCode)
	assert.Equal(t, model.ReasonTiming, byDate["2025-01-11"].ReasonCode)

	assert.Equal(t, model.ReasonFee, byDate["2025-01-15"].ReasonCode)
	assert.InDelta(t, 3.00, byDate["2025-01-15"].Delta, 1e-9)

	assert.Equal(t, model.ReasonUnknown, byDate["2025-01-20"].ReasonCode)

	require.Len(t, rollups, 1)
	assert.Equal(t, 2025, rollups[0].Year)
	assert.Equal(t, 1, rollups[0].MatchCount)
	assert.Equal(t, 4, rollups[0].MismatchCount)
	assert.InDelta(t, 110.00, rollups[0].MismatchAbsTotal, 1e-9)
}

func TestMonthly_StatusOnly(t *testing.T) {
	dir := seedTotals(t)

	rows, _, err := Monthly([]int{2025}, dir, dir)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "2025-01", rows[0].Month)
	assert.Equal(t, model.StatusMismatch, rows[0].Status)
	assert.Empty(t, rows[0].ReasonCode, "monthly totals carry status only")
	assert.InDelta(t, 560.75, rows[0].ElectraGross, 1e-9)
	assert.InDelta(t, 500.00, rows[0].HRGross, 1e-9)
}

func TestDaily_MissingElectraTotals(t *testing.T) {
	dir := t.TempDir()
	_, err := normalize.WriteElectraYearly([]model.ElectraRow{
		{Date: "2025-01-05", Year: 2025, AgencyID: "AG001", AgencyName: "Atlas Partners", GrossSales: 100, Currency: "USD"},
	}, dir)
	require.NoError(t, err)
	_, err = normalize.WriteHotelRunnerYearly([]model.HotelRunnerRow{
		hrBooking("2025-01-05", "BK-1", 100.00),
	}, dir)
	require.NoError(t, err)

	_, _, err = Daily([]int{2025}, dir, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "electra TOTAL rows missing for year=2025")
}

func TestDaily_MissingNormalizedYear(t *testing.T) {
	_, _, err := Daily([]int{2025}, t.TempDir(), t.TempDir())
	require.Error(t, err)
	assert.True(t, pipeline.IsKind(err, pipeline.KindReconcile))
	assert.Contains(t, err.Error(), "missing [2025]")
}

func TestValidateDim(t *testing.T) {
	_, err := validateDim("region")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dim: region")

	for _, dim := range []string{DimAgency, DimChannel} {
		got, err := validateDim(dim)
		require.NoError(t, err)
		assert.Equal(t, dim, got)
	}
}

func TestIsFeeLike(t *testing.T) {
	tests := []struct {
		name    string
		delta   float64
		electra float64
		hr      float64
		want    bool
	}{
		{"three percent of hr gross", 3.00, 103.00, 100.00, true},
		{"edge of ratio tolerance", 3.25, 200.00, 100.00, true},
		{"ratio off", 7.00, 107.00, 100.00, false},
		{"base below noise floor", 0.45, 15.45, 15.00, false},
		{"within rounding tolerance", 0.90, 30.90, 30.00, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isFeeLike(tt.delta, tt.electra, tt.hr))
		})
	}
}

func TestYearRollups_SortsAndRounds(t *testing.T) {
	rows := []model.ReconRow{
		{Year: 2025, Status: model.StatusMismatch, Delta: -10.005},
		{Year: 2024, Status: model.StatusMatch},
		{Year: 2024, Status: model.StatusMismatch, Delta: 2.5},
	}

	rollups := YearRollups(rows)
	require.Len(t, rollups, 2)
	assert.Equal(t, 2024, rollups[0].Year)
	assert.Equal(t, 1, rollups[0].MatchCount)
	assert.InDelta(t, 2.5, rollups[0].MismatchAbsTotal, 1e-9)
	assert.Equal(t, 2025, rollups[1].Year)
	assert.InDelta(t, 10.01, rollups[1].MismatchAbsTotal, 1e-9)
}
