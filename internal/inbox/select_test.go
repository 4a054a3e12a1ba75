package inbox

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/pipeline"
)

func candidate(source, reportType, date, name string, mtime time.Time) model.InboxCandidate {
	d, _ := time.Parse("2006-01-02", date)
	return model.InboxCandidate{
		Source:     source,
		ReportType: reportType,
		ReportDate: d,
		Path:       filepath.Join("inbox", source, name),
		MTime:      mtime,
	}
}

func TestSelectNewestForYears_TieBreaks(t *testing.T) {
	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		candidates []model.InboxCandidate
		wantPath   string
	}{
		{
			name: "newest report date wins",
			candidates: []model.InboxCandidate{
				candidate(model.SourceElectra, model.ReportSalesSummary, "2025-05-31", "electra_sales_summary_2025-05-31.csv", base),
				candidate(model.SourceElectra, model.ReportSalesSummary, "2025-06-30", "electra_sales_summary_2025-06-30.csv", base.Add(-time.Hour)),
			},
			wantPath: "electra_sales_summary_2025-06-30.csv",
		},
		{
			name: "same date falls back to mtime",
			candidates: []model.InboxCandidate{
				candidate(model.SourceElectra, model.ReportSalesSummary, "2025-06-30", "electra_sales_summary_2025-06-30.csv", base),
				candidate(model.SourceElectra, model.ReportSalesSummary, "2025-06-30", "electra_sales_summary_2025-06-30 (1).csv", base.Add(time.Hour)),
			},
			wantPath: "electra_sales_summary_2025-06-30 (1).csv",
		},
		{
			name: "same date and mtime falls back to filename descending",
			candidates: []model.InboxCandidate{
				candidate(model.SourceElectra, model.ReportSalesSummary, "2025-06-30", "a_electra_sales_summary_2025-06-30.csv", base),
				candidate(model.SourceElectra, model.ReportSalesSummary, "2025-06-30", "b_electra_sales_summary_2025-06-30.csv", base),
			},
			wantPath: "b_electra_sales_summary_2025-06-30.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected, err := SelectNewestForYears(tt.candidates, []int{2025}, false)
			require.NoError(t, err)
			require.Len(t, selected, 1)
			assert.Equal(t, tt.wantPath, filepath.Base(selected[0].Path))
		})
	}
}

func TestSelectNewestForYears_CompletenessError(t *testing.T) {
	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	candidates := []model.InboxCandidate{
		candidate(model.SourceElectra, model.ReportSalesSummary, "2025-06-30", "electra_sales_summary_2025-06-30.csv", base),
		candidate(model.SourceHotelRunner, model.ReportDailySales, "2024-12-31", "hotelrunner_daily_sales_2024-12-31.csv", base),
	}

	_, err := SelectNewestForYears(candidates, []int{2025}, true)
	require.Error(t, err)
	assert.True(t, pipeline.IsKind(err, pipeline.KindMissingReports))
	assert.Contains(t, err.Error(), "electra:sales_by_agency:2025")
	assert.Contains(t, err.Error(), "hotelrunner:daily_sales:2025")
	assert.Contains(t, err.Error(), "available: 2024, 2025")
}

func TestSelectNewestForYears_EmptyInbox(t *testing.T) {
	_, err := SelectNewestForYears(nil, []int{2025}, true)
	require.Error(t, err)
	assert.True(t, pipeline.IsKind(err, pipeline.KindNoFiles))
}

func TestSelectNewestForYears_RequiresYears(t *testing.T) {
	_, err := SelectNewestForYears(nil, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one year is required")
}

func TestSelectNewestForYears_DeterministicOrder(t *testing.T) {
	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	candidates := []model.InboxCandidate{
		candidate(model.SourceHotelRunner, model.ReportDailySales, "2025-06-30", "hotelrunner_daily_sales_2025-06-30.csv", base),
		candidate(model.SourceElectra, model.ReportSalesSummary, "2025-06-30", "electra_sales_summary_2025-06-30.csv", base),
		candidate(model.SourceElectra, model.ReportSalesByAgency, "2025-06-30", "electra_sales_by_agency_2025-06-30.csv", base),
	}

	selected, err := SelectNewestForYears(candidates, []int{2025}, true)
	require.NoError(t, err)
	require.Len(t, selected, 3)
	assert.Equal(t, model.ReportSalesByAgency, selected[0].ReportType)
	assert.Equal(t, model.ReportSalesSummary, selected[1].ReportType)
	assert.Equal(t, model.SourceHotelRunner, selected[2].Source)
}
