package inbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelops/recon/internal/config"
	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/pipeline"
)

func selectedFile(t *testing.T, dir, source, reportType, name, content string) model.SelectedInboxFile {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	d, _ := time.Parse("2006-01-02", "2025-06-30")
	return model.SelectedInboxFile{
		Source:     source,
		ReportType: reportType,
		ReportDate: d,
		Year:       2025,
		Path:       path,
	}
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		reportType string
		filename   string
		content    string
		wantErr    string
	}{
		{
			name:       "valid summary",
			source:     model.SourceElectra,
			reportType: model.ReportSalesSummary,
			filename:   "electra_sales_summary_2025-06-30.csv",
			content:    "date,gross_sales\n2025-01-05,100.00\n",
		},
		{
			name:       "valid by agency",
			source:     model.SourceElectra,
			reportType: model.ReportSalesByAgency,
			filename:   "electra_sales_by_agency_2025-06-30.csv",
			content:    "date,agency_id,agency_name,gross_sales\n",
		},
		{
			name:       "valid hotelrunner with channel",
			source:     model.SourceHotelRunner,
			reportType: model.ReportDailySales,
			filename:   "hotelrunner_daily_sales_2025-06-30.csv",
			content:    "date,booking_id,channel,gross_sales\n",
		},
		{
			name:       "valid hotelrunner with agency pair",
			source:     model.SourceHotelRunner,
			reportType: model.ReportDailySales,
			filename:   "hotelrunner_daily_sales_2025-06-30.csv",
			content:    "date,invoice_id,agency_id,agency_name,gross_sales\n",
		},
		{
			name:       "non-csv rejected even when listed as spreadsheet",
			source:     model.SourceElectra,
			reportType: model.ReportSalesSummary,
			filename:   "electra_sales_summary_2025-06-30.xlsx",
			content:    "not a real spreadsheet",
			wantErr:    "ingestion accepts .csv only",
		},
		{
			name:       "aliases do not satisfy the exact-name check",
			source:     model.SourceElectra,
			reportType: model.ReportSalesSummary,
			filename:   "electra_sales_summary_2025-06-30.csv",
			content:    "report_date,gross_revenue\n",
			wantErr:    "missing [date, gross_sales]",
		},
		{
			name:       "empty header",
			source:     model.SourceElectra,
			reportType: model.ReportSalesSummary,
			filename:   "electra_sales_summary_2025-06-30.csv",
			content:    "",
			wantErr:    "CSV header is empty",
		},
		{
			name:       "invalid utf8",
			source:     model.SourceElectra,
			reportType: model.ReportSalesSummary,
			filename:   "electra_sales_summary_2025-06-30.csv",
			content:    "date,gross_sales\n\xff\xfe\n",
			wantErr:    "must be UTF-8 readable",
		},
		{
			name:       "hotelrunner missing id column",
			source:     model.SourceHotelRunner,
			reportType: model.ReportDailySales,
			filename:   "hotelrunner_daily_sales_2025-06-30.csv",
			content:    "date,channel,gross_sales\n",
			wantErr:    "booking_id|invoice_id",
		},
		{
			name:       "hotelrunner missing channel and agency pair",
			source:     model.SourceHotelRunner,
			reportType: model.ReportDailySales,
			filename:   "hotelrunner_daily_sales_2025-06-30.csv",
			content:    "date,booking_id,agency_id,gross_sales\n",
			wantErr:    "channel|agency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := selectedFile(t, t.TempDir(), tt.source, tt.reportType, tt.filename, tt.content)
			err := ValidateFile(s, config.DefaultMaxFileSizeBytes)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, pipeline.IsKind(err, pipeline.KindValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateFile_SizeCap(t *testing.T) {
	s := selectedFile(t, t.TempDir(), model.SourceElectra, model.ReportSalesSummary,
		"electra_sales_summary_2025-06-30.csv", "date,gross_sales\n2025-01-05,100.00\n")

	err := ValidateFile(s, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
	assert.Contains(t, err.Error(), "limit is 10 bytes")
}

func TestValidateSelectedFiles_FirstFailureAborts(t *testing.T) {
	dir := t.TempDir()
	good := selectedFile(t, dir, model.SourceElectra, model.ReportSalesSummary,
		"electra_sales_summary_2025-06-30.csv", "date,gross_sales\n")
	bad := selectedFile(t, dir, model.SourceElectra, model.ReportSalesByAgency,
		"electra_sales_by_agency_2025-06-30.csv", "date,gross_sales\n")

	err := ValidateSelectedFiles([]model.SelectedInboxFile{good, bad}, config.DefaultMaxFileSizeBytes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "electra_sales_by_agency_2025-06-30.csv")
}
