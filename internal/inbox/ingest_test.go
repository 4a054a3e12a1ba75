package inbox

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelops/recon/internal/config"
	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/normalize"
)

func seedInbox(t *testing.T, cfg config.Pipeline) {
	t.Helper()
	dropInboxFile(t, cfg, model.SourceElectra, "electra_sales_summary_2025-06-30.csv",
		"date,gross_sales,net_sales\n"+
			"2025-01-05,450.00,420.00\n"+
			"2025-01-06,300.00,280.00\n")
	dropInboxFile(t, cfg, model.SourceElectra, "electra_sales_by_agency_2025-06-30.csv",
		"date,agency_id,agency_name,gross_sales\n"+
			"2025-01-05,AG001,Atlas Partners,450.00\n"+
			"2025-01-06,AG002,Beacon Agency,300.00\n")
	dropInboxFile(t, cfg, model.SourceHotelRunner, "hotelrunner_daily_sales_2025-06-30.csv",
		"date,booking_id,channel,gross_sales\n"+
			"2025-01-05,BK-1,booking.com,450.00\n"+
			"2025-01-06,BK-2,direct,300.00\n")
}

func TestIngest_BuildsImmutableRun(t *testing.T) {
	cfg := testPipeline(t)
	seedInbox(t, cfg)

	var copied []string
	ingestor := &Ingestor{
		Config: cfg,
		OnFile: func(s model.SelectedInboxFile) { copied = append(copied, s.ReportType) },
	}
	result, err := ingestor.Ingest([]int{2025})
	require.NoError(t, err)
	assert.False(t, result.Reused)
	assert.Len(t, copied, 3)

	require.Regexp(t, regexp.MustCompile(`^inbox_2025-06-30_[0-9a-f]{12}$`), result.RunID)

	// Run directory holds copies, normalized outputs, and the manifest.
	assert.FileExists(t, result.ManifestPath)
	assert.FileExists(t, filepath.Join(result.RunRoot, model.SourceElectra, model.ReportSalesSummary, "2025", "electra_sales_summary_2025-06-30.csv"))
	assert.FileExists(t, filepath.Join(result.NormalizedRoot, normalize.ElectraYearFile(2025)))
	assert.FileExists(t, filepath.Join(result.NormalizedRoot, normalize.HotelRunnerYearFile(2025)))

	require.Len(t, result.Manifest.SelectedFiles, 3)
	assert.Equal(t, []int{2025}, result.Manifest.Years)
	for _, f := range result.Manifest.SelectedFiles {
		assert.Len(t, f.Sha256, 64)
		assert.False(t, filepath.IsAbs(f.InboxPath), "manifest paths are repo-relative")
		assert.False(t, strings.Contains(f.CopiedPath, ".tmp-"), "manifest records final paths")
	}

	// No staging directories survive.
	entries, err := os.ReadDir(cfg.RunsRoot)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, result.RunID, entries[0].Name())
}

func TestIngest_Reproducible(t *testing.T) {
	cfg := testPipeline(t)
	seedInbox(t, cfg)

	ingestor := &Ingestor{Config: cfg}
	first, err := ingestor.Ingest([]int{2025})
	require.NoError(t, err)

	firstManifest, err := os.ReadFile(first.ManifestPath)
	require.NoError(t, err)

	second, err := ingestor.Ingest([]int{2025})
	require.NoError(t, err)
	assert.True(t, second.Reused, "identical inbox contents reuse the finished run")
	assert.Equal(t, first.RunID, second.RunID)

	secondManifest, err := os.ReadFile(second.ManifestPath)
	require.NoError(t, err)
	assert.Equal(t, firstManifest, secondManifest, "manifest is byte-stable")
}

func TestIngest_ContentChangeChangesRunID(t *testing.T) {
	cfg := testPipeline(t)
	seedInbox(t, cfg)

	ingestor := &Ingestor{Config: cfg}
	first, err := ingestor.Ingest([]int{2025})
	require.NoError(t, err)

	dropInboxFile(t, cfg, model.SourceHotelRunner, "hotelrunner_daily_sales_2025-06-30.csv",
		"date,booking_id,channel,gross_sales\n"+
			"2025-01-05,BK-1,booking.com,451.00\n")
	second, err := ingestor.Ingest([]int{2025})
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestIngest_FailsOnIncompleteInbox(t *testing.T) {
	cfg := testPipeline(t)
	dropInboxFile(t, cfg, model.SourceElectra, "electra_sales_summary_2025-06-30.csv",
		"date,gross_sales\n2025-01-05,100.00\n")

	ingestor := &Ingestor{Config: cfg}
	_, err := ingestor.Ingest([]int{2025})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "electra:sales_by_agency:2025")
}

func TestReadManifest_RoundTrip(t *testing.T) {
	cfg := testPipeline(t)
	seedInbox(t, cfg)

	ingestor := &Ingestor{Config: cfg}
	result, err := ingestor.Ingest([]int{2025})
	require.NoError(t, err)

	manifest, err := ReadManifest(result.ManifestPath)
	require.NoError(t, err)
	assert.Equal(t, result.Manifest, *manifest)
}
